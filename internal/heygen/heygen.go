// Package heygen drives a HeyGen streaming avatar over its REST API.
package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.heygen.com"

// Task types accepted by streaming.task.
const (
	TaskRepeat = "repeat"
	TaskTalk   = "talk"
)

var ErrNoAPIKey = errors.New("heygen: api key not configured")

// StreamSession is what streaming.new hands back.
type StreamSession struct {
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
	AccessToken string `json:"access_token"`
}

// SessionOptions configures streaming.new.
type SessionOptions struct {
	AvatarName    string
	Quality       string
	Language      string
	KnowledgeBase string
	IdleTimeout   time.Duration
}

type Client interface {
	CreateToken(ctx context.Context) (string, error)
	NewSession(ctx context.Context, opts SessionOptions) (StreamSession, error)
	StartSession(ctx context.Context, sessionID string) error
	Task(ctx context.Context, sessionID, text, taskType string) error
	Interrupt(ctx context.Context, sessionID string) error
	StopSession(ctx context.Context, sessionID string) error
}

type HTTPClient struct {
	http   *http.Client
	apiKey string
	base   string
}

func NewClient(apiKey, baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		http:   &http.Client{Timeout: 15 * time.Second},
		apiKey: apiKey,
		base:   strings.TrimSuffix(baseURL, "/"),
	}
}

// CreateToken mints a short-lived token the browser SDK uses to open the
// avatar stream.
func (c *HTTPClient) CreateToken(ctx context.Context) (string, error) {
	var parsed struct {
		Token string `json:"token"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := c.post(ctx, "streaming.create_token", nil, &parsed); err != nil {
		return "", err
	}
	tok := parsed.Data.Token
	if tok == "" {
		tok = parsed.Token
	}
	if tok == "" {
		return "", fmt.Errorf("heygen streaming.create_token: empty token")
	}
	return tok, nil
}

func (c *HTTPClient) NewSession(ctx context.Context, opts SessionOptions) (StreamSession, error) {
	body := map[string]any{
		"version":     "v2",
		"avatar_name": opts.AvatarName,
		"quality":     opts.Quality,
		"language":    opts.Language,
	}
	if opts.KnowledgeBase != "" {
		body["knowledge_base"] = opts.KnowledgeBase
	}
	if opts.IdleTimeout > 0 {
		body["activity_idle_timeout"] = int(opts.IdleTimeout.Seconds())
	}
	var parsed struct {
		Data StreamSession `json:"data"`
	}
	if err := c.post(ctx, "streaming.new", body, &parsed); err != nil {
		return StreamSession{}, err
	}
	if parsed.Data.SessionID == "" {
		return StreamSession{}, fmt.Errorf("heygen streaming.new: empty session_id")
	}
	return parsed.Data, nil
}

func (c *HTTPClient) StartSession(ctx context.Context, sessionID string) error {
	return c.post(ctx, "streaming.start", map[string]any{"session_id": sessionID}, nil)
}

func (c *HTTPClient) Task(ctx context.Context, sessionID, text, taskType string) error {
	return c.post(ctx, "streaming.task", map[string]any{
		"session_id": sessionID,
		"text":       text,
		"task_type":  taskType,
	}, nil)
}

func (c *HTTPClient) Interrupt(ctx context.Context, sessionID string) error {
	return c.post(ctx, "streaming.interrupt", map[string]any{"session_id": sessionID}, nil)
}

func (c *HTTPClient) StopSession(ctx context.Context, sessionID string) error {
	return c.post(ctx, "streaming.stop", map[string]any{"session_id": sessionID}, nil)
}

func (c *HTTPClient) post(ctx context.Context, op string, body any, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	start := time.Now()
	err := c.do(ctx, op, body, out)
	heygenLatencyMS.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
	status := "ok"
	if err != nil {
		status = "error"
	}
	heygenRequestsTotal.WithLabelValues(op, status).Inc()
	return err
}

func (c *HTTPClient) do(ctx context.Context, op string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/"+op, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("heygen %s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("heygen %s: %s: %s", op, resp.Status, string(b))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("heygen %s: decode: %w", op, err)
	}
	return nil
}
