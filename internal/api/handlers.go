package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kiosk/agent/internal/auth"
	"kiosk/agent/internal/config"
	"kiosk/agent/internal/frontend"
	"kiosk/agent/internal/heygen"
	"kiosk/agent/internal/orchestrator"
	"kiosk/agent/internal/store"
	"kiosk/agent/internal/types"
)

var errSessionEnded = errors.New("session ended")

// Sessions is the orchestrator manager as the API sees it.
type Sessions interface {
	Launch(id string, build func(id string) orchestrator.Collaborators) (*orchestrator.Session, error)
	Get(id string) (*orchestrator.Session, bool)
	Submit(id string, ev orchestrator.Event) error
	End(id string) error
	IDs() []string
}

// Wiring builds the collaborators of a new session and releases them when
// the session ends.
type Wiring interface {
	Collaborators(sessionID string) orchestrator.Collaborators
	Release(sessionID string)
}

// TokenMinter issues avatar streaming tokens for the browser.
type TokenMinter interface {
	CreateToken(ctx context.Context) (string, error)
}

type Handlers struct {
	cfg      config.Config
	store    *store.Store
	sessions Sessions
	wiring   Wiring
	tokens   TokenMinter
	log      *zap.Logger
}

func NewHandlers(cfg config.Config, st *store.Store, s Sessions, w Wiring, tm TokenMinter, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{cfg: cfg, store: st, sessions: s, wiring: w, tokens: tm, log: log}
}

func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Organization string `json:"organization"`
		Source       string `json:"source"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}
	id := uuid.New().String()
	sess := &types.Session{
		ID:           id,
		Organization: req.Organization,
		Source:       req.Source,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.CreateSession(sess); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.store.AppendEvent(id, "session_created", map[string]any{"source": req.Source})

	resp := map[string]any{"session_id": id}
	if h.cfg.Kiosk.WSTokenSecret != "" {
		exp := time.Now().Add(time.Duration(h.cfg.Kiosk.WSTokenTTLMin) * time.Minute).Unix()
		tok, err := auth.GenerateSessionToken(h.cfg.Kiosk.WSTokenSecret, id, exp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp["ws_token"] = tok
		resp["ws_url"] = "/ws/kiosk?session_id=" + id + "&token=" + url.QueryEscape(tok)
		resp["expires_at"] = exp
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartSession launches the orchestrator for a created session. It reports
// false when the session was already running.
func (h *Handlers) StartSession(id string) (bool, error) {
	sess := h.store.GetSession(id)
	if sess == nil {
		return false, orchestrator.ErrUnknownSession
	}
	if sess.Status == store.StatusEnded {
		return false, errSessionEnded
	}
	_, err := h.sessions.Launch(id, func(id string) orchestrator.Collaborators {
		if h.wiring == nil {
			return orchestrator.Collaborators{}
		}
		return h.wiring.Collaborators(id)
	})
	switch {
	case errors.Is(err, orchestrator.ErrSessionExists):
		return false, nil
	case errors.Is(err, orchestrator.ErrStartAbandoned):
		if h.wiring != nil {
			h.wiring.Release(id)
		}
		return false, errSessionEnded
	case err != nil:
		return false, err
	}
	h.store.AppendEvent(id, "session_started", nil)
	return true, nil
}

func (h *Handlers) HandleStartSession(w http.ResponseWriter, r *http.Request, id string) {
	started, err := h.StartSession(id)
	switch {
	case errors.Is(err, orchestrator.ErrUnknownSession):
		http.NotFound(w, r)
		return
	case errors.Is(err, errSessionEnded):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !started {
		h.store.AppendEvent(id, "session_start_requested", map[string]any{"noop": true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": true})
}

func (h *Handlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	running := map[string]bool{}
	for _, id := range h.sessions.IDs() {
		running[id] = true
	}
	ids := h.store.ListSessionIDs()
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		sess := h.store.GetSession(id)
		if sess == nil {
			continue
		}
		out = append(out, map[string]any{
			"session_id": id,
			"status":     sess.Status,
			"created_at": sess.CreatedAt,
			"running":    running[id],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.store.GetSession(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	resp := map[string]any{"session": sess}
	if s, ok := h.sessions.Get(id); ok {
		st := s.State()
		resp["phase"] = st.Phase
		resp["background"] = st.CurrentBackground
		resp["pending_module"] = st.PendingModule
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleEndSession(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.store.GetSession(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	if sess.Status == store.StatusEnded {
		h.store.AppendEvent(id, "session_end_requested", map[string]any{"noop": true})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": false})
		return
	}
	h.store.AppendEvent(id, "session_end_requested", nil)
	if err := h.sessions.End(id); err != nil && !errors.Is(err, orchestrator.ErrUnknownSession) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if h.wiring != nil {
		h.wiring.Release(id)
	}
	h.store.MarkEnded(id, time.Now().UTC())
	h.store.AppendEvent(id, "session_ended", nil)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": false})
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request, id string) {
	sess := h.store.GetSession(id)
	if sess == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"events":     h.store.ListEvents(id),
	})
}

// HandleInput accepts {"text": "..."} for typed input, or any screen
// message as {"type": "...", "payload": {...}}.
func (h *Handlers) HandleInput(w http.ResponseWriter, r *http.Request, id string) {
	if h.store.GetSession(id) == nil {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Text    string         `json:"text"`
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	msg := frontend.Message{SessionID: id, Type: req.Type, Payload: req.Payload}
	if msg.Type == "" {
		msg.Type = frontend.TypeInput
		msg.Payload = map[string]any{"text": req.Text}
	}
	ev, err := frontend.ToEvent(msg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.Debug("input", zap.String("session_id", id), zap.String("event", orchestrator.EventName(ev)))
	switch err := h.sessions.Submit(id, ev); {
	case errors.Is(err, orchestrator.ErrUnknownSession), errors.Is(err, orchestrator.ErrClosed):
		http.Error(w, "session not running", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// HandleAvatarToken proxies a HeyGen streaming token to the kiosk browser.
func (h *Handlers) HandleAvatarToken(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil || h.cfg.HeyGen.APIKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing HEYGEN_API_KEY env var"})
		return
	}
	tok, err := h.tokens.CreateToken(r.Context())
	if errors.Is(err, heygen.ErrNoAPIKey) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing HEYGEN_API_KEY env var"})
		return
	}
	if err != nil {
		h.log.Warn("avatar token", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
