package frontend

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	ws "nhooyr.io/websocket"

	"kiosk/agent/internal/auth"
	"kiosk/agent/internal/orchestrator"
	"kiosk/agent/internal/types"
)

// SessionLog is the session registry the handler checks and writes to.
type SessionLog interface {
	GetSession(id string) *types.Session
	AppendEvent(sessionID, typ string, payload map[string]any) types.Event
}

// Submitter routes events to running sessions.
type Submitter interface {
	Submit(id string, ev orchestrator.Event) error
}

type Server struct {
	TokenSecret    string
	TokenSkewSecs  int
	OriginPatterns []string

	Store    SessionLog
	Sessions Submitter
	Reg      *Registry
	Log      *zap.Logger

	// OnAvatarSession is told when the browser has opened its avatar stream.
	OnAvatarSession func(sessionID, streamID string)
	// OnStart launches the session once the screen is ready to greet.
	OnStart func(sessionID string) (bool, error)
}

// HandleKioskWS serves /ws/kiosk?session_id=...&token=...; the token may
// also come as a bearer header.
func (s *Server) HandleKioskWS(w http.ResponseWriter, r *http.Request) {
	log := s.logger()
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}
	if s.Store.GetSession(sessionID) == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	token := q.Get("token")
	if authz := r.Header.Get("Authorization"); token == "" && strings.HasPrefix(authz, "Bearer ") {
		token = strings.TrimPrefix(authz, "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	if s.TokenSecret == "" {
		http.Error(w, "screen auth not configured", http.StatusUnauthorized)
		return
	}
	if _, _, err := auth.ValidateSessionToken(s.TokenSecret, token, sessionID, time.Now(), s.TokenSkewSecs); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	c, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: s.OriginPatterns})
	if err != nil {
		log.Warn("ws accept", zap.Error(err))
		return
	}
	if s.Reg.Replace(sessionID, c) {
		s.Store.AppendEvent(sessionID, "screen_replaced", nil)
	}
	s.Store.AppendEvent(sessionID, "screen_connected", nil)
	log.Info("screen connected", zap.String("session_id", sessionID))

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Store.AppendEvent(sessionID, "screen_msg_invalid", map[string]any{"error": err.Error()})
			continue
		}
		wsInbound.WithLabelValues(msg.Type).Inc()
		s.handle(sessionID, msg)
	}
	_ = c.Close(ws.StatusNormalClosure, "done")
	s.Reg.Remove(sessionID, c)
	s.Store.AppendEvent(sessionID, "screen_disconnected", nil)
	log.Info("screen disconnected", zap.String("session_id", sessionID))
}

func (s *Server) handle(sessionID string, msg Message) {
	if msg.Type == TypeAvatarSession {
		stream := str(msg.Payload, "stream_id")
		s.Store.AppendEvent(sessionID, "avatar_session", map[string]any{"stream_id": stream})
		if s.OnAvatarSession != nil && stream != "" {
			s.OnAvatarSession(sessionID, stream)
		}
		return
	}
	if msg.Type == TypeStart {
		if s.OnStart == nil {
			return
		}
		if _, err := s.OnStart(sessionID); err != nil {
			s.Store.AppendEvent(sessionID, "screen_start_failed", map[string]any{"error": err.Error()})
		}
		return
	}
	ev, err := ToEvent(msg)
	if err != nil {
		s.Store.AppendEvent(sessionID, "screen_msg_invalid", map[string]any{"type": msg.Type, "error": err.Error()})
		return
	}
	if err := s.Sessions.Submit(sessionID, ev); err != nil {
		s.logger().Warn("submit", zap.String("session_id", sessionID), zap.String("type", msg.Type), zap.Error(err))
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
