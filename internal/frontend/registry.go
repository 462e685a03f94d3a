package frontend

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "nhooyr.io/websocket"
)

// Registry keeps at most one screen connection per session.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*ws.Conn
	seq   map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*ws.Conn), seq: make(map[string]int64)}
}

// Replace sets the connection for a session and closes the previous one if present.
func (r *Registry) Replace(sessionID string, c *ws.Conn) (prevClosed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.conns[sessionID]; ok && old != nil {
		_ = old.Close(ws.StatusNormalClosure, "replaced")
		prevClosed = true
	} else {
		wsClients.Inc()
	}
	r.conns[sessionID] = c
	return
}

func (r *Registry) Get(sessionID string) *ws.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[sessionID]
}

// Remove forgets c if it is still the session's connection.
func (r *Registry) Remove(sessionID string, c *ws.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[sessionID]; ok && cur == c {
		delete(r.conns, sessionID)
		wsClients.Dec()
	}
}

// Send stamps and writes a message. A session without a screen drops it.
func (r *Registry) Send(ctx context.Context, sessionID, typ string, payload map[string]any) error {
	r.mu.Lock()
	c := r.conns[sessionID]
	r.seq[sessionID]++
	m := Message{
		Type:      typ,
		TsMs:      time.Now().UnixMilli(),
		SessionID: sessionID,
		Seq:       r.seq[sessionID],
		Payload:   payload,
	}
	r.mu.Unlock()
	if c == nil {
		wsDropped.WithLabelValues(typ).Inc()
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	wsOutbound.WithLabelValues(typ).Inc()
	return c.Write(ctx, ws.MessageText, b)
}

// Forget drops the sequence counter of an ended session.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.seq, sessionID)
	r.mu.Unlock()
}
