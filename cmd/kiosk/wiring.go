package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"kiosk/agent/internal/answer"
	"kiosk/agent/internal/frontend"
	"kiosk/agent/internal/heygen"
	"kiosk/agent/internal/orchestrator"
)

// wiring builds each session's collaborators. With a HeyGen key the server
// drives the avatar itself; without one, speech goes to the browser.
type wiring struct {
	reg    *frontend.Registry
	heygen heygen.Client
	answer answer.Answerer
	avatar heygen.SessionOptions
	log    *zap.Logger

	mu      sync.Mutex
	actors  map[string]*heygen.Actor
	streams map[string]string
}

func newWiring(reg *frontend.Registry, hg heygen.Client, ans answer.Answerer, avatar heygen.SessionOptions, log *zap.Logger) *wiring {
	return &wiring{
		reg:     reg,
		heygen:  hg,
		answer:  ans,
		avatar:  avatar,
		log:     log,
		actors:  make(map[string]*heygen.Actor),
		streams: make(map[string]string),
	}
}

func (w *wiring) Collaborators(sessionID string) orchestrator.Collaborators {
	screen := frontend.NewScreen(w.reg, sessionID)
	var speech answer.Speaker = frontend.NewVoice(w.reg, sessionID)
	if w.heygen != nil {
		actor := heygen.NewActor(w.heygen)
		w.mu.Lock()
		id, attached := w.streams[sessionID]
		if attached {
			actor.SetStreamSession(id)
		}
		w.actors[sessionID] = actor
		w.mu.Unlock()
		if !attached {
			w.openStream(sessionID, actor)
		}
		speech = actor
	}
	if w.answer != nil {
		speech = answer.Assisted{Speaker: speech, Answerer: w.answer, Log: w.log}
	}
	return orchestrator.Collaborators{Speech: speech, Media: screen, Display: screen}
}

// AttachStream records the avatar stream the screen opened. It may arrive
// before or after the session starts.
func (w *wiring) AttachStream(sessionID, streamID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.streams[sessionID] = streamID
	if a, ok := w.actors[sessionID]; ok {
		a.SetStreamSession(streamID)
	}
	w.log.Debug("avatar stream attached", zap.String("session_id", sessionID), zap.String("stream_id", streamID))
}

// openStream starts a server-side avatar stream for a screen that did not
// open its own, and tells the screen how to join it. On failure the actor
// stays detached and every line surfaces as a speak error.
func (w *wiring) openStream(sessionID string, actor *heygen.Actor) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	s, err := actor.Open(ctx, w.avatar)
	if err != nil {
		w.log.Warn("open avatar stream", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	_ = w.reg.Send(ctx, sessionID, frontend.TypeAvatarStream, map[string]any{
		"stream_id":    s.SessionID,
		"url":          s.URL,
		"access_token": s.AccessToken,
	})
}

func (w *wiring) Release(sessionID string) {
	w.mu.Lock()
	a := w.actors[sessionID]
	delete(w.actors, sessionID)
	delete(w.streams, sessionID)
	w.mu.Unlock()
	w.reg.Forget(sessionID)
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		w.log.Warn("stop avatar stream", zap.String("session_id", sessionID), zap.Error(err))
	}
}
