package heygen

import (
	"context"
	"errors"
	"sync"
)

var ErrNoStream = errors.New("heygen: no avatar stream attached")

// Actor speaks through one avatar stream. The stream is usually opened by
// the kiosk browser with a token from CreateToken and attached afterwards
// with SetStreamSession.
type Actor struct {
	client Client

	mu        sync.Mutex
	sessionID string
}

func NewActor(c Client) *Actor { return &Actor{client: c} }

// SetStreamSession attaches the actor to a HeyGen streaming session id.
func (a *Actor) SetStreamSession(id string) {
	a.mu.Lock()
	a.sessionID = id
	a.mu.Unlock()
}

func (a *Actor) StreamSession() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Open creates and starts a server-side stream and attaches it.
func (a *Actor) Open(ctx context.Context, opts SessionOptions) (StreamSession, error) {
	s, err := a.client.NewSession(ctx, opts)
	if err != nil {
		return StreamSession{}, err
	}
	if err := a.client.StartSession(ctx, s.SessionID); err != nil {
		return StreamSession{}, err
	}
	a.SetStreamSession(s.SessionID)
	return s, nil
}

func (a *Actor) Speak(ctx context.Context, text string) error {
	return a.task(ctx, text, TaskRepeat)
}

func (a *Actor) Talk(ctx context.Context, text string) error {
	return a.task(ctx, text, TaskTalk)
}

func (a *Actor) Interrupt(ctx context.Context) error {
	sid := a.StreamSession()
	if sid == "" {
		return nil
	}
	return a.client.Interrupt(ctx, sid)
}

// Close stops the attached stream, if any.
func (a *Actor) Close(ctx context.Context) error {
	a.mu.Lock()
	sid := a.sessionID
	a.sessionID = ""
	a.mu.Unlock()
	if sid == "" {
		return nil
	}
	return a.client.StopSession(ctx, sid)
}

func (a *Actor) task(ctx context.Context, text, typ string) error {
	sid := a.StreamSession()
	if sid == "" {
		return ErrNoStream
	}
	return a.client.Task(ctx, sid, text, typ)
}
