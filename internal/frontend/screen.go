package frontend

import (
	"context"

	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/orchestrator"
)

// Screen is the kiosk browser as a Display and MediaPresenter for one
// session.
type Screen struct {
	reg       *Registry
	sessionID string
}

func NewScreen(reg *Registry, sessionID string) *Screen {
	return &Screen{reg: reg, sessionID: sessionID}
}

func (s *Screen) Show(ctx context.Context, cue orchestrator.Cue) error {
	p := map[string]any{"kind": string(cue.Kind)}
	if cue.Key != "" {
		p["key"] = cue.Key
	}
	if cue.Text != "" {
		p["text"] = cue.Text
	}
	if cue.Image != "" {
		p["image"] = cue.Image
	}
	if len(cue.Options) > 0 {
		opts := make([]map[string]any, 0, len(cue.Options))
		for _, o := range cue.Options {
			opts = append(opts, map[string]any{"kind": o.Kind, "key": o.Key, "label": o.Label})
		}
		p["options"] = opts
	}
	return s.reg.Send(ctx, s.sessionID, TypeCue, p)
}

func (s *Screen) Present(ctx context.Context, instance uint64, media catalog.MediaRef) error {
	return s.reg.Send(ctx, s.sessionID, TypePresent, map[string]any{
		"instance":    instance,
		"kind":        string(media.Kind),
		"url":         media.URL,
		"video_id":    media.VideoID,
		"signals_end": media.SignalsEnd,
	})
}

func (s *Screen) Close(ctx context.Context, instance uint64) error {
	return s.reg.Send(ctx, s.sessionID, TypeHideMedia, map[string]any{"instance": instance})
}

// Voice hands speech to the browser, which drives the avatar SDK itself.
// Used when the server has no HeyGen key of its own.
type Voice struct {
	reg       *Registry
	sessionID string
}

func NewVoice(reg *Registry, sessionID string) *Voice {
	return &Voice{reg: reg, sessionID: sessionID}
}

func (v *Voice) Speak(ctx context.Context, text string) error {
	return v.reg.Send(ctx, v.sessionID, TypeSpeak, map[string]any{"text": text, "task": "repeat"})
}

func (v *Voice) Talk(ctx context.Context, text string) error {
	return v.reg.Send(ctx, v.sessionID, TypeSpeak, map[string]any{"text": text, "task": "talk"})
}

func (v *Voice) Interrupt(ctx context.Context) error {
	return v.reg.Send(ctx, v.sessionID, TypeInterrupt, nil)
}
