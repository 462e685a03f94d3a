package orchestrator

import (
	"context"

	"kiosk/agent/internal/catalog"
)

// SpeechActor is the avatar voice.
type SpeechActor interface {
	// Speak says text verbatim and returns once the actor accepted it.
	Speak(ctx context.Context, text string) error
	// Talk answers a free-form question in the actor's own words.
	Talk(ctx context.Context, text string) error
	// Interrupt stops current speech.
	Interrupt(ctx context.Context) error
}

// MediaPresenter shows module media. Completion is reported asynchronously
// by submitting MediaEnded{Instance} to the session.
type MediaPresenter interface {
	Present(ctx context.Context, instance uint64, media catalog.MediaRef) error
	Close(ctx context.Context, instance uint64) error
}

// Display renders cues on the kiosk screen.
type Display interface {
	Show(ctx context.Context, cue Cue) error
}

// Collaborators bundles the outside world of one session. Nil members are
// replaced with no-ops.
type Collaborators struct {
	Speech  SpeechActor
	Media   MediaPresenter
	Display Display
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Speech == nil {
		c.Speech = nopSpeech{}
	}
	if c.Media == nil {
		c.Media = nopMedia{}
	}
	if c.Display == nil {
		c.Display = nopDisplay{}
	}
	return c
}

type nopSpeech struct{}

func (nopSpeech) Speak(context.Context, string) error { return nil }
func (nopSpeech) Talk(context.Context, string) error  { return nil }
func (nopSpeech) Interrupt(context.Context) error     { return nil }

type nopMedia struct{}

func (nopMedia) Present(context.Context, uint64, catalog.MediaRef) error { return nil }
func (nopMedia) Close(context.Context, uint64) error                     { return nil }

type nopDisplay struct{}

func (nopDisplay) Show(context.Context, Cue) error { return nil }
