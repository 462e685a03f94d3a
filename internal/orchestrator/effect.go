package orchestrator

import (
	"time"

	"kiosk/agent/internal/catalog"
)

// Effect is an instruction produced by Transition and carried out by the
// Session against its collaborators, in order.
type Effect interface {
	effectName() string
}

type TimerKind string

const (
	TimerSpeech TimerKind = "speech"
	TimerMedia  TimerKind = "media"
)

type (
	// Speak has the avatar say text verbatim.
	Speak struct{ Text string }

	// Talk hands a free-form question to the speech actor to answer.
	Talk struct{ Text string }

	// Interrupt stops any speech in progress.
	Interrupt struct{}

	Present struct {
		Instance uint64
		Module   string
		Media    catalog.MediaRef
	}

	HideMedia struct{ Instance uint64 }

	Show struct{ Cue Cue }

	ResetWatchdog struct{}

	// After delivers Event once Delay has passed. A later After or Cancel
	// of the same Timer replaces it.
	After struct {
		Timer TimerKind
		Delay time.Duration
		Event Event
	}

	Cancel struct{ Timer TimerKind }

	// Follow processes Event right after this transition, ahead of
	// anything already queued.
	Follow struct{ Event Event }
)

func (Speak) effectName() string         { return "speak" }
func (Talk) effectName() string          { return "talk" }
func (Interrupt) effectName() string     { return "interrupt" }
func (Present) effectName() string       { return "present" }
func (HideMedia) effectName() string     { return "hide_media" }
func (Show) effectName() string          { return "show" }
func (ResetWatchdog) effectName() string { return "reset_watchdog" }
func (After) effectName() string         { return "after" }
func (Cancel) effectName() string        { return "cancel" }
func (Follow) effectName() string        { return "follow" }

type CueKind string

const (
	CueMenus       CueKind = "menus"
	CueHideMenus   CueKind = "hide_menus"
	CueConfirm     CueKind = "confirm"
	CueHideConfirm CueKind = "hide_confirm"
	CueIdlePrompt  CueKind = "idle_prompt"
	CueHideIdle    CueKind = "hide_idle"
	CueBackground  CueKind = "background"
	CueError       CueKind = "error"
)

// Cue is a visual change for the kiosk screen.
type Cue struct {
	Kind    CueKind  `json:"kind"`
	Key     string   `json:"key,omitempty"`
	Text    string   `json:"text,omitempty"`
	Image   string   `json:"image,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// Option is one menu button.
type Option struct {
	Kind  string `json:"kind"` // "module" | "topic"
	Key   string `json:"key"`
	Label string `json:"label"`
}
