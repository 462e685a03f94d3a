package orchestrator

import "kiosk/agent/internal/watchdog"

// Event is the closed set of inputs the state machine understands.
type Event interface {
	eventName() string
}

type (
	// Start begins the visit.
	Start struct{}

	// UserInput is a typed or transcribed utterance.
	UserInput struct{ Text string }

	// SelectModule and SelectTopic are menu button presses.
	SelectModule struct{ Key string }
	SelectTopic  struct{ Key string }

	ConfirmYes struct{}
	ConfirmNo  struct{}

	// MediaEnded is reported by the presenter, or by the fallback timer for
	// media that cannot signal completion.
	MediaEnded struct {
		Instance uint64
		Fallback bool
	}

	// CloseMedia is the user dismissing the media overlay.
	CloseMedia struct{}

	// IdleFired and PromptTimeoutFired come from the watchdog. A non-zero
	// Epoch that a later reset has overtaken is dropped by the Session.
	IdleFired          struct{ Epoch watchdog.Epoch }
	PromptTimeoutFired struct{ Epoch watchdog.Epoch }

	// Activity is the idle modal's "stay" button or any pointer activity.
	Activity struct{}

	// EndSession is the idle modal's "end" button: the visit is reset as
	// if the prompt had timed out.
	EndSession struct{}

	// SpeechElapsed marks the end of an estimated speaking delay.
	SpeechElapsed struct{ Seq uint64 }

	// TalkFailed and PresentFailed feed collaborator failures back in.
	TalkFailed    struct{}
	PresentFailed struct{ Instance uint64 }
)

func (Start) eventName() string              { return "start" }
func (UserInput) eventName() string          { return "user_input" }
func (SelectModule) eventName() string       { return "select_module" }
func (SelectTopic) eventName() string        { return "select_topic" }
func (ConfirmYes) eventName() string         { return "confirm_yes" }
func (ConfirmNo) eventName() string          { return "confirm_no" }
func (MediaEnded) eventName() string         { return "media_ended" }
func (CloseMedia) eventName() string         { return "close_media" }
func (IdleFired) eventName() string          { return "idle_fired" }
func (PromptTimeoutFired) eventName() string { return "prompt_timeout" }
func (Activity) eventName() string           { return "activity" }
func (EndSession) eventName() string         { return "end_session" }
func (SpeechElapsed) eventName() string      { return "speech_elapsed" }
func (TalkFailed) eventName() string         { return "talk_failed" }
func (PresentFailed) eventName() string      { return "present_failed" }

// EventName returns the stable wire/log name of an event.
func EventName(e Event) string { return e.eventName() }

// isUserDriven reports events that count as user activity.
func isUserDriven(e Event) bool {
	switch e.(type) {
	case UserInput, SelectModule, SelectTopic, ConfirmYes, ConfirmNo, CloseMedia, Activity, EndSession:
		return true
	}
	return false
}
