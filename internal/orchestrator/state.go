package orchestrator

// Phase is the session's single current phase.
type Phase string

const (
	PhaseWelcome         Phase = "WELCOME"
	PhaseAwaitingInput   Phase = "AWAITING_INPUT"
	PhaseSpeaking        Phase = "SPEAKING"
	PhaseAwaitingConfirm Phase = "AWAITING_CONFIRM"
	PhasePresentingMedia Phase = "PRESENTING_MEDIA"
	PhaseIdlePrompt      Phase = "IDLE_PROMPT"
)

// State is everything the orchestrator knows about one kiosk visit. It is
// owned by a single Session and only changed through Transition.
type State struct {
	Phase             Phase
	PendingModule     string
	CurrentBackground string
	Greeted           bool

	// ResumePhase is the phase interrupted by the idle prompt.
	ResumePhase Phase

	// SpeechSeq identifies the current estimated-speech delay so a stale
	// elapse from a cancelled flow is dropped.
	SpeechSeq uint64

	// MediaInstance is non-zero while media is on screen. mediaSeq hands
	// out instance numbers.
	MediaInstance uint64
	MediaModule   string
	mediaSeq      uint64

	// Deferred holds user events that arrived while SPEAKING.
	Deferred []Event
}

// NewState returns the initial WELCOME state with the given default
// background.
func NewState(defaultBackground string) State {
	return State{Phase: PhaseWelcome, CurrentBackground: defaultBackground}
}

func (s State) clone() State {
	if s.Deferred != nil {
		s.Deferred = append([]Event(nil), s.Deferred...)
	}
	return s
}
