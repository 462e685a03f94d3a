package orchestrator

import (
	"time"

	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/intent"
	"kiosk/agent/internal/textmatch"
)

// DefaultMediaFallback bounds media that never reports completion.
const DefaultMediaFallback = 120 * time.Second

// Env is the read-only context a transition resolves against.
type Env struct {
	Resolver      *intent.Resolver
	MediaFallback time.Duration
}

func (e Env) catalog() *catalog.Catalog { return e.Resolver.Catalog() }

func (e Env) mediaFallback() time.Duration {
	if e.MediaFallback <= 0 {
		return DefaultMediaFallback
	}
	return e.MediaFallback
}

// Transition is the whole state machine: given the current state and one
// event it returns the next state and the effects to carry out, in order.
// It touches nothing but metrics. Out-of-phase events leave the state
// unchanged.
func Transition(s State, ev Event, env Env) (State, []Effect) {
	t := &transition{s: s.clone(), env: env}
	t.handle(ev)
	return t.s, t.out
}

type transition struct {
	s   State
	env Env
	out []Effect
}

func (t *transition) emit(e ...Effect) { t.out = append(t.out, e...) }

func (t *transition) speak(text string) { t.emit(Speak{Text: text}) }

func (t *transition) show(c Cue) { t.emit(Show{Cue: c}) }

func (t *transition) handle(ev Event) {
	switch e := ev.(type) {
	case Start:
		t.start()
	case SpeechElapsed:
		t.speechElapsed(e)
	case MediaEnded:
		t.mediaEnded(e)
	case PresentFailed:
		t.presentFailed(e)
	case TalkFailed:
		t.speak(msgFallback(t.env.catalog().Organization))
	case IdleFired:
		t.idle()
	case PromptTimeoutFired:
		if t.s.Phase == PhaseIdlePrompt {
			t.resetVisit()
		}
	default:
		if isUserDriven(ev) {
			t.user(ev)
		}
	}
}

func (t *transition) start() {
	if t.s.Phase != PhaseWelcome {
		return
	}
	cat := t.env.catalog()
	t.s.CurrentBackground = cat.DefaultBackground.Key
	t.show(backgroundCue(cat.DefaultBackground))
	if !t.s.Greeted {
		t.s.Greeted = true
		for _, line := range greeting {
			t.speak(line)
		}
	}
	t.s.Phase = PhaseAwaitingInput
	t.emit(ResetWatchdog{})
}

// user applies the phase-independent handling every user event gets before
// it is dispatched.
func (t *transition) user(ev Event) {
	if _, ok := ev.(EndSession); ok {
		t.resetVisit()
		return
	}
	switch t.s.Phase {
	case PhaseIdlePrompt:
		t.resume()
		if _, ok := ev.(Activity); !ok {
			t.emit(Follow{Event: ev})
		}
		return
	case PhaseSpeaking:
		t.s.Deferred = append(t.s.Deferred, ev)
		return
	}

	t.emit(ResetWatchdog{})

	switch e := ev.(type) {
	case ConfirmYes:
		if t.s.Phase == PhaseAwaitingConfirm {
			t.confirmYes()
		}
	case ConfirmNo:
		if t.s.Phase == PhaseAwaitingConfirm {
			t.confirmNo()
		}
	case CloseMedia:
		if t.s.MediaInstance != 0 {
			t.hideMedia()
			t.speak(msgMediaClosed)
			t.s.Phase = PhaseAwaitingInput
		}
	case UserInput:
		if textmatch.Normalize(e.Text) == "" {
			return
		}
		if t.s.Phase == PhaseAwaitingConfirm {
			if yes, no := confirmAnswer(e.Text); yes {
				t.confirmYes()
				return
			} else if no {
				t.confirmNo()
				return
			}
		}
		t.resolve(e.Text)
	case SelectModule:
		t.leaveFor(intent.KindModule)
		t.startModule(e.Key)
	case SelectTopic:
		t.leaveFor(intent.KindTopic)
		t.startTopic(e.Key)
	}
}

// leaveFor drops a pending confirmation before a new request is handled.
// On-screen media gives way only to another module or a topic: a module
// keeps the current background, a topic restores the default.
func (t *transition) leaveFor(kind intent.Kind) {
	switch t.s.Phase {
	case PhaseAwaitingConfirm:
		t.cancelConfirm()
	case PhasePresentingMedia:
		switch kind {
		case intent.KindModule:
			t.emit(Cancel{Timer: TimerMedia}, HideMedia{Instance: t.s.MediaInstance})
			t.s.MediaInstance, t.s.MediaModule = 0, ""
		case intent.KindTopic:
			t.hideMedia()
		default:
			return
		}
	}
	t.s.Phase = PhaseAwaitingInput
}

func (t *transition) resolve(text string) {
	in := t.env.Resolver.Resolve(text)
	metricIntents.WithLabelValues(string(in.Kind)).Inc()
	if t.s.Phase == PhasePresentingMedia {
		switch in.Kind {
		case intent.KindModule, intent.KindTopic:
		case intent.KindBackground:
			t.setBackground(in.Key)
			return
		default:
			// the microphone stays open during playback
			return
		}
	}
	t.leaveFor(in.Kind)
	switch in.Kind {
	case intent.KindBackground:
		t.setBackground(in.Key)
	case intent.KindModule:
		metricModuleScore.Observe(in.Score)
		t.startModule(in.Key)
	case intent.KindTopic:
		t.startTopic(in.Key)
	default:
		t.emit(Talk{Text: text})
		t.s.Phase = PhaseAwaitingInput
	}
}

func (t *transition) setBackground(key string) {
	cat := t.env.catalog()
	b, ok := cat.Background(key)
	if !ok {
		t.speak(msgNoInfo)
		return
	}
	t.s.CurrentBackground = b.Key
	t.show(backgroundCue(b))
	label := b.Label
	if label == "" {
		label = b.Key
	}
	t.speak(msgBackgroundAck(label))
	t.speak(msgChoices(cat.Organization))
	t.show(menusCue(cat))
	if t.s.Phase != PhasePresentingMedia {
		t.s.Phase = PhaseAwaitingInput
	}
}

func (t *transition) startModule(key string) {
	m, ok := t.env.catalog().Module(key)
	if !ok {
		t.speak(msgNoInfo)
		t.s.Phase = PhaseAwaitingInput
		return
	}
	if t.s.PendingModule != "" {
		t.cancelConfirm()
	}
	t.show(Cue{Kind: CueHideMenus})
	t.s.SpeechSeq++
	t.s.Deferred = nil
	t.s.PendingModule = m.Key
	t.s.Phase = PhaseSpeaking
	t.speak(m.Summary)
	t.emit(After{Timer: TimerSpeech, Delay: EstimateSpeech(m.Summary), Event: SpeechElapsed{Seq: t.s.SpeechSeq}})
}

func (t *transition) startTopic(key string) {
	cat := t.env.catalog()
	tp, ok := cat.Topic(key)
	if !ok {
		t.speak(msgNoInfo)
		t.s.Phase = PhaseAwaitingInput
		return
	}
	t.show(Cue{Kind: CueHideMenus})
	t.s.SpeechSeq++
	t.s.Phase = PhaseSpeaking
	t.speak(msgTopic(tp))
	t.speak(msgTopicFollowUp(cat.Organization))
	t.show(menusCue(cat))
	t.emit(Follow{Event: SpeechElapsed{Seq: t.s.SpeechSeq}})
}

func (t *transition) speechElapsed(e SpeechElapsed) {
	if e.Seq != t.s.SpeechSeq {
		return
	}
	next := PhaseAwaitingInput
	if t.s.PendingModule != "" {
		next = PhaseAwaitingConfirm
	}
	switch {
	case t.s.Phase == PhaseSpeaking:
		t.s.Phase = next
		for _, d := range t.s.Deferred {
			t.emit(Follow{Event: d})
		}
		t.s.Deferred = nil
	case t.s.Phase == PhaseIdlePrompt && t.s.ResumePhase == PhaseSpeaking:
		// input queued before the prompt is stale once the user went quiet
		t.s.ResumePhase = next
		t.s.Deferred = nil
	default:
		return
	}
	if next == PhaseAwaitingConfirm {
		if m, ok := t.env.catalog().Module(t.s.PendingModule); ok {
			t.show(Cue{Kind: CueConfirm, Key: m.Key, Text: msgConfirm(m)})
		}
	}
}

func (t *transition) confirmYes() {
	t.show(Cue{Kind: CueHideConfirm})
	m, ok := t.env.catalog().Module(t.s.PendingModule)
	t.s.PendingModule = ""
	if !ok {
		t.speak(msgPresentFailed)
		t.s.Phase = PhaseAwaitingInput
		return
	}
	t.s.mediaSeq++
	t.s.MediaInstance = t.s.mediaSeq
	t.s.MediaModule = m.Key
	t.s.Phase = PhasePresentingMedia
	t.emit(Present{Instance: t.s.MediaInstance, Module: m.Key, Media: m.Media})
	if !m.Media.SignalsEnd {
		t.emit(After{Timer: TimerMedia, Delay: t.env.mediaFallback(), Event: MediaEnded{Instance: t.s.MediaInstance, Fallback: true}})
	}
}

func (t *transition) confirmNo() {
	t.cancelConfirm()
	t.speak(msgSkipVideo)
	t.s.Phase = PhaseAwaitingInput
}

func (t *transition) cancelConfirm() {
	t.show(Cue{Kind: CueHideConfirm})
	t.s.PendingModule = ""
	t.s.Deferred = nil
}

func (t *transition) presentFailed(e PresentFailed) {
	if e.Instance == 0 || e.Instance != t.s.MediaInstance {
		return
	}
	t.emit(Cancel{Timer: TimerMedia})
	t.s.MediaInstance, t.s.MediaModule = 0, ""
	t.speak(msgPresentFailed)
	if t.s.Phase == PhasePresentingMedia {
		t.s.Phase = PhaseAwaitingInput
	}
}

func (t *transition) mediaEnded(e MediaEnded) {
	if e.Instance == 0 || e.Instance != t.s.MediaInstance {
		return
	}
	t.hideMedia()
	if e.Fallback {
		t.speak(msgMediaFallback)
	} else {
		t.speak(msgMediaEnded)
	}
	t.s.Phase = PhaseAwaitingInput
	t.emit(ResetWatchdog{})
}

// hideMedia takes media off screen; like the overlay close it restores the
// default background.
func (t *transition) hideMedia() {
	t.emit(Cancel{Timer: TimerMedia}, HideMedia{Instance: t.s.MediaInstance})
	t.s.MediaInstance, t.s.MediaModule = 0, ""
	t.restoreBackground()
}

func (t *transition) restoreBackground() {
	def := t.env.catalog().DefaultBackground
	if t.s.CurrentBackground != def.Key {
		t.s.CurrentBackground = def.Key
		t.show(backgroundCue(def))
	}
}

func (t *transition) idle() {
	switch t.s.Phase {
	case PhaseIdlePrompt, PhaseWelcome:
		// nobody to prompt between visits
		return
	case PhasePresentingMedia:
		// playback is not inactivity
		t.emit(ResetWatchdog{})
		return
	}
	t.s.ResumePhase = t.s.Phase
	t.s.Phase = PhaseIdlePrompt
	t.show(Cue{Kind: CueIdlePrompt, Text: msgStillThere})
	metricIdlePrompts.Inc()
}

func (t *transition) resume() {
	t.show(Cue{Kind: CueHideIdle})
	t.s.Phase = t.s.ResumePhase
	if t.s.Phase == "" {
		t.s.Phase = PhaseAwaitingInput
	}
	t.s.ResumePhase = ""
	t.emit(ResetWatchdog{})
}

// resetVisit returns the kiosk to WELCOME for the next visitor. The
// greeting gate is left as is.
func (t *transition) resetVisit() {
	t.emit(Interrupt{}, Cancel{Timer: TimerSpeech})
	if t.s.MediaInstance != 0 {
		t.emit(Cancel{Timer: TimerMedia}, HideMedia{Instance: t.s.MediaInstance})
		t.s.MediaInstance, t.s.MediaModule = 0, ""
	}
	t.show(Cue{Kind: CueHideIdle})
	t.show(Cue{Kind: CueHideConfirm})
	t.show(Cue{Kind: CueHideMenus})
	def := t.env.catalog().DefaultBackground
	t.s.CurrentBackground = def.Key
	t.show(backgroundCue(def))
	t.s.PendingModule = ""
	t.s.SpeechSeq++
	t.s.Deferred = nil
	t.s.ResumePhase = ""
	t.s.Phase = PhaseWelcome
	metricVisitResets.Inc()
}

func backgroundCue(b catalog.Background) Cue {
	return Cue{Kind: CueBackground, Key: b.Key, Image: b.ImageRef}
}

func menusCue(c *catalog.Catalog) Cue {
	opts := make([]Option, 0, len(c.Modules)+len(c.Topics))
	for _, m := range c.Modules {
		label := m.Title
		if label == "" {
			label = m.Key
		}
		opts = append(opts, Option{Kind: "module", Key: m.Key, Label: label})
	}
	for _, tp := range c.Topics {
		opts = append(opts, Option{Kind: "topic", Key: tp.Key, Label: tp.Key})
	}
	return Cue{Kind: CueMenus, Options: opts}
}
