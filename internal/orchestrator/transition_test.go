package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/intent"
)

func testEnv() Env {
	return Env{Resolver: intent.NewResolver(catalog.Default())}
}

func speeches(effects []Effect) []string {
	var out []string
	for _, e := range effects {
		if s, ok := e.(Speak); ok {
			out = append(out, s.Text)
		}
	}
	return out
}

func cues(effects []Effect, kind CueKind) []Cue {
	var out []Cue
	for _, e := range effects {
		if s, ok := e.(Show); ok && s.Cue.Kind == kind {
			out = append(out, s.Cue)
		}
	}
	return out
}

func findEffect[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if x, ok := e.(T); ok {
			return x, true
		}
	}
	var zero T
	return zero, false
}

// run feeds events in order, following Follow effects the way a Session
// does, and returns the final state and every effect produced.
func run(t *testing.T, s State, env Env, events ...Event) (State, []Effect) {
	t.Helper()
	var all []Effect
	queue := append([]Event(nil), events...)
	for len(queue) > 0 {
		ev := queue[0]
		queue = queue[1:]
		var effects []Effect
		s, effects = Transition(s, ev, env)
		all = append(all, effects...)
		var follow []Event
		for _, e := range effects {
			if f, ok := e.(Follow); ok {
				follow = append(follow, f.Event)
			}
		}
		queue = append(follow, queue...)
	}
	return s, all
}

func started(t *testing.T) State {
	t.Helper()
	s, _ := Transition(NewState("DEFAULT"), Start{}, testEnv())
	return s
}

func TestStartGreetsOnce(t *testing.T) {
	env := testEnv()
	s, effects := Transition(NewState("DEFAULT"), Start{}, env)

	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.True(t, s.Greeted)
	assert.Equal(t, greeting, speeches(effects))
	assert.Equal(t, "DEFAULT", s.CurrentBackground)
	_, ok := findEffect[ResetWatchdog](effects)
	assert.True(t, ok)

	// a second Start is out of phase
	again, effects := Transition(s, Start{}, env)
	assert.Equal(t, s, again)
	assert.Empty(t, effects)

	// returning to WELCOME never re-greets
	s, _ = run(t, s, env, IdleFired{}, PromptTimeoutFired{})
	require.Equal(t, PhaseWelcome, s.Phase)
	s, effects = Transition(s, Start{}, env)
	assert.True(t, s.Greeted)
	assert.Empty(t, speeches(effects))
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
}

func TestBackgroundCue(t *testing.T) {
	s, effects := run(t, started(t), testEnv(), UserInput{Text: "I'm from Stanford"})

	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, "STANFORD", s.CurrentBackground)
	assert.Empty(t, s.PendingModule)
	assert.Equal(t, []string{
		"Glad to hear from the great Stanford.",
		"What would you like to know: Drivestream topics or ERP training?",
	}, speeches(effects))
	require.Len(t, cues(effects, CueBackground), 1)
	assert.Equal(t, "/assets/stanford-university-title.jpg", cues(effects, CueBackground)[0].Image)
	menus := cues(effects, CueMenus)
	require.Len(t, menus, 1)
	assert.Equal(t, "module-1", menus[0].Options[0].Key)
	assert.Empty(t, cues(effects, CueConfirm))
}

func TestModuleFlowToMediaAndBack(t *testing.T) {
	env := testEnv()
	mod1, _ := env.catalog().Module("module-1")

	s, effects := run(t, started(t), env, UserInput{Text: "module 1"})
	assert.Equal(t, PhaseSpeaking, s.Phase)
	assert.Equal(t, "module-1", s.PendingModule)
	assert.Equal(t, []string{mod1.Summary}, speeches(effects))
	after, ok := findEffect[After](effects)
	require.True(t, ok)
	assert.Equal(t, TimerSpeech, after.Timer)
	assert.Equal(t, MaxSpeechDelay, after.Delay)
	assert.Equal(t, SpeechElapsed{Seq: s.SpeechSeq}, after.Event)

	s, effects = run(t, s, env, after.Event)
	assert.Equal(t, PhaseAwaitingConfirm, s.Phase)
	confirm := cues(effects, CueConfirm)
	require.Len(t, confirm, 1)
	assert.Equal(t, "module-1", confirm[0].Key)

	s, effects = run(t, s, env, ConfirmYes{})
	assert.Equal(t, PhasePresentingMedia, s.Phase)
	assert.Empty(t, s.PendingModule)
	present, ok := findEffect[Present](effects)
	require.True(t, ok)
	assert.Equal(t, Present{Instance: 1, Module: "module-1", Media: mod1.Media}, present)
	fallback, ok := findEffect[After](effects)
	require.True(t, ok, "synthesia media needs a fallback timer")
	assert.Equal(t, TimerMedia, fallback.Timer)
	assert.Equal(t, DefaultMediaFallback, fallback.Delay)

	s, effects = run(t, s, env, MediaEnded{Instance: present.Instance})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Zero(t, s.MediaInstance)
	assert.Equal(t, []string{msgMediaEnded}, speeches(effects))
	hide, ok := findEffect[HideMedia](effects)
	require.True(t, ok)
	assert.Equal(t, uint64(1), hide.Instance)
}

func TestMediaThatSignalsEndHasNoFallback(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, SelectModule{Key: "module-2"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
	s, effects := run(t, s, env, ConfirmYes{})

	assert.Equal(t, PhasePresentingMedia, s.Phase)
	_, ok := findEffect[After](effects)
	assert.False(t, ok)
}

func TestMediaFallbackEnds(t *testing.T) {
	env := testEnv()
	env.MediaFallback = time.Minute
	s, _ := run(t, started(t), env, UserInput{Text: "finance"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq}, ConfirmYes{})
	require.Equal(t, PhasePresentingMedia, s.Phase)

	// a stale instance is ignored
	same, effects := run(t, s, env, MediaEnded{Instance: 99, Fallback: true})
	assert.Equal(t, s, same)
	assert.Empty(t, effects)

	s, effects = run(t, s, env, MediaEnded{Instance: s.MediaInstance, Fallback: true})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, []string{msgMediaFallback}, speeches(effects))
}

func TestStaleSpeechElapsedIgnored(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "module 1"})
	stale := SpeechElapsed{Seq: s.SpeechSeq - 1}
	next, effects := run(t, s, env, stale)
	assert.Equal(t, s, next)
	assert.Empty(t, effects)
}

func TestConfirmNo(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "hr"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
	require.Equal(t, PhaseAwaitingConfirm, s.Phase)

	s, effects := run(t, s, env, ConfirmNo{})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Empty(t, s.PendingModule)
	assert.Equal(t, []string{msgSkipVideo}, speeches(effects))
	assert.Len(t, cues(effects, CueHideConfirm), 1)
}

func TestSpokenConfirmation(t *testing.T) {
	env := testEnv()
	awaiting := func() State {
		s, _ := run(t, started(t), env, UserInput{Text: "module 1"})
		s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
		require.Equal(t, PhaseAwaitingConfirm, s.Phase)
		return s
	}

	s, _ := run(t, awaiting(), env, UserInput{Text: "Yes!"})
	assert.Equal(t, PhasePresentingMedia, s.Phase)

	s, _ = run(t, awaiting(), env, UserInput{Text: "sure thing"})
	assert.Equal(t, PhasePresentingMedia, s.Phase)

	s, effects := run(t, awaiting(), env, UserInput{Text: "no thanks"})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, []string{msgSkipVideo}, speeches(effects))
}

func TestNewModuleReplacesPendingConfirmation(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "module 1"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
	require.Equal(t, PhaseAwaitingConfirm, s.Phase)
	seq := s.SpeechSeq

	s, effects := run(t, s, env, UserInput{Text: "tell me about human resources"})
	assert.Equal(t, PhaseSpeaking, s.Phase)
	assert.Equal(t, "module-2", s.PendingModule)
	assert.Len(t, cues(effects, CueHideConfirm), 1)
	assert.Greater(t, s.SpeechSeq, seq)
}

func TestTopicFlow(t *testing.T) {
	env := testEnv()
	s, effects := run(t, started(t), env, UserInput{Text: "what industries do you serve"})

	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	tp, _ := env.catalog().Topic("industries")
	assert.Equal(t, []string{
		tp.Summary + " You can learn more here: " + tp.URL,
		"Would you like to hear about ERP training as well, or explore another Drivestream topic?",
	}, speeches(effects))
	assert.Len(t, cues(effects, CueMenus), 1)
	assert.Empty(t, cues(effects, CueConfirm))

	// the topic passes through SPEAKING while its lines are said
	mid, effects := Transition(started(t), SelectTopic{Key: "retail"}, env)
	assert.Equal(t, PhaseSpeaking, mid.Phase)
	_, ok := findEffect[Follow](effects)
	assert.True(t, ok)
}

func TestOrganizationFallsBackToHomeTopic(t *testing.T) {
	env := testEnv()
	_, effects := run(t, started(t), env, UserInput{Text: "what does Drivestream do"})
	home, _ := env.catalog().Topic("home")
	require.NotEmpty(t, speeches(effects))
	assert.Contains(t, speeches(effects)[0], home.Summary)
}

func TestFreeFormAndFallback(t *testing.T) {
	env := testEnv()
	s, effects := run(t, started(t), env, UserInput{Text: "the weather today"})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	talk, ok := findEffect[Talk](effects)
	require.True(t, ok)
	assert.Equal(t, "the weather today", talk.Text)

	s, effects = run(t, s, env, TalkFailed{})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, []string{
		"There isn't enough information for that. Try asking about Drivestream or ERP Module 1/2.",
	}, speeches(effects))
}

func TestBlankInputIsActivityOnly(t *testing.T) {
	s, effects := run(t, started(t), testEnv(), UserInput{Text: "  ?! "})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, []Effect{ResetWatchdog{}}, effects)
}

func TestUnknownKeysAreRecoverable(t *testing.T) {
	env := testEnv()
	s, effects := run(t, started(t), env, SelectModule{Key: "module-9"})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, []string{msgNoInfo}, speeches(effects))

	s, effects = run(t, s, env, SelectTopic{Key: "nope"})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, []string{msgNoInfo}, speeches(effects))
}

func TestIdlePromptAndResume(t *testing.T) {
	env := testEnv()
	s, effects := run(t, started(t), env, IdleFired{})
	assert.Equal(t, PhaseIdlePrompt, s.Phase)
	assert.Equal(t, PhaseAwaitingInput, s.ResumePhase)
	require.Len(t, cues(effects, CueIdlePrompt), 1)

	// a second idle while prompting changes nothing
	same, effects := run(t, s, env, IdleFired{})
	assert.Equal(t, s, same)
	assert.Empty(t, effects)

	s, effects = run(t, s, env, Activity{})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Empty(t, s.ResumePhase)
	assert.Len(t, cues(effects, CueHideIdle), 1)
	_, ok := findEffect[ResetWatchdog](effects)
	assert.True(t, ok)
}

func TestInputDuringIdlePromptResumesThenResolves(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, IdleFired{})
	s, effects := run(t, s, env, UserInput{Text: "module 2"})
	assert.Equal(t, PhaseSpeaking, s.Phase)
	assert.Equal(t, "module-2", s.PendingModule)
	assert.Len(t, cues(effects, CueHideIdle), 1)
}

func TestIdleDuringMediaOnlyRearms(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, SelectModule{Key: "module-2"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq}, ConfirmYes{})
	require.Equal(t, PhasePresentingMedia, s.Phase)

	next, effects := run(t, s, env, IdleFired{})
	assert.Equal(t, s, next)
	assert.Equal(t, []Effect{ResetWatchdog{}}, effects)
}

func TestPromptTimeoutResetsVisit(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "Harvard"}, UserInput{Text: "module 1"})
	require.Equal(t, "HARVARD", s.CurrentBackground)
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
	require.Equal(t, PhaseAwaitingConfirm, s.Phase)

	s, effects := run(t, s, env, IdleFired{}, PromptTimeoutFired{})
	assert.Equal(t, PhaseWelcome, s.Phase)
	assert.Equal(t, "DEFAULT", s.CurrentBackground)
	assert.Empty(t, s.PendingModule)
	assert.True(t, s.Greeted)
	_, ok := findEffect[Interrupt](effects)
	assert.True(t, ok)
	assert.Empty(t, speeches(effects))

	// input at WELCOME is handled like AWAITING_INPUT
	s, _ = run(t, s, env, UserInput{Text: "oxford"})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, "OXFORD", s.CurrentBackground)
}

func TestIdleBetweenVisitsIgnored(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, EndSession{})
	require.Equal(t, PhaseWelcome, s.Phase)

	next, effects := Transition(s, IdleFired{}, env)
	assert.Equal(t, s, next)
	assert.Empty(t, effects)
}

func TestPromptTimeoutOutsideIdlePromptIgnored(t *testing.T) {
	s := started(t)
	next, effects := Transition(s, PromptTimeoutFired{}, testEnv())
	assert.Equal(t, s, next)
	assert.Empty(t, effects)
}

func TestEndSessionHidesMedia(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, SelectModule{Key: "module-1"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq}, ConfirmYes{})
	inst := s.MediaInstance

	s, effects := run(t, s, env, EndSession{})
	assert.Equal(t, PhaseWelcome, s.Phase)
	assert.Zero(t, s.MediaInstance)
	hide, ok := findEffect[HideMedia](effects)
	require.True(t, ok)
	assert.Equal(t, inst, hide.Instance)
	_, ok = findEffect[ResetWatchdog](effects)
	assert.False(t, ok, "an ended visit leaves the watchdog dormant")
}

func TestInputWhileSpeakingIsDeferred(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "module 1"})

	s, effects := run(t, s, env, UserInput{Text: "yes"})
	assert.Equal(t, PhaseSpeaking, s.Phase)
	assert.Empty(t, effects)
	require.Len(t, s.Deferred, 1)

	// the deferred reply answers the confirmation once it is shown
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
	assert.Equal(t, PhasePresentingMedia, s.Phase)
	assert.Empty(t, s.Deferred)
}

func TestCloseMediaCancelsFallback(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "stanford"}, SelectModule{Key: "module-1"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq}, ConfirmYes{})
	require.Equal(t, PhasePresentingMedia, s.Phase)

	s, effects := run(t, s, env, CloseMedia{})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Contains(t, effects, Effect(Cancel{Timer: TimerMedia}))
	assert.Equal(t, []string{msgMediaClosed}, speeches(effects))
	assert.Equal(t, "DEFAULT", s.CurrentBackground)

	// nothing on screen: close is a no-op beyond activity
	_, effects = run(t, s, env, CloseMedia{})
	assert.Equal(t, []Effect{ResetWatchdog{}}, effects)
}

func playing(t *testing.T, env Env, from string) State {
	t.Helper()
	s, _ := run(t, started(t), env, UserInput{Text: "I'm from " + from})
	s, _ = run(t, s, env, SelectModule{Key: "module-1"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq}, ConfirmYes{})
	require.Equal(t, PhasePresentingMedia, s.Phase)
	return s
}

func TestRequestsDuringMedia(t *testing.T) {
	env := testEnv()

	t.Run("module keeps background", func(t *testing.T) {
		s := playing(t, env, "Stanford")
		s, effects := run(t, s, env, UserInput{Text: "module 2"})
		assert.Equal(t, PhaseSpeaking, s.Phase)
		assert.Zero(t, s.MediaInstance)
		assert.Equal(t, "module-2", s.PendingModule)
		assert.Equal(t, "STANFORD", s.CurrentBackground)
		assert.Contains(t, effects, Effect(HideMedia{Instance: 1}))
		assert.Empty(t, cues(effects, CueBackground))
	})

	t.Run("topic restores default background", func(t *testing.T) {
		s := playing(t, env, "Stanford")
		s, effects := run(t, s, env, UserInput{Text: "consulting"})
		assert.Equal(t, PhaseAwaitingInput, s.Phase)
		assert.Zero(t, s.MediaInstance)
		assert.Equal(t, "DEFAULT", s.CurrentBackground)
		assert.Contains(t, effects, Effect(HideMedia{Instance: 1}))
	})

	t.Run("menu selections preempt", func(t *testing.T) {
		s := playing(t, env, "Stanford")
		s, _ = run(t, s, env, SelectTopic{Key: "payroll"})
		assert.Zero(t, s.MediaInstance)
		assert.Equal(t, "DEFAULT", s.CurrentBackground)
	})

	t.Run("free-form keeps playing", func(t *testing.T) {
		s := playing(t, env, "Stanford")
		next, effects := run(t, s, env, UserInput{Text: "what is the capital of france"})
		assert.Equal(t, PhasePresentingMedia, next.Phase)
		assert.Equal(t, s.MediaInstance, next.MediaInstance)
		assert.Equal(t, "STANFORD", next.CurrentBackground)
		_, hid := findEffect[HideMedia](effects)
		assert.False(t, hid)
		_, talked := findEffect[Talk](effects)
		assert.False(t, talked)
	})

	t.Run("university switches background under media", func(t *testing.T) {
		s := playing(t, env, "Stanford")
		next, effects := run(t, s, env, UserInput{Text: "actually harvard"})
		assert.Equal(t, PhasePresentingMedia, next.Phase)
		assert.Equal(t, s.MediaInstance, next.MediaInstance)
		assert.Equal(t, "HARVARD", next.CurrentBackground)
		_, hid := findEffect[HideMedia](effects)
		assert.False(t, hid)
	})
}

func TestDeferredInputDroppedAcrossIdlePrompt(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "module 1"}, UserInput{Text: "yes"})
	require.Len(t, s.Deferred, 1)

	s, _ = run(t, s, env, IdleFired{})
	require.Equal(t, PhaseIdlePrompt, s.Phase)
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
	assert.Empty(t, s.Deferred)

	s, _ = run(t, s, env, Activity{})
	require.Equal(t, PhaseAwaitingConfirm, s.Phase)
	s, _ = run(t, s, env, ConfirmNo{})
	assert.Empty(t, s.Deferred)

	s, _ = run(t, s, env, UserInput{Text: "hr"})
	s, effects := run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq})
	assert.Equal(t, PhaseAwaitingConfirm, s.Phase)
	assert.Equal(t, "module-2", s.PendingModule)
	_, presented := findEffect[Present](effects)
	assert.False(t, presented, "module-2 needs its own yes")
}

func TestCancelledConfirmationDropsQueuedInput(t *testing.T) {
	s := started(t)
	s.Phase = PhaseAwaitingConfirm
	s.PendingModule = "module-1"
	s.Deferred = []Event{ConfirmYes{}}

	s, _ = Transition(s, ConfirmNo{}, testEnv())
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Empty(t, s.Deferred)
}

func TestPresentFailure(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, SelectModule{Key: "module-1"})
	s, _ = run(t, s, env, SpeechElapsed{Seq: s.SpeechSeq}, ConfirmYes{})

	s, effects := run(t, s, env, PresentFailed{Instance: s.MediaInstance})
	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Zero(t, s.MediaInstance)
	assert.Equal(t, []string{msgPresentFailed}, speeches(effects))
}

func TestConfirmOutsideConfirmPhaseIgnored(t *testing.T) {
	s := started(t)
	next, effects := Transition(s, ConfirmYes{}, testEnv())
	assert.Equal(t, s, next)
	assert.Equal(t, []Effect{ResetWatchdog{}}, effects)
}

func TestEstimateSpeech(t *testing.T) {
	assert.Equal(t, MinSpeechDelay, EstimateSpeech(""))
	assert.Equal(t, MinSpeechDelay, EstimateSpeech("hello"))
	assert.InDelta(t, 5000, EstimateSpeech("one two three four five six seven eight nine ten eleven").Milliseconds(), 1)
	assert.Equal(t, MaxSpeechDelay, EstimateSpeech(catalog.Default().Modules[0].Summary))
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	env := testEnv()
	s, _ := run(t, started(t), env, UserInput{Text: "module 1"}, UserInput{Text: "hello"})
	require.Len(t, s.Deferred, 1)
	before := s.clone()
	_, _ = Transition(s, UserInput{Text: "again"}, env)
	assert.Equal(t, before, s)
}
