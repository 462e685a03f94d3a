package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"kiosk/agent/internal/types"
	"kiosk/agent/internal/watchdog"
)

var ErrClosed = errors.New("session closed")

const (
	eventQueueSize       = 64
	defaultEffectTimeout = 15 * time.Second
)

// EventLog receives a record of everything a session does.
type EventLog interface {
	AppendEvent(sessionID, typ string, payload map[string]any) types.Event
}

type Options struct {
	ID            string
	Env           Env
	Watchdog      watchdog.Config
	Clock         clockwork.Clock
	Logger        *zap.Logger
	EventLog      EventLog
	EffectTimeout time.Duration
}

// Session is the actor owning one State. Events are processed one at a
// time, to completion, including waiting on collaborators; anything
// submitted meanwhile queues behind.
type Session struct {
	id            string
	env           Env
	collab        Collaborators
	clock         clockwork.Clock
	log           *zap.Logger
	evlog         EventLog
	effectTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once

	wd *watchdog.Watchdog
	// timers is only touched by the actor goroutine, and by Close once it
	// has exited.
	timers map[TimerKind]clockwork.Timer

	mu    sync.RWMutex
	state State
}

// StartSession spawns the actor and delivers Start to it.
func StartSession(opts Options, collab Collaborators) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.EffectTimeout <= 0 {
		opts.EffectTimeout = defaultEffectTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:            opts.ID,
		env:           opts.Env,
		collab:        collab.withDefaults(),
		clock:         opts.Clock,
		log:           opts.Logger.Named("orch").With(zap.String("session_id", opts.ID)),
		evlog:         opts.EventLog,
		effectTimeout: opts.EffectTimeout,
		ctx:           ctx,
		cancel:        cancel,
		events:        make(chan Event, eventQueueSize),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		timers:        make(map[TimerKind]clockwork.Timer),
		state:         NewState(opts.Env.catalog().DefaultBackground.Key),
	}
	s.wd = watchdog.Start(opts.Watchdog, opts.Clock,
		func(e watchdog.Epoch) { _ = s.Submit(IdleFired{Epoch: e}) },
		func(e watchdog.Epoch) { _ = s.Submit(PromptTimeoutFired{Epoch: e}) })

	s.events <- Start{}
	metricActiveSessions.Inc()
	go s.run()
	return s
}

func (s *Session) ID() string { return s.id }

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Submit queues an event. It blocks while the queue is full.
func (s *Session) Submit(ev Event) error {
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.quit:
		return ErrClosed
	}
}

type barrier struct{ reached chan struct{} }

func (barrier) eventName() string { return "barrier" }

// Sync waits until every event submitted before it, and everything those
// events caused directly, has been processed.
func (s *Session) Sync(ctx context.Context) error {
	b := barrier{reached: make(chan struct{})}
	if err := s.Submit(b); err != nil {
		return err
	}
	select {
	case <-b.reached:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the actor has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close stops the actor, the watchdog and any pending timers. Media still on
// screen is taken down.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		close(s.quit)
		<-s.done
		s.wd.Stop()
		for k, t := range s.timers {
			t.Stop()
			delete(s.timers, k)
		}
		if inst := s.State().MediaInstance; inst != 0 {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = s.collab.Media.Close(ctx, inst)
			cancel()
		}
		metricActiveSessions.Dec()
		s.record("session_closed", nil)
		s.log.Info("session closed")
	})
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.events:
			if b, ok := ev.(barrier); ok {
				close(b.reached)
				continue
			}
			if s.stale(ev) {
				continue
			}
			s.dispatch(ev)
		}
	}
}

// stale reports watchdog events overtaken by a reset that happened after
// they fired.
func (s *Session) stale(ev Event) bool {
	var e watchdog.Epoch
	switch x := ev.(type) {
	case IdleFired:
		e = x.Epoch
	case PromptTimeoutFired:
		e = x.Epoch
	default:
		return false
	}
	return e != 0 && !s.wd.Current(e)
}

// dispatch runs ev and every Follow it produces before returning to the
// queue.
func (s *Session) dispatch(ev Event) {
	queue := []Event{ev}
	for len(queue) > 0 {
		if s.ctx.Err() != nil {
			return
		}
		next := queue[0]
		queue = append(s.step(next), queue[1:]...)
	}
}

func (s *Session) step(ev Event) []Event {
	prev := s.state
	next, effects := Transition(prev, ev, s.env)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	name := ev.eventName()
	metricEvents.WithLabelValues(name).Inc()
	if prev.Phase != next.Phase {
		metricStateTransitions.WithLabelValues(string(prev.Phase), string(next.Phase)).Inc()
		s.log.Debug("phase", zap.String("event", name),
			zap.String("from", string(prev.Phase)), zap.String("to", string(next.Phase)))
		s.record("phase", map[string]any{"event": name, "from": string(prev.Phase), "to": string(next.Phase)})
	}

	var follow []Event
	for _, e := range effects {
		follow = append(follow, s.exec(e)...)
	}
	return follow
}

func (s *Session) exec(e Effect) []Event {
	start := time.Now()
	defer func() {
		metricEffectLatency.WithLabelValues(e.effectName()).Observe(float64(time.Since(start).Milliseconds()))
	}()

	switch x := e.(type) {
	case Speak:
		s.record("speak", map[string]any{"text": x.Text})
		if err := s.call(func(ctx context.Context) error { return s.collab.Speech.Speak(ctx, x.Text) }); err != nil {
			s.failed("speech", err)
			s.showError("Speak failed: " + err.Error())
		}
	case Talk:
		s.record("talk", map[string]any{"text": x.Text})
		if err := s.call(func(ctx context.Context) error { return s.collab.Speech.Talk(ctx, x.Text) }); err != nil {
			s.failed("speech", err)
			return []Event{TalkFailed{}}
		}
	case Interrupt:
		if err := s.call(s.collab.Speech.Interrupt); err != nil {
			s.failed("speech", err)
		}
	case Present:
		s.record("present", map[string]any{"instance": x.Instance, "module": x.Module, "kind": string(x.Media.Kind)})
		if err := s.call(func(ctx context.Context) error { return s.collab.Media.Present(ctx, x.Instance, x.Media) }); err != nil {
			s.failed("media", err)
			return []Event{PresentFailed{Instance: x.Instance}}
		}
	case HideMedia:
		s.record("hide_media", map[string]any{"instance": x.Instance})
		if err := s.call(func(ctx context.Context) error { return s.collab.Media.Close(ctx, x.Instance) }); err != nil {
			s.failed("media", err)
		}
	case Show:
		if err := s.call(func(ctx context.Context) error { return s.collab.Display.Show(ctx, x.Cue) }); err != nil {
			s.failed("display", err)
		}
	case ResetWatchdog:
		s.wd.Reset()
	case After:
		s.stopTimer(x.Timer)
		ev := x.Event
		s.timers[x.Timer] = s.clock.AfterFunc(x.Delay, func() { _ = s.Submit(ev) })
	case Cancel:
		s.stopTimer(x.Timer)
	case Follow:
		return []Event{x.Event}
	}
	return nil
}

func (s *Session) call(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.effectTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Session) stopTimer(k TimerKind) {
	if t, ok := s.timers[k]; ok {
		t.Stop()
		delete(s.timers, k)
	}
}

func (s *Session) failed(collaborator string, err error) {
	metricCollaboratorFailures.WithLabelValues(collaborator).Inc()
	s.log.Warn("collaborator failed", zap.String("collaborator", collaborator), zap.Error(err))
	s.record("collaborator_error", map[string]any{"collaborator": collaborator, "error": err.Error()})
}

func (s *Session) showError(text string) {
	if err := s.call(func(ctx context.Context) error {
		return s.collab.Display.Show(ctx, Cue{Kind: CueError, Text: text})
	}); err != nil {
		metricCollaboratorFailures.WithLabelValues("display").Inc()
	}
}

func (s *Session) record(typ string, payload map[string]any) {
	if s.evlog != nil {
		s.evlog.AppendEvent(s.id, typ, payload)
	}
}
