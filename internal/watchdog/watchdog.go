// Package watchdog implements the two-stage inactivity timer: after
// IdleTimeout without a Reset it fires OnIdle, and if nothing resets it
// within a further PromptTimeout it fires OnPromptTimeout.
package watchdog

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultIdleTimeout   = 30 * time.Second
	DefaultPromptTimeout = 10 * time.Second
)

type Config struct {
	IdleTimeout   time.Duration
	PromptTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.PromptTimeout <= 0 {
		c.PromptTimeout = DefaultPromptTimeout
	}
	return c
}

// Epoch identifies one arming of the watchdog. Every Reset and Stop starts
// a new epoch, so a callback's epoch tells the receiver whether the event
// was overtaken by later activity. Epochs start at 1.
type Epoch uint64

type stage int

const (
	stageIdle stage = iota
	stagePrompt
	stageDone
)

// Watchdog is safe for concurrent use. Callbacks run on the clock's
// goroutine and must not block.
type Watchdog struct {
	cfg             Config
	clock           clockwork.Clock
	onIdle          func(Epoch)
	onPromptTimeout func(Epoch)

	mu      sync.Mutex
	timer   clockwork.Timer
	stage   stage
	gen     Epoch
	stopped bool
}

// Start arms the first stage immediately.
func Start(cfg Config, clock clockwork.Clock, onIdle, onPromptTimeout func(Epoch)) *Watchdog {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	w := &Watchdog{
		cfg:             cfg.withDefaults(),
		clock:           clock,
		onIdle:          onIdle,
		onPromptTimeout: onPromptTimeout,
		gen:             1,
	}
	w.mu.Lock()
	w.armLocked(stageIdle, w.cfg.IdleTimeout)
	w.mu.Unlock()
	return w
}

// Reset cancels whichever stage is pending and restarts the idle stage.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.cancelLocked()
	w.armLocked(stageIdle, w.cfg.IdleTimeout)
}

// Stop cancels both stages for good. Later Reset calls are no-ops.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.cancelLocked()
}

// Current reports whether e is still the live epoch.
func (w *Watchdog) Current(e Epoch) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.stopped && e == w.gen
}

func (w *Watchdog) cancelLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	// a callback that already left the timer but has not taken the lock
	// sees a newer generation and drops itself
	w.gen++
}

func (w *Watchdog) armLocked(s stage, d time.Duration) {
	gen := w.gen
	w.stage = s
	w.timer = w.clock.AfterFunc(d, func() { w.fire(gen, s) })
}

func (w *Watchdog) fire(gen Epoch, s stage) {
	w.mu.Lock()
	if w.stopped || gen != w.gen || s != w.stage {
		w.mu.Unlock()
		return
	}
	var cb func(Epoch)
	switch s {
	case stageIdle:
		w.armLocked(stagePrompt, w.cfg.PromptTimeout)
		cb = w.onIdle
	case stagePrompt:
		w.stage = stageDone
		w.timer = nil
		cb = w.onPromptTimeout
	}
	w.mu.Unlock()

	if cb != nil {
		cb(gen)
	}
}
