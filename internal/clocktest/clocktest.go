// Package clocktest steps a clockwork fake clock one deadline at a time.
// The fake runs AfterFunc callbacks on their own goroutines; Clock waits for
// each one to return before moving on, so timer-driven code observes the
// same order it would under real time.
package clocktest

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// callbackWait bounds how long Advance waits for a fired callback.
const callbackWait = 5 * time.Second

type Clock struct {
	*clockwork.FakeClock
	epoch time.Time

	mu     sync.Mutex
	timers []*timer
}

type timer struct {
	clockwork.Timer
	at      time.Time
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func New() *Clock {
	fc := clockwork.NewFakeClock()
	return &Clock{FakeClock: fc, epoch: fc.Now()}
}

// Elapsed is the virtual time since New.
func (c *Clock) Elapsed() time.Duration { return c.Since(c.epoch) }

func (c *Clock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	t := &timer{at: c.Now().Add(d), done: make(chan struct{}), stopped: make(chan struct{})}
	c.mu.Lock()
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	t.Timer = c.FakeClock.AfterFunc(d, func() {
		defer close(t.done)
		f()
	})
	return t
}

func (t *timer) Stop() bool {
	if !t.Timer.Stop() {
		return false
	}
	t.once.Do(func() { close(t.stopped) })
	return true
}

func (t *timer) settled() bool {
	select {
	case <-t.done:
		return true
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// Pending reports how many callbacks are scheduled and have neither run
// nor been stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return len(c.timers)
}

// Advance moves time forward by d. It stops at every deadline inside the
// window and waits for the callbacks due there, so a callback that
// schedules another one inside the window sees it run as well.
func (c *Clock) Advance(d time.Duration) {
	target := c.Now().Add(d)
	for {
		next, ok := c.nextDeadline(target)
		if !ok {
			break
		}
		c.FakeClock.Advance(max(next.Sub(c.Now()), 0))
		c.waitDue(next)
	}
	if rest := target.Sub(c.Now()); rest > 0 {
		c.FakeClock.Advance(rest)
	}
}

func (c *Clock) nextDeadline(target time.Time) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	var next time.Time
	found := false
	for _, t := range c.timers {
		if t.at.After(target) {
			continue
		}
		if !found || t.at.Before(next) {
			next, found = t.at, true
		}
	}
	return next, found
}

func (c *Clock) waitDue(at time.Time) {
	c.mu.Lock()
	var due []*timer
	for _, t := range c.timers {
		if !t.at.After(at) {
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		select {
		case <-t.done:
		case <-t.stopped:
		case <-time.After(callbackWait):
			panic("clocktest: callback due at " + at.String() + " never returned")
		}
	}
}

func (c *Clock) pruneLocked() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.settled() {
			live = append(live, t)
		}
	}
	c.timers = live
}
