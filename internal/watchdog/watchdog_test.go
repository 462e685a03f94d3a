package watchdog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"kiosk/agent/internal/clocktest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	clk    *clocktest.Clock
	idle   []time.Duration
	prompt []time.Duration
}

func newRecorder() *recorder { return &recorder{clk: clocktest.New()} }

func (r *recorder) start(cfg Config) *Watchdog {
	return Start(cfg, r.clk,
		func(Epoch) { r.idle = append(r.idle, r.clk.Elapsed()) },
		func(Epoch) { r.prompt = append(r.prompt, r.clk.Elapsed()) })
}

var kioskConfig = Config{IdleTimeout: 30 * time.Second, PromptTimeout: 10 * time.Second}

func TestIdleThenPromptTimeout(t *testing.T) {
	r := newRecorder()
	r.start(kioskConfig)

	r.clk.Advance(29999 * time.Millisecond)
	assert.Empty(t, r.idle)

	r.clk.Advance(time.Millisecond)
	assert.Equal(t, []time.Duration{30 * time.Second}, r.idle)
	assert.Empty(t, r.prompt)

	r.clk.Advance(10 * time.Second)
	assert.Equal(t, []time.Duration{40 * time.Second}, r.prompt)

	// dormant until reset
	r.clk.Advance(time.Minute)
	assert.Len(t, r.idle, 1)
	assert.Len(t, r.prompt, 1)
	assert.Zero(t, r.clk.Pending())
}

func TestResetPushesIdle(t *testing.T) {
	r := newRecorder()
	w := r.start(kioskConfig)

	r.clk.Advance(20 * time.Second)
	w.Reset()

	r.clk.Advance(29 * time.Second)
	assert.Empty(t, r.idle)
	r.clk.Advance(time.Second)
	assert.Equal(t, []time.Duration{50 * time.Second}, r.idle)
}

func TestResetDuringPromptStage(t *testing.T) {
	r := newRecorder()
	w := r.start(kioskConfig)

	r.clk.Advance(35 * time.Second)
	require.Len(t, r.idle, 1)
	w.Reset()

	r.clk.Advance(10 * time.Second)
	assert.Empty(t, r.prompt, "reset must cancel the prompt stage")

	r.clk.Advance(20 * time.Second)
	assert.Equal(t, []time.Duration{30 * time.Second, 65 * time.Second}, r.idle)
}

func TestStopCancelsEverything(t *testing.T) {
	r := newRecorder()
	w := r.start(kioskConfig)

	r.clk.Advance(31 * time.Second)
	w.Stop()
	w.Reset()
	r.clk.Advance(time.Hour)

	assert.Len(t, r.idle, 1)
	assert.Empty(t, r.prompt)
	assert.Zero(t, r.clk.Pending())
}

func TestDefaults(t *testing.T) {
	r := newRecorder()
	r.start(Config{})
	r.clk.Advance(DefaultIdleTimeout + DefaultPromptTimeout)
	assert.Len(t, r.idle, 1)
	assert.Len(t, r.prompt, 1)
}

func TestRealScheduler(t *testing.T) {
	var idle, prompt atomic.Int32
	w := Start(Config{IdleTimeout: 20 * time.Millisecond, PromptTimeout: 20 * time.Millisecond}, nil,
		func(Epoch) { idle.Add(1) },
		func(Epoch) { prompt.Add(1) })
	defer w.Stop()

	require.Eventually(t, func() bool { return prompt.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), idle.Load())
}

func TestEpochTracksResets(t *testing.T) {
	clk := clocktest.New()
	var idleEpoch Epoch
	w := Start(kioskConfig, clk, func(e Epoch) { idleEpoch = e }, nil)

	clk.Advance(kioskConfig.IdleTimeout)
	assert.True(t, w.Current(idleEpoch), "no reset since the callback")

	w.Reset()
	assert.False(t, w.Current(idleEpoch), "reset overtakes the fired epoch")

	w.Stop()
	clk.Advance(time.Hour)
	assert.False(t, w.Current(idleEpoch))
}
