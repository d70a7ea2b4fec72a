package reminder

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClockTimerFires(t *testing.T) {
	clk := clock.NewFake()
	timers := NewTimers(clk, zap.NewNop().Sugar())

	fired := make(chan struct{})
	timers.Arm(time.Minute, func() { close(fired) })

	time.Sleep(10 * time.Millisecond) // let the timer goroutine register
	clk.Add(time.Minute)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestClockTimerCancel(t *testing.T) {
	clk := clock.NewFake()
	timers := NewTimers(clk, zap.NewNop().Sugar())

	var fired atomic.Bool
	h := timers.Arm(time.Minute, func() { fired.Store(true) })

	time.Sleep(10 * time.Millisecond)
	h.Cancel()
	clk.Add(time.Hour)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load(), "cancelled timer must not fire")
}

func TestClockTimerCancelIdempotent(t *testing.T) {
	clk := clock.NewFake()
	timers := NewTimers(clk, zap.NewNop().Sugar())

	h := timers.Arm(time.Minute, func() {})

	// cancelling twice is a no-op, not a panic
	h.Cancel()
	h.Cancel()
}

func TestClockTimerCancelAfterFire(t *testing.T) {
	clk := clock.NewFake()
	timers := NewTimers(clk, zap.NewNop().Sugar())

	fired := make(chan struct{})
	h := timers.Arm(time.Minute, func() { close(fired) })

	time.Sleep(10 * time.Millisecond)
	clk.Add(time.Minute)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	require.NotPanics(t, func() { h.Cancel() })
}
