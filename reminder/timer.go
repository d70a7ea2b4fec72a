package reminder

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"
)

// Handle is an armed timer. Cancel is idempotent: cancelling twice, or
// cancelling a one-shot that already fired, is a no-op.
type Handle interface {
	Cancel()
}

// Timers is the capability the scheduler uses to arm one-shot timers. The
// scheduler never depends on a concrete timer shape, so tests can drive
// firings by hand.
type Timers interface {
	Arm(d time.Duration, fn func()) Handle
}

type clockTimers struct {
	clk    clock.Clock
	logger *zap.SugaredLogger
}

// NewTimers returns clock-backed Timers. With a fake clock the timers fire
// when the clock is advanced past their deadline.
func NewTimers(clk clock.Clock, logger *zap.SugaredLogger) Timers {
	return &clockTimers{clk: clk, logger: logger}
}

type clockTimer struct {
	id   uuid.UUID
	stop chan struct{}
	once sync.Once
}

func (t *clockTimers) Arm(d time.Duration, fn func()) Handle {
	h := &clockTimer{id: uuid.New(), stop: make(chan struct{})}
	t.logger.Debugw("arming timer", "timer", h.id, "in", d)

	go func() {
		select {
		case <-t.clk.After(d):
			fn()
		case <-h.stop:
			t.logger.Debugw("timer cancelled", "timer", h.id)
		}
	}()

	return h
}

func (t *clockTimer) Cancel() {
	t.once.Do(func() { close(t.stop) })
}
