// Package clock provides cancellable timers that run their callbacks on a
// caller-provided executor, plus a logical clock for tests.
package clock

import (
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. It returns false if the callback already ran
	// or the timer was already stopped.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Executor runs f on the owner's goroutine. It returns false if f was dropped
// (owner closed).
type Executor func(f func()) bool

// Real is a wall-clock Clock whose callbacks are posted to an executor.
// Stop must be called from the executor goroutine; a timer stopped there never
// runs, even if the underlying time.Timer already fired and posted it.
type Real struct {
	exec Executor
}

// NewReal creates a wall clock posting callbacks to exec.
func NewReal(exec Executor) *Real {
	return &Real{exec: exec}
}

// Now returns the current wall time.
func (c *Real) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules f to run on the executor after d.
func (c *Real) AfterFunc(d time.Duration, f func()) Timer {
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		c.exec(func() {
			if t.done {
				return
			}
			t.done = true
			f()
		})
	})
	return t
}

type realTimer struct {
	timer *time.Timer
	// done is only touched on the executor goroutine.
	done bool
}

func (t *realTimer) Stop() bool {
	t.timer.Stop()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Stop stops t if it is non-nil and returns nil, so callers can clear their
// handle in one statement: `d.timer = clock.Stop(d.timer)`.
func Stop(t Timer) Timer {
	if t != nil {
		t.Stop()
	}
	return nil
}
