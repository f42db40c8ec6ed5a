// Package deadline provides a resettable per-request timeout.
//
// A Controller cancels its context when no progress has been reported for
// the configured duration. Producers call Reset on every unit of progress
// (a block written, a directory entry rendered) so slow but moving
// responses survive while stalled ones are aborted. Clear must be called
// once the response has been flushed; after Clear the timer can never fire.
package deadline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sagarc03/ipgate/clock"
)

// ErrTimeout is the cancellation cause when the deadline fires.
var ErrTimeout = errors.New("deadline: no progress within timeout")

type Controller struct {
	d      time.Duration
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu      sync.Mutex
	timer   *clock.Timer
	stopped bool
	expired bool
}

// New starts a Controller that fires d after the last Reset.
// A non-positive d never fires.
func New(parent context.Context, clk clock.Clock, d time.Duration) *Controller {
	ctx, cancel := context.WithCancelCause(parent)
	c := &Controller{d: d, ctx: ctx, cancel: cancel}

	if d > 0 {
		c.mu.Lock()
		c.timer = clk.AfterFunc(d, c.fire)
		c.mu.Unlock()
	}
	return c
}

// Context is cancelled with cause ErrTimeout when the deadline fires, and
// with context.Canceled once Clear has been called.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Reset restarts the countdown without affecting in-flight work.
// It is a no-op once the controller fired or was cleared.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.timer == nil {
		return
	}
	c.timer.Reset(c.d)
}

// Clear stops the timer and releases the context. It is safe to call more
// than once.
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	c.cancel(nil)
}

// Expired reports whether the deadline fired.
func (c *Controller) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *Controller) fire() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.expired = true
	c.mu.Unlock()

	c.cancel(ErrTimeout)
}
