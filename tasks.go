package ipgate

import (
	"context"
	"sync"
	"time"
)

// Deferrer schedules work that must run to completion after the response
// that scheduled it has been returned.
type Deferrer interface {
	WaitUntil(fn func(ctx context.Context))
}

// TaskGroup runs deferred work in the background and lets the owner drain
// it on shutdown.
type TaskGroup struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewTaskGroup creates a TaskGroup whose tasks each get timeout to finish.
// A zero timeout means no limit.
func NewTaskGroup(timeout time.Duration) *TaskGroup {
	return &TaskGroup{timeout: timeout}
}

// WaitUntil starts fn in its own goroutine. The context passed to fn is not
// tied to any request.
func (g *TaskGroup) WaitUntil(fn func(ctx context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx := context.Background()
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		fn(ctx)
	}()
}

// Wait blocks until every scheduled task returned or ctx is done.
func (g *TaskGroup) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
