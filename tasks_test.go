package ipgate_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate"
)

func TestTaskGroup_Wait(t *testing.T) {
	g := ipgate.NewTaskGroup(time.Second)

	var ran atomic.Int32
	for range 5 {
		g.WaitUntil(func(ctx context.Context) {
			ran.Add(1)
		})
	}

	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
}

func TestTaskGroup_TaskTimeout(t *testing.T) {
	g := ipgate.NewTaskGroup(10 * time.Millisecond)

	var cancelled atomic.Bool
	g.WaitUntil(func(ctx context.Context) {
		<-ctx.Done()
		cancelled.Store(true)
	})

	require.NoError(t, g.Wait(context.Background()))
	assert.True(t, cancelled.Load())
}

func TestTaskGroup_WaitRespectsContext(t *testing.T) {
	g := ipgate.NewTaskGroup(0)

	release := make(chan struct{})
	g.WaitUntil(func(ctx context.Context) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)
}
