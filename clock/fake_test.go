package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/ipgate/clock"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock_AfterFuncFiresOnAdvance(t *testing.T) {
	c := clock.Fake(epoch)

	fired := 0
	c.AfterFunc(time.Second, func() { fired++ })

	c.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, fired)

	c.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)

	c.Advance(time.Hour)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeClock_Stop(t *testing.T) {
	c := clock.Fake(epoch)

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeClock_ResetPostpones(t *testing.T) {
	c := clock.Fake(epoch)

	fired := 0
	timer := c.AfterFunc(time.Second, func() { fired++ })

	c.Advance(800 * time.Millisecond)
	assert.True(t, timer.Reset(time.Second))

	c.Advance(800 * time.Millisecond)
	assert.Equal(t, 0, fired)

	c.Advance(200 * time.Millisecond)
	assert.Equal(t, 1, fired)
}

func TestFakeClock_ResetAfterStopFiresOnce(t *testing.T) {
	c := clock.Fake(epoch)

	fired := 0
	timer := c.AfterFunc(time.Second, func() { fired++ })
	timer.Stop()

	assert.False(t, timer.Reset(time.Second))
	assert.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, 1, fired)
}

func TestFakeClock_FiresInDeadlineOrder(t *testing.T) {
	c := clock.Fake(epoch)

	var order []int
	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(time.Second, func() { order = append(order, 1) })
	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	c.Advance(time.Minute)
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, epoch.Add(time.Minute), c.Now())
}
