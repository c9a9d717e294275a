package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventLoop_RegisterAndClear(t *testing.T) {
	el := New()
	assert.False(t, el.HasPending())

	a := el.RegisterTimer(time.Second, false)
	b := el.RegisterTimer(time.Second, true)
	assert.NotEqual(t, a, b)
	assert.True(t, el.HasPending())

	el.ClearTimer(a)
	el.ClearTimer(b)
	assert.False(t, el.HasPending())
}

func TestEventLoop_IntervalFloor(t *testing.T) {
	el := New()
	id := el.RegisterTimer(0, true)
	assert.Equal(t, minInterval, el.timers[id].interval)
}

func TestEventLoop_NegativeDelay(t *testing.T) {
	el := New()
	before := time.Now()
	id := el.RegisterTimer(-time.Hour, false)
	assert.False(t, el.timers[id].deadline.Before(before))
}

func TestEventLoop_NextIsEarliest(t *testing.T) {
	el := New()
	el.RegisterTimer(time.Hour, false)
	soon := el.RegisterTimer(time.Millisecond, false)
	el.RegisterTimer(time.Minute, false)
	assert.Equal(t, soon, el.next().id)
}

func TestEventLoop_Reset(t *testing.T) {
	el := New()
	el.RegisterTimer(time.Second, false)
	el.RegisterTimer(time.Second, false)
	el.Reset()
	assert.False(t, el.HasPending())
	assert.Equal(t, 1, el.RegisterTimer(0, false))
}
