package simclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_OrderByTimeThenFIFO(t *testing.T) {
	c := New()
	var got []string
	c.Schedule(2*time.Second, func() { got = append(got, "late") })
	c.Schedule(time.Second, func() { got = append(got, "a") })
	c.Schedule(time.Second, func() { got = append(got, "b") })
	c.ScheduleNow(func() { got = append(got, "now") })
	c.Schedule(time.Second, func() { got = append(got, "c") })

	n := c.RunUntil(10 * time.Second)

	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"now", "a", "b", "c", "late"}, got)
	assert.Equal(t, 10*time.Second, c.Now())
}

func TestClock_ScheduleNowFromHandlerRunsAfterSiblings(t *testing.T) {
	c := New()
	var got []string
	c.ScheduleNow(func() {
		got = append(got, "first")
		c.ScheduleNow(func() { got = append(got, "nested") })
	})
	c.ScheduleNow(func() { got = append(got, "second") })

	c.RunUntil(0)

	assert.Equal(t, []string{"first", "second", "nested"}, got)
}

func TestClock_Cancel(t *testing.T) {
	c := New()
	ran := false
	h := c.Schedule(time.Second, func() { ran = true })
	require.True(t, h.Valid())

	assert.True(t, c.Cancel(h))
	assert.False(t, c.Cancel(h), "second cancel must report false")
	assert.False(t, c.Cancel(Handle(0)))

	c.RunUntil(5 * time.Second)
	assert.False(t, ran)
	assert.Equal(t, 0, c.Pending())
}

func TestClock_CancelAfterFire(t *testing.T) {
	c := New()
	h := c.ScheduleNow(func() {})
	require.True(t, c.Step())
	assert.False(t, c.Cancel(h))
}

func TestClock_CancelKeepsHeapConsistent(t *testing.T) {
	c := New()
	var got []int
	handles := make([]Handle, 0, 10)
	for i := 0; i < 10; i++ {
		i := i
		handles = append(handles, c.Schedule(time.Duration(10-i)*time.Millisecond, func() { got = append(got, i) }))
	}
	c.Cancel(handles[3])
	c.Cancel(handles[7])

	c.RunUntil(time.Second)

	assert.Equal(t, []int{9, 8, 6, 5, 4, 2, 1, 0}, got)
}

func TestClock_RunUntilLeavesLaterEvents(t *testing.T) {
	c := New()
	count := 0
	var tick func()
	tick = func() {
		count++
		c.Schedule(100*time.Millisecond, tick)
	}
	c.Schedule(100*time.Millisecond, tick)

	c.RunUntil(time.Second)
	assert.Equal(t, 10, count)
	assert.Equal(t, 1, c.Pending())

	next, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, 1100*time.Millisecond, next)

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, 15, count)
	assert.Equal(t, uint64(15), c.Fired())
}

func TestClock_RunUntilRunsEveryEventAtTheLimit(t *testing.T) {
	c := New()
	var got []string
	for _, name := range []string{"a", "b", "c"} {
		c.Schedule(time.Second, func() { got = append(got, name) })
	}
	c.Schedule(time.Second+time.Nanosecond, func() { got = append(got, "late") })

	n := c.RunUntil(time.Second)

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, time.Second, c.Now())
	assert.Equal(t, 1, c.Pending())
}

func TestClock_TicksAreNanoseconds(t *testing.T) {
	c := New()
	var at []time.Duration
	var tick func()
	tick = func() {
		at = append(at, c.Now())
		c.Schedule(100*time.Millisecond, tick)
	}
	c.ScheduleNow(tick)

	c.RunUntil(time.Second)

	require.Len(t, at, 11)
	for i, got := range at {
		assert.Equal(t, time.Duration(i)*100*time.Millisecond, got)
	}
}

func TestClock_CancelMiddleOfTie(t *testing.T) {
	c := New()
	var got []string
	handles := map[string]Handle{}
	for _, name := range []string{"a", "b", "c", "d"} {
		handles[name] = c.Schedule(100*time.Millisecond, func() { got = append(got, name) })
	}
	require.True(t, c.Cancel(handles["c"]))

	c.RunUntil(time.Second)

	assert.Equal(t, []string{"a", "b", "d"}, got)
}

func TestClock_Stop(t *testing.T) {
	c := New()
	count := 0
	for i := 1; i <= 5; i++ {
		c.Schedule(time.Duration(i)*time.Second, func() {
			count++
			if count == 2 {
				c.Stop()
			}
		})
	}

	c.RunUntil(time.Minute)

	assert.Equal(t, 2, count)
	assert.Equal(t, 2*time.Second, c.Now(), "stopped run keeps the time of the last event")
	assert.Equal(t, 3, c.Pending())
}

func TestClock_NegativeDelayPanics(t *testing.T) {
	c := New()
	assert.Panics(t, func() { c.Schedule(-time.Nanosecond, func() {}) })
}

func BenchmarkClock_ScheduleStep(b *testing.B) {
	c := New()
	for i := 0; i < b.N; i++ {
		c.Schedule(time.Duration(i%100)*time.Millisecond, func() {})
		if c.Pending() > 1000 {
			c.Step()
		}
	}
}
