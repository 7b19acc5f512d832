// Package simclock is a single-threaded discrete-event scheduler running on virtual time,
// backed by the evt event manager.
//
// Events scheduled for the same instant run in the order they were scheduled. Handlers run to
// completion on the caller's goroutine; a Clock must not be shared between goroutines.
package simclock

import (
	"fmt"
	"time"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

func init() {
	// one tick per nanosecond: ticks and time.Duration are the same integer
	vrtime.SetTicksPerSecond(int64(time.Second))
}

// Handle identifies a scheduled event. The zero Handle never refers to an event.
type Handle uint64

// Valid reports whether h was returned by Schedule.
func (h Handle) Valid() bool { return h != 0 }

// Clock is a virtual clock with a pending event queue.
type Clock struct {
	events  *evtm.EventManager
	stopped bool
}

// New returns a clock at time zero with no pending events.
func New() *Clock {
	return &Clock{events: evtm.New()}
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Duration { return time.Duration(c.events.CurrentTicks()) }

// dispatch is the single evt handler; the scheduled func travels as the event data.
func dispatch(_ *evtm.EventManager, _ any, data any) any {
	data.(func())()
	return nil
}

// Schedule arranges for fn to run delay after the current time.
// A negative delay is a programming error and panics.
func (c *Clock) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		panic(fmt.Sprintf("simclock: negative delay %s", delay))
	}
	// priority 0 lets the manager number ties in scheduling order
	id, _ := c.events.Schedule(nil, fn, dispatch, vrtime.CreateTime(int64(delay), 0))
	return Handle(id)
}

// ScheduleNow arranges for fn to run at the current instant, after every event already
// scheduled for this instant.
func (c *Clock) ScheduleNow(fn func()) Handle {
	return c.Schedule(0, fn)
}

// Cancel removes a pending event. It returns false when the event already ran, was already
// cancelled or h is the zero Handle.
func (c *Clock) Cancel(h Handle) bool {
	return h.Valid() && c.events.RemoveEvent(int(h))
}

// Pending returns the number of events waiting to run.
func (c *Clock) Pending() int { return c.events.EventList.Len() }

// Fired returns the number of events executed since the clock was created.
func (c *Clock) Fired() uint64 { return uint64(c.events.NumEvts) }

// Next returns the time of the earliest pending event.
func (c *Clock) Next() (time.Duration, bool) {
	if c.events.EventList.Len() == 0 {
		return 0, false
	}
	return time.Duration(c.events.EventList.MinTime().Ticks()), true
}

// Step runs the earliest pending event, advancing the clock to its time.
// It returns false when nothing is pending.
func (c *Clock) Step() bool {
	next, ok := c.Next()
	if !ok {
		return false
	}
	// Run returns once the clock reaches its limit, so a limit equal to the next event time
	// dispatches exactly that event.
	c.events.Run(vrtime.TicksToSeconds(int64(next)))
	return true
}

// RunUntil runs every event due at or before t, then leaves the clock at t.
// It returns the number of events executed. Stop interrupts the run.
func (c *Clock) RunUntil(t time.Duration) int {
	c.stopped = false
	n := 0
	for !c.stopped {
		next, ok := c.Next()
		if !ok || next > t {
			break
		}
		c.Step()
		n++
	}
	if !c.stopped && t > c.Now() {
		c.events.SetTime(vrtime.CreateTime(int64(t), 0))
	}
	return n
}

// Advance is RunUntil(Now()+d).
func (c *Clock) Advance(d time.Duration) int {
	return c.RunUntil(c.Now() + d)
}

// Stop makes the current RunUntil return after the running event completes.
// The manager's own Stop is not used: its dispatch loop spins once the queue is empty.
func (c *Clock) Stop() { c.stopped = true }
