// Package clock provides simulation time and a cooperative timer schedule.
//
// Timers are plain entries (id -> due time, repeat interval, callback) scanned
// when the clock advances. Nothing runs on its own goroutine; cancelling a
// timer is removing its entry.
package clock

import (
	"math"
	"sort"
)

// TimerID identifies a scheduled timer. Zero is never issued.
type TimerID uint64

// World is the owner used for timers not tied to an agent.
const World uint32 = 0

// Func is a timer callback. now is the simulation time the timer fired at.
// A repeating timer stops when its callback returns false.
type Func func(now float64) bool

// epsilon absorbs float drift from accumulating dt.
const epsilon = 1e-9

type timer struct {
	id       TimerID
	owner    uint32
	due      float64
	interval float64 // 0 = one-shot
	fn       Func
}

// Clock is a monotonic simulation clock with a timer schedule.
type Clock struct {
	now    float64
	tick   int32
	dt     float64
	nextID TimerID

	timers  map[TimerID]*timer
	byOwner map[uint32]map[TimerID]struct{}
	due     []*timer // scratch for Advance
}

// New creates a clock advancing dt seconds per tick.
func New(dt float64) *Clock {
	return &Clock{
		dt:      dt,
		timers:  make(map[TimerID]*timer),
		byOwner: make(map[uint32]map[TimerID]struct{}),
	}
}

// Now returns the current simulation time in seconds.
func (c *Clock) Now() float64 { return c.now }

// Tick returns the number of completed ticks.
func (c *Clock) Tick() int32 { return c.tick }

// DT returns the fixed step.
func (c *Clock) DT() float64 { return c.dt }

// Len returns the number of pending timers.
func (c *Clock) Len() int { return len(c.timers) }

// Pending reports whether the timer is still scheduled.
func (c *Clock) Pending(id TimerID) bool {
	_, ok := c.timers[id]
	return ok
}

// OwnerCount returns the number of pending timers held by owner.
func (c *Clock) OwnerCount(owner uint32) int {
	return len(c.byOwner[owner])
}

// After schedules fn once, delay seconds from now.
func (c *Clock) After(owner uint32, delay float64, fn func(now float64)) TimerID {
	return c.add(owner, delay, 0, func(now float64) bool {
		fn(now)
		return false
	})
}

// Every schedules fn first after delay, then every interval seconds until it
// returns false or is cancelled. interval must be positive.
func (c *Clock) Every(owner uint32, delay, interval float64, fn Func) TimerID {
	if interval <= 0 {
		panic("clock: Every requires a positive interval")
	}
	return c.add(owner, delay, interval, fn)
}

func (c *Clock) add(owner uint32, delay, interval float64, fn Func) TimerID {
	c.nextID++
	t := &timer{
		id:       c.nextID,
		owner:    owner,
		due:      c.now + math.Max(delay, 0),
		interval: interval,
		fn:       fn,
	}
	c.timers[t.id] = t
	set := c.byOwner[owner]
	if set == nil {
		set = make(map[TimerID]struct{})
		c.byOwner[owner] = set
	}
	set[t.id] = struct{}{}
	return t.id
}

// Cancel removes a timer. Returns false if it was not pending.
func (c *Clock) Cancel(id TimerID) bool {
	t, ok := c.timers[id]
	if !ok {
		return false
	}
	c.remove(t)
	return true
}

// CancelOwner removes every timer held by owner and returns how many were removed.
func (c *Clock) CancelOwner(owner uint32) int {
	set := c.byOwner[owner]
	n := len(set)
	for id := range set {
		delete(c.timers, id)
	}
	delete(c.byOwner, owner)
	return n
}

func (c *Clock) remove(t *timer) {
	delete(c.timers, t.id)
	if set := c.byOwner[t.owner]; set != nil {
		delete(set, t.id)
		if len(set) == 0 {
			delete(c.byOwner, t.owner)
		}
	}
}

// Advance moves time forward one tick and fires due timers in (due, id)
// order. Timers scheduled by callbacks that are already due fire in the same
// call. Returns the number of callbacks invoked.
func (c *Clock) Advance() int {
	return c.AdvanceBy(c.dt)
}

// AdvanceBy moves time forward by dt and fires due timers.
func (c *Clock) AdvanceBy(dt float64) int {
	c.now += dt
	c.tick++

	fired := 0
	for {
		c.due = c.due[:0]
		for _, t := range c.timers {
			if t.due <= c.now+epsilon {
				c.due = append(c.due, t)
			}
		}
		if len(c.due) == 0 {
			return fired
		}
		sort.Slice(c.due, func(i, j int) bool {
			if c.due[i].due != c.due[j].due {
				return c.due[i].due < c.due[j].due
			}
			return c.due[i].id < c.due[j].id
		})

		for _, t := range c.due {
			// An earlier callback in this batch may have cancelled it.
			if _, ok := c.timers[t.id]; !ok {
				continue
			}
			firedAt := t.due
			if t.interval == 0 {
				c.remove(t)
				t.fn(firedAt)
				fired++
				continue
			}
			t.due += t.interval
			fired++
			if !t.fn(firedAt) {
				if _, ok := c.timers[t.id]; ok {
					c.remove(t)
				}
			}
		}
	}
}
