package clock

import (
	"math"
	"testing"
)

const dt = 0.1

func advance(c *Clock, ticks int) {
	for i := 0; i < ticks; i++ {
		c.Advance()
	}
}

func TestAfterFiresOnce(t *testing.T) {
	c := New(dt)
	var firedAt []float64
	c.After(1, 0.5, func(now float64) { firedAt = append(firedAt, now) })

	advance(c, 4)
	if len(firedAt) != 0 {
		t.Fatalf("fired early at %v", firedAt)
	}
	advance(c, 10)
	if len(firedAt) != 1 {
		t.Fatalf("fired %d times, want 1", len(firedAt))
	}
	if math.Abs(firedAt[0]-0.5) > 1e-6 {
		t.Errorf("fired at %f, want 0.5", firedAt[0])
	}
	if c.Len() != 0 {
		t.Errorf("one-shot timer still pending, Len() = %d", c.Len())
	}
}

func TestEveryRepeatsUntilFalse(t *testing.T) {
	c := New(dt)
	count := 0
	c.Every(World, 0.2, 0.3, func(now float64) bool {
		count++
		return count < 3
	})

	advance(c, 50)
	if count != 3 {
		t.Errorf("callback ran %d times, want 3", count)
	}
	if c.Len() != 0 {
		t.Errorf("stopped timer still pending")
	}
}

func TestEveryCatchesUpWithinOneAdvance(t *testing.T) {
	c := New(1.0)
	count := 0
	c.Every(World, 0.25, 0.25, func(now float64) bool {
		count++
		return true
	})

	c.Advance()
	if count != 4 {
		t.Errorf("callback ran %d times in one 1s step, want 4", count)
	}
}

func TestCancel(t *testing.T) {
	c := New(dt)
	fired := false
	id := c.After(7, 0.3, func(float64) { fired = true })

	if !c.Pending(id) {
		t.Fatal("timer should be pending")
	}
	if !c.Cancel(id) {
		t.Fatal("Cancel returned false for pending timer")
	}
	if c.Cancel(id) {
		t.Error("second Cancel should return false")
	}
	advance(c, 10)
	if fired {
		t.Error("cancelled timer fired")
	}
}

func TestCancelOwner(t *testing.T) {
	c := New(dt)
	fired := map[uint32]int{}
	for owner := uint32(1); owner <= 3; owner++ {
		o := owner
		c.After(o, 0.1, func(float64) { fired[o]++ })
		c.Every(o, 0.1, 0.1, func(float64) bool { fired[o]++; return true })
	}

	if n := c.CancelOwner(2); n != 2 {
		t.Errorf("CancelOwner removed %d timers, want 2", n)
	}
	if c.OwnerCount(2) != 0 {
		t.Errorf("owner 2 still holds %d timers", c.OwnerCount(2))
	}
	advance(c, 3)
	if fired[2] != 0 {
		t.Errorf("owner 2 timers fired %d times after cancel", fired[2])
	}
	if fired[1] == 0 || fired[3] == 0 {
		t.Errorf("other owners should keep firing, got %v", fired)
	}
}

func TestFiringOrder(t *testing.T) {
	c := New(1.0)
	var order []int
	c.After(World, 0.5, func(float64) { order = append(order, 2) })
	c.After(World, 0.2, func(float64) { order = append(order, 1) })
	c.After(World, 0.5, func(float64) { order = append(order, 3) })

	c.Advance()
	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestCallbackCancelsLaterTimerInSameBatch(t *testing.T) {
	c := New(1.0)
	var victim TimerID
	victimFired := false
	c.After(World, 0.1, func(float64) { c.Cancel(victim) })
	victim = c.After(World, 0.2, func(float64) { victimFired = true })

	c.Advance()
	if victimFired {
		t.Error("timer cancelled by an earlier callback in the same batch still fired")
	}
}

func TestCallbackSchedulesDueTimer(t *testing.T) {
	c := New(dt)
	chained := false
	c.After(World, 0, func(float64) {
		c.After(World, 0, func(float64) { chained = true })
	})

	c.Advance()
	if !chained {
		t.Error("timer scheduled with zero delay from a callback should fire in the same Advance")
	}
}

func TestTickAndNow(t *testing.T) {
	c := New(dt)
	advance(c, 25)
	if c.Tick() != 25 {
		t.Errorf("Tick() = %d, want 25", c.Tick())
	}
	if math.Abs(c.Now()-2.5) > 1e-9 {
		t.Errorf("Now() = %f, want 2.5", c.Now())
	}
}
