package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/events"
)

func TestSpawnAssignsIncreasingIDs(t *testing.T) {
	h := newHarness(t, nil)

	a := h.spawn(components.Solo, 10, 10, 0)
	b := h.spawn(components.Group, 20, 20, 0)
	c := h.spawn(components.Group, 30, 30, 0)

	for i, e := range []ecs.Entity{a, b, c} {
		if got, want := h.id(e), uint32(i+1); got != want {
			t.Errorf("id of hunter %d = %d, want %d", i, got, want)
		}
	}
	if got := h.reg.Count(components.Solo); got != 1 {
		t.Errorf("Count(Solo) = %d, want 1", got)
	}
	if got := h.reg.Count(components.Group); got != 2 {
		t.Errorf("Count(Group) = %d, want 2", got)
	}
	if got := h.rec.Count(events.Spawned); got != 3 {
		t.Errorf("Spawned events = %d, want 3", got)
	}
}

func TestSpawnHealthDefaultsToMax(t *testing.T) {
	h := newHarness(t, nil)

	full := h.spawn(components.Solo, 10, 10, 0)
	hurt := h.spawn(components.Solo, 10, 10, 25)

	if got, want := h.health(full), h.cfg.Templates.Solo.MaxHealth; got != want {
		t.Errorf("default health = %v, want %v", got, want)
	}
	if got := h.health(hurt); got != 25 {
		t.Errorf("explicit health = %v, want 25", got)
	}
	body := h.reg.Body(hurt)
	if want := 25 * h.cfg.Templates.Solo.SizeMultiplier; body.Mass != want {
		t.Errorf("mass = %v, want %v", body.Mass, want)
	}
}

func TestKillIsExactlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	e := h.spawn(components.Group, 10, 10, 0)
	id := h.id(e)

	if !h.reg.Kill(e, events.CauseCombat, 0) {
		t.Fatal("first Kill returned false")
	}
	if h.reg.Kill(e, events.CauseCombat, 0) {
		t.Error("second Kill returned true")
	}
	if got := len(h.rec.ForAgent(events.Died, id)); got != 1 {
		t.Errorf("Died events = %d, want 1", got)
	}
	if got := h.reg.Count(components.Group); got != 0 {
		t.Errorf("Count(Group) = %d, want 0", got)
	}
	if _, ok := h.reg.Get(id); ok {
		t.Error("dead hunter still resolvable by ID")
	}
	if h.reg.Alive(e) {
		t.Error("Alive() = true after Kill")
	}

	if n := h.reg.Flush(); n != 1 {
		t.Errorf("Flush() = %d, want 1", n)
	}
	if h.world.Alive(e) {
		t.Error("entity still in world after Flush")
	}
}

func TestKillCancelsOwnedTimers(t *testing.T) {
	h := newHarness(t, nil)
	e := h.spawn(components.Solo, 10, 10, 0)
	id := h.id(e)

	fired := false
	h.clk.After(id, 1, func(float64) { fired = true })
	h.clk.After(id, 2, func(float64) { fired = true })

	h.reg.Kill(e, events.CauseDecay, 0)
	if got := h.clk.OwnerCount(id); got != 0 {
		t.Errorf("OwnerCount = %d, want 0", got)
	}
	h.clk.AdvanceBy(5)
	if fired {
		t.Error("timer of a dead hunter fired")
	}
}

func TestDeathHooksRunOnce(t *testing.T) {
	h := newHarness(t, nil)
	e := h.spawn(components.Solo, 10, 10, 0)

	calls := 0
	h.reg.OnDeath(func(id uint32, _ ecs.Entity) { calls++ })
	h.reg.Kill(e, events.CauseCombat, 0)
	h.reg.Kill(e, events.CauseCombat, 0)

	if calls != 1 {
		t.Errorf("hook calls = %d, want 1", calls)
	}
}

func TestSnapshotOrderSkipsDead(t *testing.T) {
	h := newHarness(t, nil)
	var all []ecs.Entity
	for i := 0; i < 5; i++ {
		all = append(all, h.spawn(components.Group, float64(10+i), 10, 0))
	}
	h.reg.Kill(all[1], events.CauseCombat, 0)
	h.reg.Kill(all[3], events.CauseCombat, 0)

	snap := h.reg.Snapshot(nil)
	want := []uint32{1, 3, 5}
	if len(snap) != len(want) {
		t.Fatalf("len(Snapshot) = %d, want %d", len(snap), len(want))
	}
	for i, e := range snap {
		if got := h.id(e); got != want[i] {
			t.Errorf("Snapshot[%d] id = %d, want %d", i, got, want[i])
		}
	}
	if got := h.reg.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}
}

func TestBornEventCarriesParent(t *testing.T) {
	h := newHarness(t, nil)
	h.reg.Spawn(SpawnRequest{
		Type:       components.Group,
		Stats:      Templates(h.cfg.Templates)[components.Group],
		Parents:    [2]uint32{7, 9},
		HasParents: true,
		Generation: 2,
	})

	born := h.rec.ForAgent(events.Born, 1)
	if len(born) != 1 {
		t.Fatalf("Born events = %d, want 1", len(born))
	}
	if born[0].OtherID != 9 {
		t.Errorf("Born.OtherID = %d, want 9", born[0].OtherID)
	}
	if got := h.rec.Count(events.Spawned); got != 0 {
		t.Errorf("Spawned events = %d, want 0", got)
	}
}
