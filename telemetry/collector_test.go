package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/events"
)

func TestCollectorWindowTicks(t *testing.T) {
	tests := []struct {
		window, dt float64
		want       int32
	}{
		{10, 0.1, 100},
		{1, 1.0 / 60, 60},
		{0.001, 1, 1},
	}
	for _, tt := range tests {
		c := NewCollector(tt.window, tt.dt)
		if got := c.WindowDurationTicks(); got != tt.want {
			t.Errorf("NewCollector(%v, %v).WindowDurationTicks() = %d, want %d", tt.window, tt.dt, got, tt.want)
		}
	}

	c := NewCollector(1, 0.1)
	if c.ShouldFlush(9) {
		t.Error("ShouldFlush(9) = true before the window ended")
	}
	if !c.ShouldFlush(10) {
		t.Error("ShouldFlush(10) = false at the window end")
	}
}

func TestCollectorCountsEvents(t *testing.T) {
	c := NewCollector(1, 0.1)

	for _, e := range []events.Event{
		{Kind: events.Spawned, AgentID: 1, Type: components.Solo},
		{Kind: events.Born, AgentID: 3, Type: components.Group, Parents: []uint32{1, 2}},
		{Kind: events.Damaged, AgentID: 2, OtherID: 1, Amount: 8, Cause: events.CauseCombat},
		{Kind: events.Damaged, AgentID: 2, Amount: 2, Cause: events.CauseDecay},
		{Kind: events.Died, AgentID: 2, Type: components.Group, OtherID: 1, Cause: events.CauseCombat},
		{Kind: events.Died, AgentID: 4, Type: components.Solo, Cause: events.CauseDecay},
		{Kind: events.Regenerated, AgentID: 1, Amount: 4},
		{Kind: events.FoodSpawned, OtherID: 9},
		{Kind: events.FoodConsumed, AgentID: 3, OtherID: 9, Amount: 12},
		{Kind: events.ProcreationStarted, AgentID: 5, OtherID: 6},
		{Kind: events.ProcreationEnded, AgentID: 5, OtherID: 6, Success: true},
		{Kind: events.ProcreationEnded, AgentID: 7, OtherID: 8},
	} {
		c.Emit(e)
	}

	s := c.Flush(10, Sample{
		Counts:        events.Counts{3, 5},
		Health:        [components.NumHunterTypes][]float64{{80, 40}, {20}},
		Attack:        [components.NumHunterTypes][]float64{{8, 10}, {3}},
		FoodLive:      4,
		MaxGeneration: 2,
	})

	checks := []struct {
		name      string
		got, want float64
	}{
		{"SoloCount", float64(s.SoloCount), 3},
		{"GroupCount", float64(s.GroupCount), 5},
		{"GroupBirths", float64(s.GroupBirths), 1},
		{"SoloDeaths", float64(s.SoloDeaths), 1},
		{"GroupDeaths", float64(s.GroupDeaths), 1},
		{"Hits", float64(s.Hits), 2},
		{"Kills", float64(s.Kills), 1},
		{"SoloKills", float64(s.SoloKills), 1},
		{"GroupKills", float64(s.GroupKills), 0},
		{"DecayDeaths", float64(s.DecayDeaths), 1},
		{"DamageDealt", s.DamageDealt, 8},
		{"KillsPerHit", s.KillsPerHit, 0.5},
		{"RegenHealed", s.RegenHealed, 4},
		{"FoodSpawned", float64(s.FoodSpawned), 1},
		{"FoodHealed", s.FoodHealed, 12},
		{"FoodLive", float64(s.FoodLive), 4},
		{"ProcStarted", float64(s.ProcStarted), 1},
		{"ProcSucceed", float64(s.ProcSucceed), 1},
		{"ProcFailRate", s.ProcFailRate, 0.5},
		{"SoloHealthMean", s.SoloHealthMean, 60},
		{"GroupHealthP50", s.GroupHealthP50, 20},
		{"SoloAttackMean", s.SoloAttackMean, 9},
		{"SoloAttackStd", s.SoloAttackStd, 1},
		{"MaxGeneration", float64(s.MaxGeneration), 2},
	}
	for _, ck := range checks {
		if math.Abs(ck.got-ck.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", ck.name, ck.got, ck.want)
		}
	}

	next := c.Flush(20, Sample{})
	if next.WindowStartTick != 10 {
		t.Errorf("next WindowStartTick = %d, want 10", next.WindowStartTick)
	}
	if next.Hits != 0 || next.FoodConsumed != 0 || next.GroupBirths != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
	if latest, ok := c.Latest(); !ok || latest.WindowEndTick != 20 {
		t.Errorf("Latest() = %d, %v, want 20, true", latest.WindowEndTick, ok)
	}
}

func TestLifetimeTracker(t *testing.T) {
	lt := NewLifetimeTracker()

	for _, e := range []events.Event{
		{Kind: events.Spawned, Tick: 0, Time: 0, AgentID: 1, Type: components.Solo, Amount: 8},
		{Kind: events.Spawned, Tick: 0, Time: 0, AgentID: 2, Type: components.Solo, Amount: 8},
		{Kind: events.Spawned, Tick: 0, Time: 0, AgentID: 5, Type: components.Group, Amount: 3},
		{Kind: events.Born, Tick: 60, Time: 1, AgentID: 3, Type: components.Solo, Amount: 8.2, Parents: []uint32{1, 2}, Generation: 1},
		{Kind: events.Damaged, AgentID: 5, OtherID: 1, Amount: 8, Cause: events.CauseCombat},
		{Kind: events.FoodConsumed, AgentID: 1, OtherID: 9, Amount: 15},
		{Kind: events.Regenerated, AgentID: 1, Amount: 4},
		{Kind: events.Died, Tick: 120, Time: 2, AgentID: 5, Type: components.Group, OtherID: 1, Cause: events.CauseCombat},
	} {
		lt.Emit(e)
	}

	if lt.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", lt.Count())
	}
	a := lt.Get(1)
	if a.Children != 1 || a.Kills != 1 || a.DamageDealt != 8 {
		t.Errorf("hunter 1 = children %d kills %d dealt %v, want 1, 1, 8", a.Children, a.Kills, a.DamageDealt)
	}
	if a.FoodEaten != 1 || a.FoodHealed != 15 || a.RegenGained != 4 {
		t.Errorf("hunter 1 food %d/%v regen %v, want 1/15 and 4", a.FoodEaten, a.FoodHealed, a.RegenGained)
	}
	if child := lt.Get(3); child.Parents != "1;2" || child.Generation != 1 {
		t.Errorf("child = parents %q gen %d, want \"1;2\" gen 1", child.Parents, child.Generation)
	}
	if lt.LineageCount() != 2 {
		t.Errorf("LineageCount() = %d, want 2", lt.LineageCount())
	}

	retired := lt.Drain()
	if len(retired) != 1 {
		t.Fatalf("Drain() = %d records, want 1", len(retired))
	}
	r := retired[0]
	if r.ID != 5 || r.DeathTick != 120 || r.SurvivalTimeSec != 2 || r.Cause != "combat" || r.DamageTaken != 8 {
		t.Errorf("retired record = %+v", r)
	}
	if len(lt.Drain()) != 0 {
		t.Error("Drain() did not clear the buffer")
	}
}
