// Package telemetry provides population health tracking, bookmarking, and snapshots.
package telemetry

import (
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/events"
)

// opponent returns the type that can kill a hunter of type t.
func opponent(t components.HunterType) components.HunterType {
	if t == components.Solo {
		return components.Group
	}
	return components.Solo
}

// Emit records an event in the current window.
func (c *Collector) Emit(e events.Event) {
	switch e.Kind {
	case events.Born:
		c.births[e.Type]++
	case events.Damaged:
		if e.Cause == events.CauseCombat {
			c.hits++
			c.damageDealt += e.Amount
		}
	case events.Died:
		c.deaths[e.Type]++
		switch e.Cause {
		case events.CauseCombat:
			c.hits++
			c.kills[opponent(e.Type)]++
		case events.CauseDecay:
			c.decayDeaths++
		}
	case events.Regenerated:
		c.regenTicks++
		c.regenHealed += e.Amount
	case events.FoodSpawned:
		c.foodSpawned++
	case events.FoodConsumed:
		c.foodConsumed++
		c.foodHealed += e.Amount
	case events.ProcreationStarted:
		c.procStarted++
	case events.ProcreationEnded:
		c.procEnded++
		if e.Success {
			c.procSucceed++
		}
	}
}

// Emit updates per-hunter lifetime records.
func (lt *LifetimeTracker) Emit(e events.Event) {
	switch e.Kind {
	case events.Spawned, events.Born:
		lt.Register(e)
		if e.Kind == events.Born {
			for _, p := range e.Parents {
				lt.RecordChild(p)
			}
		}
	case events.Damaged:
		lt.RecordDamage(e.AgentID, e.OtherID, e.Amount)
	case events.Died:
		if e.Cause == events.CauseCombat {
			lt.RecordKill(e.OtherID)
		}
		lt.Retire(e)
	case events.Regenerated:
		if s := lt.stats[e.AgentID]; s != nil {
			s.RegenGained += e.Amount
		}
	case events.FoodConsumed:
		lt.RecordForage(e.AgentID, e.Amount)
	}
}
