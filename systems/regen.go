package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/hunters/clock"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
)

// RegenerationScheduler heals hunters during uninterrupted quiet periods.
//
// Each hunter has at most one regen timer. Restart cancels it and waits the
// initial delay again; health gained before the restart is kept.
type RegenerationScheduler struct {
	reg    *PopulationRegistry
	cfg    config.EnvironmentConfig
	timers map[uint32]clock.TimerID
}

// NewRegenerationScheduler creates a scheduler and forgets hunters as they die.
func NewRegenerationScheduler(reg *PopulationRegistry, cfg config.EnvironmentConfig) *RegenerationScheduler {
	r := &RegenerationScheduler{
		reg:    reg,
		cfg:    cfg,
		timers: make(map[uint32]clock.TimerID),
	}
	// The registry already cancelled the timer with the rest of the owner's.
	reg.OnDeath(func(id uint32, _ ecs.Entity) { delete(r.timers, id) })
	return r
}

// Restart cancels any in-flight regen for e and schedules a fresh one: the
// first increment after InitialRegenDelay, then one every RegenInterval until
// MaxHealth.
func (r *RegenerationScheduler) Restart(e ecs.Entity) {
	if !r.reg.Alive(e) {
		return
	}
	id := r.reg.Hunter(e).ID
	r.Cancel(id)

	v := r.reg.Vitals(e)
	if v.Health >= v.MaxHealth {
		return
	}

	clk := r.reg.Clock()
	r.timers[id] = clk.Every(id, r.cfg.InitialRegenDelay, r.cfg.RegenInterval, func(now float64) bool {
		return r.tick(e, id)
	})
}

// tick applies one increment. Returning false ends the loop.
func (r *RegenerationScheduler) tick(e ecs.Entity, id uint32) bool {
	if !r.reg.Alive(e) {
		delete(r.timers, id)
		return false
	}
	v := r.reg.Vitals(e)
	if v.Health >= v.MaxHealth {
		delete(r.timers, id)
		return false
	}
	if r.cfg.RegenPausesInCombat && v.InCombat {
		return true
	}

	h := r.reg.Hunter(e)
	before := v.Health
	v.Health = math.Min(v.MaxHealth, v.Health+h.Stats.RegenAmount)
	r.reg.Resize(e)

	pos := r.reg.Position(e)
	clk := r.reg.Clock()
	r.reg.Sink().Emit(events.Event{
		Kind:    events.Regenerated,
		Tick:    clk.Tick(),
		Time:    clk.Now(),
		AgentID: id,
		Type:    h.Type,
		Amount:  v.Health - before,
		Health:  v.Health,
		X:       pos.X,
		Y:       pos.Y,
	})

	if v.Health >= v.MaxHealth {
		delete(r.timers, id)
		return false
	}
	return true
}

// Cancel removes the regen timer of a hunter, if any.
func (r *RegenerationScheduler) Cancel(id uint32) {
	if tid, ok := r.timers[id]; ok {
		r.reg.Clock().Cancel(tid)
		delete(r.timers, id)
	}
}

// Active reports whether a regen loop is scheduled for the hunter.
func (r *RegenerationScheduler) Active(id uint32) bool {
	_, ok := r.timers[id]
	return ok
}
