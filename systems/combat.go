package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
)

// ContactKind classifies a hunter/hunter contact.
type ContactKind uint8

const (
	ContactIgnored ContactKind = iota // one side already dead
	ContactKin                        // same type: procreation candidate
	ContactFight                      // opposing types: damage exchanged
)

// DamageOpts modifies TakeDamage.
type DamageOpts struct {
	IgnoreIFrame bool
	Cause        events.Cause
	SourceID     uint32
	// OnDeath runs before the Died transition when this hit is lethal.
	OnDeath func(victim ecs.Entity)
}

// DamageResult reports what TakeDamage did.
type DamageResult struct {
	Applied bool
	Killed  bool
}

// Knockback pushes target along dir with the given strength.
type Knockback func(target ecs.Entity, dir r2.Vec, strength float64)

// CombatResolver applies contact damage, immunity windows and kill rewards.
type CombatResolver struct {
	reg   *PopulationRegistry
	regen *RegenerationScheduler
	cfg   config.CombatConfig

	knockback Knockback
}

// NewCombatResolver creates a combat resolver.
func NewCombatResolver(reg *PopulationRegistry, regen *RegenerationScheduler, cfg config.CombatConfig) *CombatResolver {
	return &CombatResolver{
		reg:   reg,
		regen: regen,
		cfg:   cfg,
	}
}

// SetKnockback installs the movement hook used for knockback.
func (c *CombatResolver) SetKnockback(k Knockback) {
	c.knockback = k
}

// OnContact resolves a contact between two hunters. Opposing types each damage
// the other with their own attack; both attack values are read before either
// hit lands so the outcome does not depend on argument order.
func (c *CombatResolver) OnContact(a, b ecs.Entity) ContactKind {
	if !c.reg.Alive(a) || !c.reg.Alive(b) {
		return ContactIgnored
	}
	ha, hb := c.reg.Hunter(a), c.reg.Hunter(b)
	if !ha.Type.Opposes(hb.Type) {
		return ContactKin
	}

	idA, idB := ha.ID, hb.ID
	attackA, attackB := ha.Stats.Attack, hb.Stats.Attack
	posA, posB := c.reg.Position(a).Vec(), c.reg.Position(b).Vec()

	c.TakeDamage(b, attackA, DamageOpts{Cause: events.CauseCombat, SourceID: idA, OnDeath: c.killReward(a)})
	c.TakeDamage(a, attackB, DamageOpts{Cause: events.CauseCombat, SourceID: idB, OnDeath: c.killReward(b)})

	if c.knockback != nil && c.cfg.Knockback > 0 {
		away := r2.Sub(posB, posA)
		if c.reg.Alive(b) {
			c.knockback(b, away, c.cfg.Knockback)
		}
		if c.reg.Alive(a) {
			c.knockback(a, r2.Scale(-1, away), c.cfg.Knockback)
		}
	}
	return ContactFight
}

// killReward heals the attacker when its hit is lethal.
func (c *CombatResolver) killReward(attacker ecs.Entity) func(ecs.Entity) {
	return func(ecs.Entity) {
		if c.cfg.KillHeal <= 0 || !c.reg.Alive(attacker) {
			return
		}
		v := c.reg.Vitals(attacker)
		v.Health = math.Min(v.MaxHealth, v.Health+c.cfg.KillHeal)
		c.reg.Resize(attacker)
	}
}

// TakeDamage subtracts amount from e's health.
//
// It is a no-op on dead hunters and, unless IgnoreIFrame is set, on hunters
// inside an immunity window. A hit that does not ignore immunity opens a new
// window. Health below 1 runs OnDeath and then the Died transition; any other
// hit emits Damaged and restarts regeneration.
func (c *CombatResolver) TakeDamage(e ecs.Entity, amount float64, opts DamageOpts) DamageResult {
	if !c.reg.Alive(e) {
		return DamageResult{}
	}
	v := c.reg.Vitals(e)
	if v.IFrame && !opts.IgnoreIFrame {
		return DamageResult{}
	}
	id := c.reg.Hunter(e).ID

	if !opts.IgnoreIFrame && c.cfg.IFrameDuration > 0 {
		v.IFrame = true
		c.reg.Clock().After(id, c.cfg.IFrameDuration, func(float64) {
			if c.reg.Alive(e) {
				c.reg.Vitals(e).IFrame = false
			}
		})
	}

	v.Health -= math.Max(amount, 0)
	v.Clamp()

	if v.Health < 1 {
		if opts.OnDeath != nil {
			opts.OnDeath(e)
		}
		c.reg.Kill(e, opts.Cause, opts.SourceID)
		return DamageResult{Applied: true, Killed: true}
	}

	c.reg.Resize(e)
	pos := c.reg.Position(e)
	c.reg.Sink().Emit(events.Event{
		Kind:    events.Damaged,
		Tick:    c.reg.Clock().Tick(),
		Time:    c.reg.Clock().Now(),
		AgentID: id,
		Type:    c.reg.Hunter(e).Type,
		OtherID: opts.SourceID,
		Amount:  amount,
		Health:  v.Health,
		Cause:   opts.Cause,
		X:       pos.X,
		Y:       pos.Y,
	})
	if c.regen != nil {
		c.regen.Restart(e)
	}
	return DamageResult{Applied: true}
}
