package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
)

// Raycaster finds the first obstacle along a ray.
type Raycaster interface {
	Raycast(origin, dir r2.Vec, maxDist float64) (r2.Vec, bool)
}

// DecisionPolicy maps perception and health to a steering intent.
//
// Priority, highest first: engage or flee an opponent, forage visible food
// when hurt, follow a packmate's heading, wander.
type DecisionPolicy struct {
	reg     *PopulationRegistry
	econ    *ResourceEconomy
	cfg     config.DecisionConfig
	rng     *rand.Rand
	terrain Raycaster
	dt      float64
}

// NewDecisionPolicy creates a decision policy. terrain may be nil.
func NewDecisionPolicy(reg *PopulationRegistry, econ *ResourceEconomy, cfg config.DecisionConfig, rng *rand.Rand, terrain Raycaster, dt float64) *DecisionPolicy {
	return &DecisionPolicy{
		reg:     reg,
		econ:    econ,
		cfg:     cfg,
		rng:     rng,
		terrain: terrain,
		dt:      dt,
	}
}

// Decision is the outcome of a policy evaluation before smoothing.
type Decision struct {
	Intent   components.Intent
	Target   r2.Vec // Desired heading, not normalized
	SpeedMul float64
	TimeMul  float64
	TargetID uint32
	Impulse  bool
	InCombat bool
}

// Evaluate picks the highest-priority branch for e. It reads state only.
func (d *DecisionPolicy) Evaluate(e ecs.Entity, p Perception) Decision {
	h := d.reg.Hunter(e)
	v := d.reg.Vitals(e)
	s := d.reg.Steering(e)
	pos := d.reg.Position(e).Vec()

	if p.HasEnemy && d.reg.Alive(p.Enemy) {
		toward := r2.Sub(d.reg.Position(p.Enemy).Vec(), pos)
		dec := Decision{
			Intent:   components.IntentEngage,
			Target:   toward,
			SpeedMul: d.cfg.CombatSpeed,
			TimeMul:  1,
			TargetID: d.reg.Hunter(p.Enemy).ID,
			Impulse:  true,
			InCombat: true,
		}
		outnumbered := h.Type == components.Group && p.Allies < d.cfg.GroupMinAllies
		if v.Health < h.Stats.LowHealthThreshold || outnumbered {
			dec.Intent = components.IntentFlee
			dec.Target = r2.Scale(-1, toward)
			dec.Impulse = false
		}
		return dec
	}

	if p.HasFood && d.econ != nil && v.Fraction() < d.cfg.ForageHealthFraction {
		return Decision{
			Intent:   components.IntentForage,
			Target:   r2.Sub(d.econ.Position(p.Food).Vec(), pos),
			SpeedMul: d.cfg.ForageSpeed,
			TimeMul:  d.cfg.ForageTimeMul,
		}
	}

	if h.Type == components.Group && p.HasAlly && v.Health >= h.Stats.LowHealthThreshold && d.reg.Alive(p.Ally) {
		return Decision{
			Intent:   components.IntentFollow,
			Target:   addNoise(d.rng, d.reg.Steering(p.Ally).Heading, d.cfg.FollowNoise),
			SpeedMul: d.cfg.FollowSpeed,
			TimeMul:  1,
			TargetID: d.reg.Hunter(p.Ally).ID,
		}
	}

	return Decision{
		Intent:   components.IntentWander,
		Target:   addNoise(d.rng, s.Heading, d.cfg.WanderNoise),
		SpeedMul: d.cfg.WanderSpeed,
		TimeMul:  1,
	}
}

// Decide evaluates the policy for e and writes the smoothed result to its
// Steering and InCombat flag.
func (d *DecisionPolicy) Decide(e ecs.Entity, p Perception) components.Intent {
	dec := d.Evaluate(e, p)

	s := d.reg.Steering(e)
	v := d.reg.Vitals(e)
	h := d.reg.Hunter(e)

	// Randomized responsiveness gives organic turning instead of snapping.
	rate := uniform(d.rng, d.cfg.ResponseMin, d.cfg.ResponseMax)
	t := clamp01(d.dt * rate * dec.TimeMul)
	target := unitOr(dec.Target, s.Heading)
	heading := unitOr(lerpVec(s.Heading, target, t), s.Heading)

	s.Brake = false
	if d.terrain != nil {
		pos := d.reg.Position(e).Vec()
		if hit, ok := d.terrain.Raycast(pos, heading, h.Stats.SightDistance); ok {
			heading = unitOr(r2.Sub(pos, hit), r2.Scale(-1, heading))
			s.Brake = true
		}
	}

	s.Heading = heading
	s.SpeedMul = dec.SpeedMul
	s.TimeMul = dec.TimeMul
	s.Intent = dec.Intent
	s.Impulse = dec.Impulse
	s.TargetID = dec.TargetID
	v.InCombat = dec.InCombat
	return dec.Intent
}
