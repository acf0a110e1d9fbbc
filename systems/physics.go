package systems

import (
	"math"
	"sort"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
)

// Pair is a hunter/hunter contact with A holding the lower ID.
type Pair struct {
	A, B ecs.Entity
}

// FoodContact is a hunter overlapping a food item.
type FoodContact struct {
	Hunter ecs.Entity
	Food   ecs.Entity
}

// Contacts is the contact set produced by one movement step.
type Contacts struct {
	Pairs []Pair        // Newly entered, ascending (A, B) ID order
	Food  []FoodContact // Current overlaps, ascending hunter then food ID
}

// PhysicsSystem integrates hunter motion and detects contacts.
type PhysicsSystem struct {
	filter  ecs.Filter6[components.Position, components.Velocity, components.Body, components.Hunter, components.Vitals, components.Steering]
	reg     *PopulationRegistry
	econ    *ResourceEconomy
	index   *Index
	terrain *Terrain
	cfg     config.MovementConfig
	bounds  Bounds

	maxRadius float64
	touching  map[pairKey]struct{}
	next      map[pairKey]struct{}
	scratch   []ecs.Entity
	buf       []Neighbor
	out       Contacts
}

// Bounds represents the simulation bounds.
type Bounds struct {
	Width, Height float64
}

// NewPhysicsSystem creates a physics system. econ and terrain may be nil.
func NewPhysicsSystem(w *ecs.World, reg *PopulationRegistry, econ *ResourceEconomy, index *Index, terrain *Terrain, cfg config.MovementConfig, bounds Bounds) *PhysicsSystem {
	return &PhysicsSystem{
		filter:   *ecs.NewFilter6[components.Position, components.Velocity, components.Body, components.Hunter, components.Vitals, components.Steering](w),
		reg:      reg,
		econ:     econ,
		index:    index,
		terrain:  terrain,
		cfg:      cfg,
		bounds:   bounds,
		touching: make(map[pairKey]struct{}),
		next:     make(map[pairKey]struct{}),
		buf:      make([]Neighbor, 0, queryBufCap),
	}
}

// Integrate advances every live hunter by dt.
func (s *PhysicsSystem) Integrate(dt float64) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, body, h, v, steer := query.Get()
		if v.Dead {
			continue
		}

		p := pos.Vec()
		u := vel.Vec()

		// Obstacle ahead: shed speed before turning away
		if steer.Brake && r2.Norm(u) > s.cfg.AvoidBrakeSpeed {
			u = r2.Scale(s.cfg.AvoidBrakeFactor, u)
		}

		u = r2.Add(u, r2.Scale(h.Stats.Acceleration*steer.SpeedMul*dt, steer.Heading))

		if steer.Impulse && body.Grounded && steer.TargetID != 0 {
			if target, ok := s.reg.Get(steer.TargetID); ok {
				dir := unitOr(r2.Sub(s.reg.Position(target).Vec(), p), steer.Heading)
				u = r2.Add(u, r2.Scale(s.cfg.Impulse, dir))
				s.launch(query.Entity(), body, h.ID)
			}
		}

		if speed := r2.Norm(u); speed > h.Stats.MaxSpeed {
			u = r2.Scale(h.Stats.MaxSpeed/speed, u)
		}
		u = r2.Scale(math.Max(0, 1-s.cfg.Drag*dt), u)

		next := r2.Add(p, r2.Scale(dt, u))
		next, u = s.collide(p, next, u)
		next = s.clampToArena(next, body.Radius)

		pos.Set(next)
		vel.Set(u)
	}
}

// collide stops motion into solid cells and reflects the blocked axes.
func (s *PhysicsSystem) collide(from, to, u r2.Vec) (r2.Vec, r2.Vec) {
	if s.terrain == nil || !s.terrain.Solid(to) {
		return to, u
	}
	out := from
	if s.terrain.Solid(r2.Vec{X: to.X, Y: from.Y}) {
		u.X = -u.X * s.cfg.Restitution
	} else {
		out.X = to.X
	}
	if s.terrain.Solid(r2.Vec{X: out.X, Y: to.Y}) {
		u.Y = -u.Y * s.cfg.Restitution
	} else {
		out.Y = to.Y
	}
	return out, u
}

func (s *PhysicsSystem) clampToArena(p r2.Vec, radius float64) r2.Vec {
	r := math.Min(radius, math.Min(s.bounds.Width, s.bounds.Height)/2)
	p.X = clampFloat(p.X, r, s.bounds.Width-r)
	p.Y = clampFloat(p.Y, r, s.bounds.Height-r)
	return p
}

// launch marks a body airborne until the configured time has passed.
func (s *PhysicsSystem) launch(e ecs.Entity, body *components.Body, id uint32) {
	if s.cfg.AirborneTime <= 0 {
		return
	}
	body.Grounded = false
	s.reg.Clock().After(id, s.cfg.AirborneTime, func(float64) {
		if s.reg.Alive(e) {
			s.reg.Body(e).Grounded = true
		}
	})
}

// ApplyImpulse pushes e along dir. It is the knockback hook for combat.
func (s *PhysicsSystem) ApplyImpulse(e ecs.Entity, dir r2.Vec, strength float64) {
	if !s.reg.Alive(e) || strength <= 0 {
		return
	}
	vel := s.reg.Velocity(e)
	u := r2.Add(vel.Vec(), r2.Scale(strength, unitOr(dir, r2.Vec{X: 1})))
	if maxSpeed := s.reg.Hunter(e).Stats.MaxSpeed; r2.Norm(u) > maxSpeed {
		u = r2.Scale(maxSpeed/r2.Norm(u), u)
	}
	vel.Set(u)
	body := s.reg.Body(e)
	if body.Grounded {
		s.launch(e, body, s.reg.Hunter(e).ID)
	}
}

// Contacts rebuilds the index from current positions and returns the pairs
// that started touching this step plus all food overlaps. The returned slices
// are reused by the next call.
func (s *PhysicsSystem) Contacts() Contacts {
	s.index.Rebuild()
	s.out.Pairs = s.out.Pairs[:0]
	s.out.Food = s.out.Food[:0]
	clear(s.next)

	s.scratch = s.reg.Snapshot(s.scratch[:0])
	s.maxRadius = 0
	for _, e := range s.scratch {
		s.maxRadius = math.Max(s.maxRadius, s.reg.Body(e).Radius)
	}
	for _, e := range s.scratch {
		h := s.reg.Hunter(e)
		ra := s.reg.Body(e).Radius
		origin := s.reg.Position(e).Vec()

		s.buf = s.index.Hunters.QueryRadiusInto(s.buf[:0], origin, ra+s.maxRadius, e, s.reg.PosMap())
		for _, n := range s.buf {
			if !s.reg.Alive(n.E) {
				continue
			}
			other := s.reg.Hunter(n.E)
			if other.ID < h.ID {
				continue
			}
			reach := ra + s.reg.Body(n.E).Radius
			if n.DistSq > reach*reach {
				continue
			}
			k := pairKey{lo: h.ID, hi: other.ID}
			s.next[k] = struct{}{}
			if _, ok := s.touching[k]; !ok {
				s.out.Pairs = append(s.out.Pairs, Pair{A: e, B: n.E})
			}
		}

		if s.econ != nil {
			s.buf = s.index.Food.QueryRadiusInto(s.buf[:0], origin, ra+s.econ.Radius(), ecs.Entity{}, s.econ.PosMap())
			start := len(s.out.Food)
			for _, n := range s.buf {
				if !s.econ.Food(n.E).Consumed {
					s.out.Food = append(s.out.Food, FoodContact{Hunter: e, Food: n.E})
				}
			}
			sortFoodContacts(s.out.Food[start:], s.econ)
		}
	}

	// Pairs come out grouped by A; order B within each group.
	sortPairs(s.out.Pairs, s.reg)
	s.touching, s.next = s.next, s.touching
	return s.out
}

func sortPairs(pairs []Pair, reg *PopulationRegistry) {
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := reg.Hunter(pairs[i].A).ID, reg.Hunter(pairs[j].A).ID
		if ai != aj {
			return ai < aj
		}
		return reg.Hunter(pairs[i].B).ID < reg.Hunter(pairs[j].B).ID
	})
}

func sortFoodContacts(fc []FoodContact, econ *ResourceEconomy) {
	sort.Slice(fc, func(i, j int) bool {
		return econ.Food(fc[i].Food).ID < econ.Food(fc[j].Food).ID
	})
}
