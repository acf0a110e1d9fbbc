package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/clock"
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/events"
)

// SpawnRequest describes a hunter to create.
type SpawnRequest struct {
	Type       components.HunterType
	Stats      components.HunterStats
	Pos        r2.Vec
	Heading    r2.Vec  // Zero = +X
	Health     float64 // 0 = Stats.MaxHealth
	Parents    [2]uint32
	HasParents bool
	Generation int
}

// DeathHook is called once for every agent that dies, after it is
// deregistered and its timers are cancelled.
type DeathHook func(id uint32, e ecs.Entity)

// PopulationRegistry is the authoritative set of live hunters.
//
// Identities are a monotonic creation sequence and are never reused. Per-type
// counts change exactly once per spawn and once per death. Dead entities stay
// in the ECS world, flagged Dead, until Flush so handles taken earlier in the
// tick remain safe to inspect.
type PopulationRegistry struct {
	world *ecs.World
	clock *clock.Clock
	sink  events.Sink

	mapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Body,
		components.Hunter,
		components.Vitals,
		components.Steering,
		components.Procreation,
	]
	posMap   *ecs.Map[components.Position]
	velMap   *ecs.Map[components.Velocity]
	bodyMap  *ecs.Map[components.Body]
	hunMap   *ecs.Map[components.Hunter]
	vitMap   *ecs.Map[components.Vitals]
	steerMap *ecs.Map[components.Steering]
	procMap  *ecs.Map[components.Procreation]

	minRadius float64

	byID    map[uint32]ecs.Entity
	order   []uint32 // ascending IDs, compacted lazily
	counts  events.Counts
	nextID  uint32
	pending []ecs.Entity
	hooks   []DeathHook
}

// NewPopulationRegistry creates a registry over the given world.
func NewPopulationRegistry(world *ecs.World, clk *clock.Clock, sink events.Sink, minRadius float64) *PopulationRegistry {
	if sink == nil {
		sink = events.Discard
	}
	return &PopulationRegistry{
		world: world,
		clock: clk,
		sink:  sink,
		mapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Body,
			components.Hunter,
			components.Vitals,
			components.Steering,
			components.Procreation,
		](world),
		posMap:    ecs.NewMap[components.Position](world),
		velMap:    ecs.NewMap[components.Velocity](world),
		bodyMap:   ecs.NewMap[components.Body](world),
		hunMap:    ecs.NewMap[components.Hunter](world),
		vitMap:    ecs.NewMap[components.Vitals](world),
		steerMap:  ecs.NewMap[components.Steering](world),
		procMap:   ecs.NewMap[components.Procreation](world),
		minRadius: minRadius,
		byID:      make(map[uint32]ecs.Entity),
		nextID:    1,
	}
}

// OnDeath registers a hook invoked for every death.
func (r *PopulationRegistry) OnDeath(h DeathHook) {
	r.hooks = append(r.hooks, h)
}

// Spawn creates a hunter and registers it.
func (r *PopulationRegistry) Spawn(req SpawnRequest) ecs.Entity {
	id := r.nextID
	r.nextID++

	health := req.Health
	if health <= 0 || health > req.Stats.MaxHealth {
		health = req.Stats.MaxHealth
	}
	heading := unitOr(req.Heading, r2.Vec{X: 1})

	pos := components.Position{X: req.Pos.X, Y: req.Pos.Y}
	vel := components.Velocity{}
	body := components.Body{Grounded: true}
	body.Resize(health, req.Stats.SizeMultiplier, r.minRadius)
	hunter := components.Hunter{
		ID:         id,
		Type:       req.Type,
		Stats:      req.Stats,
		Parents:    req.Parents,
		HasParents: req.HasParents,
		Generation: req.Generation,
		BirthTick:  r.clock.Tick(),
	}
	vitals := components.Vitals{Health: health, MaxHealth: req.Stats.MaxHealth}
	steer := components.Steering{Heading: heading, SpeedMul: 0.5, TimeMul: 1}
	proc := components.Procreation{CanProcreate: true}

	e := r.mapper.NewEntity(&pos, &vel, &body, &hunter, &vitals, &steer, &proc)
	r.byID[id] = e
	r.order = append(r.order, id)
	r.counts[req.Type]++

	ev := events.Event{
		Kind:       events.Spawned,
		Tick:       r.clock.Tick(),
		Time:       r.clock.Now(),
		AgentID:    id,
		Type:       req.Type,
		Health:     health,
		Amount:     req.Stats.Attack,
		X:          pos.X,
		Y:          pos.Y,
		Generation: req.Generation,
	}
	if req.HasParents {
		ev.Kind = events.Born
		ev.OtherID = req.Parents[1]
		ev.Parents = []uint32{req.Parents[0], req.Parents[1]}
	}
	r.sink.Emit(ev)
	r.emitCounts()
	return e
}

// Kill performs the Died transition. It returns false if the agent was
// already dead, so every agent dies exactly once.
func (r *PopulationRegistry) Kill(e ecs.Entity, cause events.Cause, killerID uint32) bool {
	if !r.world.Alive(e) {
		return false
	}
	v := r.vitMap.Get(e)
	if v.Dead {
		return false
	}
	h := r.hunMap.Get(e)
	pos := r.posMap.Get(e)

	v.Dead = true
	v.InCombat = false
	v.IFrame = false
	v.Clamp()
	delete(r.byID, h.ID)
	r.counts[h.Type]--
	r.pending = append(r.pending, e)
	r.clock.CancelOwner(h.ID)

	id, typ, health, x, y := h.ID, h.Type, v.Health, pos.X, pos.Y
	for _, hook := range r.hooks {
		hook(id, e)
	}

	r.sink.Emit(events.Event{
		Kind:    events.Died,
		Tick:    r.clock.Tick(),
		Time:    r.clock.Now(),
		AgentID: id,
		Type:    typ,
		OtherID: killerID,
		Health:  health,
		Cause:   cause,
		X:       x,
		Y:       y,
	})
	r.emitCounts()
	return true
}

func (r *PopulationRegistry) emitCounts() {
	r.sink.Emit(events.Event{
		Kind:   events.PopulationChanged,
		Tick:   r.clock.Tick(),
		Time:   r.clock.Now(),
		Counts: r.counts,
	})
}

// Flush removes dead entities from the ECS world. Call only when no query is open.
func (r *PopulationRegistry) Flush() int {
	n := 0
	for _, e := range r.pending {
		if r.world.Alive(e) {
			r.world.RemoveEntity(e)
			n++
		}
	}
	r.pending = r.pending[:0]
	return n
}

// Get returns the entity for a live hunter ID.
func (r *PopulationRegistry) Get(id uint32) (ecs.Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Alive reports whether e is a registered, living hunter.
func (r *PopulationRegistry) Alive(e ecs.Entity) bool {
	if !r.world.Alive(e) || !r.vitMap.Has(e) {
		return false
	}
	return !r.vitMap.Get(e).Dead
}

// Count returns the number of live hunters of a type.
func (r *PopulationRegistry) Count(t components.HunterType) int {
	return r.counts[t]
}

// Counts returns live hunters per type.
func (r *PopulationRegistry) Counts() events.Counts {
	return r.counts
}

// Total returns the number of live hunters.
func (r *PopulationRegistry) Total() int {
	return len(r.byID)
}

// Snapshot appends the live hunters to dst in ascending ID order.
// Iterate the snapshot rather than the registry when the loop may kill.
func (r *PopulationRegistry) Snapshot(dst []ecs.Entity) []ecs.Entity {
	kept := r.order[:0]
	for _, id := range r.order {
		e, ok := r.byID[id]
		if !ok {
			continue
		}
		kept = append(kept, id)
		dst = append(dst, e)
	}
	r.order = kept
	return dst
}

// Position returns the position component of e.
func (r *PopulationRegistry) Position(e ecs.Entity) *components.Position { return r.posMap.Get(e) }

// Velocity returns the velocity component of e.
func (r *PopulationRegistry) Velocity(e ecs.Entity) *components.Velocity { return r.velMap.Get(e) }

// Body returns the body component of e.
func (r *PopulationRegistry) Body(e ecs.Entity) *components.Body { return r.bodyMap.Get(e) }

// Hunter returns the hunter component of e.
func (r *PopulationRegistry) Hunter(e ecs.Entity) *components.Hunter { return r.hunMap.Get(e) }

// Vitals returns the vitals component of e.
func (r *PopulationRegistry) Vitals(e ecs.Entity) *components.Vitals { return r.vitMap.Get(e) }

// Steering returns the steering component of e.
func (r *PopulationRegistry) Steering(e ecs.Entity) *components.Steering { return r.steerMap.Get(e) }

// Procreation returns the procreation component of e.
func (r *PopulationRegistry) Procreation(e ecs.Entity) *components.Procreation { return r.procMap.Get(e) }

// PosMap exposes the position mapper for spatial queries.
func (r *PopulationRegistry) PosMap() *ecs.Map[components.Position] { return r.posMap }

// Resize recomputes body size from current health.
func (r *PopulationRegistry) Resize(e ecs.Entity) {
	h := r.hunMap.Get(e)
	r.bodyMap.Get(e).Resize(r.vitMap.Get(e).Health, h.Stats.SizeMultiplier, r.minRadius)
}

// Clock returns the simulation clock.
func (r *PopulationRegistry) Clock() *clock.Clock { return r.clock }

// Sink returns the event sink.
func (r *PopulationRegistry) Sink() events.Sink { return r.sink }
