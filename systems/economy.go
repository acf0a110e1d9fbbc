package systems

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/clock"
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
)

// spawnAttempts bounds the retries for an open food position.
const spawnAttempts = 8

// ResourceEconomy owns the healing food items and the ambient decay that
// drains every hunter.
//
// At most Cap unconsumed items exist at any time and each item is consumed at
// most once. Decay bypasses immunity windows and can kill.
type ResourceEconomy struct {
	reg     *PopulationRegistry
	combat  *CombatResolver
	terrain *Terrain
	rng     *rand.Rand

	resCfg  config.ResourceConfig
	envCfg  config.EnvironmentConfig
	world   config.WorldConfig
	points  []config.PointConfig
	forage  float64
	ecsW    *ecs.World
	mapper  *ecs.Map2[components.Position, components.Food]
	posMap  *ecs.Map[components.Position]
	foodMap *ecs.Map[components.Food]

	items   []ecs.Entity // unconsumed, ascending food ID
	pending []ecs.Entity // consumed, removed on Flush
	nextID  uint32
	live    int

	respawnTimer clock.TimerID
	decayTimer   clock.TimerID
	scratch      []ecs.Entity
}

// EconomyConfig groups the settings the economy reads.
type EconomyConfig struct {
	Resource       config.ResourceConfig
	Environment    config.EnvironmentConfig
	World          config.WorldConfig
	SpawnPoints    []config.PointConfig
	ForageFraction float64
}

// NewResourceEconomy creates the economy on the registry's world. terrain may
// be nil.
func NewResourceEconomy(world *ecs.World, reg *PopulationRegistry, combat *CombatResolver, terrain *Terrain, rng *rand.Rand, cfg EconomyConfig) *ResourceEconomy {
	points := cfg.SpawnPoints
	if len(points) == 0 {
		points = cfg.World.SpawnPoints
	}
	return &ResourceEconomy{
		reg:     reg,
		combat:  combat,
		terrain: terrain,
		rng:     rng,
		resCfg:  cfg.Resource,
		envCfg:  cfg.Environment,
		world:   cfg.World,
		points:  points,
		forage:  cfg.ForageFraction,
		ecsW:    world,
		mapper:  ecs.NewMap2[components.Position, components.Food](world),
		posMap:  ecs.NewMap[components.Position](world),
		foodMap: ecs.NewMap[components.Food](world),
		nextID:  1,
	}
}

// Start fills the field and schedules respawn and decay.
func (r *ResourceEconomy) Start() {
	clk := r.reg.Clock()
	if r.resCfg.InitialFill {
		for r.live < r.resCfg.Cap {
			r.SpawnFood()
		}
	}
	if r.resCfg.Respawn && r.envCfg.ResourceRespawnInterval > 0 {
		iv := r.envCfg.ResourceRespawnInterval
		r.respawnTimer = clk.Every(clock.World, iv, iv, func(float64) bool {
			if r.live < r.resCfg.Cap {
				r.SpawnFood()
			}
			return true
		})
	}
	if r.envCfg.DecayInterval > 0 && r.envCfg.DecayAmount > 0 {
		iv := r.envCfg.DecayInterval
		r.decayTimer = clk.Every(clock.World, iv, iv, func(float64) bool {
			r.Decay()
			return true
		})
	}
}

// Stop cancels the respawn and decay loops.
func (r *ResourceEconomy) Stop() {
	clk := r.reg.Clock()
	clk.Cancel(r.respawnTimer)
	clk.Cancel(r.decayTimer)
	r.respawnTimer, r.decayTimer = 0, 0
}

// SpawnFood places one item at a random food spawn point. It returns false
// when the field is already at capacity.
func (r *ResourceEconomy) SpawnFood() bool {
	if r.live >= r.resCfg.Cap {
		return false
	}
	p := r.placement()
	return r.SpawnFoodAt(p)
}

// SpawnFoodAt places one item at p. It returns false at capacity.
func (r *ResourceEconomy) SpawnFoodAt(p r2.Vec) bool {
	if r.live >= r.resCfg.Cap {
		return false
	}
	id := r.nextID
	r.nextID++

	pos := components.Position{X: p.X, Y: p.Y}
	food := components.Food{ID: id, HealAmount: r.resCfg.HealAmount}
	e := r.mapper.NewEntity(&pos, &food)
	r.items = append(r.items, e)
	r.live++

	r.emit(events.FoodSpawned, id, 0, 0, p)
	return true
}

// placement picks an open point near a random spawn point.
func (r *ResourceEconomy) placement() r2.Vec {
	var p r2.Vec
	for i := 0; i < spawnAttempts; i++ {
		c := r.points[r.rng.Intn(len(r.points))]
		p = RandInDisc(r.rng, r2.Vec{X: c.X, Y: c.Y}, r.world.SpawnPointRadius)
		p.X = clampFloat(p.X, 0, math.Nextafter(r.world.Width, 0))
		p.Y = clampFloat(p.Y, 0, math.Nextafter(r.world.Height, 0))
		if r.terrain == nil || !r.terrain.Solid(p) {
			break
		}
	}
	return p
}

// Consume lets agent eat food. It succeeds at most once per item and only
// while the agent's health fraction is below the forage threshold.
func (r *ResourceEconomy) Consume(agent, food ecs.Entity) bool {
	if !r.ecsW.Alive(food) || !r.foodMap.Has(food) || !r.reg.Alive(agent) {
		return false
	}
	f := r.foodMap.Get(food)
	if f.Consumed {
		return false
	}
	v := r.reg.Vitals(agent)
	if v.Fraction() >= r.forage {
		return false
	}

	f.Consumed = true
	r.live--
	r.pending = append(r.pending, food)

	before := v.Health
	v.Health = math.Min(v.MaxHealth, v.Health+f.HealAmount)
	r.reg.Resize(agent)

	h := r.reg.Hunter(agent)
	pos := r.posMap.Get(food)
	clk := r.reg.Clock()
	r.reg.Sink().Emit(events.Event{
		Kind:     events.FoodConsumed,
		Tick:     clk.Tick(),
		Time:     clk.Now(),
		AgentID:  h.ID,
		Type:     h.Type,
		OtherID:  f.ID,
		Amount:   v.Health - before,
		Health:   v.Health,
		X:        pos.X,
		Y:        pos.Y,
		FoodLive: r.live,
	})
	return true
}

// Decay drains DecayAmount from every live hunter, ignoring immunity windows.
func (r *ResourceEconomy) Decay() int {
	r.scratch = r.reg.Snapshot(r.scratch[:0])
	killed := 0
	for _, e := range r.scratch {
		res := r.combat.TakeDamage(e, r.envCfg.DecayAmount, DamageOpts{
			IgnoreIFrame: true,
			Cause:        events.CauseDecay,
		})
		if res.Killed {
			killed++
		}
	}
	return killed
}

// Flush removes consumed items from the ECS world. Call only when no query is open.
func (r *ResourceEconomy) Flush() int {
	n := 0
	for _, e := range r.pending {
		if r.ecsW.Alive(e) {
			r.ecsW.RemoveEntity(e)
			n++
		}
	}
	r.pending = r.pending[:0]
	return n
}

// Live returns the number of unconsumed items.
func (r *ResourceEconomy) Live() int { return r.live }

// Cap returns the item capacity.
func (r *ResourceEconomy) Cap() int { return r.resCfg.Cap }

// Snapshot appends the unconsumed items to dst in ascending ID order.
func (r *ResourceEconomy) Snapshot(dst []ecs.Entity) []ecs.Entity {
	kept := r.items[:0]
	for _, e := range r.items {
		if !r.ecsW.Alive(e) || r.foodMap.Get(e).Consumed {
			continue
		}
		kept = append(kept, e)
		dst = append(dst, e)
	}
	r.items = kept
	return dst
}

// Position returns the position of a food item.
func (r *ResourceEconomy) Position(e ecs.Entity) *components.Position { return r.posMap.Get(e) }

// Food returns the food component of an item.
func (r *ResourceEconomy) Food(e ecs.Entity) *components.Food { return r.foodMap.Get(e) }

// PosMap exposes the position mapper for spatial queries.
func (r *ResourceEconomy) PosMap() *ecs.Map[components.Position] { return r.posMap }

// Radius returns the food contact radius.
func (r *ResourceEconomy) Radius() float64 { return r.resCfg.Radius }

func (r *ResourceEconomy) emit(kind events.Kind, foodID, agentID uint32, amount float64, p r2.Vec) {
	clk := r.reg.Clock()
	r.reg.Sink().Emit(events.Event{
		Kind:     kind,
		Tick:     clk.Tick(),
		Time:     clk.Now(),
		AgentID:  agentID,
		OtherID:  foodID,
		Amount:   amount,
		X:        p.X,
		Y:        p.Y,
		FoodLive: r.live,
	})
}
