package systems

import (
	"math/rand"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/clock"
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
)

// harness wires every system over one world the way the game does, with
// terrain, initial food, respawn and decay switched off unless a test opts in.
type harness struct {
	cfg     *config.Config
	world   *ecs.World
	clk     *clock.Clock
	rec     *events.Recorder
	rng     *rand.Rand
	reg     *PopulationRegistry
	regen   *RegenerationScheduler
	combat  *CombatResolver
	terrain *Terrain
	econ    *ResourceEconomy
	index   *Index
	percept *PerceptionSystem
	policy  *DecisionPolicy
	physics *PhysicsSystem
	proc    *ProcreationProtocol
	births  []SpawnRequest
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.World.Terrain.Enabled = false
	cfg.Resource.InitialFill = false
	cfg.Resource.Respawn = false
	cfg.Environment.DecayInterval = 0
	cfg.Combat.Knockback = 0
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{
		cfg:   cfg,
		world: ecs.NewWorld(),
		clk:   clock.New(cfg.Physics.DT),
		rec:   &events.Recorder{},
		rng:   rand.New(rand.NewSource(1)),
	}
	h.reg = NewPopulationRegistry(h.world, h.clk, h.rec, cfg.Movement.MinRadius)
	h.regen = NewRegenerationScheduler(h.reg, cfg.Environment)
	h.combat = NewCombatResolver(h.reg, h.regen, cfg.Combat)
	h.terrain = NewTerrain(cfg.World, 1)
	h.econ = NewResourceEconomy(h.world, h.reg, h.combat, h.terrain, h.rng, EconomyConfig{
		Resource:       cfg.Resource,
		Environment:    cfg.Environment,
		World:          cfg.World,
		SpawnPoints:    cfg.Derived.FoodSpawnPoints,
		ForageFraction: cfg.Decision.ForageHealthFraction,
	})
	h.index = NewIndex(h.reg, h.econ, cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize)
	h.percept = NewPerceptionSystem(h.reg, h.econ, h.index, cfg.Decision.ForageHealthFraction)
	h.policy = NewDecisionPolicy(h.reg, h.econ, cfg.Decision, h.rng, h.terrain, cfg.Physics.DT)
	h.physics = NewPhysicsSystem(h.world, h.reg, h.econ, h.index, h.terrain, cfg.Movement, Bounds{Width: cfg.World.Width, Height: cfg.World.Height})
	h.combat.SetKnockback(h.physics.ApplyImpulse)
	h.proc = NewProcreationProtocol(h.reg, h.rng, cfg.Procreation, Templates(cfg.Templates), func(req SpawnRequest) {
		h.births = append(h.births, req)
	})
	return h
}

// spawn adds a hunter of type typ at (x, y) with the given health (0 = max).
func (h *harness) spawn(typ components.HunterType, x, y, health float64) ecs.Entity {
	return h.reg.Spawn(SpawnRequest{
		Type:   typ,
		Stats:  Templates(h.cfg.Templates)[typ],
		Pos:    r2.Vec{X: x, Y: y},
		Health: health,
	})
}

func (h *harness) id(e ecs.Entity) uint32 {
	return h.reg.Hunter(e).ID
}

func (h *harness) health(e ecs.Entity) float64 {
	return h.reg.Vitals(e).Health
}

func (h *harness) perceive(e ecs.Entity) Perception {
	h.index.Rebuild()
	return h.percept.Perceive(e)
}
