package game

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/systems"
	"github.com/pthm-cable/hunters/telemetry"
)

// spawnInitialPopulation creates the configured Solo and Group hunters.
// With a loaded hall of fame, a share of each type starts from a proven
// attack value instead of the template.
func (g *Game) spawnInitialPopulation() {
	pop := g.cfg.Population
	for t, n := range [components.NumHunterTypes]int{pop.Solo, pop.Group} {
		typ := components.HunterType(t)
		fromHall := 0
		if g.hallOfFame != nil && g.hallOfFame.Size(typ) > 0 {
			fromHall = int(float64(n)*g.cfg.HallOfFame.SeedFraction + 0.5)
		}
		for i := 0; i < n; i++ {
			stats := g.templates[typ]
			if i < fromHall {
				if entry, ok := g.hallOfFame.Sample(typ); ok {
					stats = stats.WithAttack(entry.Attack)
				}
			}
			g.spawnAtSpawnPoint(typ, stats)
		}
		if fromHall > 0 {
			slog.Info("seeded from hall of fame",
				"type", typ.String(),
				"count", fromHall,
				"hall_size", g.hallOfFame.Size(typ),
				"top_fitness", g.hallOfFame.TopFitness(typ),
			)
		}
	}
}

// SpawnRandom adds n hunters of type t at random spawn points. Population
// caps do not apply to manual spawns.
func (g *Game) SpawnRandom(n int, t components.HunterType) []uint32 {
	ids := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		e := g.spawnAtSpawnPoint(t, g.templates[t])
		ids = append(ids, g.reg.Hunter(e).ID)
	}
	return ids
}

// spawnAtSpawnPoint places a hunter within spawn_point_radius of a random
// configured spawn point, facing a random direction.
func (g *Game) spawnAtSpawnPoint(t components.HunterType, stats components.HunterStats) ecs.Entity {
	points := g.cfg.World.SpawnPoints
	sp := points[g.rng.Intn(len(points))]
	pos := systems.RandInDisc(g.rng, r2.Vec{X: sp.X, Y: sp.Y}, g.cfg.World.SpawnPointRadius)
	return g.reg.Spawn(systems.SpawnRequest{
		Type:    t,
		Stats:   stats,
		Pos:     pos,
		Heading: systems.RandHeading(g.rng),
	})
}

// queueBirth defers an offspring until the births phase so no entity is
// created while contacts or sessions are being walked.
func (g *Game) queueBirth(req systems.SpawnRequest) {
	g.births = append(g.births, req)
}

// applyBirths spawns queued offspring in order, dropping those that would
// exceed the per-type population cap. A child born below max health starts
// its regen schedule as if it had just been hit.
func (g *Game) applyBirths() {
	for _, req := range g.births {
		if limit := g.maxPopulation(req.Type); limit > 0 && g.reg.Count(req.Type) >= limit {
			g.cappedBirths++
			continue
		}
		g.regen.Restart(g.reg.Spawn(req))
	}
	g.births = g.births[:0]
}

func (g *Game) maxPopulation(t components.HunterType) int {
	if t == components.Solo {
		return g.cfg.Population.MaxSolo
	}
	return g.cfg.Population.MaxGroup
}

// flushLifetimes writes retired hunter records to every sink and offers them
// to the hall of fame.
func (g *Game) flushLifetimes() {
	records := g.lifetimes.Drain()
	if len(records) == 0 {
		return
	}
	if err := g.output.WriteLifetimes(records); err != nil {
		slog.Error("failed to write lifetimes", "error", err)
	}
	if g.db != nil {
		if err := g.db.SaveLifetimes(g.runID, records); err != nil {
			slog.Error("failed to store lifetimes", "error", err)
		}
	}
	if g.hallOfFame == nil {
		return
	}
	for _, r := range records {
		g.hallOfFame.Consider(r)
	}
}

// considerLiving offers hunters still alive at shutdown to the hall of fame,
// with survival measured up to now.
func (g *Game) considerLiving() {
	if g.hallOfFame == nil {
		return
	}
	g.scratch = g.reg.Snapshot(g.scratch[:0])
	for _, e := range g.scratch {
		ls := g.lifetimes.Get(g.reg.Hunter(e).ID)
		if ls == nil {
			continue
		}
		r := *ls
		r.SurvivalTimeSec = float64(g.Tick()-r.BirthTick) * g.cfg.Physics.DT
		g.hallOfFame.Consider(r)
	}
}

// lifetimeOf returns a copy of a hunter's running record, if tracked.
func (g *Game) lifetimeOf(id uint32) *telemetry.LifetimeStats {
	ls := g.lifetimes.Get(id)
	if ls == nil {
		return nil
	}
	cp := *ls
	return &cp
}
