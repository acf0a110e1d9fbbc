// Package game owns one simulation: the ECS world, every system, and the
// telemetry, persistence and observer hooks around them.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/hunters/clock"
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/events"
	"github.com/pthm-cable/hunters/observer"
	"github.com/pthm-cable/hunters/store"
	"github.com/pthm-cable/hunters/systems"
	"github.com/pthm-cable/hunters/telemetry"
)

// Options configures a Game.
type Options struct {
	Config *config.Config // nil = embedded defaults
	Seed   int64

	// Sink receives every event after the built-in telemetry sinks.
	Sink events.Sink

	LogStats       bool
	StatsWindowSec float64 // 0 = telemetry.stats_window
	StatsCallback  func(telemetry.WindowStats)

	OutputDir      string // CSV logs and config snapshot; empty disables
	SnapshotDir    string // Snapshots on bookmarks and at Close; empty disables
	JournalDir     string // events.jsonl.zst; empty disables
	DBPath         string // SQLite run store; empty disables
	HallOfFamePath string // Loaded at start when present, written at Close

	Observer *observer.Hub

	// Workers > 1 computes perception in parallel. Results are identical to
	// a serial run.
	Workers int
}

// Game holds the complete simulation state.
type Game struct {
	cfg     *config.Config
	rng     *rand.Rand
	rngSeed int64

	world *ecs.World
	clock *clock.Clock
	sink  *events.Multi

	reg     *systems.PopulationRegistry
	regen   *systems.RegenerationScheduler
	combat  *systems.CombatResolver
	terrain *systems.Terrain
	econ    *systems.ResourceEconomy
	index   *systems.Index
	percept *systems.PerceptionSystem
	policy  *systems.DecisionPolicy
	physics *systems.PhysicsSystem
	proc    *systems.ProcreationProtocol
	sysReg  *systems.SystemRegistry

	templates [components.NumHunterTypes]components.HunterStats

	// Per-tick scratch
	births      []systems.SpawnRequest
	scratch     []ecs.Entity
	perceptions []systems.Perception
	par         *parallelState

	// Telemetry
	collector     *telemetry.Collector
	lifetimes     *telemetry.LifetimeTracker
	perfCollector *telemetry.PerfCollector
	bookmarks     *telemetry.BookmarkDetector
	hallOfFame    *telemetry.HallOfFame
	hallPath      string
	output        *telemetry.OutputManager
	journal       *telemetry.Journal
	db            *store.DB
	runID         string
	hub           *observer.Hub
	snapshotDir   string
	logStats      bool
	statsCallback func(telemetry.WindowStats)

	cappedBirths int
	started      time.Time
	closed       bool
}

// NewGameWithOptions builds a game, seeds the initial population and starts
// the food economy. Any output sink that cannot be opened is an error.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return nil, err
		}
	}
	cfg = cfg.Clone()
	if opts.StatsWindowSec > 0 {
		cfg.Telemetry.StatsWindow = opts.StatsWindowSec
		cfg = cfg.Clone()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Game{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(seed)),
		rngSeed:       seed,
		world:         ecs.NewWorld(),
		clock:         clock.New(cfg.Physics.DT),
		sysReg:        systems.NewSystemRegistry(),
		templates:     systems.Templates(cfg.Templates),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		lifetimes:     telemetry.NewLifetimeTracker(),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks:     telemetry.NewBookmarkDetector(10),
		hub:           opts.Observer,
		snapshotDir:   opts.SnapshotDir,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
		hallPath:      opts.HallOfFamePath,
		started:       time.Now(),
	}

	if err := g.openOutputs(opts); err != nil {
		g.closeOutputs()
		return nil, err
	}

	// Lifetimes come first so records exist before anything reads them.
	g.sink = events.NewMulti(g.lifetimes, g.collector)
	if g.journal != nil {
		g.sink.Add(g.journal)
	}
	if g.hub != nil {
		g.sink.Add(g.hub)
	}
	g.sink.Add(opts.Sink)

	g.buildSystems()
	if opts.Workers > 1 {
		g.par = newParallelState(g, opts.Workers)
	}

	g.spawnInitialPopulation()
	g.econ.Start()

	slog.Info("game created",
		"seed", seed,
		"solo", g.reg.Count(components.Solo),
		"group", g.reg.Count(components.Group),
		"food", g.econ.Live(),
		"terrain_solid", g.terrain.SolidFraction(),
		"run_id", g.runID,
	)
	return g, nil
}

// buildSystems wires the systems over one world in dependency order.
func (g *Game) buildSystems() {
	cfg := g.cfg
	g.reg = systems.NewPopulationRegistry(g.world, g.clock, g.sink, cfg.Movement.MinRadius)
	g.regen = systems.NewRegenerationScheduler(g.reg, cfg.Environment)
	g.combat = systems.NewCombatResolver(g.reg, g.regen, cfg.Combat)
	g.terrain = systems.NewTerrain(cfg.World, g.rngSeed)
	g.econ = systems.NewResourceEconomy(g.world, g.reg, g.combat, g.terrain, g.rng, systems.EconomyConfig{
		Resource:       cfg.Resource,
		Environment:    cfg.Environment,
		World:          cfg.World,
		SpawnPoints:    cfg.Derived.FoodSpawnPoints,
		ForageFraction: cfg.Decision.ForageHealthFraction,
	})
	g.index = systems.NewIndex(g.reg, g.econ, cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize)
	g.percept = systems.NewPerceptionSystem(g.reg, g.econ, g.index, cfg.Decision.ForageHealthFraction)
	g.policy = systems.NewDecisionPolicy(g.reg, g.econ, cfg.Decision, g.rng, g.terrain, cfg.Physics.DT)
	g.physics = systems.NewPhysicsSystem(g.world, g.reg, g.econ, g.index, g.terrain, cfg.Movement,
		systems.Bounds{Width: cfg.World.Width, Height: cfg.World.Height})
	g.combat.SetKnockback(g.physics.ApplyImpulse)
	g.proc = systems.NewProcreationProtocol(g.reg, g.rng, cfg.Procreation, g.templates, g.queueBirth)
}

// openOutputs opens every configured output. On error the caller closes
// whatever was opened.
func (g *Game) openOutputs(opts Options) error {
	var err error
	if g.output, err = telemetry.NewOutputManager(opts.OutputDir); err != nil {
		return err
	}
	if err := g.output.WriteConfig(g.cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	if opts.JournalDir != "" {
		if g.journal, err = telemetry.NewJournal(opts.JournalDir, g.cfg.Telemetry.JournalBuffer); err != nil {
			return err
		}
	}

	if opts.DBPath != "" {
		if g.db, err = store.Open(opts.DBPath); err != nil {
			return err
		}
		yml, err := g.cfg.YAML()
		if err != nil {
			return err
		}
		if g.runID, err = g.db.StartRun(g.rngSeed, yml); err != nil {
			return err
		}
	}

	if g.cfg.HallOfFame.Enabled {
		g.hallOfFame = telemetry.NewHallOfFame(g.cfg.HallOfFame, g.rng)
		if g.hallPath != "" {
			hof, err := telemetry.LoadHallOfFameFromFile(g.hallPath, g.cfg.HallOfFame, g.rng)
			switch {
			case err == nil:
				g.hallOfFame = hof
				slog.Info("hall of fame loaded",
					"path", g.hallPath,
					"solo", hof.Size(components.Solo),
					"group", hof.Size(components.Group),
				)
			case errors.Is(err, os.ErrNotExist):
				slog.Info("hall of fame not found, starting empty", "path", g.hallPath)
			default:
				return err
			}
		}
	}
	return nil
}

// Update advances the simulation by one tick.
func (g *Game) Update() {
	g.step()
}

// RunHeadless steps until maxTicks is reached (0 = unlimited) or ctx is done.
func (g *Game) RunHeadless(ctx context.Context, maxTicks int32) error {
	for {
		if maxTicks > 0 && g.Tick() >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return nil
		}
		select {
		case <-ctx.Done():
			slog.Info("simulation interrupted", "tick", g.Tick())
			return ctx.Err()
		default:
		}
		g.step()
		if g.reg.Total() == 0 {
			slog.Info("population extinct", "tick", g.Tick())
			return nil
		}
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 { return g.clock.Tick() }

// Time returns the current simulation time in seconds.
func (g *Game) Time() float64 { return g.clock.Now() }

// Counts returns live hunters per type.
func (g *Game) Counts() events.Counts { return g.reg.Counts() }

// FoodLive returns the number of unconsumed food items.
func (g *Game) FoodLive() int { return g.econ.Live() }

// Registry exposes the population registry.
func (g *Game) Registry() *systems.PopulationRegistry { return g.reg }

// Config returns the effective configuration.
func (g *Game) Config() *config.Config { return g.cfg }

// Seed returns the RNG seed.
func (g *Game) Seed() int64 { return g.rngSeed }

// RunID returns the store run ID, or "" without a database.
func (g *Game) RunID() string { return g.runID }

// Latest returns the most recent telemetry window.
func (g *Game) Latest() (telemetry.WindowStats, bool) { return g.collector.Latest() }

// HallOfFame returns the hall of fame, or nil when disabled.
func (g *Game) HallOfFame() *telemetry.HallOfFame { return g.hallOfFame }

// Close stops timers and workers, retires the remaining records into the
// hall of fame, writes final outputs and closes every file. Safe to call
// more than once.
func (g *Game) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true

	g.econ.Stop()
	if g.par != nil {
		g.par.stopWorkers()
	}

	g.flushLifetimes()
	g.considerLiving()

	if g.snapshotDir != "" {
		g.saveSnapshot(nil)
	}
	if err := g.output.WriteHallOfFame(g.hallOfFame); err != nil {
		slog.Error("failed to write hall of fame", "error", err)
	}
	if g.hallPath != "" && g.hallOfFame != nil {
		if err := writeHallOfFame(g.hallPath, g.hallOfFame); err != nil {
			slog.Error("failed to save hall of fame", "path", g.hallPath, "error", err)
		}
	}

	g.logSummary()
	return g.closeOutputs()
}

// Unload releases all resources, logging any close error.
func (g *Game) Unload() {
	if err := g.Close(); err != nil {
		slog.Error("close failed", "error", err)
	}
}

func (g *Game) closeOutputs() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(g.output.Close())
	if g.journal != nil {
		keep(g.journal.Close())
	}
	keep(g.db.Close())
	return firstErr
}

func writeHallOfFame(path string, hof *telemetry.HallOfFame) error {
	data, err := hof.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
