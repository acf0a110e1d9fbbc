package game

import (
	"log/slog"

	"github.com/pthm-cable/hunters/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles
// outputs, bookmarks and lifetime records.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.Tick()) {
		return
	}

	stats := g.collector.Flush(g.Tick(), g.sample())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
	if g.db != nil {
		if err := g.db.SaveWindow(g.runID, stats); err != nil {
			slog.Error("failed to store window", "error", err)
		}
	}
	if g.hub != nil {
		g.hub.PublishStats(stats)
		g.perfCollector.RecordFrame()
	}

	for _, bm := range g.bookmarks.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}

	g.flushLifetimes()
}

// sample reads the population state that window statistics are built from.
func (g *Game) sample() telemetry.Sample {
	s := telemetry.Sample{
		Counts:   g.reg.Counts(),
		FoodLive: g.econ.Live(),
	}
	g.scratch = g.reg.Snapshot(g.scratch[:0])
	for _, e := range g.scratch {
		h := g.reg.Hunter(e)
		s.Health[h.Type] = append(s.Health[h.Type], g.reg.Vitals(e).Health)
		s.Attack[h.Type] = append(s.Attack[h.Type], h.Stats.Attack)
		if h.Generation > s.MaxGeneration {
			s.MaxGeneration = h.Generation
		}
	}
	return s
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(g.Snapshot(bookmark), g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", g.Tick())
}

// Snapshot builds the observable state of the arena at the current tick.
func (g *Game) Snapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		RNGSeed:     g.rngSeed,
		WorldWidth:  g.cfg.World.Width,
		WorldHeight: g.cfg.World.Height,
		Tick:        g.Tick(),
		Time:        g.Time(),
		Bookmark:    bookmark,
	}

	g.scratch = g.reg.Snapshot(g.scratch[:0])
	snap.Hunters = make([]telemetry.HunterState, 0, len(g.scratch))
	for _, e := range g.scratch {
		h := g.reg.Hunter(e)
		pos, vel := g.reg.Position(e), g.reg.Velocity(e)
		v, steer := g.reg.Vitals(e), g.reg.Steering(e)

		state := telemetry.HunterState{
			ID:         h.ID,
			Type:       h.Type,
			Generation: h.Generation,
			X:          pos.X,
			Y:          pos.Y,
			VelX:       vel.X,
			VelY:       vel.Y,
			HeadingX:   steer.Heading.X,
			HeadingY:   steer.Heading.Y,
			Radius:     g.reg.Body(e).Radius,
			Health:     v.Health,
			MaxHealth:  v.MaxHealth,
			Attack:     h.Stats.Attack,
			Intent:     steer.Intent,
			InCombat:   v.InCombat,
			PartnerID:  g.reg.Procreation(e).PartnerID,
			Lifetime:   g.lifetimeOf(h.ID),
		}
		if h.HasParents {
			state.Parents = []uint32{h.Parents[0], h.Parents[1]}
		}
		snap.Hunters = append(snap.Hunters, state)
	}

	g.scratch = g.econ.Snapshot(g.scratch[:0])
	snap.Food = make([]telemetry.FoodState, 0, len(g.scratch))
	for _, e := range g.scratch {
		pos := g.econ.Position(e)
		snap.Food = append(snap.Food, telemetry.FoodState{ID: g.econ.Food(e).ID, X: pos.X, Y: pos.Y})
	}
	return snap
}
