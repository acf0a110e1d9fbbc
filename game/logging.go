package game

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pthm-cable/hunters/components"
)

// logSummary logs a human-readable end-of-run summary.
func (g *Game) logSummary() {
	elapsed := time.Since(g.started)
	ticks := int64(g.Tick())
	var tps float64
	if elapsed > 0 {
		tps = float64(ticks) / elapsed.Seconds()
	}

	attrs := []any{
		"ticks", humanize.Comma(ticks),
		"sim_time", (time.Duration(g.Time() * float64(time.Second))).Round(time.Second).String(),
		"wall_time", elapsed.Round(time.Millisecond).String(),
		"ticks_per_sec", humanize.CommafWithDigits(tps, 0),
		"solo", g.reg.Count(components.Solo),
		"group", g.reg.Count(components.Group),
		"food_live", g.econ.Live(),
		"births_capped", humanize.Comma(int64(g.cappedBirths)),
	}
	if g.journal != nil {
		attrs = append(attrs, "journal_events", humanize.Comma(int64(g.journal.Count())))
	}
	if g.hallOfFame != nil {
		attrs = append(attrs,
			"hall_solo", g.hallOfFame.Size(components.Solo),
			"hall_group", g.hallOfFame.Size(components.Group),
		)
	}
	if dir := g.output.Dir(); dir != "" {
		attrs = append(attrs, "output_size", humanize.Bytes(dirSize(dir)))
	}
	if g.hub != nil {
		attrs = append(attrs, "observer_dropped", humanize.Comma(int64(g.hub.Dropped())))
	}
	slog.Info("run summary", attrs...)

	if g.logStats {
		g.logPerfStats()
	}
}

// logPerfStats logs the average duration of each step phase.
func (g *Game) logPerfStats() {
	stats := g.perfCollector.Stats()
	attrs := []any{"tick", g.Tick(), "avg_tick", stats.AvgTickDuration.Round(time.Microsecond).String()}
	for _, id := range g.sysReg.IDs() {
		avg, ok := stats.PhaseAvg[id]
		if !ok {
			continue
		}
		attrs = append(attrs, g.sysReg.GetName(id), avg.Round(time.Microsecond).String())
	}
	slog.Info("perf breakdown", attrs...)
}

// dirSize sums the sizes of regular files under dir.
func dirSize(dir string) uint64 {
	var total uint64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}
