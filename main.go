package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/game"
	"github.com/pthm-cable/hunters/observer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	journalDir := flag.String("journal", "", "Directory for the compressed event journal")
	dbPath := flag.String("db", "", "SQLite database for run history")
	hallPath := flag.String("hall-of-fame", "", "Hall of fame JSON to seed from and save to")
	observe := flag.String("observe", "", "Serve the live observer on this address (e.g. :8080)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	workers := flag.Int("workers", 0, "Perception workers (0 = serial, -1 = all CPUs)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hub *observer.Hub
	if *observe != "" {
		hub = observer.NewHub(cfg.Observer)
		go func() {
			if err := hub.Serve(ctx, *observe); err != nil {
				slog.Error("observer stopped", "error", err)
			}
		}()
	}

	opts := game.Options{
		Config:         cfg,
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		JournalDir:     *journalDir,
		DBPath:         *dbPath,
		HallOfFamePath: *hallPath,
		Observer:       hub,
		Workers:        *workers,
	}
	if *workers < 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"stats_window", *statsWindow,
		"max_ticks", *maxTicks,
		"observe", *observe,
	)

	if err := g.RunHeadless(ctx, int32(*maxTicks)); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("simulation failed", "error", err)
	}
}
