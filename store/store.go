// Package store persists runs, window statistics and hunter lifetimes to SQLite.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/hunters/telemetry"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Run is one row of the runs table.
type Run struct {
	ID         string `db:"id"`
	Seed       int64  `db:"seed"`
	StartedAt  string `db:"started_at"` // RFC 3339, UTC
	ConfigYAML string `db:"config_yaml"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		config_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS windows (
		run_id TEXT NOT NULL REFERENCES runs(id),
		window_end INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		solo INTEGER NOT NULL,
		grp INTEGER NOT NULL,
		solo_births INTEGER NOT NULL,
		group_births INTEGER NOT NULL,
		solo_deaths INTEGER NOT NULL,
		group_deaths INTEGER NOT NULL,
		hits INTEGER NOT NULL,
		kills INTEGER NOT NULL,
		decay_deaths INTEGER NOT NULL,
		food_consumed INTEGER NOT NULL,
		food_live INTEGER NOT NULL,
		solo_health_mean REAL NOT NULL,
		group_health_mean REAL NOT NULL,
		solo_attack_mean REAL NOT NULL,
		group_attack_mean REAL NOT NULL,
		max_generation INTEGER NOT NULL,
		PRIMARY KEY (run_id, window_end)
	);

	CREATE TABLE IF NOT EXISTS lifetimes (
		run_id TEXT NOT NULL REFERENCES runs(id),
		hunter_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		generation INTEGER NOT NULL,
		parents TEXT NOT NULL,
		attack REAL NOT NULL,
		birth_tick INTEGER NOT NULL,
		death_tick INTEGER NOT NULL,
		survival_sec REAL NOT NULL,
		cause TEXT NOT NULL,
		damage_dealt REAL NOT NULL,
		damage_taken REAL NOT NULL,
		kills INTEGER NOT NULL,
		children INTEGER NOT NULL,
		food_eaten INTEGER NOT NULL,
		regen_gained REAL NOT NULL,
		PRIMARY KEY (run_id, hunter_id)
	);

	CREATE INDEX IF NOT EXISTS idx_lifetimes_type ON lifetimes(run_id, type);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records a new run and returns its generated ID.
func (db *DB) StartRun(seed int64, configYAML string) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO runs (id, seed, started_at, config_yaml) VALUES (?, ?, ?, ?)",
		id, seed, time.Now().UTC().Format(time.RFC3339), configYAML,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// SaveWindow appends one window of statistics.
func (db *DB) SaveWindow(runID string, s telemetry.WindowStats) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO windows
		(run_id, window_end, sim_time, solo, grp, solo_births, group_births,
		 solo_deaths, group_deaths, hits, kills, decay_deaths, food_consumed,
		 food_live, solo_health_mean, group_health_mean, solo_attack_mean,
		 group_attack_mean, max_generation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, s.WindowEndTick, s.SimTimeSec, s.SoloCount, s.GroupCount,
		s.SoloBirths, s.GroupBirths, s.SoloDeaths, s.GroupDeaths, s.Hits,
		s.Kills, s.DecayDeaths, s.FoodConsumed, s.FoodLive, s.SoloHealthMean,
		s.GroupHealthMean, s.SoloAttackMean, s.GroupAttackMean, s.MaxGeneration,
	)
	if err != nil {
		return fmt.Errorf("insert window: %w", err)
	}
	return nil
}

// SaveLifetimes writes retired hunter records in one transaction.
func (db *DB) SaveLifetimes(runID string, records []telemetry.LifetimeStats) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO lifetimes
		(run_id, hunter_id, type, generation, parents, attack, birth_tick,
		 death_tick, survival_sec, cause, damage_dealt, damage_taken, kills,
		 children, food_eaten, regen_gained)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(
			runID, r.ID, r.Type.String(), r.Generation, r.Parents, r.Attack,
			r.BirthTick, r.DeathTick, r.SurvivalTimeSec, r.Cause, r.DamageDealt,
			r.DamageTaken, r.Kills, r.Children, r.FoodEaten, r.RegenGained,
		); err != nil {
			return fmt.Errorf("insert lifetime %d: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT id, seed, started_at, config_yaml FROM runs WHERE id = ?", id)
	return r, err
}

// WindowPoint is a population sample read back from the windows table.
type WindowPoint struct {
	WindowEnd  int32 `db:"window_end"`
	SoloCount  int   `db:"solo"`
	GroupCount int   `db:"grp"`
}

// Windows returns the population curve of a run in tick order.
func (db *DB) Windows(runID string) ([]WindowPoint, error) {
	var out []WindowPoint
	err := db.conn.Select(&out,
		"SELECT window_end, solo, grp FROM windows WHERE run_id = ? ORDER BY window_end",
		runID,
	)
	return out, err
}

// TypeSummary aggregates lifetimes of one hunter type.
type TypeSummary struct {
	Type        string  `db:"type"`
	Count       int     `db:"n"`
	MeanSurvive float64 `db:"mean_survival"`
	Kills       int     `db:"kills"`
	Children    int     `db:"children"`
}

// LifetimeSummary returns per-type aggregates of a run's retired hunters.
func (db *DB) LifetimeSummary(runID string) ([]TypeSummary, error) {
	var out []TypeSummary
	err := db.conn.Select(&out, `
		SELECT type, COUNT(*) AS n, AVG(survival_sec) AS mean_survival,
		       SUM(kills) AS kills, SUM(children) AS children
		FROM lifetimes WHERE run_id = ? GROUP BY type ORDER BY type`,
		runID,
	)
	return out, err
}
