package store

import (
	"path/filepath"
	"testing"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/telemetry"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStartRun(t *testing.T) {
	db := openTest(t)

	id, err := db.StartRun(42, "world:\n  width: 240\n")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("run id %q is not a uuid", id)
	}

	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Seed != 42 || run.ConfigYAML == "" || run.StartedAt == "" {
		t.Errorf("run = %+v", run)
	}

	other, err := db.StartRun(42, "")
	if err != nil {
		t.Fatalf("second StartRun: %v", err)
	}
	if other == id {
		t.Error("two runs share an id")
	}
}

func TestSaveWindows(t *testing.T) {
	db := openTest(t)
	id, err := db.StartRun(1, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, w := range []telemetry.WindowStats{
		{WindowEndTick: 1200, SoloCount: 2, GroupCount: 9},
		{WindowEndTick: 600, SoloCount: 2, GroupCount: 10},
	} {
		if err := db.SaveWindow(id, w); err != nil {
			t.Fatalf("SaveWindow: %v", err)
		}
	}

	got, err := db.Windows(id)
	if err != nil {
		t.Fatalf("Windows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Windows() = %d rows, want 2", len(got))
	}
	if got[0].WindowEnd != 600 || got[0].GroupCount != 10 {
		t.Errorf("first window = %+v, want tick 600 with 10 group", got[0])
	}
}

func TestSaveLifetimes(t *testing.T) {
	db := openTest(t)
	id, err := db.StartRun(1, "")
	if err != nil {
		t.Fatal(err)
	}

	records := []telemetry.LifetimeStats{
		{ID: 1, Type: components.Solo, SurvivalTimeSec: 30, Kills: 3, Cause: "combat"},
		{ID: 2, Type: components.Group, SurvivalTimeSec: 10, Children: 1, Cause: "decay"},
		{ID: 3, Type: components.Group, SurvivalTimeSec: 20, Children: 2, Cause: "combat"},
	}
	if err := db.SaveLifetimes(id, records); err != nil {
		t.Fatalf("SaveLifetimes: %v", err)
	}
	if err := db.SaveLifetimes(id, nil); err != nil {
		t.Fatalf("SaveLifetimes(nil): %v", err)
	}

	sum, err := db.LifetimeSummary(id)
	if err != nil {
		t.Fatalf("LifetimeSummary: %v", err)
	}
	if len(sum) != 2 {
		t.Fatalf("summary rows = %d, want 2", len(sum))
	}
	// Ordered by type name: group, solo
	if sum[0].Type != "group" || sum[0].Count != 2 || sum[0].Children != 3 || sum[0].MeanSurvive != 15 {
		t.Errorf("group summary = %+v", sum[0])
	}
	if sum[1].Type != "solo" || sum[1].Kills != 3 {
		t.Errorf("solo summary = %+v", sum[1])
	}
}

func TestNilDBClose(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
}
