package telemetry

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
)

func testHallConfig(size int) config.HallOfFameConfig {
	var cfg config.HallOfFameConfig
	cfg.Enabled = true
	cfg.Size = size
	cfg.Entry.MinChildren = 1
	cfg.Entry.MinSurvivalSec = 60
	cfg.Entry.MinKills = 2
	cfg.Fitness.ChildrenWeight = 10
	cfg.Fitness.SurvivalWeight = 0.1
	cfg.Fitness.KillsWeight = 5
	return cfg
}

func TestHallOfFameEntryCriteria(t *testing.T) {
	tests := []struct {
		name  string
		stats LifetimeStats
		want  bool
	}{
		{"procreated", LifetimeStats{ID: 1, Children: 1}, true},
		{"long-lived killer", LifetimeStats{ID: 2, SurvivalTimeSec: 90, Kills: 2}, true},
		{"long-lived pacifist", LifetimeStats{ID: 3, SurvivalTimeSec: 90}, false},
		{"short-lived killer", LifetimeStats{ID: 4, SurvivalTimeSec: 10, Kills: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hof := NewHallOfFame(testHallConfig(5), rand.New(rand.NewSource(1)))
			if got := hof.Consider(tt.stats); got != tt.want {
				t.Errorf("Consider() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHallOfFameKeepsBest(t *testing.T) {
	hof := NewHallOfFame(testHallConfig(2), rand.New(rand.NewSource(1)))

	for i, children := range []int{1, 3, 2} {
		hof.Consider(LifetimeStats{ID: uint32(i + 1), Type: components.Group, Children: children})
	}

	if got := hof.Size(components.Group); got != 2 {
		t.Fatalf("Size(group) = %d, want 2", got)
	}
	if got := hof.TopFitness(components.Group); got != 30 {
		t.Errorf("TopFitness(group) = %v, want 30", got)
	}
	if hof.Size(components.Solo) != 0 {
		t.Error("solo hall should be empty")
	}
	if hof.Consider(LifetimeStats{ID: 9, Type: components.Group, Children: 1}) {
		t.Error("weaker entry admitted into a full hall")
	}

	e, ok := hof.Sample(components.Group)
	if !ok || e.Children < 2 {
		t.Errorf("Sample() = %+v, %v, want one of the kept entries", e, ok)
	}
	if _, ok := hof.Sample(components.Solo); ok {
		t.Error("Sample on an empty hall reported ok")
	}
}

func TestHallOfFameFileRoundTrip(t *testing.T) {
	hof := NewHallOfFame(testHallConfig(5), rand.New(rand.NewSource(1)))
	hof.Consider(LifetimeStats{ID: 1, Type: components.Solo, Attack: 9.5, Children: 2})
	hof.Consider(LifetimeStats{ID: 2, Type: components.Group, Attack: 2.75, Children: 1})

	data, err := hof.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	path := filepath.Join(t.TempDir(), "hall_of_fame.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadHallOfFameFromFile(path, testHallConfig(5), rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("LoadHallOfFameFromFile: %v", err)
	}
	e, ok := loaded.Sample(components.Solo)
	if !ok || e.Attack != 9.5 || e.Type != components.Solo {
		t.Errorf("solo sample = %+v, %v, want attack 9.5", e, ok)
	}
	if e, _ := loaded.Sample(components.Group); e.Attack != 2.75 {
		t.Errorf("group sample attack = %v, want 2.75", e.Attack)
	}
}
