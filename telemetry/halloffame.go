package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
)

// HallEntry records a successful hunter. Attack is the only stat that
// drifts between generations, so it is all that is needed to reseed.
type HallEntry struct {
	HunterID   uint32                `json:"hunter_id"`
	Type       components.HunterType `json:"type"`
	Attack     float64               `json:"attack"`
	Fitness    float64               `json:"fitness"`
	Children   int                   `json:"children"`
	Kills      int                   `json:"kills"`
	Survival   float64               `json:"survival_sec"`
	Generation int                   `json:"generation"`
}

// HallOfFame stores proven lineages for seeding later runs.
// Halls are indexed by hunter type.
type HallOfFame struct {
	halls   [components.NumHunterTypes][]HallEntry
	maxSize int
	cfg     config.HallOfFameConfig
	rng     *rand.Rand
}

// NewHallOfFame creates a hall of fame with cfg.Size entries per type.
func NewHallOfFame(cfg config.HallOfFameConfig, rng *rand.Rand) *HallOfFame {
	maxSize := cfg.Size
	if maxSize < 1 {
		maxSize = 1
	}
	hof := &HallOfFame{maxSize: maxSize, cfg: cfg, rng: rng}
	for i := range hof.halls {
		hof.halls[i] = make([]HallEntry, 0, maxSize)
	}
	return hof
}

// Consider evaluates a retired hunter for hall of fame entry.
// Returns true if the hunter was added.
func (hof *HallOfFame) Consider(stats LifetimeStats) bool {
	if int(stats.Type) >= len(hof.halls) || !hof.meetsEntryCriteria(stats) {
		return false
	}

	entry := HallEntry{
		HunterID:   stats.ID,
		Type:       stats.Type,
		Attack:     stats.Attack,
		Fitness:    hof.calculateFitness(stats),
		Children:   stats.Children,
		Kills:      stats.Kills,
		Survival:   stats.SurvivalTimeSec,
		Generation: stats.Generation,
	}
	hof.halls[stats.Type] = hof.insertEntry(hof.halls[stats.Type], entry)
	return hof.contains(stats.Type, stats.ID)
}

func (hof *HallOfFame) contains(t components.HunterType, id uint32) bool {
	for _, e := range hof.halls[t] {
		if e.HunterID == id {
			return true
		}
	}
	return false
}

// meetsEntryCriteria checks if a hunter qualifies for the hall.
func (hof *HallOfFame) meetsEntryCriteria(stats LifetimeStats) bool {
	// Primary criterion: procreated at least once
	if hof.cfg.Entry.MinChildren > 0 && stats.Children >= hof.cfg.Entry.MinChildren {
		return true
	}
	// Secondary: survived long enough and won fights
	return stats.SurvivalTimeSec >= hof.cfg.Entry.MinSurvivalSec && stats.Kills >= hof.cfg.Entry.MinKills
}

func (hof *HallOfFame) calculateFitness(stats LifetimeStats) float64 {
	f := float64(stats.Children) * hof.cfg.Fitness.ChildrenWeight
	f += stats.SurvivalTimeSec * hof.cfg.Fitness.SurvivalWeight
	f += float64(stats.Kills) * hof.cfg.Fitness.KillsWeight
	return f
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall
}

// Sample picks an entry of type t using tournament selection (k=3).
func (hof *HallOfFame) Sample(t components.HunterType) (HallEntry, bool) {
	if int(t) >= len(hof.halls) {
		return HallEntry{}, false
	}
	hall := hof.halls[t]
	if len(hall) == 0 {
		return HallEntry{}, false
	}

	const tournamentSize = 3
	best := -1
	for i := 0; i < tournamentSize; i++ {
		idx := hof.rng.Intn(len(hall))
		if best < 0 || hall[idx].Fitness > hall[best].Fitness {
			best = idx
		}
	}
	return hall[best], true
}

// Size returns the number of entries for a hunter type.
func (hof *HallOfFame) Size(t components.HunterType) int {
	if int(t) >= len(hof.halls) {
		return 0
	}
	return len(hof.halls[t])
}

// TopFitness returns the highest fitness for a hunter type, or 0 if empty.
func (hof *HallOfFame) TopFitness(t components.HunterType) float64 {
	if hof.Size(t) == 0 {
		return 0
	}
	return hof.halls[t][0].Fitness
}

// MarshalJSON serializes the hall keyed by hunter type name.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make(map[string][]HallEntry, len(hof.halls))
	for t, hall := range hof.halls {
		export[components.HunterType(t).String()] = hall
	}
	return json.MarshalIndent(export, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file written by MarshalJSON.
func LoadHallOfFameFromFile(path string, cfg config.HallOfFameConfig, rng *rand.Rand) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw map[string][]HallEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	for _, entries := range raw {
		if len(entries) > cfg.Size {
			cfg.Size = len(entries)
		}
	}
	hof := NewHallOfFame(cfg, rng)

	for name, entries := range raw {
		t, ok := components.ParseHunterType(name)
		if !ok {
			slog.Warn("hall_of_fame_load: unknown hunter type, skipping", "type", name)
			continue
		}
		for _, e := range entries {
			e.Type = t
			hof.halls[t] = hof.insertEntry(hof.halls[t], e)
		}
	}
	return hof, nil
}
