package telemetry

import (
	"fmt"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/events"
)

// LifetimeStats tracks per-hunter statistics over its lifetime.
type LifetimeStats struct {
	ID         uint32                `csv:"hunter_id" json:"hunter_id"`
	Type       components.HunterType `csv:"type" json:"type"`
	Generation int                   `csv:"generation" json:"generation"`
	Parents    string                `csv:"parents" json:"parents"`
	Attack     float64               `csv:"attack" json:"attack"`

	BirthTick       int32   `csv:"birth_tick" json:"birth_tick"`
	DeathTick       int32   `csv:"death_tick" json:"death_tick"`
	SurvivalTimeSec float64 `csv:"survival_sec" json:"survival_sec"`
	Cause           string  `csv:"cause" json:"cause"`

	// Combat
	DamageDealt float64 `csv:"damage_dealt" json:"damage_dealt"`
	DamageTaken float64 `csv:"damage_taken" json:"damage_taken"`
	Kills       int     `csv:"kills" json:"kills"`

	// Reproduction
	Children int `csv:"children" json:"children"`

	// Health sources
	FoodEaten   int     `csv:"food_eaten" json:"food_eaten"`
	FoodHealed  float64 `csv:"food_healed" json:"food_healed"`
	RegenGained float64 `csv:"regen_gained" json:"regen_gained"`

	birthTime float64 `csv:"-"`
}

// LifetimeTracker manages per-hunter lifetime statistics.
// Records of dead hunters are buffered until Drain.
type LifetimeTracker struct {
	stats   map[uint32]*LifetimeStats
	retired []LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats from a Spawned or Born event.
func (lt *LifetimeTracker) Register(e events.Event) {
	s := &LifetimeStats{
		ID:         e.AgentID,
		Type:       e.Type,
		Generation: e.Generation,
		Attack:     e.Amount,
		BirthTick:  e.Tick,
		DeathTick:  -1,
		birthTime:  e.Time,
	}
	if len(e.Parents) == 2 {
		s.Parents = fmt.Sprintf("%d;%d", e.Parents[0], e.Parents[1])
	}
	lt.stats[e.AgentID] = s
}

// Get returns the lifetime stats for a hunter, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Retire closes a hunter's record and moves it to the drain buffer.
func (lt *LifetimeTracker) Retire(e events.Event) {
	s := lt.stats[e.AgentID]
	if s == nil {
		return
	}
	delete(lt.stats, e.AgentID)
	s.DeathTick = e.Tick
	s.SurvivalTimeSec = e.Time - s.birthTime
	s.Cause = e.Cause.String()
	lt.retired = append(lt.retired, *s)
}

// Drain returns the retired records and clears the buffer.
func (lt *LifetimeTracker) Drain() []LifetimeStats {
	out := lt.retired
	lt.retired = nil
	return out
}

// RecordDamage attributes damage to both sides of a hit.
func (lt *LifetimeTracker) RecordDamage(victimID, attackerID uint32, amount float64) {
	if s := lt.stats[victimID]; s != nil {
		s.DamageTaken += amount
	}
	if s := lt.stats[attackerID]; s != nil {
		s.DamageDealt += amount
	}
}

// RecordKill increments kill count.
func (lt *LifetimeTracker) RecordKill(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Kills++
	}
}

// RecordChild increments children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// RecordForage counts a consumed food item and the health it restored.
func (lt *LifetimeTracker) RecordForage(id uint32, amount float64) {
	if s := lt.stats[id]; s != nil {
		s.FoodEaten++
		s.FoodHealed += amount
	}
}

// All returns all tracked stats of living hunters.
func (lt *LifetimeTracker) All() map[uint32]*LifetimeStats {
	return lt.stats
}

// Count returns the number of tracked hunters.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// LineageCount returns the number of distinct generations among living hunters.
func (lt *LifetimeTracker) LineageCount() int {
	seen := make(map[int]struct{})
	for _, s := range lt.stats {
		seen[s.Generation] = struct{}{}
	}
	return len(seen)
}
