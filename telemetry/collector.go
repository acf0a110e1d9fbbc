package telemetry

import (
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/events"
)

// Sample is the population state read at the end of a window.
type Sample struct {
	Counts        events.Counts
	Health        [components.NumHunterTypes][]float64
	Attack        [components.NumHunterTypes][]float64
	FoodLive      int
	MaxGeneration int
}

// Collector accumulates events within time windows and produces WindowStats.
// It is an events.Sink.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	births       [components.NumHunterTypes]int
	deaths       [components.NumHunterTypes]int
	kills        [components.NumHunterTypes]int
	hits         int
	decayDeaths  int
	damageDealt  float64
	regenTicks   int
	regenHealed  float64
	procStarted  int
	procSucceed  int
	procEnded    int
	foodSpawned  int
	foodConsumed int
	foodHealed   float64

	latest WindowStats
	hasRun bool
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec/dt + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartTick:     0,
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, s Sample) WindowStats {
	var killRate, failRate float64
	totalKills := c.kills[components.Solo] + c.kills[components.Group]
	if c.hits > 0 {
		killRate = float64(totalKills) / float64(c.hits)
	}
	if c.procEnded > 0 {
		failRate = 1 - float64(c.procSucceed)/float64(c.procEnded)
	}

	soloMean, soloP10, soloP50, soloP90 := ComputeHealthStats(s.Health[components.Solo])
	groupMean, groupP10, groupP50, groupP90 := ComputeHealthStats(s.Health[components.Group])
	soloAtk, soloAtkStd := ComputeSpread(s.Attack[components.Solo])
	groupAtk, groupAtkStd := ComputeSpread(s.Attack[components.Group])

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		SoloCount:  s.Counts[components.Solo],
		GroupCount: s.Counts[components.Group],

		SoloBirths:  c.births[components.Solo],
		GroupBirths: c.births[components.Group],
		SoloDeaths:  c.deaths[components.Solo],
		GroupDeaths: c.deaths[components.Group],

		Hits:         c.hits,
		Kills:        totalKills,
		SoloKills:    c.kills[components.Solo],
		GroupKills:   c.kills[components.Group],
		DecayDeaths:  c.decayDeaths,
		DamageDealt:  c.damageDealt,
		KillsPerHit:  killRate,
		RegenTicks:   c.regenTicks,
		RegenHealed:  c.regenHealed,
		ProcStarted:  c.procStarted,
		ProcSucceed:  c.procSucceed,
		ProcFailRate: failRate,

		FoodSpawned:  c.foodSpawned,
		FoodConsumed: c.foodConsumed,
		FoodHealed:   c.foodHealed,
		FoodLive:     s.FoodLive,

		SoloHealthMean: soloMean,
		SoloHealthP10:  soloP10,
		SoloHealthP50:  soloP50,
		SoloHealthP90:  soloP90,

		GroupHealthMean: groupMean,
		GroupHealthP10:  groupP10,
		GroupHealthP50:  groupP50,
		GroupHealthP90:  groupP90,

		SoloAttackMean:  soloAtk,
		SoloAttackStd:   soloAtkStd,
		GroupAttackMean: groupAtk,
		GroupAttackStd:  groupAtkStd,
		MaxGeneration:   s.MaxGeneration,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = [components.NumHunterTypes]int{}
	c.deaths = [components.NumHunterTypes]int{}
	c.kills = [components.NumHunterTypes]int{}
	c.hits = 0
	c.decayDeaths = 0
	c.damageDealt = 0
	c.regenTicks = 0
	c.regenHealed = 0
	c.procStarted = 0
	c.procSucceed = 0
	c.procEnded = 0
	c.foodSpawned = 0
	c.foodConsumed = 0
	c.foodHealed = 0

	c.latest = stats
	c.hasRun = true
	return stats
}

// Latest returns the most recently flushed window.
func (c *Collector) Latest() (WindowStats, bool) {
	return c.latest, c.hasRun
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
