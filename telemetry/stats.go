package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-" json:"window_start"`
	WindowEndTick   int32   `csv:"window_end" json:"window_end"`
	SimTimeSec      float64 `csv:"sim_time" json:"sim_time"`

	// Population counts at window end
	SoloCount  int `csv:"solo" json:"solo"`
	GroupCount int `csv:"group" json:"group"`

	// Events during window
	SoloBirths  int `csv:"solo_births" json:"solo_births"`
	GroupBirths int `csv:"group_births" json:"group_births"`
	SoloDeaths  int `csv:"solo_deaths" json:"solo_deaths"`
	GroupDeaths int `csv:"group_deaths" json:"group_deaths"`

	// Combat
	Hits         int     `csv:"hits" json:"hits"`
	Kills        int     `csv:"kills" json:"kills"`
	DecayDeaths  int     `csv:"decay_deaths" json:"decay_deaths"`
	DamageDealt  float64 `csv:"damage_dealt" json:"damage_dealt"`
	KillsPerHit  float64 `csv:"kill_rate" json:"kill_rate"`
	SoloKills    int     `csv:"solo_kills" json:"solo_kills"`
	GroupKills   int     `csv:"group_kills" json:"group_kills"`
	RegenTicks   int     `csv:"regen_ticks" json:"regen_ticks"`
	RegenHealed  float64 `csv:"regen_healed" json:"regen_healed"`
	ProcStarted  int     `csv:"procreation_started" json:"procreation_started"`
	ProcSucceed  int     `csv:"procreation_succeeded" json:"procreation_succeeded"`
	ProcFailRate float64 `csv:"procreation_fail_rate" json:"procreation_fail_rate"`

	// Resources
	FoodSpawned  int     `csv:"food_spawned" json:"food_spawned"`
	FoodConsumed int     `csv:"food_consumed" json:"food_consumed"`
	FoodHealed   float64 `csv:"food_healed" json:"food_healed"`
	FoodLive     int     `csv:"food_live" json:"food_live"`

	// Health distribution (sampled at window end)
	SoloHealthMean float64 `csv:"solo_health_mean" json:"solo_health_mean"`
	SoloHealthP10  float64 `csv:"solo_health_p10" json:"solo_health_p10"`
	SoloHealthP50  float64 `csv:"solo_health_p50" json:"solo_health_p50"`
	SoloHealthP90  float64 `csv:"solo_health_p90" json:"solo_health_p90"`

	GroupHealthMean float64 `csv:"group_health_mean" json:"group_health_mean"`
	GroupHealthP10  float64 `csv:"group_health_p10" json:"group_health_p10"`
	GroupHealthP50  float64 `csv:"group_health_p50" json:"group_health_p50"`
	GroupHealthP90  float64 `csv:"group_health_p90" json:"group_health_p90"`

	// Attack drift across generations
	SoloAttackMean  float64 `csv:"solo_attack_mean" json:"solo_attack_mean"`
	SoloAttackStd   float64 `csv:"solo_attack_std" json:"solo_attack_std"`
	GroupAttackMean float64 `csv:"group_attack_mean" json:"group_attack_mean"`
	GroupAttackStd  float64 `csv:"group_attack_std" json:"group_attack_std"`
	MaxGeneration   int     `csv:"max_generation" json:"max_generation"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeHealthStats calculates mean and percentiles from health values.
func ComputeHealthStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	// Sort for percentiles
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// ComputeSpread returns the mean and population standard deviation.
func ComputeSpread(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("solo", s.SoloCount),
		slog.Int("group", s.GroupCount),
		slog.Int("solo_births", s.SoloBirths),
		slog.Int("group_births", s.GroupBirths),
		slog.Int("solo_deaths", s.SoloDeaths),
		slog.Int("group_deaths", s.GroupDeaths),
		slog.Int("hits", s.Hits),
		slog.Int("kills", s.Kills),
		slog.Int("decay_deaths", s.DecayDeaths),
		slog.Float64("kill_rate", s.KillsPerHit),
		slog.Int("food_consumed", s.FoodConsumed),
		slog.Int("food_live", s.FoodLive),
		slog.Float64("solo_health_mean", s.SoloHealthMean),
		slog.Float64("group_health_mean", s.GroupHealthMean),
		slog.Float64("solo_attack_mean", s.SoloAttackMean),
		slog.Float64("group_attack_mean", s.GroupAttackMean),
		slog.Int("max_generation", s.MaxGeneration),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"solo", s.SoloCount,
		"group", s.GroupCount,
		"solo_births", s.SoloBirths,
		"group_births", s.GroupBirths,
		"solo_deaths", s.SoloDeaths,
		"group_deaths", s.GroupDeaths,
		"hits", s.Hits,
		"kills", s.Kills,
		"solo_kills", s.SoloKills,
		"group_kills", s.GroupKills,
		"decay_deaths", s.DecayDeaths,
		"damage_dealt", s.DamageDealt,
		"kill_rate", s.KillsPerHit,
		"regen_ticks", s.RegenTicks,
		"regen_healed", s.RegenHealed,
		"procreation_started", s.ProcStarted,
		"procreation_succeeded", s.ProcSucceed,
		"food_spawned", s.FoodSpawned,
		"food_consumed", s.FoodConsumed,
		"food_live", s.FoodLive,
		"solo_health_mean", s.SoloHealthMean,
		"solo_health_p10", s.SoloHealthP10,
		"solo_health_p50", s.SoloHealthP50,
		"solo_health_p90", s.SoloHealthP90,
		"group_health_mean", s.GroupHealthMean,
		"group_health_p10", s.GroupHealthP10,
		"group_health_p50", s.GroupHealthP50,
		"group_health_p90", s.GroupHealthP90,
		"solo_attack_mean", s.SoloAttackMean,
		"solo_attack_std", s.SoloAttackStd,
		"group_attack_mean", s.GroupAttackMean,
		"group_attack_std", s.GroupAttackStd,
		"max_generation", s.MaxGeneration,
	)
}
