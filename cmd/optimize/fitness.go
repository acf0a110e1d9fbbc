package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/game"
	"github.com/pthm-cable/hunters/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	last           evalSummary // most recent Evaluate call
}

// evalSummary describes one evaluation averaged over its seeds.
type evalSummary struct {
	Fitness    float64
	Quality    float64
	CoexistSec float64                           // mean time both types stayed viable
	MeanCount  [components.NumHunterTypes]float64 // mean window population per type
	Extinct    [components.NumHunterTypes]int     // seeds where this type failed first
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 10.0,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastSummary returns the summary of the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() evalSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// A hunter type below minViablePop for extinctionGraceSec counts as
// functionally extinct.
const (
	minViablePop       = 2
	extinctionGraceSec = 30.0
	warmupSec          = 5.0
)

type runResult struct {
	survivalTicks int32 // ticks both types coexisted (maxTicks if they always did)
	extinct       components.HunterType
	hasExtinct    bool
	windowStats   []telemetry.WindowStats
	hallOfFame    *telemetry.HallOfFame
}

type seedResult struct {
	fitness    float64
	quality    float64
	run        *runResult
	hallOfFame *telemetry.HallOfFame
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			results[idx] = seedResult{
				fitness:    fe.computeFitness(result),
				quality:    fe.computeQuality(result.windowStats),
				run:        result,
				hallOfFame: result.hallOfFame,
			}
		}(i, seed)
	}
	wg.Wait()

	summary := fe.summarize(results)

	bestSeedFitness := math.Inf(1)
	var bestSeedHallOfFame *telemetry.HallOfFame
	for _, r := range results {
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	fe.mu.Lock()
	if summary.Fitness < fe.bestFitness {
		fe.bestFitness = summary.Fitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.last = summary
	fe.mu.Unlock()

	return summary.Fitness
}

// summarize averages seed results into one evalSummary.
func (fe *FitnessEvaluator) summarize(results []seedResult) evalSummary {
	var s evalSummary
	if len(results) == 0 {
		return s
	}
	dt := fe.baseConfig.Physics.DT
	for _, r := range results {
		s.Fitness += r.fitness
		s.Quality += r.quality
		s.CoexistSec += float64(r.run.survivalTicks) * dt
		if r.run.hasExtinct {
			s.Extinct[r.run.extinct]++
		}
		counts := meanCounts(r.run.windowStats)
		for t := range counts {
			s.MeanCount[t] += counts[t]
		}
	}
	n := float64(len(results))
	s.Fitness /= n
	s.Quality /= n
	s.CoexistSec /= n
	for t := range s.MeanCount {
		s.MeanCount[t] /= n
	}
	return s
}

// meanCounts returns the mean population per type across windows.
func meanCounts(windows []telemetry.WindowStats) [components.NumHunterTypes]float64 {
	var out [components.NumHunterTypes]float64
	if len(windows) == 0 {
		return out
	}
	solo := make([]float64, len(windows))
	group := make([]float64, len(windows))
	for i, w := range windows {
		solo[i] = float64(w.SoloCount)
		group[i] = float64(w.GroupCount)
	}
	out[components.Solo] = stat.Mean(solo, nil)
	out[components.Group] = stat.Mean(group, nil)
	return out
}

// runSimulation executes a single headless run until one hunter type is
// functionally extinct or maxTicks is reached.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}

	g, err := game.NewGameWithOptions(game.Options{
		Config:         cfg,
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		slog.Warn("rejected parameter set", "error", err)
		return result
	}
	defer g.Unload()

	dt := cfg.Physics.DT
	graceTicks := int32(extinctionGraceSec / dt)
	warmupTicks := int32(warmupSec / dt)
	var below [components.NumHunterTypes]int32

	for g.Tick() < fe.maxTicks {
		g.Update()

		tick := g.Tick()
		if tick < warmupTicks {
			continue
		}

		counts := g.Counts()
		for t, n := range counts {
			if n < minViablePop {
				below[t]++
			} else {
				below[t] = 0
			}
			if n == 0 || below[t] >= graceTicks {
				result.survivalTicks = tick
				result.extinct = components.HunterType(t)
				result.hasExtinct = true
				result.hallOfFame = g.HallOfFame()
				return result
			}
		}
	}

	result.survivalTicks = fe.maxTicks
	result.hallOfFame = g.HallOfFame()
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := fe.computeQuality(r.windowStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightBalance   = 0.30
	qualityWeightStability = 0.25
	qualityWeightHealth    = 0.25
	qualityWeightActivity  = 0.20

	qualityWarmupWindows = 3
	qualityMinPop        = 2
)

// computeQuality scores coexistence ∈ [0, 1] from window stats: balanced
// type counts, stable populations, mid-range health and ongoing combat.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	soloMax := fe.baseConfig.Templates.Solo.MaxHealth
	groupMax := fe.baseConfig.Templates.Group.MaxHealth

	var balanceSum, healthSum, activitySum float64
	var n int
	solo := make([]float64, 0, len(windows))
	group := make([]float64, 0, len(windows))

	for _, w := range windows[qualityWarmupWindows:] {
		if w.SoloCount < qualityMinPop || w.GroupCount < qualityMinPop {
			continue
		}
		n++
		solo = append(solo, float64(w.SoloCount))
		group = append(group, float64(w.GroupCount))

		// Balance peaks when both types hold equal numbers.
		logRatio := math.Log(float64(w.SoloCount) / float64(w.GroupCount))
		balanceSum += math.Exp(-logRatio * logRatio)

		soloH := math.Exp(-math.Pow((w.SoloHealthMean/soloMax-0.5)/0.25, 2))
		groupH := math.Exp(-math.Pow((w.GroupHealthMean/groupMax-0.5)/0.25, 2))
		healthSum += (soloH + groupH) / 2

		pop := float64(w.SoloCount + w.GroupCount)
		activitySum += 1 - math.Exp(-float64(w.Kills+w.ProcSucceed)/(0.1*pop))
	}

	if n == 0 {
		return 0
	}

	stabilityScore := 0.0
	if len(solo) >= 2 {
		cvSolo := cv(solo)
		cvGroup := cv(group)
		stabilityScore = math.Exp(-(cvSolo*cvSolo + cvGroup*cvGroup))
	}

	quality := qualityWeightBalance*balanceSum/float64(n) +
		qualityWeightStability*stabilityScore +
		qualityWeightHealth*healthSum/float64(n) +
		qualityWeightActivity*activitySum/float64(n)

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean).
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
