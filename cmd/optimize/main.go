// Command optimize tunes hunter arena parameters with CMA-ES. Each candidate
// is scored by how long Solo and Group hunters coexist across several seeds,
// weighted by the quality of that coexistence.
package main

import (
	"flag"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 216000, "Maximum simulation duration in ticks (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		slog.Error("--output is required")
		os.Exit(1)
	}
	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	params := NewParamVector(baseCfg)

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, int32(*maxTicks), evalSeeds, baseCfg)

	evalLog, err := newEvalLog(*outputDir)
	if err != nil {
		slog.Error("failed to open eval log", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := evalLog.Close(); err != nil {
			slog.Error("failed to close eval log", "error", err)
		}
	}()

	dim := params.Dim()
	popSize := *population
	if popSize == 0 {
		// 4 + floor(3 ln n)
		popSize = 4 + int(3.0*math.Log(float64(dim)))
	}

	evalCount := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	start := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			elapsed := time.Since(start)
			rec := newEvalRecord(evalCount, evaluator.LastSummary(), elapsed.Seconds())
			if err := evalLog.Write(rec, params.Specs, clamped); err != nil {
				slog.Error("failed to log evaluation", "eval", evalCount, "error", err)
			}

			remaining := time.Duration(*maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			slog.Info("evaluation",
				"eval", evalCount,
				"of", *maxEvals,
				"coexist_sec", humanize.FtoaWithDigits(rec.CoexistSec, 1),
				"solo_mean", humanize.FtoaWithDigits(rec.SoloMean, 1),
				"group_mean", humanize.FtoaWithDigits(rec.GroupMean, 1),
				"solo_extinct", rec.SoloExtinct,
				"group_extinct", rec.GroupExtinct,
				"quality", humanize.FtoaWithDigits(rec.Quality, 3),
				"fitness", rec.Fitness,
				"best", bestFitness,
				"elapsed", elapsed.Round(time.Second).String(),
				"eta", remaining.Round(time.Second).String(),
			)
			return fitness
		},
	}

	slog.Info("starting optimization",
		"params", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"max_ticks", humanize.Comma(int64(*maxTicks)),
	)

	settings := &optimize.Settings{FuncEvaluations: *maxEvals}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize}
	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		slog.Error("no evaluations completed")
		os.Exit(1)
	}

	attrs := []any{"evals", evalCount, "elapsed", time.Since(start).Round(time.Second).String(), "best_fitness", bestFitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, bestParams[i])
	}
	slog.Info("optimization complete", attrs...)

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
	} else {
		slog.Info("best config saved", "path", configOutPath)
	}

	if hof := evaluator.BestHallOfFame(); hof != nil {
		hofPath := filepath.Join(*outputDir, "hall_of_fame.json")
		data, err := hof.MarshalJSON()
		if err == nil {
			err = os.WriteFile(hofPath, data, 0o644)
		}
		if err != nil {
			slog.Error("failed to save hall of fame", "error", err)
		} else {
			slog.Info("hall of fame saved",
				"path", hofPath,
				"solo", hof.Size(components.Solo),
				"group", hof.Size(components.Group),
			)
		}
	}
}
