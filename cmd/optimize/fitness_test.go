package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
	"github.com/pthm-cable/hunters/telemetry"
)

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestApplyToConfigKeepsThresholdShare(t *testing.T) {
	cfg := loadDefaults(t)
	pv := NewParamVector(cfg)
	share := cfg.Templates.Solo.LowHealthThreshold / cfg.Templates.Solo.MaxHealth

	x := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if spec.Name == "solo_max_health" {
			x[i] = 200
		}
		if spec.Name == "kill_heal" {
			x[i] = 1000 // clamped to Max
		}
	}
	pv.ApplyToConfig(cfg, x)

	if cfg.Templates.Solo.MaxHealth != 200 {
		t.Errorf("solo max health = %v, want 200", cfg.Templates.Solo.MaxHealth)
	}
	if got := cfg.Templates.Solo.LowHealthThreshold / 200; math.Abs(got-share) > 1e-9 {
		t.Errorf("threshold share = %v, want %v", got, share)
	}
	if cfg.Combat.KillHeal != 60 {
		t.Errorf("kill heal = %v, want clamp to 60", cfg.Combat.KillHeal)
	}
}

func TestComputeQuality(t *testing.T) {
	cfg := loadDefaults(t)
	fe := NewFitnessEvaluator(NewParamVector(cfg), 100, []int64{1}, cfg)

	window := func(solo, group int) telemetry.WindowStats {
		return telemetry.WindowStats{
			SoloCount:       solo,
			GroupCount:      group,
			SoloHealthMean:  cfg.Templates.Solo.MaxHealth / 2,
			GroupHealthMean: cfg.Templates.Group.MaxHealth / 2,
			Kills:           2,
			ProcSucceed:     2,
		}
	}

	tests := []struct {
		name    string
		windows []telemetry.WindowStats
		check   func(q float64) bool
	}{
		{"too few windows", []telemetry.WindowStats{window(10, 10)}, func(q float64) bool { return q == 0 }},
		{"extinct windows ignored", repeat(window(0, 10), 6), func(q float64) bool { return q == 0 }},
		{"balanced and steady", repeat(window(10, 10), 6), func(q float64) bool { return q > 0.9 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if q := fe.computeQuality(tt.windows); !tt.check(q) {
				t.Errorf("quality = %v", q)
			}
		})
	}

	balanced := fe.computeQuality(repeat(window(10, 10), 6))
	skewed := fe.computeQuality(repeat(window(30, 3), 6))
	if skewed >= balanced {
		t.Errorf("skewed quality %v should be below balanced %v", skewed, balanced)
	}
}

func TestComputeFitnessRewardsSurvival(t *testing.T) {
	cfg := loadDefaults(t)
	fe := NewFitnessEvaluator(NewParamVector(cfg), 100, []int64{1}, cfg)

	short := fe.computeFitness(&runResult{survivalTicks: 100})
	long := fe.computeFitness(&runResult{survivalTicks: 1000})
	if long >= short {
		t.Errorf("fitness(long) = %v, want below fitness(short) = %v", long, short)
	}
}

func TestSummarizeReportsPerTypeCoexistence(t *testing.T) {
	cfg := loadDefaults(t)
	fe := NewFitnessEvaluator(NewParamVector(cfg), 100, []int64{1, 2}, cfg)
	dt := cfg.Physics.DT

	results := []seedResult{
		{fitness: -100, quality: 0.5, run: &runResult{
			survivalTicks: 100,
			windowStats:   []telemetry.WindowStats{{SoloCount: 4, GroupCount: 10}, {SoloCount: 6, GroupCount: 20}},
		}},
		{fitness: -300, quality: 0.1, run: &runResult{
			survivalTicks: 300,
			extinct:       components.Solo,
			hasExtinct:    true,
			windowStats:   []telemetry.WindowStats{{SoloCount: 2, GroupCount: 30}},
		}},
	}
	s := fe.summarize(results)

	if s.Fitness != -200 {
		t.Errorf("Fitness = %v, want -200", s.Fitness)
	}
	if math.Abs(s.Quality-0.3) > 1e-9 {
		t.Errorf("Quality = %v, want 0.3", s.Quality)
	}
	if want := 200 * dt; math.Abs(s.CoexistSec-want) > 1e-9 {
		t.Errorf("CoexistSec = %v, want %v", s.CoexistSec, want)
	}
	// Seed means: solo 5 and 2, group 15 and 30.
	if got := s.MeanCount[components.Solo]; math.Abs(got-3.5) > 1e-9 {
		t.Errorf("solo mean = %v, want 3.5", got)
	}
	if got := s.MeanCount[components.Group]; math.Abs(got-22.5) > 1e-9 {
		t.Errorf("group mean = %v, want 22.5", got)
	}
	if s.Extinct[components.Solo] != 1 || s.Extinct[components.Group] != 0 {
		t.Errorf("Extinct = %v, want solo 1 group 0", s.Extinct)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	cfg := loadDefaults(t)
	fe := NewFitnessEvaluator(NewParamVector(cfg), 100, nil, cfg)
	if s := fe.summarize(nil); s != (evalSummary{}) {
		t.Errorf("summarize(nil) = %+v, want zero", s)
	}
}

func repeat(w telemetry.WindowStats, n int) []telemetry.WindowStats {
	out := make([]telemetry.WindowStats, n)
	for i := range out {
		out[i] = w
	}
	return out
}
