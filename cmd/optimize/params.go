package main

import (
	"github.com/pthm-cable/hunters/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value

	get func(*config.Config) *float64
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// Defaults are read from cfg so the search starts at the loaded config.
func NewParamVector(cfg *config.Config) *ParamVector {
	specs := []ParamSpec{
		// Templates - Solo
		{Name: "solo_attack", Path: "templates.solo.attack", Min: 2, Max: 30,
			get: func(c *config.Config) *float64 { return &c.Templates.Solo.Attack }},
		{Name: "solo_max_health", Path: "templates.solo.max_health", Min: 40, Max: 300,
			get: func(c *config.Config) *float64 { return &c.Templates.Solo.MaxHealth }},
		{Name: "solo_regen", Path: "templates.solo.regen_amount", Min: 0, Max: 10,
			get: func(c *config.Config) *float64 { return &c.Templates.Solo.RegenAmount }},
		{Name: "solo_max_speed", Path: "templates.solo.max_speed", Min: 20, Max: 200,
			get: func(c *config.Config) *float64 { return &c.Templates.Solo.MaxSpeed }},
		{Name: "solo_procreation_p", Path: "templates.solo.procreation_probability", Min: 0.05, Max: 1,
			get: func(c *config.Config) *float64 { return &c.Templates.Solo.ProcreationProbability }},
		{Name: "solo_procreation_time", Path: "templates.solo.procreation_time", Min: 0.5, Max: 10,
			get: func(c *config.Config) *float64 { return &c.Templates.Solo.ProcreationTime }},
		// Templates - Group
		{Name: "group_attack", Path: "templates.group.attack", Min: 2, Max: 30,
			get: func(c *config.Config) *float64 { return &c.Templates.Group.Attack }},
		{Name: "group_max_health", Path: "templates.group.max_health", Min: 40, Max: 300,
			get: func(c *config.Config) *float64 { return &c.Templates.Group.MaxHealth }},
		{Name: "group_regen", Path: "templates.group.regen_amount", Min: 0, Max: 10,
			get: func(c *config.Config) *float64 { return &c.Templates.Group.RegenAmount }},
		{Name: "group_max_speed", Path: "templates.group.max_speed", Min: 20, Max: 200,
			get: func(c *config.Config) *float64 { return &c.Templates.Group.MaxSpeed }},
		{Name: "group_procreation_p", Path: "templates.group.procreation_probability", Min: 0.05, Max: 1,
			get: func(c *config.Config) *float64 { return &c.Templates.Group.ProcreationProbability }},
		{Name: "group_procreation_time", Path: "templates.group.procreation_time", Min: 0.5, Max: 10,
			get: func(c *config.Config) *float64 { return &c.Templates.Group.ProcreationTime }},
		// Environment
		{Name: "regen_interval", Path: "environment.regen_interval", Min: 0.25, Max: 5,
			get: func(c *config.Config) *float64 { return &c.Environment.RegenInterval }},
		{Name: "respawn_interval", Path: "environment.resource_respawn_interval", Min: 0.5, Max: 20,
			get: func(c *config.Config) *float64 { return &c.Environment.ResourceRespawnInterval }},
		{Name: "heal_amount", Path: "resource.heal_amount", Min: 1, Max: 60,
			get: func(c *config.Config) *float64 { return &c.Resource.HealAmount }},
		// Combat
		{Name: "iframe_duration", Path: "combat.iframe_duration", Min: 0.1, Max: 2,
			get: func(c *config.Config) *float64 { return &c.Combat.IFrameDuration }},
		{Name: "kill_heal", Path: "combat.kill_heal", Min: 0, Max: 60,
			get: func(c *config.Config) *float64 { return &c.Combat.KillHeal }},
	}
	for i := range specs {
		specs[i].Default = *specs[i].get(cfg)
		if specs[i].Default < specs[i].Min {
			specs[i].Default = specs[i].Min
		}
		if specs[i].Default > specs[i].Max {
			specs[i].Default = specs[i].Max
		}
	}
	return &ParamVector{Specs: specs}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	// Low-health thresholds keep the same share of max health.
	soloFrac := healthFraction(cfg.Templates.Solo)
	groupFrac := healthFraction(cfg.Templates.Group)

	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		*spec.get(cfg) = clamped[i]
	}

	cfg.Templates.Solo.LowHealthThreshold = soloFrac * cfg.Templates.Solo.MaxHealth
	cfg.Templates.Group.LowHealthThreshold = groupFrac * cfg.Templates.Group.MaxHealth
}

func healthFraction(s config.StatsConfig) float64 {
	if s.MaxHealth <= 0 {
		return 0
	}
	return s.LowHealthThreshold / s.MaxHealth
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = *spec.get(cfg)
	}
	return v
}
