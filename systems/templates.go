package systems

import (
	"github.com/pthm-cable/hunters/components"
	"github.com/pthm-cable/hunters/config"
)

// StatsFromConfig converts a configured stat block into a hunter stat block.
func StatsFromConfig(s config.StatsConfig) components.HunterStats {
	return components.HunterStats{
		MaxHealth:              s.MaxHealth,
		LowHealthThreshold:     s.LowHealthThreshold,
		RegenAmount:            s.RegenAmount,
		Acceleration:           s.Acceleration,
		MaxSpeed:               s.MaxSpeed,
		Attack:                 s.Attack,
		Defense:                s.Defense,
		SightDistance:          s.SightDistance,
		SizeMultiplier:         s.SizeMultiplier,
		ProcreationProbability: s.ProcreationProbability,
		ProcreationTime:        s.ProcreationTime,
	}
}

// Templates returns the per-type stat templates indexed by HunterType.
func Templates(cfg config.TemplatesConfig) [components.NumHunterTypes]components.HunterStats {
	var t [components.NumHunterTypes]components.HunterStats
	t[components.Solo] = StatsFromConfig(cfg.Solo)
	t[components.Group] = StatsFromConfig(cfg.Group)
	return t
}
