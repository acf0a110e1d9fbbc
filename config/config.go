// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Environment EnvironmentConfig `yaml:"environment"`
	Resource    ResourceConfig    `yaml:"resource"`
	Population  PopulationConfig  `yaml:"population"`
	Templates   TemplatesConfig   `yaml:"templates"`
	Decision    DecisionConfig    `yaml:"decision"`
	Combat      CombatConfig      `yaml:"combat"`
	Procreation ProcreationConfig `yaml:"procreation"`
	Movement    MovementConfig    `yaml:"movement"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Observer    ObserverConfig    `yaml:"observer"`
	HallOfFame  HallOfFameConfig  `yaml:"hall_of_fame"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PointConfig is a 2-D point in world units.
type PointConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// WorldConfig holds arena dimensions and spawn layout.
type WorldConfig struct {
	Width            float64       `yaml:"width"`
	Height           float64       `yaml:"height"`
	SpawnPoints      []PointConfig `yaml:"spawn_points"`
	SpawnPointRadius float64       `yaml:"spawn_point_radius"` // Max offset from a spawn point
	FoodSpawnPoints  []PointConfig `yaml:"food_spawn_points"`  // Empty = reuse spawn_points
	Terrain          TerrainConfig `yaml:"terrain"`
}

// TerrainConfig holds procedural obstacle parameters.
type TerrainConfig struct {
	Enabled     bool    `yaml:"enabled"`
	CellSize    float64 `yaml:"cell_size"`
	Scale       float64 `yaml:"scale"`        // Base noise frequency
	Octaves     int     `yaml:"octaves"`      // FBM octaves
	Persistence float64 `yaml:"persistence"`  // Amplitude multiplier per octave
	Threshold   float64 `yaml:"threshold"`    // Noise above this is solid
	ClearRadius float64 `yaml:"clear_radius"` // Kept open around spawn points
}

// PhysicsConfig holds simulation step parameters.
type PhysicsConfig struct {
	DT           float64 `yaml:"dt"`
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// EnvironmentConfig holds the shared timing tunables of the arena.
type EnvironmentConfig struct {
	RegenInterval           float64 `yaml:"regen_interval"`         // Seconds between regen increments
	InitialRegenDelay       float64 `yaml:"initial_regen_delay"`    // Quiet period before the first increment
	RegenPausesInCombat     bool    `yaml:"regen_pauses_in_combat"` // Skip increments while InCombat
	DecayInterval           float64 `yaml:"decay_interval"`         // 0 disables decay
	DecayAmount             float64 `yaml:"decay_amount"`
	ResourceRespawnInterval float64 `yaml:"resource_respawn_interval"`
}

// ResourceConfig holds food economy parameters.
type ResourceConfig struct {
	Cap         int     `yaml:"cap"`
	HealAmount  float64 `yaml:"heal_amount"`
	Respawn     bool    `yaml:"respawn"`
	InitialFill bool    `yaml:"initial_fill"`
	Radius      float64 `yaml:"radius"` // Food contact radius
}

// PopulationConfig holds seeding and cap parameters.
type PopulationConfig struct {
	Solo     int `yaml:"solo"`
	Group    int `yaml:"group"`
	MaxSolo  int `yaml:"max_solo"`  // 0 = unlimited
	MaxGroup int `yaml:"max_group"` // 0 = unlimited
}

// TemplatesConfig holds the per-type stat templates.
type TemplatesConfig struct {
	Solo  StatsConfig `yaml:"solo"`
	Group StatsConfig `yaml:"group"`
}

// StatsConfig is the stat template a hunter type spawns with.
type StatsConfig struct {
	MaxHealth              float64 `yaml:"max_health"`
	LowHealthThreshold     float64 `yaml:"low_health_threshold"`
	RegenAmount            float64 `yaml:"regen_amount"`
	Acceleration           float64 `yaml:"acceleration"`
	MaxSpeed               float64 `yaml:"max_speed"`
	Attack                 float64 `yaml:"attack"`
	Defense                float64 `yaml:"defense"`
	SightDistance          float64 `yaml:"sight_distance"`
	SizeMultiplier         float64 `yaml:"size_multiplier"`
	ProcreationProbability float64 `yaml:"procreation_probability"`
	ProcreationTime        float64 `yaml:"procreation_time"`
}

// DecisionConfig holds decision policy weights.
// Noise values are in unit-heading space.
type DecisionConfig struct {
	ForageHealthFraction float64 `yaml:"forage_health_fraction"`
	GroupMinAllies       int     `yaml:"group_min_allies"`
	CombatSpeed          float64 `yaml:"combat_speed"`
	ForageSpeed          float64 `yaml:"forage_speed"`
	FollowSpeed          float64 `yaml:"follow_speed"`
	WanderSpeed          float64 `yaml:"wander_speed"`
	ForageTimeMul        float64 `yaml:"forage_time_mul"`
	FollowNoise          float64 `yaml:"follow_noise"`
	WanderNoise          float64 `yaml:"wander_noise"`
	ResponseMin          float64 `yaml:"response_min"`
	ResponseMax          float64 `yaml:"response_max"`
}

// CombatConfig holds combat resolution parameters.
type CombatConfig struct {
	IFrameDuration float64 `yaml:"iframe_duration"`
	KillHeal       float64 `yaml:"kill_heal"`
	Knockback      float64 `yaml:"knockback"`
}

// ProcreationConfig holds pairing and offspring parameters.
type ProcreationConfig struct {
	FailureCooldown float64 `yaml:"failure_cooldown"`
	KinPolicy       string  `yaml:"kin_policy"` // none, parents, siblings
	AttackNoiseMin  float64 `yaml:"attack_noise_min"`
	AttackNoiseMax  float64 `yaml:"attack_noise_max"`
	AttackCapBonus  float64 `yaml:"attack_cap_bonus"`
}

// MovementConfig holds integrator parameters.
type MovementConfig struct {
	Drag             float64 `yaml:"drag"`
	MinRadius        float64 `yaml:"min_radius"`
	Impulse          float64 `yaml:"impulse"`
	AvoidBrakeSpeed  float64 `yaml:"avoid_brake_speed"`
	AvoidBrakeFactor float64 `yaml:"avoid_brake_factor"`
	Restitution      float64 `yaml:"restitution"`
	AirborneTime     float64 `yaml:"airborne_time"` // Seconds before a launched hunter can impulse again
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	JournalBuffer       int     `yaml:"journal_buffer"`
}

// ObserverConfig holds live observer parameters.
type ObserverConfig struct {
	ClientBuffer int     `yaml:"client_buffer"`
	WriteTimeout float64 `yaml:"write_timeout"`
}

// HallOfFameConfig holds hall of fame parameters.
type HallOfFameConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"` // Entries kept per hunter type
	Entry   struct {
		MinChildren    int     `yaml:"min_children"`
		MinSurvivalSec float64 `yaml:"min_survival_sec"`
		MinKills       int     `yaml:"min_kills"`
	} `yaml:"entry"`
	Fitness struct {
		ChildrenWeight float64 `yaml:"children_weight"`
		SurvivalWeight float64 `yaml:"survival_weight"`
		KillsWeight    float64 `yaml:"kills_weight"`
	} `yaml:"fitness"`
	SeedFraction float64 `yaml:"seed_fraction"` // Share of the initial population drawn from a loaded hall
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StatsWindowTicks int32         // Telemetry.StatsWindow in ticks
	FoodSpawnPoints  []PointConfig // Resolved food spawn points
	MaxSight         float64       // Largest sight distance of any template
}

// Kin policies for procreation pairing.
const (
	KinPolicyNone     = "none"
	KinPolicyParents  = "parents"
	KinPolicySiblings = "siblings"
)

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.World.SpawnPoints = append([]PointConfig(nil), c.World.SpawnPoints...)
	cp.World.FoodSpawnPoints = append([]PointConfig(nil), c.World.FoodSpawnPoints...)
	cp.computeDerived()
	return &cp
}

// Validate checks the semantic constraints a world needs to start.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world: invalid size %vx%v", c.World.Width, c.World.Height)
	}
	if len(c.World.SpawnPoints) == 0 {
		return fmt.Errorf("world: no spawn points")
	}
	for i, p := range c.World.SpawnPoints {
		if p.X < 0 || p.Y < 0 || p.X > c.World.Width || p.Y > c.World.Height {
			return fmt.Errorf("world: spawn point %d (%v,%v) outside arena", i, p.X, p.Y)
		}
	}
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics: dt must be positive")
	}
	if c.Physics.GridCellSize <= 0 {
		return fmt.Errorf("physics: grid_cell_size must be positive")
	}
	if c.Environment.RegenInterval <= 0 {
		return fmt.Errorf("environment: regen_interval must be positive")
	}
	if c.Resource.Respawn && c.Environment.ResourceRespawnInterval <= 0 {
		return fmt.Errorf("environment: resource_respawn_interval must be positive when respawn is enabled")
	}
	for name, s := range map[string]StatsConfig{"solo": c.Templates.Solo, "group": c.Templates.Group} {
		if err := s.validate(); err != nil {
			return fmt.Errorf("templates.%s: %w", name, err)
		}
	}
	switch c.Procreation.KinPolicy {
	case "", KinPolicyNone, KinPolicyParents, KinPolicySiblings:
	default:
		return fmt.Errorf("procreation: unknown kin_policy %q", c.Procreation.KinPolicy)
	}
	return nil
}

func (s StatsConfig) validate() error {
	if s.MaxHealth < 1 {
		return fmt.Errorf("max_health must be at least 1, got %v", s.MaxHealth)
	}
	if s.SightDistance <= 0 {
		return fmt.Errorf("sight_distance must be positive")
	}
	if s.MaxSpeed <= 0 {
		return fmt.Errorf("max_speed must be positive")
	}
	if s.ProcreationProbability < 0 || s.ProcreationProbability > 1 {
		return fmt.Errorf("procreation_probability must be in [0,1], got %v", s.ProcreationProbability)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	ticks := int32(math.Round(c.Telemetry.StatsWindow / c.Physics.DT))
	if ticks < 1 {
		ticks = 1
	}
	c.Derived.StatsWindowTicks = ticks

	c.Derived.FoodSpawnPoints = c.World.FoodSpawnPoints
	if len(c.Derived.FoodSpawnPoints) == 0 {
		c.Derived.FoodSpawnPoints = c.World.SpawnPoints
	}

	c.Derived.MaxSight = math.Max(c.Templates.Solo.SightDistance, c.Templates.Group.SightDistance)

	if c.Procreation.KinPolicy == "" {
		c.Procreation.KinPolicy = KinPolicyNone
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// YAML returns the configuration serialized as YAML.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(data), nil
}
