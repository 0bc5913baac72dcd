// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all simulation configuration parameters.
// It is set once at construction and never mutated by the simulation.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	World      WorldConfig      `yaml:"world"`
	Animal     AnimalConfig     `yaml:"animal"`
	Food       FoodConfig       `yaml:"food"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds kinematic and evolutionary rates.
type SimulationConfig struct {
	SpeedMin       float64 `yaml:"speed_min"`
	SpeedMax       float64 `yaml:"speed_max"`
	SpeedAccel     float64 `yaml:"speed_accel"`     // Scale applied to the Δspeed output
	RotationAccel  float64 `yaml:"rotation_accel"`  // Scale applied to the Δrotation output (radians)
	MutationChance float64 `yaml:"mutation_chance"` // Per-gene mutation probability
	MutationWeight float64 `yaml:"mutation_weight"` // Maximum absolute perturbation
	MaxGeneration  int     `yaml:"max_generation"`  // Advisory cap; the host decides when to stop

	StepsPerGeneration   int  `yaml:"steps_per_generation"`    // Step calls per FastForward
	ScatterFoodsOnEvolve bool `yaml:"scatter_foods_on_evolve"` // Relocate every food after evolve
}

// WorldConfig holds population sizes.
type WorldConfig struct {
	NumAnimals int `yaml:"num_animals"`
	NumFoods   int `yaml:"num_foods"`
}

// AnimalConfig holds per-animal parameters.
type AnimalConfig struct {
	Speed         float64   `yaml:"speed"`          // Initial speed
	Radius        float64   `yaml:"radius"`         // Collision radius
	HiddenNeurons int       `yaml:"hidden_neurons"` // 0 = 2 * eye.cells
	Eye           EyeConfig `yaml:"eye"`
}

// EyeConfig holds vision parameters.
type EyeConfig struct {
	FovRange float64 `yaml:"fov_range"`
	FovAngle float64 `yaml:"fov_angle"` // radians
	Cells    int     `yaml:"cells"`
}

// FoodConfig holds food parameters.
type FoodConfig struct {
	Radius float64 `yaml:"radius"`
}

// TelemetryConfig holds logging parameters.
type TelemetryConfig struct {
	LogEvery int `yaml:"log_every"` // Log every Nth generation summary (0 = every one)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SpeedMin32       float32
	SpeedMax32       float32
	SpeedAccel32     float32
	RotationAccel32  float32
	MutationChance32 float32
	MutationWeight32 float32
	InitialSpeed32   float32
	FovRange32       float32
	FovAngle32       float32
	CollisionRadius  float32 // animal.radius + food.radius
	HiddenNeurons    int     // effective hidden layer width
	Topology         []int   // [cells, hidden, 2]
}

// NumOutputs is the brain output width: Δspeed, Δrotation.
const NumOutputs = 2

// Default returns the embedded defaults. It panics if the embedded file is malformed.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
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

// Parse loads configuration from YAML bytes merged over the embedded defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate checks every field range. All failures are reported together,
// each wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}
	positive := func(name string, v float64) {
		if !(v > 0) {
			invalid("%s must be > 0, got %v", name, v)
		}
	}

	s := c.Simulation
	positive("simulation.speed_min", s.SpeedMin)
	positive("simulation.speed_max", s.SpeedMax)
	positive("simulation.speed_accel", s.SpeedAccel)
	positive("simulation.rotation_accel", s.RotationAccel)
	positive("simulation.mutation_chance", s.MutationChance)
	positive("simulation.mutation_weight", s.MutationWeight)
	positive("animal.speed", c.Animal.Speed)
	positive("animal.radius", c.Animal.Radius)
	positive("animal.eye.fov_range", c.Animal.Eye.FovRange)
	positive("animal.eye.fov_angle", c.Animal.Eye.FovAngle)
	positive("food.radius", c.Food.Radius)

	if s.SpeedMin > s.SpeedMax {
		invalid("simulation.speed_min (%v) exceeds speed_max (%v)", s.SpeedMin, s.SpeedMax)
	}
	if c.Animal.Speed < s.SpeedMin || c.Animal.Speed > s.SpeedMax {
		invalid("animal.speed %v outside [%v, %v]", c.Animal.Speed, s.SpeedMin, s.SpeedMax)
	}
	if s.MutationChance > 1 {
		invalid("simulation.mutation_chance must be <= 1, got %v", s.MutationChance)
	}
	if c.Animal.Eye.FovAngle > 2*math.Pi {
		invalid("animal.eye.fov_angle must be <= 2π, got %v", c.Animal.Eye.FovAngle)
	}
	if s.MaxGeneration < 1 {
		invalid("simulation.max_generation must be >= 1, got %d", s.MaxGeneration)
	}
	if s.StepsPerGeneration < 1 {
		invalid("simulation.steps_per_generation must be >= 1, got %d", s.StepsPerGeneration)
	}
	if c.World.NumAnimals < 1 {
		invalid("world.num_animals must be >= 1, got %d", c.World.NumAnimals)
	}
	if c.World.NumFoods < 1 {
		invalid("world.num_foods must be >= 1, got %d", c.World.NumFoods)
	}
	if c.Animal.Eye.Cells < 1 {
		invalid("animal.eye.cells must be >= 1, got %d", c.Animal.Eye.Cells)
	}
	if c.Animal.HiddenNeurons < 0 {
		invalid("animal.hidden_neurons must be >= 0, got %d", c.Animal.HiddenNeurons)
	}
	if c.Telemetry.LogEvery < 0 {
		invalid("telemetry.log_every must be >= 0, got %d", c.Telemetry.LogEvery)
	}

	return errors.Join(errs...)
}

// Finalize validates a programmatically built config and computes derived values.
func (c *Config) Finalize() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	s := c.Simulation
	c.Derived.SpeedMin32 = float32(s.SpeedMin)
	c.Derived.SpeedMax32 = float32(s.SpeedMax)
	c.Derived.SpeedAccel32 = float32(s.SpeedAccel)
	c.Derived.RotationAccel32 = float32(s.RotationAccel)
	c.Derived.MutationChance32 = float32(s.MutationChance)
	c.Derived.MutationWeight32 = float32(s.MutationWeight)
	c.Derived.InitialSpeed32 = float32(c.Animal.Speed)
	c.Derived.FovRange32 = float32(c.Animal.Eye.FovRange)
	c.Derived.FovAngle32 = float32(c.Animal.Eye.FovAngle)
	c.Derived.CollisionRadius = float32(c.Animal.Radius + c.Food.Radius)

	hidden := c.Animal.HiddenNeurons
	if hidden == 0 {
		hidden = 2 * c.Animal.Eye.Cells
	}
	c.Derived.HiddenNeurons = hidden
	c.Derived.Topology = []int{c.Animal.Eye.Cells, hidden, NumOutputs}
}

// YAML returns the configuration encoded as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
