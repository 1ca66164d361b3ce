// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"robotarena-sim/internal/world"
)

// Arena defines the size of the simulated area in arena units.
type Arena struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Agents holds the tuning applied to every robot.
type Agents struct {
	Radius          float64 `yaml:"radius"`
	AvoidanceAngle  float64 `yaml:"avoidance_angle"`
	SensorHalfAngle float64 `yaml:"sensor_half_angle"`
	SensorStep      float64 `yaml:"sensor_step"`
	EdgeProbeAngle  float64 `yaml:"edge_probe_angle"`
	RemoteTurnRate  float64 `yaml:"remote_turn_rate"`
	StepSize        float64 `yaml:"step_size"`
}

// Limits are the termination thresholds of a run.
type Limits struct {
	MaxDurationS  float64 `yaml:"max_duration_s"`
	MaxCollisions int     `yaml:"max_collisions"`
}

// SimulationConfig is the root configuration of a simulation run.
type SimulationConfig struct {
	RunLabel       string  `yaml:"run_label"`
	LogLevel       string  `yaml:"log_level"`
	TickMS         float64 `yaml:"tick_ms"`
	CollisionCheck bool    `yaml:"collision_check"`
	Arena          Arena   `yaml:"arena"`
	Agents         Agents  `yaml:"agents"`
	Limits         Limits  `yaml:"limits"`
	Scene          string  `yaml:"scene,omitempty"`
	Scenario       string  `yaml:"scenario,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *SimulationConfig {
	p := world.DefaultParams()
	return &SimulationConfig{
		RunLabel:       "arena-01",
		LogLevel:       "info",
		TickMS:         16,
		CollisionCheck: true,
		Arena:          Arena{Width: world.DefaultWidth, Height: world.DefaultHeight},
		Agents: Agents{
			Radius:          p.Radius,
			AvoidanceAngle:  p.AvoidanceAngle,
			SensorHalfAngle: p.SensorHalfAngle,
			SensorStep:      p.SensorStep,
			EdgeProbeAngle:  p.EdgeProbeAngle,
			RemoteTurnRate:  p.TurnRate,
			StepSize:        p.StepSize,
		},
		Limits: Limits{MaxDurationS: 1800, MaxCollisions: 50},
	}
}

// Load reads a YAML config on top of Default. The file is validated against
// the CUE schema first unless cueSchemaPath is empty.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the schema cannot express on its own.
func (c *SimulationConfig) Validate() error {
	if c.TickMS <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %v", c.TickMS)
	}
	if c.Agents.StepSize <= 0 {
		return fmt.Errorf("agents.step_size must be positive, got %v", c.Agents.StepSize)
	}
	if c.Agents.SensorStep <= 0 {
		return fmt.Errorf("agents.sensor_step must be positive, got %v", c.Agents.SensorStep)
	}
	return nil
}

// TimeStep returns the logical tick duration.
func (c *SimulationConfig) TimeStep() time.Duration {
	return time.Duration(c.TickMS * float64(time.Millisecond))
}

// MaxDuration returns the simulated-time ceiling of a run.
func (c *SimulationConfig) MaxDuration() time.Duration {
	return time.Duration(c.Limits.MaxDurationS * float64(time.Second))
}

// Params converts the agent section into world tuning.
func (c *SimulationConfig) Params() world.Params {
	return world.Params{
		Radius:          c.Agents.Radius,
		AvoidanceAngle:  c.Agents.AvoidanceAngle,
		SensorHalfAngle: c.Agents.SensorHalfAngle,
		SensorStep:      c.Agents.SensorStep,
		EdgeProbeAngle:  c.Agents.EdgeProbeAngle,
		TurnRate:        c.Agents.RemoteTurnRate,
		StepSize:        c.Agents.StepSize,
	}
}
