// Package config provides configuration loading for the particle
// simulator: embedded defaults merged with an optional user YAML file.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all runtime configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Camera     CameraConfig     `yaml:"camera"`
	GPU        GPUConfig        `yaml:"gpu"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// SimulationConfig selects the strategy and initial particle set.
type SimulationConfig struct {
	Method  string `yaml:"method"`  // cpu, compute, transform-feedback, fragment
	Count   int    `yaml:"count"`   // initial particle count
	Mode    string `yaml:"mode"`    // hollow or filled
	Workers int    `yaml:"workers"` // CPU strategy workers, 0 = GOMAXPROCS
}

// PhysicsConfig holds the tunable simulation parameters.
type PhysicsConfig struct {
	Gravity      float64 `yaml:"gravity"`
	Damping      float64 `yaml:"damping"`
	MouseForce   float64 `yaml:"mouse_force"`
	MouseRadius  float64 `yaml:"mouse_radius"`
	MaxColorDist float64 `yaml:"max_color_dist"`
	ColorMode    int     `yaml:"color_mode"` // 0 original, 1 velocity, 2 distance
}

// CameraConfig holds the initial camera placement.
type CameraConfig struct {
	Fov         float64 `yaml:"fov"`
	Speed       float64 `yaml:"speed"`
	Sensitivity float64 `yaml:"sensitivity"`
}

// GPUConfig selects device behavior.
type GPUConfig struct {
	// UseSPIRV routes shaders through naga's SPIR-V output instead of
	// handing WGSL to the backend.
	UseSPIRV bool `yaml:"use_spirv"`
}

// TelemetryConfig controls frame statistics.
type TelemetryConfig struct {
	WindowFrames int    `yaml:"window_frames"` // percentile window
	CSVPath      string `yaml:"csv_path"`      // empty disables export
}

// Load reads configuration from a YAML file, merging it over the
// embedded defaults. An empty path uses defaults only.
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
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Simulation.Method {
	case "cpu", "compute", "transform-feedback", "fragment":
	default:
		return fmt.Errorf("config: unknown method %q", c.Simulation.Method)
	}
	switch c.Simulation.Mode {
	case "hollow", "filled":
	default:
		return fmt.Errorf("config: unknown generation mode %q", c.Simulation.Mode)
	}
	if c.Simulation.Count < 0 {
		return fmt.Errorf("config: negative particle count %d", c.Simulation.Count)
	}
	if c.Physics.Damping <= 0 || c.Physics.Damping > 1 {
		return fmt.Errorf("config: damping %v outside (0, 1]", c.Physics.Damping)
	}
	if c.Physics.ColorMode < 0 || c.Physics.ColorMode > 2 {
		return fmt.Errorf("config: color mode %d outside [0, 2]", c.Physics.ColorMode)
	}
	return nil
}

// WriteYAML saves the configuration alongside experiment output.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
