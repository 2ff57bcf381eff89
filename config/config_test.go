package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Simulation.Method != "cpu" {
		t.Errorf("default method = %q, want cpu", cfg.Simulation.Method)
	}
	if cfg.Simulation.Count != 10000 {
		t.Errorf("default count = %d, want 10000", cfg.Simulation.Count)
	}
	if cfg.Simulation.Mode != "hollow" {
		t.Errorf("default mode = %q, want hollow", cfg.Simulation.Mode)
	}
	if cfg.Physics.Damping != 0.99 {
		t.Errorf("default damping = %v, want 0.99", cfg.Physics.Damping)
	}
	if cfg.Telemetry.WindowFrames != 120 {
		t.Errorf("default window = %d, want 120", cfg.Telemetry.WindowFrames)
	}
}

func TestLoadOverlayKeepsUnsetDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	user := `
simulation:
  method: compute
  count: 500
physics:
  gravity: 9.8
`
	if err := os.WriteFile(path, []byte(user), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Method != "compute" {
		t.Errorf("method = %q, want compute", cfg.Simulation.Method)
	}
	if cfg.Simulation.Count != 500 {
		t.Errorf("count = %d, want 500", cfg.Simulation.Count)
	}
	if cfg.Physics.Gravity != 9.8 {
		t.Errorf("gravity = %v, want 9.8", cfg.Physics.Gravity)
	}
	// Fields absent from the user file keep their defaults.
	if cfg.Simulation.Mode != "hollow" {
		t.Errorf("mode = %q, want default hollow", cfg.Simulation.Mode)
	}
	if cfg.Physics.Damping != 0.99 {
		t.Errorf("damping = %v, want default 0.99", cfg.Physics.Damping)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown method", "simulation:\n  method: quantum\n", "unknown method"},
		{"unknown mode", "simulation:\n  mode: donut\n", "unknown generation mode"},
		{"negative count", "simulation:\n  count: -1\n", "negative particle count"},
		{"zero damping", "physics:\n  damping: 0\n", "damping"},
		{"bad color mode", "physics:\n  color_mode: 7\n", "color mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "user.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.Count = 777

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load of written file: %v", err)
	}
	if back.Simulation.Count != 777 {
		t.Errorf("round-tripped count = %d, want 777", back.Simulation.Count)
	}
}
