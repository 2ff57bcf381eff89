// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"strings"
	"testing"
)

// TestShadersCompile pushes the embedded WGSL through naga's SPIR-V
// path, which validates the sources. The feedback shader is excluded:
// its vertex-stage storage writes rely on a backend extension that core
// validation rejects.
func TestShadersCompile(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"particle_update", particleUpdateShaderSource},
		{"particle_fragment", particleFragmentShaderSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := CompileToSPIRV(tt.source)
			if err != nil {
				t.Fatalf("CompileToSPIRV: %v", err)
			}
			if len(code) == 0 {
				t.Fatal("empty SPIR-V output")
			}
			// SPIR-V magic number, first word after our LE reassembly.
			if code[0] != 0x07230203 {
				t.Errorf("SPIR-V magic = %#x, want 0x07230203", code[0])
			}
		})
	}
}

func TestShaderSourcesEmbedded(t *testing.T) {
	checks := []struct {
		name, source, needle string
	}{
		{"update", particleUpdateShaderSource, "@workgroup_size"},
		{"feedback", particleFeedbackShaderSource, "@vertex"},
		{"fragment", particleFragmentShaderSource, "textureLoad"},
	}
	for _, c := range checks {
		if c.source == "" {
			t.Errorf("%s shader source is empty", c.name)
			continue
		}
		if !strings.Contains(c.source, c.needle) {
			t.Errorf("%s shader source missing %q", c.name, c.needle)
		}
	}
}
