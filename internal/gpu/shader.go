// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// CompileToSPIRV compiles WGSL source to a SPIR-V uint32 slice via naga.
// SPIR-V is little-endian 32-bit words.
func CompileToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}

// CreateShaderModule creates a shader module from WGSL source, routing
// through naga's SPIR-V output when Device.UseSPIRV is set for backends
// that cannot consume WGSL directly.
func (d *Device) CreateShaderModule(label, wgslSource string) (hal.ShaderModule, error) {
	if wgslSource == "" {
		return nil, fmt.Errorf("shader %s: empty source", label)
	}

	src := hal.ShaderSource{WGSL: wgslSource}
	if d.UseSPIRV {
		code, err := CompileToSPIRV(wgslSource)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", label, err)
		}
		src = hal.ShaderSource{SPIRV: code}
	}

	return d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: src,
	})
}
