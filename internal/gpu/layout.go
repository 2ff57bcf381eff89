// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "math"

// Canonical GPU-side layouts. These mirror the WGSL struct definitions
// in shaders/ and the host-side encoders; all four sides must agree.
const (
	// ParticleStride is the byte size of one particle record:
	// vec3 pos + pad, vec3 vel + pad, vec4 color, vec4 initial color.
	ParticleStride = 64

	// SimParamsSize is the byte size of the per-step uniform shared by
	// the compute and feedback shaders.
	SimParamsSize = 48

	// FragParamsSize extends SimParams with texture dimensions and the
	// live particle count for the fragment strategy.
	FragParamsSize = 64

	// WorkgroupSize is the compute shader's workgroup x-dimension.
	WorkgroupSize = 128
)

// WorkgroupCount returns the number of workgroups needed to cover count
// particles with WorkgroupSize invocations each.
func WorkgroupCount(count int) uint32 {
	if count <= 0 {
		return 0
	}
	return uint32((count + WorkgroupSize - 1) / WorkgroupSize)
}

// TextureDims returns the smallest near-square texture that holds count
// texels: width is ceil(sqrt(count)), height is ceil(count/width).
// Particle i lives at (i % width, i / width).
func TextureDims(count int) (width, height uint32) {
	if count <= 0 {
		return 1, 1
	}
	w := uint32(math.Ceil(math.Sqrt(float64(count))))
	if w == 0 {
		w = 1
	}
	h := (uint32(count) + w - 1) / w
	return w, h
}
