// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "github.com/gogpu/wgpu/hal"

// Engine is the device-side surface shared by the GPU simulation
// strategies. An engine owns its pipelines and particle storage; the
// caller owns the logical count, generation mode, and pause flag, and
// hands particle data across this boundary as encoded 64-byte records.
type Engine interface {
	// Step advances count particles using the encoded SimParams and
	// blocks until the result is visible in Buffer.
	Step(params []byte, count int) error

	// Upload replaces the particle data wholesale.
	Upload(data []byte) error

	// Grow preserves keepCount live particles and appends the encoded
	// tail.
	Grow(keepCount int, tail []byte) error

	// Buffer returns the buffer holding the latest renderable records.
	Buffer() hal.Buffer

	// Destroy releases all GPU resources.
	Destroy()
}

var (
	_ Engine = (*ComputeSim)(nil)
	_ Engine = (*FeedbackSim)(nil)
	_ Engine = (*FragmentSim)(nil)
)
