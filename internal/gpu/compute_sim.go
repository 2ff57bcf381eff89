// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/particle_update.wgsl
var particleUpdateShaderSource string

// ComputeSim advances particles with a compute pass: one invocation per
// particle, updating the storage buffer in place. The same buffer doubles
// as the renderer's vertex source, so no copies sit between simulation
// and drawing.
type ComputeSim struct {
	dev *Device

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	paramsBuf hal.Buffer
	storage   *StorageBuffer
}

// NewComputeSim builds the update pipeline and uploads the initial
// particle data.
func NewComputeSim(dev *Device, initial []byte) (*ComputeSim, error) {
	s := &ComputeSim{dev: dev}
	if err := s.createPipeline(); err != nil {
		s.Destroy()
		return nil, err
	}

	paramsBuf, err := dev.CreateBuffer("particle_params", SimParamsSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		s.Destroy()
		return nil, fmt.Errorf("create params buffer: %w", err)
	}
	s.paramsBuf = paramsBuf

	storage, err := NewStorageBuffer(dev, "particle_storage", initial)
	if err != nil {
		s.Destroy()
		return nil, err
	}
	s.storage = storage
	return s, nil
}

func (s *ComputeSim) createPipeline() error {
	shader, err := s.dev.CreateShaderModule("particle_update", particleUpdateShaderSource)
	if err != nil {
		return fmt.Errorf("compile particle_update shader: %w", err)
	}
	s.shader = shader

	bindLayout, err := s.dev.Hal().CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "particle_update_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := s.dev.Hal().CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "particle_update_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout

	pipeline, err := s.dev.Hal().CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "particle_update_pipeline", Layout: s.pipeLayout,
		Compute: hal.ComputeState{Module: s.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	s.pipeline = pipeline
	return nil
}

// Step uploads the encoded SimParams, dispatches one workgroup per 128
// particles, and blocks until the GPU finishes. The storage buffer holds
// the post-step state when Step returns.
func (s *ComputeSim) Step(params []byte, count int) error {
	if len(params) != SimParamsSize {
		return fmt.Errorf("sim params: got %d bytes, want %d", len(params), SimParamsSize)
	}
	if count <= 0 {
		return nil
	}
	s.dev.Queue().WriteBuffer(s.paramsBuf, 0, params)

	bindGroup, err := s.dev.Hal().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "particle_update_bind",
		Layout: s.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: s.paramsBuf.NativeHandle(), Offset: 0, Size: SimParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: s.storage.Buffer().NativeHandle(), Offset: 0, Size: s.storage.SizeBytes()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer s.dev.Hal().DestroyBindGroup(bindGroup)

	encoder, err := s.dev.Hal().CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "particle_update_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("particle_update"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "particle_update_pass"})
	pass.SetPipeline(s.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(WorkgroupCount(count), 1, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	return s.dev.SubmitAndWait(cmdBuf)
}

// Upload replaces the particle data wholesale (reset, shrink, or mode
// change).
func (s *ComputeSim) Upload(data []byte) error { return s.storage.Upload(data) }

// Grow preserves keepCount live particles and appends the encoded tail.
func (s *ComputeSim) Grow(keepCount int, tail []byte) error {
	return s.storage.GrowPreserve(keepCount, tail)
}

// Buffer returns the live particle buffer for rendering.
func (s *ComputeSim) Buffer() hal.Buffer { return s.storage.Buffer() }

// Destroy releases all GPU resources owned by the strategy.
func (s *ComputeSim) Destroy() {
	if s.storage != nil {
		s.storage.Destroy()
		s.storage = nil
	}
	if s.paramsBuf != nil {
		s.dev.RetireBuffer(s.paramsBuf)
		s.paramsBuf = nil
	}
	dev := s.dev.Hal()
	if dev == nil {
		return
	}
	if s.pipeline != nil {
		dev.DestroyComputePipeline(s.pipeline)
		s.pipeline = nil
	}
	if s.pipeLayout != nil {
		dev.DestroyPipelineLayout(s.pipeLayout)
		s.pipeLayout = nil
	}
	if s.bindLayout != nil {
		dev.DestroyBindGroupLayout(s.bindLayout)
		s.bindLayout = nil
	}
	if s.shader != nil {
		dev.DestroyShaderModule(s.shader)
		s.shader = nil
	}
}
