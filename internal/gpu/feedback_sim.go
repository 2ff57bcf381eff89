// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/particle_feedback.wgsl
var particleFeedbackShaderSource string

// FeedbackSim emulates transform feedback: the vertex stage of a
// pointless draw acts as a 1D compute grid, reading particle i from the
// source buffer and writing the integrated result to the destination
// buffer. Two buffers ping-pong each step; the parity flip happens only
// after the step's command buffer has completed, so a failed step leaves
// the last good state current.
//
// The draw targets a throwaway 1x1 attachment and every point lands
// outside the clip volume, so rasterization never produces fragments.
type FeedbackSim struct {
	dev *Device

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	paramsBuf hal.Buffer
	buffers   [2]*StorageBuffer
	current   int // index of the buffer holding the latest state

	targetTex  hal.Texture
	targetView hal.TextureView
}

// NewFeedbackSim builds the feedback pipeline, the 1x1 dummy target, and
// both ping-pong buffers, uploading the initial data into the current one.
func NewFeedbackSim(dev *Device, initial []byte) (*FeedbackSim, error) {
	s := &FeedbackSim{dev: dev}
	if err := s.createPipeline(); err != nil {
		s.Destroy()
		return nil, err
	}
	if err := s.createTarget(); err != nil {
		s.Destroy()
		return nil, err
	}

	paramsBuf, err := dev.CreateBuffer("feedback_params", SimParamsSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		s.Destroy()
		return nil, fmt.Errorf("create params buffer: %w", err)
	}
	s.paramsBuf = paramsBuf

	front, err := NewStorageBuffer(dev, "feedback_front", initial)
	if err != nil {
		s.Destroy()
		return nil, err
	}
	s.buffers[0] = front

	// The back buffer only needs matching capacity; the next step
	// overwrites its live range.
	back, err := NewStorageBuffer(dev, "feedback_back", make([]byte, front.Capacity()*ParticleStride))
	if err != nil {
		s.Destroy()
		return nil, err
	}
	s.buffers[1] = back
	return s, nil
}

func (s *FeedbackSim) createPipeline() error {
	shader, err := s.dev.CreateShaderModule("particle_feedback", particleFeedbackShaderSource)
	if err != nil {
		return fmt.Errorf("compile particle_feedback shader: %w", err)
	}
	s.shader = shader

	// The storage bindings carry vertex-stage visibility; that is the
	// whole point of this strategy and is supported by the Vulkan HAL
	// backend even though core WebGPU forbids it.
	bindLayout, err := s.dev.Hal().CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "particle_feedback_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := s.dev.Hal().CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "particle_feedback_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout

	pipeline, err := s.dev.Hal().CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "particle_feedback_pipeline",
		Layout: s.pipeLayout,
		Vertex: hal.VertexState{
			Module:     s.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     s.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{Format: gputypes.TextureFormatBGRA8Unorm, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyPointList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("create feedback pipeline: %w", err)
	}
	s.pipeline = pipeline
	return nil
}

func (s *FeedbackSim) createTarget() error {
	tex, err := s.dev.Hal().CreateTexture(&hal.TextureDescriptor{
		Label:         "feedback_target",
		Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create feedback target: %w", err)
	}
	s.targetTex = tex

	view, err := s.dev.Hal().CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "feedback_target_view",
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create feedback target view: %w", err)
	}
	s.targetView = view
	return nil
}

// Step draws count points through the feedback pipeline, integrating the
// current buffer into the other one, and flips parity once the GPU has
// finished.
func (s *FeedbackSim) Step(params []byte, count int) error {
	if len(params) != SimParamsSize {
		return fmt.Errorf("sim params: got %d bytes, want %d", len(params), SimParamsSize)
	}
	if count <= 0 {
		return nil
	}
	src := s.buffers[s.current]
	dst := s.buffers[1-s.current]
	s.dev.Queue().WriteBuffer(s.paramsBuf, 0, params)

	bindGroup, err := s.dev.Hal().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "particle_feedback_bind",
		Layout: s.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: s.paramsBuf.NativeHandle(), Offset: 0, Size: SimParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: src.Buffer().NativeHandle(), Offset: 0, Size: src.SizeBytes()}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: dst.Buffer().NativeHandle(), Offset: 0, Size: dst.SizeBytes()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer s.dev.Hal().DestroyBindGroup(bindGroup)

	encoder, err := s.dev.Hal().CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "particle_feedback_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("particle_feedback"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "particle_feedback_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       s.targetView,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
			},
		},
	})
	rp.SetPipeline(s.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(uint32(count), 1, 0, 0)
	rp.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	if err := s.dev.SubmitAndWait(cmdBuf); err != nil {
		return err
	}

	// Flip only after the fence: a failed step keeps the old state live.
	s.current = 1 - s.current
	return nil
}

// Upload replaces the particle data wholesale, resetting parity so the
// freshly written buffer is the live one.
func (s *FeedbackSim) Upload(data []byte) error {
	if err := s.buffers[s.current].Upload(data); err != nil {
		return err
	}
	// Keep the other buffer's capacity in lockstep so the next step's
	// destination can hold every live particle.
	other := s.buffers[1-s.current]
	if count := len(data) / ParticleStride; count > other.Capacity() {
		if err := other.Upload(make([]byte, len(data))); err != nil {
			return err
		}
	}
	return nil
}

// Grow preserves keepCount live particles and appends the encoded tail
// to the current buffer, matching the back buffer's capacity.
func (s *FeedbackSim) Grow(keepCount int, tail []byte) error {
	if err := s.buffers[s.current].GrowPreserve(keepCount, tail); err != nil {
		return err
	}
	newBytes := s.buffers[s.current].SizeBytes()
	other := s.buffers[1-s.current]
	if other.SizeBytes() < newBytes {
		if err := other.Upload(make([]byte, newBytes)); err != nil {
			return err
		}
	}
	return nil
}

// Buffer returns the buffer holding the latest particle state.
func (s *FeedbackSim) Buffer() hal.Buffer { return s.buffers[s.current].Buffer() }

// Destroy releases all GPU resources owned by the strategy.
func (s *FeedbackSim) Destroy() {
	for i, b := range s.buffers {
		if b != nil {
			b.Destroy()
			s.buffers[i] = nil
		}
	}
	if s.paramsBuf != nil {
		s.dev.RetireBuffer(s.paramsBuf)
		s.paramsBuf = nil
	}
	dev := s.dev.Hal()
	if dev == nil {
		return
	}
	if s.targetView != nil {
		dev.DestroyTextureView(s.targetView)
		s.targetView = nil
	}
	if s.targetTex != nil {
		dev.DestroyTexture(s.targetTex)
		s.targetTex = nil
	}
	if s.pipeline != nil {
		dev.DestroyRenderPipeline(s.pipeline)
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
