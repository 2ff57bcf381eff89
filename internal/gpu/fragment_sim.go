// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/particle_fragment.wgsl
var particleFragmentShaderSource string

// copyPitchAlignment is the BytesPerRow alignment required by
// texture-to-buffer copies (WebGPU and DX12 both mandate 256).
const copyPitchAlignment = 256

// FragmentSim is the lowest-common-denominator strategy: particle state
// lives in RGBA32F textures, one texel per particle, and a fullscreen
// triangle integrates every texel in a fragment pass with three color
// attachments (position, velocity, color). Position and velocity
// textures ping-pong between steps.
//
// The renderer consumes a plain vertex buffer, so after each step the
// output planes are copied to staging buffers, read back, interleaved
// into 64-byte records on the host, and re-uploaded to the feed buffer.
// That round trip is the price of the fallback; the host mirror it
// produces also makes grow-preserving resizes trivial.
type FragmentSim struct {
	dev *Device

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	paramsBuf hal.Buffer

	posTex  [2]hal.Texture
	posView [2]hal.TextureView
	velTex  [2]hal.Texture
	velView [2]hal.TextureView

	colorTex  hal.Texture
	colorView hal.TextureView

	initColorTex  hal.Texture
	initColorView hal.TextureView

	feed   *StorageBuffer // interleaved records for the renderer
	mirror []byte         // host copy of the interleaved state

	width, height uint32
	current       int // parity of the textures holding the latest state
}

// NewFragmentSim builds the fragment pipeline and uploads the initial
// particle data into the state textures.
func NewFragmentSim(dev *Device, initial []byte) (*FragmentSim, error) {
	s := &FragmentSim{dev: dev}
	if err := s.createPipeline(); err != nil {
		s.Destroy()
		return nil, err
	}

	paramsBuf, err := dev.CreateBuffer("fragment_params", FragParamsSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		s.Destroy()
		return nil, fmt.Errorf("create params buffer: %w", err)
	}
	s.paramsBuf = paramsBuf

	feed, err := NewStorageBuffer(dev, "fragment_feed", initial)
	if err != nil {
		s.Destroy()
		return nil, err
	}
	s.feed = feed

	if err := s.Upload(initial); err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func (s *FragmentSim) createPipeline() error {
	shader, err := s.dev.CreateShaderModule("particle_fragment", particleFragmentShaderSource)
	if err != nil {
		return fmt.Errorf("compile particle_fragment shader: %w", err)
	}
	s.shader = shader

	// RGBA32F is not filterable; the shader only uses textureLoad.
	bindLayout, err := s.dev.Hal().CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "particle_fragment_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageFragment, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}},
			{Binding: 3, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := s.dev.Hal().CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "particle_fragment_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout

	stateTarget := gputypes.ColorTargetState{
		Format:    gputypes.TextureFormatRGBA32Float,
		WriteMask: gputypes.ColorWriteMaskAll,
	}
	pipeline, err := s.dev.Hal().CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "particle_fragment_pipeline",
		Layout: s.pipeLayout,
		Vertex: hal.VertexState{
			Module:     s.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     s.shader,
			EntryPoint: "fs_main",
			Targets:    []gputypes.ColorTargetState{stateTarget, stateTarget, stateTarget},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return fmt.Errorf("create fragment pipeline: %w", err)
	}
	s.pipeline = pipeline
	return nil
}

func (s *FragmentSim) createStateTexture(label string, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	tex, err := s.dev.Hal().CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: s.width, Height: s.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA32Float,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", label, err)
	}
	view, err := s.dev.Hal().CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA32Float,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		s.dev.Hal().DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (s *FragmentSim) createTextures() error {
	// Position and velocity ping-pong: sampled one step, rendered the next.
	pingPongUsage := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment |
		gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	for i := 0; i < 2; i++ {
		tex, view, err := s.createStateTexture(fmt.Sprintf("fragment_pos_%d", i), pingPongUsage)
		if err != nil {
			return err
		}
		s.posTex[i], s.posView[i] = tex, view

		tex, view, err = s.createStateTexture(fmt.Sprintf("fragment_vel_%d", i), pingPongUsage)
		if err != nil {
			return err
		}
		s.velTex[i], s.velView[i] = tex, view
	}

	colorTex, colorView, err := s.createStateTexture("fragment_color",
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	s.colorTex, s.colorView = colorTex, colorView

	initTex, initView, err := s.createStateTexture("fragment_init_color",
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst)
	if err != nil {
		return err
	}
	s.initColorTex, s.initColorView = initTex, initView
	return nil
}

func (s *FragmentSim) destroyTextures() {
	dev := s.dev.Hal()
	if dev == nil {
		return
	}
	for i := 0; i < 2; i++ {
		if s.posView[i] != nil {
			dev.DestroyTextureView(s.posView[i])
			s.posView[i] = nil
		}
		if s.posTex[i] != nil {
			dev.DestroyTexture(s.posTex[i])
			s.posTex[i] = nil
		}
		if s.velView[i] != nil {
			dev.DestroyTextureView(s.velView[i])
			s.velView[i] = nil
		}
		if s.velTex[i] != nil {
			dev.DestroyTexture(s.velTex[i])
			s.velTex[i] = nil
		}
	}
	if s.colorView != nil {
		dev.DestroyTextureView(s.colorView)
		s.colorView = nil
	}
	if s.colorTex != nil {
		dev.DestroyTexture(s.colorTex)
		s.colorTex = nil
	}
	if s.initColorView != nil {
		dev.DestroyTextureView(s.initColorView)
		s.initColorView = nil
	}
	if s.initColorTex != nil {
		dev.DestroyTexture(s.initColorTex)
		s.initColorTex = nil
	}
}

// planarize extracts one 16-byte field from every interleaved record
// into a tightly packed w*h texel plane; texels past the live count stay
// zero.
func planarize(data []byte, fieldOffset int, w, h uint32) []byte {
	plane := make([]byte, int(w)*int(h)*16)
	count := len(data) / ParticleStride
	for i := 0; i < count; i++ {
		copy(plane[i*16:(i+1)*16], data[i*ParticleStride+fieldOffset:i*ParticleStride+fieldOffset+16])
	}
	return plane
}

func (s *FragmentSim) writePlane(tex hal.Texture, plane []byte) {
	s.dev.Queue().WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0, Origin: hal.Origin3D{}, Aspect: gputypes.TextureAspectAll},
		plane,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: s.width * 16, RowsPerImage: s.height},
		&hal.Extent3D{Width: s.width, Height: s.height, DepthOrArrayLayers: 1},
	)
}

// Upload replaces the particle state wholesale: textures are recreated
// when the count no longer fits the current dimensions, the planes are
// rewritten, and the feed buffer plus host mirror take the new records.
func (s *FragmentSim) Upload(data []byte) error {
	count := len(data) / ParticleStride
	w, h := TextureDims(count)
	if w != s.width || h != s.height || s.posTex[0] == nil {
		s.destroyTextures()
		s.width, s.height = w, h
		if err := s.createTextures(); err != nil {
			return err
		}
	}
	s.current = 0

	s.writePlane(s.posTex[0], planarize(data, 0, w, h))
	s.writePlane(s.velTex[0], planarize(data, 16, w, h))
	s.writePlane(s.initColorTex, planarize(data, 48, w, h))

	s.mirror = append(s.mirror[:0], data...)
	return s.feed.Upload(data)
}

// Snapshot returns the host mirror of the interleaved particle state.
// The slice is owned by the strategy and valid until the next Step or
// Upload.
func (s *FragmentSim) Snapshot() []byte { return s.mirror }

// encodeFragParams appends texture dimensions and the live count to the
// canonical 48-byte params, forming the 64-byte fragment uniform.
func (s *FragmentSim) encodeFragParams(params []byte, count int) []byte {
	out := make([]byte, FragParamsSize)
	copy(out, params)
	binary.LittleEndian.PutUint32(out[48:], s.width)
	binary.LittleEndian.PutUint32(out[52:], s.height)
	binary.LittleEndian.PutUint32(out[56:], uint32(count))
	return out
}

// Step runs one fragment pass over every texel, reads the output planes
// back, and rebuilds the interleaved feed buffer. Parity flips only
// after the readback succeeded.
func (s *FragmentSim) Step(params []byte, count int) error {
	if len(params) != SimParamsSize {
		return fmt.Errorf("sim params: got %d bytes, want %d", len(params), SimParamsSize)
	}
	if count <= 0 {
		return nil
	}
	src := s.current
	dst := 1 - s.current
	s.dev.Queue().WriteBuffer(s.paramsBuf, 0, s.encodeFragParams(params, count))

	bindGroup, err := s.dev.Hal().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "particle_fragment_bind",
		Layout: s.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: s.paramsBuf.NativeHandle(), Offset: 0, Size: FragParamsSize}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: s.posView[src].NativeHandle()}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: s.velView[src].NativeHandle()}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{TextureView: s.initColorView.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer s.dev.Hal().DestroyBindGroup(bindGroup)

	// Staging buffers for the three output planes, rows padded to the
	// copy pitch alignment.
	alignedRow := (s.width*16 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedRow) * uint64(s.height)
	var staging [3]hal.Buffer
	for i := range staging {
		buf, err := s.dev.CreateBuffer(fmt.Sprintf("fragment_staging_%d", i), stagingSize,
			gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("create staging buffer: %w", err)
		}
		defer s.dev.Hal().DestroyBuffer(buf)
		staging[i] = buf
	}

	encoder, err := s.dev.Hal().CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "particle_fragment_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("particle_fragment"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "particle_fragment_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{View: s.posView[dst], LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore, ClearValue: gputypes.Color{}},
			{View: s.velView[dst], LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore, ClearValue: gputypes.Color{}},
			{View: s.colorView, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore, ClearValue: gputypes.Color{}},
		},
	})
	rp.SetPipeline(s.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	// Attachments sit in COLOR_ATTACHMENT_OPTIMAL after the pass; the
	// copies below need TRANSFER_SRC_OPTIMAL.
	outputs := []hal.Texture{s.posTex[dst], s.velTex[dst], s.colorTex}
	barriers := make([]hal.TextureBarrier, len(outputs))
	for i, tex := range outputs {
		barriers[i] = hal.TextureBarrier{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}
	}
	encoder.TransitionTextures(barriers)

	for i, tex := range outputs {
		encoder.CopyTextureToBuffer(tex, staging[i], []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedRow, RowsPerImage: s.height},
			TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: s.width, Height: s.height, DepthOrArrayLayers: 1},
		}})
	}

	// Return the planes to their pre-copy usage so next step's pass and
	// sampling see consistent layouts.
	encoder.TransitionTextures([]hal.TextureBarrier{
		{Texture: s.posTex[dst], Usage: hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageCopySrc, NewUsage: gputypes.TextureUsageTextureBinding}},
		{Texture: s.velTex[dst], Usage: hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageCopySrc, NewUsage: gputypes.TextureUsageTextureBinding}},
		{Texture: s.colorTex, Usage: hal.TextureUsageTransition{OldUsage: gputypes.TextureUsageCopySrc, NewUsage: gputypes.TextureUsageRenderAttachment}},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	if err := s.dev.SubmitAndWait(cmdBuf); err != nil {
		return err
	}

	var planes [3][]byte
	for i := range staging {
		planes[i] = make([]byte, stagingSize)
		if err := s.dev.Queue().ReadBuffer(staging[i], 0, planes[i]); err != nil {
			return fmt.Errorf("read back plane %d: %w", i, err)
		}
	}

	s.interleave(planes, int(alignedRow), count)
	if err := s.feed.Upload(s.mirror[:count*ParticleStride]); err != nil {
		return err
	}
	s.current = dst
	return nil
}

// interleave folds the three read-back planes into the host mirror's
// 64-byte records. Initial colors are untouched; they never change on
// the GPU side.
func (s *FragmentSim) interleave(planes [3][]byte, alignedRow, count int) {
	if len(s.mirror) < count*ParticleStride {
		grown := make([]byte, count*ParticleStride)
		copy(grown, s.mirror)
		s.mirror = grown
	}
	w := int(s.width)
	for i := 0; i < count; i++ {
		texelOff := (i/w)*alignedRow + (i%w)*16
		rec := s.mirror[i*ParticleStride:]
		copy(rec[0:16], planes[0][texelOff:texelOff+16])
		copy(rec[16:32], planes[1][texelOff:texelOff+16])
		copy(rec[32:48], planes[2][texelOff:texelOff+16])
	}
}

// Grow preserves keepCount live particles from the host mirror and
// appends the encoded tail, rebuilding the state textures at the new
// dimensions.
func (s *FragmentSim) Grow(keepCount int, tail []byte) error {
	data := make([]byte, 0, keepCount*ParticleStride+len(tail))
	data = append(data, s.mirror[:keepCount*ParticleStride]...)
	data = append(data, tail...)
	return s.Upload(data)
}

// Buffer returns the feed buffer holding the latest interleaved records.
func (s *FragmentSim) Buffer() hal.Buffer { return s.feed.Buffer() }

// Destroy releases all GPU resources owned by the strategy.
func (s *FragmentSim) Destroy() {
	s.destroyTextures()
	if s.feed != nil {
		s.feed.Destroy()
		s.feed = nil
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
