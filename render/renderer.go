// Package render draws the live particle buffer as an alpha-blended
// point cloud. The renderer owns no particle data: each frame it is
// handed the simulation's buffer and instance count, so strategy swaps
// and resizes never touch it.
package render

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/particles/camera"
	"github.com/gogpu/particles/internal/gpu"
)

//go:embed shaders/particle_render.wgsl
var particleRenderShaderSource string

// Renderer draws particles with point topology, one instance per
// particle, sourcing position and color straight from the 64-byte
// particle records.
type Renderer struct {
	dev *gpu.Device

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline

	cameraBuf hal.Buffer
	format    gputypes.TextureFormat
}

// New builds the point-cloud pipeline targeting the given surface
// format.
func New(dev *gpu.Device, format gputypes.TextureFormat) (*Renderer, error) {
	r := &Renderer{dev: dev, format: format}

	shader, err := dev.CreateShaderModule("particle_render", particleRenderShaderSource)
	if err != nil {
		return nil, fmt.Errorf("compile particle_render shader: %w", err)
	}
	r.shader = shader

	bindLayout, err := dev.Hal().CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "particle_render_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := dev.Hal().CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "particle_render_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	blend := particleBlendState()
	pipeline, err := dev.Hal().CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "particle_render_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers:    particleVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{Format: format, Blend: &blend, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyPointList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	r.pipeline = pipeline

	cameraBuf, err := dev.CreateBuffer("particle_camera", camera.UniformSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		r.Destroy()
		return nil, fmt.Errorf("create camera buffer: %w", err)
	}
	r.cameraBuf = cameraBuf
	return r, nil
}

// particleVertexLayout describes the particle record as an instanced
// vertex buffer: position at offset 0, display color at offset 32.
// Velocity and initial color are simulation-only fields and stay unbound.
func particleVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: 64,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 1},
			},
		},
	}
}

// particleBlendState returns straight-alpha blending with additive
// alpha accumulation, so dense particle clusters glow.
func particleBlendState() gputypes.BlendState {
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// Draw clears target and renders count particles from the given buffer
// using the encoded camera uniform (camera.UniformSize bytes). The
// caller submits nothing else against the particle buffer until Draw
// returns.
func (r *Renderer) Draw(target hal.TextureView, particles hal.Buffer, count int, cameraUniform []byte) error {
	if len(cameraUniform) != camera.UniformSize {
		return fmt.Errorf("camera uniform: got %d bytes, want %d", len(cameraUniform), camera.UniformSize)
	}
	if particles == nil {
		return fmt.Errorf("render: nil particle buffer")
	}
	r.dev.Queue().WriteBuffer(r.cameraBuf, 0, cameraUniform)

	bindGroup, err := r.dev.Hal().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "particle_render_bind",
		Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: r.cameraBuf.NativeHandle(), Offset: 0, Size: camera.UniformSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer r.dev.Hal().DestroyBindGroup(bindGroup)

	encoder, err := r.dev.Hal().CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "particle_render_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("particle_render"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "particle_render_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	rp.SetPipeline(r.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.SetVertexBuffer(0, particles, 0)
	if count > 0 {
		rp.Draw(1, uint32(count), 0, 0)
	}
	rp.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	return r.dev.SubmitAndWait(cmdBuf)
}

// Destroy releases the pipeline and camera buffer.
func (r *Renderer) Destroy() {
	if r.cameraBuf != nil {
		r.dev.RetireBuffer(r.cameraBuf)
		r.cameraBuf = nil
	}
	dev := r.dev.Hal()
	if dev == nil {
		return
	}
	if r.pipeline != nil {
		dev.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		dev.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		dev.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shader != nil {
		dev.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}
