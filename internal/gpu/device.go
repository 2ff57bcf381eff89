// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu owns the HAL device plumbing shared by the GPU simulation
// strategies and the renderer: adapter selection, buffer and shader
// helpers, command submission, and deferred resource destruction.
package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// fenceTimeout is the maximum time to wait for GPU work to complete.
const fenceTimeout = 5 * time.Second

// Device bundles the HAL device and queue with the retire list used for
// deferred buffer destruction. All strategies and the renderer share one
// Device per process (or per window, when a host app provides one).
type Device struct {
	instance hal.Instance // nil when the device came from a provider
	device   hal.Device
	queue    hal.Queue

	// UseSPIRV routes shader creation through naga's SPIR-V output
	// instead of handing WGSL to the backend directly.
	UseSPIRV bool

	mu      sync.Mutex
	retired []hal.Buffer
}

// Open enumerates adapters on the Vulkan backend and opens a device,
// preferring discrete over integrated GPUs.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	slogger().Info("gpu: adapter selected", "name", selected.Info.Name,
		"type", selected.Info.DeviceType)
	return &Device{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
	}, nil
}

// halProvider is the subset of a gpucontext device that exposes raw HAL
// handles. gogpu's window-integrated providers implement it.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider adopts the device and queue of a host application's
// gpucontext.DeviceProvider. The provider keeps ownership of the device;
// Close on the returned Device does not destroy it.
func FromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	if p == nil {
		return nil, fmt.Errorf("gpu: nil device provider")
	}
	hp, ok := p.Device().(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider device does not expose HAL handles")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	return &Device{device: device, queue: queue}, nil
}

// Hal returns the underlying HAL device.
func (d *Device) Hal() hal.Device { return d.device }

// Queue returns the underlying HAL queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// ParticleBufferUsage returns the usage flags shared by every particle
// buffer: vertex source for the renderer, storage binding for the
// simulation passes, and both copy directions for resize preservation
// and uploads.
func ParticleBufferUsage() gputypes.BufferUsage {
	return gputypes.BufferUsageVertex | gputypes.BufferUsageStorage |
		gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
}

// CreateBuffer creates a GPU buffer. Zero-byte buffers are rounded up to
// the minimum size accepted by the backends.
func (d *Device) CreateBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	const minBufSize = 4
	if size < minBufSize {
		size = minBufSize
	}
	return d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
}

// CreateAndUploadBuffer creates a GPU buffer and writes data into it.
func (d *Device) CreateAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.CreateBuffer(label, uint64(len(data)), usage)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if len(data) > 0 {
		d.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

// RetireBuffer schedules a buffer for destruction once the GPU is known
// to be idle. Buffers replaced by a resize (or an owner's teardown) must
// go through here rather than being destroyed directly: a command buffer
// recorded this frame may still reference them.
func (d *Device) RetireBuffer(buf hal.Buffer) {
	if buf == nil {
		return
	}
	d.mu.Lock()
	d.retired = append(d.retired, buf)
	d.mu.Unlock()
}

// drainRetired destroys all retired buffers. Callers must only invoke it
// after a fence wait proved the GPU has finished prior submissions.
func (d *Device) drainRetired() {
	d.mu.Lock()
	retired := d.retired
	d.retired = nil
	d.mu.Unlock()

	for _, buf := range retired {
		d.device.DestroyBuffer(buf)
	}
	if len(retired) > 0 {
		slogger().Debug("gpu: retired buffers destroyed", "count", len(retired))
	}
}

// SubmitAndWait submits a command buffer, blocks until the GPU signals
// the fence, and then drains the retire list. Every simulation step and
// self-contained render goes through here, which gives the strategies
// the ordering guarantee they need: by the time a step returns, the
// particle buffer is safe to read.
func (d *Device) SubmitAndWait(cmdBuf hal.CommandBuffer) error {
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("gpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("gpu: GPU timeout after %v", fenceTimeout)
	}

	d.drainRetired()
	return nil
}

// Close destroys retired buffers and, when this Device owns its HAL
// handles, the device and instance as well.
func (d *Device) Close() {
	d.drainRetired()
	if d.instance != nil {
		if d.device != nil {
			d.device.Destroy()
		}
		d.instance.Destroy()
		d.instance = nil
	}
	d.device = nil
	d.queue = nil
}
