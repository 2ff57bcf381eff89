// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// StorageBuffer owns one GPU particle buffer and implements the resize
// protocol shared by the buffer-backed strategies: in-place rewrites
// when the data fits, reallocation with old-buffer retirement when it
// does not, and grow-with-copy to preserve live particle state.
type StorageBuffer struct {
	dev      *Device
	label    string
	buf      hal.Buffer
	capacity int // particles the buffer can hold
}

// NewStorageBuffer creates a particle buffer sized for data and uploads
// it. An empty data slice still produces a one-particle buffer so bind
// groups always have something to reference.
func NewStorageBuffer(dev *Device, label string, data []byte) (*StorageBuffer, error) {
	capacity := len(data) / ParticleStride
	if capacity < 1 {
		capacity = 1
	}
	buf, err := dev.CreateBuffer(label, uint64(capacity*ParticleStride), ParticleBufferUsage())
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if len(data) > 0 {
		dev.Queue().WriteBuffer(buf, 0, data)
	}
	return &StorageBuffer{dev: dev, label: label, buf: buf, capacity: capacity}, nil
}

// Buffer returns the underlying HAL buffer.
func (b *StorageBuffer) Buffer() hal.Buffer { return b.buf }

// Capacity returns the buffer capacity in particles.
func (b *StorageBuffer) Capacity() int { return b.capacity }

// SizeBytes returns the buffer capacity in bytes.
func (b *StorageBuffer) SizeBytes() uint64 { return uint64(b.capacity) * ParticleStride }

// Upload replaces the buffer contents with data, reallocating when the
// buffer is too small. Shrinking keeps the existing allocation; callers
// track the live count themselves.
func (b *StorageBuffer) Upload(data []byte) error {
	count := len(data) / ParticleStride
	if count > b.capacity {
		buf, err := b.dev.CreateBuffer(b.label, uint64(len(data)), ParticleBufferUsage())
		if err != nil {
			return fmt.Errorf("grow %s: %w", b.label, err)
		}
		b.dev.RetireBuffer(b.buf)
		b.buf = buf
		b.capacity = count
	}
	if len(data) > 0 {
		b.dev.Queue().WriteBuffer(b.buf, 0, data)
	}
	return nil
}

// GrowPreserve reallocates the buffer to hold keepCount existing
// particles plus the encoded tail, copying the live prefix on the GPU so
// particle state survives the resize. The old buffer is retired, not
// destroyed: in-flight command buffers may still reference it.
func (b *StorageBuffer) GrowPreserve(keepCount int, tail []byte) error {
	keepBytes := uint64(keepCount) * ParticleStride
	newSize := keepBytes + uint64(len(tail))
	newCapacity := int(newSize / ParticleStride)

	buf, err := b.dev.CreateBuffer(b.label, newSize, ParticleBufferUsage())
	if err != nil {
		return fmt.Errorf("grow %s: %w", b.label, err)
	}

	if keepBytes > 0 {
		encoder, err := b.dev.Hal().CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: b.label + "_grow"})
		if err != nil {
			b.dev.Hal().DestroyBuffer(buf)
			return fmt.Errorf("create command encoder: %w", err)
		}
		if err := encoder.BeginEncoding(b.label + "_grow"); err != nil {
			b.dev.Hal().DestroyBuffer(buf)
			return fmt.Errorf("begin encoding: %w", err)
		}
		encoder.CopyBufferToBuffer(b.buf, buf, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: keepBytes},
		})
		cmdBuf, err := encoder.EndEncoding()
		if err != nil {
			b.dev.Hal().DestroyBuffer(buf)
			return fmt.Errorf("end encoding: %w", err)
		}
		if err := b.dev.SubmitAndWait(cmdBuf); err != nil {
			b.dev.Hal().DestroyBuffer(buf)
			return err
		}
	}
	if len(tail) > 0 {
		b.dev.Queue().WriteBuffer(buf, keepBytes, tail)
	}

	b.dev.RetireBuffer(b.buf)
	b.buf = buf
	b.capacity = newCapacity
	return nil
}

// Destroy retires the buffer for deferred destruction.
func (b *StorageBuffer) Destroy() {
	if b.buf != nil {
		b.dev.RetireBuffer(b.buf)
		b.buf = nil
	}
	b.capacity = 0
}
