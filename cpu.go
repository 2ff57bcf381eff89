package particles

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/particles/internal/gpu"
	"github.com/gogpu/particles/internal/parallel"
)

// cpuSimulation advances particles on the host and bulk-uploads the
// active range to a GPU-visible buffer after every step. It is the
// numeric reference for the GPU strategies and the only strategy that
// works without a device.
type cpuSimulation struct {
	dev  *gpu.Device // nil in host-only mode
	pool *parallel.WorkerPool

	particles []Particle
	scratch   []byte // reused upload staging, one encode per step

	buf      hal.Buffer // nil in host-only mode
	capacity int        // buffer capacity in particles

	count  int
	mode   GenerationMode
	paused bool
}

func newCPUSimulation(dev *gpu.Device, cfg Config) (*cpuSimulation, error) {
	s := &cpuSimulation{
		dev:   dev,
		pool:  parallel.NewWorkerPool(cfg.Workers),
		count: cfg.Count,
		mode:  cfg.Mode,
	}
	s.particles = Generate(cfg.Count, cfg.Mode)

	if dev != nil {
		if err := s.allocBuffer(cfg.Count); err != nil {
			s.pool.Close()
			return nil, err
		}
		s.upload()
	} else {
		slogger().Warn("cpu simulation running host-only, no particle buffer",
			"count", cfg.Count)
	}

	slogger().Info("cpu simulation created",
		"count", cfg.Count, "mode", cfg.Mode.String(), "workers", s.pool.Workers())
	return s, nil
}

// allocBuffer creates the GPU-visible particle buffer sized for count
// particles, retiring any previous buffer. The buffer doubles as the
// renderer's vertex source and a storage binding, so both usages are set.
func (s *cpuSimulation) allocBuffer(count int) error {
	if count < 1 {
		count = 1 // zero-sized buffers are rejected by most backends
	}
	buf, err := s.dev.CreateBuffer("cpu_particles", uint64(count)*ParticleStride,
		gpu.ParticleBufferUsage())
	if err != nil {
		return fmt.Errorf("cpu simulation: create particle buffer: %w", err)
	}
	if s.buf != nil {
		s.dev.RetireBuffer(s.buf)
	}
	s.buf = buf
	s.capacity = count
	return nil
}

// upload encodes the active particle range and writes it to the GPU
// buffer in one bulk write.
func (s *cpuSimulation) upload() {
	if s.dev == nil || s.count == 0 {
		return
	}
	need := s.count * ParticleStride
	if cap(s.scratch) < need {
		s.scratch = make([]byte, need)
	}
	s.scratch = s.scratch[:need]
	encodeParticlesTo(s.scratch, s.particles[:s.count])
	s.dev.Queue().WriteBuffer(s.buf, 0, s.scratch)
}

func (s *cpuSimulation) Update(params *SimParams) error {
	if s.paused || s.count == 0 {
		return nil
	}

	active := s.particles[:s.count]
	s.pool.ForN(len(active), func(start, end int) {
		for i := start; i < end; i++ {
			stepParticle(&active[i], params)
		}
	})

	s.upload()
	return nil
}

// stepParticle advances one particle by params.DeltaTime. The GPU
// strategies reproduce this formula in their shaders; any change here
// must be mirrored there.
func stepParticle(p *Particle, params *SimParams) {
	dt := params.DeltaTime

	// Gravity pulls along -Y.
	p.Vel[1] -= params.Gravity * dt

	// Mouse attraction within twice the interaction radius. The force
	// falls off quadratically and vanishes exactly at the boundary.
	// A particle sitting on the attractor has no defined direction, so
	// no force is applied there.
	if params.MouseDragging {
		dir := params.MousePos.Sub(p.Pos)
		dist := dir.Len()
		if dist > 0 && dist < params.MouseRadius*2 {
			falloff := 1 - dist/(params.MouseRadius*2)
			factor := falloff * falloff * 2
			p.Vel = p.Vel.Add(dir.Mul(1 / dist).Mul(params.MouseForce * factor * dt))
		}
	}

	p.Pos = p.Pos.Add(p.Vel.Mul(dt))
	p.Vel = p.Vel.Mul(params.Damping)

	p.Color = particleColor(p, params)
}

// particleColor derives the display color for the particle's current
// state under the active color mode.
func particleColor(p *Particle, params *SimParams) mgl32.Vec4 {
	switch params.ColorMode {
	case ColorModeVelocity:
		speed := p.Vel.Len()
		n := speed / colorSpeedScale
		if n > 1 {
			n = 1
		}
		return mgl32.Vec4{n, 0.5 - n*0.5, 1 - n, 1}
	case ColorModeDistance:
		maxDist := params.MaxColorDist
		if maxDist < 0.01 {
			maxDist = 0.01
		}
		n := p.Pos.Len() / maxDist
		if n > 1 {
			n = 1
		}
		return mgl32.Vec4{n, 0, 1 - n, 1}
	default:
		return p.InitialColor
	}
}

func (s *cpuSimulation) Resize(count int, mode GenerationMode) error {
	if count < 0 || count > MaxParticles {
		return fmt.Errorf("%w: %d", ErrCountOutOfRange, count)
	}

	switch {
	case mode != s.mode:
		// Mode switch regenerates the whole data set at the new count.
		s.particles = Generate(count, mode)
		s.mode = mode
	case count > s.count:
		// Grow: keep the advanced prefix, append fresh particles.
		fresh := Generate(count, mode)
		s.particles = append(s.particles[:s.count], fresh[s.count:]...)
	default:
		// Shrink (or no-op): logical count only, storage retained.
		s.count = count
		return nil
	}

	s.count = count
	if s.dev != nil {
		if count > s.capacity {
			if err := s.allocBuffer(count); err != nil {
				return err
			}
		}
		s.upload()
	}
	slogger().Debug("cpu simulation resized", "count", count, "mode", mode.String())
	return nil
}

func (s *cpuSimulation) Reset(mode GenerationMode) error {
	s.particles = Generate(s.count, mode)
	s.mode = mode
	s.upload()
	return nil
}

func (s *cpuSimulation) ParticleBuffer() hal.Buffer { return s.buf }
func (s *cpuSimulation) ParticleCount() int         { return s.count }
func (s *cpuSimulation) Method() Method             { return MethodCPU }
func (s *cpuSimulation) Mode() GenerationMode       { return s.mode }
func (s *cpuSimulation) Paused() bool               { return s.paused }
func (s *cpuSimulation) SetPaused(p bool)           { s.paused = p }

func (s *cpuSimulation) Destroy() {
	s.pool.Close()
	if s.buf != nil {
		s.dev.RetireBuffer(s.buf)
		s.buf = nil
	}
	s.particles = nil
}
