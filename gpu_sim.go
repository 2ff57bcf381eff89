package particles

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/particles/internal/gpu"
)

// gpuSimulation adapts a gpu.Engine to the Simulation contract. The
// count/mode/pause bookkeeping and the generate-encode-hand-off dance
// are identical across the compute, feedback, and fragment strategies;
// only the engine differs.
type gpuSimulation struct {
	engine gpu.Engine
	method Method

	count  int
	mode   GenerationMode
	paused bool
}

func newGPUSimulation(method Method, cfg Config, build func([]byte) (gpu.Engine, error)) (*gpuSimulation, error) {
	data := EncodeParticles(Generate(cfg.Count, cfg.Mode))
	engine, err := build(data)
	if err != nil {
		return nil, fmt.Errorf("%s simulation: %w", method, err)
	}
	slogger().Info("gpu simulation created",
		"method", method.String(), "count", cfg.Count, "mode", cfg.Mode.String())
	return &gpuSimulation{
		engine: engine,
		method: method,
		count:  cfg.Count,
		mode:   cfg.Mode,
	}, nil
}

func newComputeSimulation(dev *gpu.Device, cfg Config) (*gpuSimulation, error) {
	return newGPUSimulation(MethodCompute, cfg, func(data []byte) (gpu.Engine, error) {
		return gpu.NewComputeSim(dev, data)
	})
}

func newFeedbackSimulation(dev *gpu.Device, cfg Config) (*gpuSimulation, error) {
	return newGPUSimulation(MethodTransformFeedback, cfg, func(data []byte) (gpu.Engine, error) {
		return gpu.NewFeedbackSim(dev, data)
	})
}

func newFragmentSimulation(dev *gpu.Device, cfg Config) (*gpuSimulation, error) {
	return newGPUSimulation(MethodFragment, cfg, func(data []byte) (gpu.Engine, error) {
		return gpu.NewFragmentSim(dev, data)
	})
}

func (s *gpuSimulation) Update(params *SimParams) error {
	if s.paused || s.count == 0 {
		return nil
	}
	if err := s.engine.Step(params.Encode(), s.count); err != nil {
		return fmt.Errorf("%s simulation: %w", s.method, err)
	}
	return nil
}

func (s *gpuSimulation) Resize(count int, mode GenerationMode) error {
	if count < 0 || count > MaxParticles {
		return fmt.Errorf("%w: %d", ErrCountOutOfRange, count)
	}

	switch {
	case mode != s.mode:
		// Mode switch regenerates the whole data set at the new count.
		if err := s.engine.Upload(EncodeParticles(Generate(count, mode))); err != nil {
			return fmt.Errorf("%s simulation: %w", s.method, err)
		}
		s.mode = mode
	case count > s.count:
		// Grow: the engine keeps the advanced prefix; only the tail is
		// freshly generated.
		fresh := Generate(count, mode)
		tail := EncodeParticles(fresh[s.count:])
		if err := s.engine.Grow(s.count, tail); err != nil {
			return fmt.Errorf("%s simulation: %w", s.method, err)
		}
	default:
		// Shrink (or no-op): logical count only, storage retained.
		s.count = count
		return nil
	}

	s.count = count
	slogger().Debug("gpu simulation resized",
		"method", s.method.String(), "count", count, "mode", mode.String())
	return nil
}

func (s *gpuSimulation) Reset(mode GenerationMode) error {
	if err := s.engine.Upload(EncodeParticles(Generate(s.count, mode))); err != nil {
		return fmt.Errorf("%s simulation: %w", s.method, err)
	}
	s.mode = mode
	return nil
}

func (s *gpuSimulation) ParticleBuffer() hal.Buffer { return s.engine.Buffer() }
func (s *gpuSimulation) ParticleCount() int         { return s.count }
func (s *gpuSimulation) Method() Method             { return s.method }
func (s *gpuSimulation) Mode() GenerationMode       { return s.mode }
func (s *gpuSimulation) Paused() bool               { return s.paused }
func (s *gpuSimulation) SetPaused(p bool)           { s.paused = p }

func (s *gpuSimulation) Destroy() {
	if s.engine != nil {
		s.engine.Destroy()
		s.engine = nil
	}
}
