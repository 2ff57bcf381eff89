package particles

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/particles/internal/gpu"
)

// MaxParticles bounds the particle count of any simulation.
const MaxParticles = 1_000_000

// Common errors returned by the strategy factory and lifecycle methods.
var (
	// ErrUnknownMethod is returned for a Method outside the known set.
	ErrUnknownMethod = errors.New("particles: unknown simulation method")

	// ErrDeviceRequired is returned when a GPU-backed method is
	// requested without a device.
	ErrDeviceRequired = errors.New("particles: method requires a GPU device")

	// ErrCountOutOfRange is returned when the requested particle count
	// is negative or exceeds MaxParticles.
	ErrCountOutOfRange = errors.New("particles: particle count out of range")
)

// Simulation is the contract every strategy satisfies. The concrete set
// of implementations is closed: values are only constructed by New,
// which dispatches over Config.Method.
//
// A Simulation exclusively owns its particle state. Updates, resizes,
// and resets must happen between frames: no command buffer referencing
// the simulation's buffers may be in flight when they are called.
type Simulation interface {
	// Update advances the simulation by params.DeltaTime. It is a
	// no-op while paused and when the particle count is zero. After it
	// returns, ParticleBuffer is safe to hand to the renderer.
	Update(params *SimParams) error

	// Resize changes the active particle count. Growing preserves the
	// already-advanced particles and appends freshly generated ones;
	// shrinking only lowers the logical count, keeping storage.
	// Changing mode with an unchanged count regenerates the data set.
	Resize(count int, mode GenerationMode) error

	// Reset regenerates the full live particle set in place at the
	// current count, discarding accumulated velocity.
	Reset(mode GenerationMode) error

	// ParticleBuffer returns the GPU buffer holding the authoritative
	// particle data in the wire layout described by ParticleStride.
	// For ping-pong strategies this is the most recently written half.
	// Nil in host-only CPU mode.
	ParticleBuffer() hal.Buffer

	// ParticleCount returns the live particle count.
	ParticleCount() int

	// Method identifies the strategy.
	Method() Method

	// Mode returns the generation mode of the current data set.
	Mode() GenerationMode

	// Paused reports whether updates are suspended. Pausing skips the
	// update body; it does not affect rendering, which keeps drawing
	// the last-written state.
	Paused() bool
	SetPaused(bool)

	// Destroy releases all backend resources. The simulation must not
	// be used afterwards.
	Destroy()
}

// Config parameterizes strategy construction.
type Config struct {
	// Method selects the execution strategy.
	Method Method

	// Count is the initial particle count, in [0, MaxParticles].
	Count int

	// Mode selects the initial spatial distribution.
	Mode GenerationMode

	// Workers is the CPU strategy's worker count. 0 uses GOMAXPROCS.
	Workers int
}

// New constructs the strategy selected by cfg.Method.
//
// dev may be nil only for MethodCPU, which then runs host-only: particles
// advance normally but no GPU-visible buffer exists, so ParticleBuffer
// returns nil. Every other method requires a device and fails with
// ErrDeviceRequired without one.
func New(dev *gpu.Device, cfg Config) (Simulation, error) {
	if cfg.Count < 0 || cfg.Count > MaxParticles {
		return nil, fmt.Errorf("%w: %d", ErrCountOutOfRange, cfg.Count)
	}

	switch cfg.Method {
	case MethodCPU:
		return newCPUSimulation(dev, cfg)
	case MethodCompute:
		if dev == nil {
			return nil, fmt.Errorf("%w: %s", ErrDeviceRequired, cfg.Method)
		}
		return newComputeSimulation(dev, cfg)
	case MethodTransformFeedback:
		if dev == nil {
			return nil, fmt.Errorf("%w: %s", ErrDeviceRequired, cfg.Method)
		}
		return newFeedbackSimulation(dev, cfg)
	case MethodFragment:
		if dev == nil {
			return nil, fmt.Errorf("%w: %s", ErrDeviceRequired, cfg.Method)
		}
		return newFragmentSimulation(dev, cfg)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, cfg.Method)
	}
}
