// Package app wires the pieces together at runtime: it owns the active
// simulation strategy, the camera, and the live control values, turns
// per-frame input into the SimParams block, and mediates strategy
// switches, resizes, and resets.
package app

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/particles"
	"github.com/gogpu/particles/camera"
	"github.com/gogpu/particles/internal/gpu"
)

// CountPresets are the quick-select particle counts exposed by the UI.
var CountPresets = []int{10_000, 100_000, 1_000_000}

// Interaction-plane depth bounds, as multiples of the camera-to-origin
// distance. One scroll step moves the plane by depthStep.
const (
	depthStep = 0.2
	depthMin  = 0.2
	depthMax  = 5.0
)

// Session is the application controller. It is single-goroutine by
// contract: all calls happen on the frame loop.
type Session struct {
	dev *gpu.Device
	sim particles.Simulation
	cam *camera.Camera

	workers int

	// Live control values folded into SimParams every frame.
	gravity      float32
	mouseForce   float32
	mouseRadius  float32
	maxColorDist float32
	damping      float32
	colorMode    particles.ColorMode

	// Mouse interaction state.
	dragging   bool
	mouseWorld mgl32.Vec3
	mouseDepth float32 // interaction plane distance factor
}

// NewSession constructs the initial strategy from cfg and a default
// camera. dev may be nil only when cfg.Method is MethodCPU.
func NewSession(dev *gpu.Device, cfg particles.Config) (*Session, error) {
	sim, err := particles.New(dev, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	defaults := particles.DefaultSimParams()
	return &Session{
		dev:          dev,
		sim:          sim,
		cam:          camera.New(),
		workers:      cfg.Workers,
		gravity:      0,
		mouseForce:   defaults.MouseForce,
		mouseRadius:  defaults.MouseRadius,
		maxColorDist: defaults.MaxColorDist,
		damping:      defaults.Damping,
		mouseDepth:   1,
	}, nil
}

// Sim returns the active simulation strategy.
func (s *Session) Sim() particles.Simulation { return s.sim }

// Camera returns the session camera.
func (s *Session) Camera() *camera.Camera { return s.cam }

// Params assembles the per-frame parameter block from the live control
// values and the given frame delta.
func (s *Session) Params(dt float32) particles.SimParams {
	return particles.SimParams{
		DeltaTime:     dt,
		Gravity:       s.gravity,
		ColorMode:     s.colorMode,
		MouseForce:    s.mouseForce,
		MouseRadius:   s.mouseRadius,
		MouseDragging: s.dragging,
		Damping:       s.damping,
		MaxColorDist:  s.maxColorDist,
		MousePos:      s.mouseWorld,
	}
}

// Update advances the simulation by dt using the current controls.
func (s *Session) Update(dt float32) error {
	params := s.Params(dt)
	return s.sim.Update(&params)
}

// SetMethod swaps the active strategy, preserving only the particle
// count, pause flag, and generation mode. The old strategy is destroyed
// after the new one constructed successfully, so a failed switch keeps
// the session usable.
func (s *Session) SetMethod(m particles.Method) error {
	if m == s.sim.Method() {
		return nil
	}
	next, err := particles.New(s.dev, particles.Config{
		Method:  m,
		Count:   s.sim.ParticleCount(),
		Mode:    s.sim.Mode(),
		Workers: s.workers,
	})
	if err != nil {
		return fmt.Errorf("app: switch to %s: %w", m, err)
	}
	next.SetPaused(s.sim.Paused())
	s.sim.Destroy()
	s.sim = next
	return nil
}

// SetCount resizes the simulation, clamping to [1, MaxParticles].
func (s *Session) SetCount(count int) error {
	if count < 1 {
		count = 1
	}
	if count > particles.MaxParticles {
		count = particles.MaxParticles
	}
	return s.sim.Resize(count, s.sim.Mode())
}

// SetMode switches the generation mode at the current count,
// regenerating the data set.
func (s *Session) SetMode(mode particles.GenerationMode) error {
	return s.sim.Resize(s.sim.ParticleCount(), mode)
}

// Reset regenerates the particle set and zeroes gravity. Clearing
// gravity is deliberate control-reset policy: reset means "back to the
// initial scene", and the initial scene does not fall.
func (s *Session) Reset() error {
	if err := s.sim.Reset(s.sim.Mode()); err != nil {
		return err
	}
	s.gravity = 0
	return nil
}

// Control setters. Values are folded into the next frame's SimParams.

func (s *Session) Gravity() float32     { return s.gravity }
func (s *Session) SetGravity(g float32) { s.gravity = g }

func (s *Session) SetMouseForce(f float32) {
	if f < 0 {
		f = 0
	}
	s.mouseForce = f
}
func (s *Session) SetMouseRadius(r float32) {
	if r < 0 {
		r = 0
	}
	s.mouseRadius = r
}
func (s *Session) SetMaxColorDist(d float32) {
	if d < 0.01 {
		d = 0.01
	}
	s.maxColorDist = d
}
func (s *Session) SetColorMode(m particles.ColorMode) { s.colorMode = m }

// SetFov adjusts the camera field of view, clamped to a sane range.
func (s *Session) SetFov(fov float32) {
	const minFov, maxFov = 0.1, 3.0
	if fov < minFov {
		fov = minFov
	}
	if fov > maxFov {
		fov = maxFov
	}
	s.cam.Fov = fov
}

// BeginDrag and EndDrag toggle mouse attraction.
func (s *Session) BeginDrag() { s.dragging = true }
func (s *Session) EndDrag()   { s.dragging = false }

// Dragging reports whether mouse attraction is active.
func (s *Session) Dragging() bool { return s.dragging }

// MouseWorld returns the interaction point in world space.
func (s *Session) MouseWorld() mgl32.Vec3 { return s.mouseWorld }

// Scroll moves the interaction plane toward or away from the camera by
// depthStep per wheel step.
func (s *Session) Scroll(steps float32) {
	s.mouseDepth += steps * depthStep
	if s.mouseDepth < depthMin {
		s.mouseDepth = depthMin
	}
	if s.mouseDepth > depthMax {
		s.mouseDepth = depthMax
	}
}

// MouseMove unprojects the cursor onto the interaction plane: the ray
// through the pixel is intersected with the plane at mouseDepth times
// the camera-to-origin distance along the view direction.
func (s *Session) MouseMove(x, y, width, height float32) {
	if width <= 0 || height <= 0 {
		return
	}
	ndc := mgl32.Vec2{2*x/width - 1, 1 - 2*y/height}

	inv := s.cam.ViewProj(width / height).Inv()
	near := unproject(inv, ndc, 0)
	far := unproject(inv, ndc, 1)
	dir := far.Sub(near)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()

	base := s.cam.Pos.Len()
	if base == 0 {
		base = 100
	}
	s.mouseWorld = s.cam.Pos.Add(dir.Mul(base * s.mouseDepth))
}

// unproject maps an NDC point at the given depth back to world space.
func unproject(invViewProj mgl32.Mat4, ndc mgl32.Vec2, depth float32) mgl32.Vec3 {
	v := invViewProj.Mul4x1(mgl32.Vec4{ndc[0], ndc[1], depth, 1})
	if v[3] == 0 {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{v[0] / v[3], v[1] / v[3], v[2] / v[3]}
}

// Destroy releases the active strategy.
func (s *Session) Destroy() {
	if s.sim != nil {
		s.sim.Destroy()
		s.sim = nil
	}
}
