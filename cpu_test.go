package particles

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// newHostCPU builds a host-only CPU simulation for physics tests.
func newHostCPU(t *testing.T, count int, mode GenerationMode) *cpuSimulation {
	t.Helper()
	s, err := newCPUSimulation(nil, Config{Method: MethodCPU, Count: count, Mode: mode})
	if err != nil {
		t.Fatalf("newCPUSimulation: %v", err)
	}
	t.Cleanup(s.Destroy)
	return s
}

func approxEq(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func TestStepIdentityWithoutForces(t *testing.T) {
	// gravity 0, damping 1, no drag: particles at rest stay put exactly.
	s := newHostCPU(t, 100, Hollow)
	before := make([]Particle, len(s.particles))
	copy(before, s.particles)

	params := SimParams{DeltaTime: 1.0 / 60.0, Damping: 1}
	for i := 0; i < 10; i++ {
		if err := s.Update(&params); err != nil {
			t.Fatal(err)
		}
	}
	for i := range before {
		if s.particles[i].Pos != before[i].Pos {
			t.Fatalf("particle %d moved without forces: %v -> %v",
				i, before[i].Pos, s.particles[i].Pos)
		}
	}
}

func TestStepGravityAndDamping(t *testing.T) {
	s := newHostCPU(t, 4, Hollow)

	// One step with dt=1, gravity=1: velocity picks up -1 on Y, the
	// position integrates that full velocity, then damping bleeds it.
	params := SimParams{DeltaTime: 1, Gravity: 1, Damping: 0.99}
	startY := s.particles[0].Pos[1]
	if err := s.Update(&params); err != nil {
		t.Fatal(err)
	}

	p := s.particles[0]
	if !approxEq(p.Pos[1], startY-1, 1e-5) {
		t.Errorf("pos.y = %v, want %v", p.Pos[1], startY-1)
	}
	if !approxEq(p.Vel[1], -0.99, 1e-5) {
		t.Errorf("vel.y = %v, want -0.99 after damping", p.Vel[1])
	}
}

func TestStepDampingDecay(t *testing.T) {
	s := newHostCPU(t, 1, Hollow)
	s.particles[0].Vel = mgl32.Vec3{10, 0, 0}

	// dt=0 isolates damping: velocity must decay by 0.99 per step.
	params := SimParams{DeltaTime: 0, Damping: 0.99}
	const steps = 100
	for i := 0; i < steps; i++ {
		if err := s.Update(&params); err != nil {
			t.Fatal(err)
		}
	}
	want := 10 * float32(math.Pow(0.99, steps))
	if got := s.particles[0].Vel[0]; !approxEq(got, want, 1e-3) {
		t.Errorf("vel.x after %d damped steps = %v, want %v", steps, got, want)
	}
}

func TestMouseAttractionBoundary(t *testing.T) {
	s := newHostCPU(t, 3, Hollow)
	params := SimParams{
		DeltaTime:     1,
		Damping:       1,
		MouseForce:    5,
		MouseRadius:   10,
		MouseDragging: true,
		MousePos:      mgl32.Vec3{0, 0, 0},
	}

	// Inside the 2r influence zone: pulled toward the attractor.
	s.particles[0] = Particle{Pos: mgl32.Vec3{15, 0, 0}}
	// Exactly at 2r: the falloff reaches zero, no force.
	s.particles[1] = Particle{Pos: mgl32.Vec3{20, 0, 0}}
	// On the attractor: direction undefined, no force.
	s.particles[2] = Particle{Pos: mgl32.Vec3{0, 0, 0}}

	if err := s.Update(&params); err != nil {
		t.Fatal(err)
	}

	if s.particles[0].Vel[0] >= 0 {
		t.Errorf("inside zone: vel.x = %v, want negative pull toward origin",
			s.particles[0].Vel[0])
	}
	if v := s.particles[1].Vel; v.Len() != 0 {
		t.Errorf("at boundary: velocity = %v, want zero", v)
	}
	if v := s.particles[2].Vel; v.Len() != 0 {
		t.Errorf("on attractor: velocity = %v, want zero", v)
	}
}

func TestMouseAttractionFalloff(t *testing.T) {
	// Closer particles receive more force: falloff (1 - d/2r)^2 * 2.
	s := newHostCPU(t, 2, Hollow)
	params := SimParams{
		DeltaTime:     1,
		Damping:       1,
		MouseForce:    5,
		MouseRadius:   10,
		MouseDragging: true,
	}
	s.particles[0] = Particle{Pos: mgl32.Vec3{5, 0, 0}}
	s.particles[1] = Particle{Pos: mgl32.Vec3{15, 0, 0}}

	if err := s.Update(&params); err != nil {
		t.Fatal(err)
	}
	near := -s.particles[0].Vel[0]
	far := -s.particles[1].Vel[0]
	if near <= far {
		t.Errorf("near pull %v not stronger than far pull %v", near, far)
	}
}

func TestColorModes(t *testing.T) {
	spawn := mgl32.Vec4{0.25, 0.5, 0.75, 1}
	p := Particle{
		Pos:          mgl32.Vec3{25, 0, 0},
		Vel:          mgl32.Vec3{2.5, 0, 0},
		Color:        mgl32.Vec4{0, 0, 0, 0},
		InitialColor: spawn,
	}

	// Velocity heatmap: n = speed/5 = 0.5.
	c := particleColor(&p, &SimParams{ColorMode: ColorModeVelocity})
	want := mgl32.Vec4{0.5, 0.25, 0.5, 1}
	for i := range want {
		if !approxEq(c[i], want[i], 1e-5) {
			t.Errorf("velocity color = %v, want %v", c, want)
			break
		}
	}

	// Distance heatmap measures from the origin: n = 25/50 = 0.5.
	c = particleColor(&p, &SimParams{ColorMode: ColorModeDistance, MaxColorDist: 50})
	want = mgl32.Vec4{0.5, 0, 0.5, 1}
	for i := range want {
		if !approxEq(c[i], want[i], 1e-5) {
			t.Errorf("distance color = %v, want %v", c, want)
			break
		}
	}

	// Original mode restores the spawn color.
	if c = particleColor(&p, &SimParams{ColorMode: ColorModeOriginal}); c != spawn {
		t.Errorf("original color = %v, want spawn %v", c, spawn)
	}
}

func TestColorModeSaturation(t *testing.T) {
	p := Particle{Pos: mgl32.Vec3{500, 0, 0}, Vel: mgl32.Vec3{100, 0, 0}}

	c := particleColor(&p, &SimParams{ColorMode: ColorModeVelocity})
	if c != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("saturated velocity color = %v, want red", c)
	}

	c = particleColor(&p, &SimParams{ColorMode: ColorModeDistance, MaxColorDist: 50})
	if c != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("saturated distance color = %v, want red", c)
	}

	// Tiny MaxColorDist is clamped rather than dividing by zero.
	c = particleColor(&p, &SimParams{ColorMode: ColorModeDistance, MaxColorDist: 0})
	if c != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("zero MaxColorDist color = %v, want clamped red", c)
	}
}

func TestResizeGrowPreservesPrefix(t *testing.T) {
	s := newHostCPU(t, 100, Hollow)

	// Advance so the live state diverges from a fresh generation.
	params := SimParams{DeltaTime: 1, Gravity: 1, Damping: 0.99}
	for i := 0; i < 5; i++ {
		if err := s.Update(&params); err != nil {
			t.Fatal(err)
		}
	}
	advanced := make([]Particle, 100)
	copy(advanced, s.particles[:100])

	if err := s.Resize(200, Hollow); err != nil {
		t.Fatal(err)
	}
	if s.ParticleCount() != 200 {
		t.Fatalf("count = %d, want 200", s.ParticleCount())
	}
	for i := range advanced {
		if s.particles[i] != advanced[i] {
			t.Fatalf("grow disturbed advanced particle %d", i)
		}
	}
	// The appended tail matches a fresh generation at the new count.
	fresh := Generate(200, Hollow)
	for i := 100; i < 200; i++ {
		if s.particles[i] != fresh[i] {
			t.Fatalf("appended particle %d = %+v, want %+v", i, s.particles[i], fresh[i])
		}
	}
}

func TestResizeShrinkKeepsStorage(t *testing.T) {
	s := newHostCPU(t, 100, Hollow)
	if err := s.Resize(10, Hollow); err != nil {
		t.Fatal(err)
	}
	if s.ParticleCount() != 10 {
		t.Fatalf("count = %d, want 10", s.ParticleCount())
	}
	if len(s.particles) < 100 {
		t.Errorf("shrink dropped storage: len = %d", len(s.particles))
	}
}

func TestResizeModeSwitchRegenerates(t *testing.T) {
	s := newHostCPU(t, 50, Hollow)
	params := SimParams{DeltaTime: 1, Gravity: 1, Damping: 0.99}
	if err := s.Update(&params); err != nil {
		t.Fatal(err)
	}

	if err := s.Resize(50, Filled); err != nil {
		t.Fatal(err)
	}
	if s.Mode() != Filled {
		t.Fatalf("mode = %v, want Filled", s.Mode())
	}
	fresh := Generate(50, Filled)
	for i := range fresh {
		if s.particles[i] != fresh[i] {
			t.Fatalf("mode switch particle %d does not match fresh generation", i)
		}
	}
}

func TestResizeZeroThenGrow(t *testing.T) {
	s := newHostCPU(t, 10, Hollow)
	if err := s.Resize(0, Hollow); err != nil {
		t.Fatal(err)
	}
	if s.ParticleCount() != 0 {
		t.Fatalf("count = %d, want 0", s.ParticleCount())
	}

	// An empty simulation updates as a no-op.
	params := SimParams{DeltaTime: 1, Damping: 0.99}
	if err := s.Update(&params); err != nil {
		t.Fatal(err)
	}

	if err := s.Resize(100, Filled); err != nil {
		t.Fatal(err)
	}
	const eps = 1e-3
	for i, p := range s.particles[:100] {
		if r := p.Pos.Len(); r > SphereRadius+eps {
			t.Fatalf("particle %d at radius %v after regrow", i, r)
		}
	}
}

func TestResizeRejectsOutOfRange(t *testing.T) {
	s := newHostCPU(t, 10, Hollow)
	if err := s.Resize(-1, Hollow); err == nil {
		t.Error("Resize(-1) succeeded")
	}
	if err := s.Resize(MaxParticles+1, Hollow); err == nil {
		t.Error("Resize(MaxParticles+1) succeeded")
	}
	if s.ParticleCount() != 10 {
		t.Errorf("count changed after rejected resize: %d", s.ParticleCount())
	}
}

func TestResetRestoresFreshState(t *testing.T) {
	s := newHostCPU(t, 100, Filled)
	params := SimParams{DeltaTime: 1, Gravity: 5, Damping: 0.99}
	for i := 0; i < 10; i++ {
		if err := s.Update(&params); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Reset(Filled); err != nil {
		t.Fatal(err)
	}
	fresh := Generate(100, Filled)
	for i := range fresh {
		if s.particles[i] != fresh[i] {
			t.Fatalf("reset particle %d = %+v, want %+v", i, s.particles[i], fresh[i])
		}
	}
}

func TestPauseSkipsUpdate(t *testing.T) {
	s := newHostCPU(t, 10, Hollow)
	s.SetPaused(true)
	if !s.Paused() {
		t.Fatal("Paused() = false after SetPaused(true)")
	}

	before := make([]Particle, 10)
	copy(before, s.particles)
	params := SimParams{DeltaTime: 1, Gravity: 100, Damping: 0.5}
	if err := s.Update(&params); err != nil {
		t.Fatal(err)
	}
	for i := range before {
		if s.particles[i] != before[i] {
			t.Fatalf("paused update mutated particle %d", i)
		}
	}

	s.SetPaused(false)
	if err := s.Update(&params); err != nil {
		t.Fatal(err)
	}
	if s.particles[0] == before[0] {
		t.Error("unpaused update did not advance")
	}
}

func TestHostOnlyHasNoBuffer(t *testing.T) {
	s := newHostCPU(t, 10, Hollow)
	if s.ParticleBuffer() != nil {
		t.Error("host-only simulation returned a particle buffer")
	}
	if s.Method() != MethodCPU {
		t.Errorf("Method() = %v, want MethodCPU", s.Method())
	}
}
