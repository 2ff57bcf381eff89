package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func vecNear(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < eps
}

func TestNewDefaults(t *testing.T) {
	c := New()

	if !vecNear(c.Pos, mgl32.Vec3{0, 0, 100}) {
		t.Errorf("Pos = %v, want (0, 0, 100)", c.Pos)
	}
	if math.Abs(float64(c.Yaw)+math.Pi/2) > eps {
		t.Errorf("Yaw = %v, want -pi/2", c.Yaw)
	}
	if c.Pitch != 0 {
		t.Errorf("Pitch = %v, want 0", c.Pitch)
	}
	if c.Far <= c.Near {
		t.Errorf("Far (%v) must exceed Near (%v)", c.Far, c.Near)
	}
}

func TestForward_DefaultLooksDownNegativeZ(t *testing.T) {
	c := New()

	fwd := c.Forward()
	if !vecNear(fwd, mgl32.Vec3{0, 0, -1}) {
		t.Errorf("Forward() = %v, want (0, 0, -1)", fwd)
	}
}

func TestRight_IsOrthogonalToForward(t *testing.T) {
	c := New()
	c.Rotate(123, -45)

	fwd := c.Forward()
	right := c.Right()
	if dot := fwd.Dot(right); math.Abs(float64(dot)) > eps {
		t.Errorf("Forward . Right = %v, want 0", dot)
	}
	if math.Abs(float64(right.Len()-1)) > eps {
		t.Errorf("Right length = %v, want 1", right.Len())
	}
}

func TestRotate_ClampsPitch(t *testing.T) {
	c := New()

	// A huge downward drag must not flip the camera.
	c.Rotate(0, -1e6)
	if c.Pitch > float32(math.Pi/2) {
		t.Errorf("Pitch = %v, exceeds pi/2", c.Pitch)
	}
	limit := float32(math.Pi/2 - 0.01)
	if c.Pitch != limit {
		t.Errorf("Pitch = %v, want clamp at %v", c.Pitch, limit)
	}

	c.Rotate(0, 1e6)
	if c.Pitch != -limit {
		t.Errorf("Pitch = %v, want clamp at %v", c.Pitch, -limit)
	}
}

func TestMove_ForwardAndBack(t *testing.T) {
	c := New()

	c.Move(MoveForward, 1)
	want := mgl32.Vec3{0, 0, 100 - c.Speed}
	if !vecNear(c.Pos, want) {
		t.Errorf("after MoveForward: Pos = %v, want %v", c.Pos, want)
	}

	c.Move(MoveBackward, 1)
	if !vecNear(c.Pos, mgl32.Vec3{0, 0, 100}) {
		t.Errorf("after MoveBackward: Pos = %v, want (0, 0, 100)", c.Pos)
	}
}

func TestMove_OppositeDirectionsCancel(t *testing.T) {
	c := New()
	start := c.Pos

	c.Move(MoveForward|MoveBackward|MoveLeft|MoveRight|MoveUp|MoveDown, 0.5)
	if !vecNear(c.Pos, start) {
		t.Errorf("opposing moves: Pos = %v, want unchanged %v", c.Pos, start)
	}
}

func TestMove_VerticalIgnoresPitch(t *testing.T) {
	c := New()
	c.Rotate(0, -500) // look down

	c.Move(MoveUp, 1)
	want := mgl32.Vec3{0, c.Speed, 100}
	if !vecNear(c.Pos, want) {
		t.Errorf("MoveUp while pitched: Pos = %v, want %v", c.Pos, want)
	}
}

func TestViewProj_OriginProjectsToCenter(t *testing.T) {
	c := New()

	vp := c.ViewProj(16.0 / 9.0)
	clip := vp.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if clip[3] <= 0 {
		t.Fatalf("origin has w = %v, want > 0 (in front of camera)", clip[3])
	}
	ndcX := clip[0] / clip[3]
	ndcY := clip[1] / clip[3]
	if math.Abs(float64(ndcX)) > eps || math.Abs(float64(ndcY)) > eps {
		t.Errorf("origin projects to NDC (%v, %v), want (0, 0)", ndcX, ndcY)
	}
}

func TestUniform_Layout(t *testing.T) {
	c := New()

	buf := c.Uniform(1)
	if len(buf) != UniformSize {
		t.Fatalf("Uniform length = %d, want %d", len(buf), UniformSize)
	}

	vp := c.ViewProj(1)
	for i := 0; i < 16; i++ {
		got := math.Float32frombits(leU32(buf[i*4:]))
		if got != vp[i] {
			t.Fatalf("matrix element %d = %v, want %v", i, got, vp[i])
		}
	}
	if eye := math.Float32frombits(leU32(buf[72:])); eye != 100 {
		t.Errorf("eye.z = %v, want 100", eye)
	}
	if w := math.Float32frombits(leU32(buf[76:])); w != 1 {
		t.Errorf("eye.w = %v, want 1", w)
	}
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
