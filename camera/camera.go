// Package camera provides the free-look perspective camera used by the
// particle renderer: yaw/pitch orientation, WASD-style movement along a
// direction bitmask, and the 80-byte uniform block consumed by the
// point-cloud shader.
package camera

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformSize is the byte size of the camera uniform: a column-major
// mat4 view-projection followed by the eye position as a vec4.
const UniformSize = 80

// Defaults chosen so the full sphere (radius 50 at the origin) fits the
// initial view.
const (
	DefaultFov         = math.Pi / 3
	DefaultNear        = 0.1
	DefaultFar         = 1000.0
	DefaultSpeed       = 50.0
	DefaultSensitivity = 0.003

	// pitchLimit keeps the view direction off the vertical axis so the
	// up vector never degenerates.
	pitchLimit = math.Pi/2 - 0.01
)

// MoveDir is a bitmask of movement directions applied in one Move call.
type MoveDir uint8

const (
	MoveForward MoveDir = 1 << iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

// Camera is a yaw/pitch free-look camera. The zero value is not useful;
// construct with New.
type Camera struct {
	Pos   mgl32.Vec3
	Yaw   float32 // radians, -pi/2 looks along -Z
	Pitch float32 // radians, clamped to +-pitchLimit

	Fov  float32
	Near float32
	Far  float32

	Speed       float32 // world units per second
	Sensitivity float32 // radians per pixel of mouse delta
}

// New returns a camera at (0, 0, 100) looking down -Z toward the origin.
func New() *Camera {
	return &Camera{
		Pos:         mgl32.Vec3{0, 0, 100},
		Yaw:         -math.Pi / 2,
		Pitch:       0,
		Fov:         DefaultFov,
		Near:        DefaultNear,
		Far:         DefaultFar,
		Speed:       DefaultSpeed,
		Sensitivity: DefaultSensitivity,
	}
}

// Forward returns the unit view direction derived from yaw and pitch.
func (c *Camera) Forward() mgl32.Vec3 {
	cy, sy := math.Cos(float64(c.Yaw)), math.Sin(float64(c.Yaw))
	cp, sp := math.Cos(float64(c.Pitch)), math.Sin(float64(c.Pitch))
	return mgl32.Vec3{
		float32(cy * cp),
		float32(sp),
		float32(sy * cp),
	}.Normalize()
}

// Right returns the unit vector to the camera's right.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

// Rotate applies a mouse delta in pixels, scaled by Sensitivity.
// Positive dy looks down; pitch is clamped so the camera never flips.
func (c *Camera) Rotate(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch -= dy * c.Sensitivity
	if c.Pitch > pitchLimit {
		c.Pitch = pitchLimit
	}
	if c.Pitch < -pitchLimit {
		c.Pitch = -pitchLimit
	}
}

// Move translates the camera along every direction set in dirs, scaled
// by Speed and the frame delta. Opposite directions cancel.
func (c *Camera) Move(dirs MoveDir, dt float32) {
	if dirs == 0 || dt == 0 {
		return
	}
	step := c.Speed * dt
	forward := c.Forward()
	right := c.Right()
	if dirs&MoveForward != 0 {
		c.Pos = c.Pos.Add(forward.Mul(step))
	}
	if dirs&MoveBackward != 0 {
		c.Pos = c.Pos.Sub(forward.Mul(step))
	}
	if dirs&MoveRight != 0 {
		c.Pos = c.Pos.Add(right.Mul(step))
	}
	if dirs&MoveLeft != 0 {
		c.Pos = c.Pos.Sub(right.Mul(step))
	}
	if dirs&MoveUp != 0 {
		c.Pos = c.Pos.Add(mgl32.Vec3{0, step, 0})
	}
	if dirs&MoveDown != 0 {
		c.Pos = c.Pos.Sub(mgl32.Vec3{0, step, 0})
	}
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Pos, c.Pos.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

// Projection returns the perspective matrix for the given aspect ratio.
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.Fov, aspect, c.Near, c.Far)
}

// ViewProj returns projection * view, ready for clip-space transforms.
func (c *Camera) ViewProj(aspect float32) mgl32.Mat4 {
	return c.Projection(aspect).Mul4(c.View())
}

// Uniform encodes the camera uniform block: the column-major
// view-projection matrix followed by the eye position padded to vec4.
func (c *Camera) Uniform(aspect float32) []byte {
	buf := make([]byte, UniformSize)
	vp := c.ViewProj(aspect)
	for i, v := range vp {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(c.Pos[0]))
	binary.LittleEndian.PutUint32(buf[68:], math.Float32bits(c.Pos[1]))
	binary.LittleEndian.PutUint32(buf[72:], math.Float32bits(c.Pos[2]))
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(1))
	return buf
}
