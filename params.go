package particles

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorMode selects how a particle's display color is derived each step.
type ColorMode uint32

const (
	// ColorModeOriginal restores the particle's spawn color.
	ColorModeOriginal ColorMode = iota

	// ColorModeVelocity maps speed to a blue-green-red ramp,
	// saturating at colorSpeedScale units per second.
	ColorModeVelocity

	// ColorModeDistance maps distance from the origin to a blue-to-red
	// ramp, normalized by SimParams.MaxColorDist.
	ColorModeDistance
)

// colorSpeedScale is the speed at which ColorModeVelocity saturates.
const colorSpeedScale = 5.0

// SimParamsSize is the byte size of the encoded parameter block.
const SimParamsSize = 48

// Default control values. Damping below 1 bleeds velocity every step so
// the system settles instead of accumulating energy.
const (
	DefaultDamping      = 0.99
	DefaultMouseForce   = 5.0
	DefaultMouseRadius  = 10.0
	DefaultMaxColorDist = 50.0
)

// SimParams carries the per-step scalars shared by every strategy. It is
// rebuilt from live input state each frame and uploaded verbatim to a GPU
// uniform; Encode's field order and padding must match the Params struct
// declared in each shader byte-for-byte.
type SimParams struct {
	DeltaTime     float32
	Gravity       float32
	ColorMode     ColorMode
	MouseForce    float32
	MouseRadius   float32
	MouseDragging bool
	Damping       float32
	MaxColorDist  float32
	MousePos      mgl32.Vec3
}

// DefaultSimParams returns a parameter block with the stock control
// values and no active forces.
func DefaultSimParams() SimParams {
	return SimParams{
		Damping:      DefaultDamping,
		MouseForce:   DefaultMouseForce,
		MouseRadius:  DefaultMouseRadius,
		MaxColorDist: DefaultMaxColorDist,
	}
}

// Encode serializes the parameter block into its 48-byte GPU wire layout:
// delta_time @0, gravity @4, color_mode @8, mouse_force @12,
// mouse_radius @16, is_dragging @20, damping @24, max_color_dist @28,
// mouse_pos @32, pad @44.
func (p *SimParams) Encode() []byte {
	buf := make([]byte, SimParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], math.Float32bits(p.DeltaTime))
	le.PutUint32(buf[4:8], math.Float32bits(p.Gravity))
	le.PutUint32(buf[8:12], uint32(p.ColorMode))
	le.PutUint32(buf[12:16], math.Float32bits(p.MouseForce))
	le.PutUint32(buf[16:20], math.Float32bits(p.MouseRadius))
	dragging := uint32(0)
	if p.MouseDragging {
		dragging = 1
	}
	le.PutUint32(buf[20:24], dragging)
	le.PutUint32(buf[24:28], math.Float32bits(p.Damping))
	le.PutUint32(buf[28:32], math.Float32bits(p.MaxColorDist))
	le.PutUint32(buf[32:36], math.Float32bits(p.MousePos[0]))
	le.PutUint32(buf[36:40], math.Float32bits(p.MousePos[1]))
	le.PutUint32(buf[40:44], math.Float32bits(p.MousePos[2]))
	le.PutUint32(buf[44:48], 0) // pad
	return buf
}
