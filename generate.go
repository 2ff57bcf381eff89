package particles

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// GenerationMode selects the spatial distribution used to seed initial
// particle positions.
type GenerationMode uint8

const (
	// Hollow places particles on the sphere shell along a golden-angle
	// spiral. Fully deterministic: identical counts produce bit-identical
	// particle sets.
	Hollow GenerationMode = iota

	// Filled samples uniformly inside the sphere volume with a
	// fixed-seed generator, so repeated calls are reproducible too.
	Filled
)

// String returns the mode name as used in configuration files.
func (m GenerationMode) String() string {
	switch m {
	case Hollow:
		return "hollow"
	case Filled:
		return "filled"
	default:
		return "unknown"
	}
}

// SphereRadius is the radius of the generated particle sphere.
const SphereRadius = 50.0

// filledSeed fixes the Filled mode RNG so resets are reproducible and
// backends can be compared against the same initial state.
const filledSeed = 69

// goldenAngle is pi * (3 - sqrt(5)), the low-discrepancy increment that
// spreads shell points evenly without randomness.
var goldenAngle = math.Pi * (3.0 - math.Sqrt(5.0))

// Generate produces the initial particle set for the given count and
// mode. Velocity starts at zero; the spawn color encodes the normalized
// position and is stored in both Color and InitialColor.
//
// count == 0 yields an empty slice. count == 1 in Hollow mode places the
// single particle at the top pole rather than dividing by zero.
func Generate(count int, mode GenerationMode) []Particle {
	if count <= 0 {
		return nil
	}

	ps := make([]Particle, count)
	switch mode {
	case Filled:
		rng := rand.New(rand.NewSource(filledSeed))
		for i := range ps {
			r := SphereRadius * float32(math.Cbrt(float64(rng.Float32())))
			theta := rng.Float64() * 2 * math.Pi
			phi := math.Acos(float64(rng.Float32()*2 - 1))

			sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
			pos := mgl32.Vec3{
				r * float32(sinPhi*math.Cos(theta)),
				r * float32(cosPhi),
				r * float32(sinPhi*math.Sin(theta)),
			}
			ps[i] = newParticle(pos)
		}
	default: // Hollow
		denom := count - 1
		if denom < 1 {
			denom = 1
		}
		for i := range ps {
			y := 1 - (float64(i)/float64(denom))*2 // 1 down to -1
			radiusAtY := math.Sqrt(1 - y*y)
			theta := goldenAngle * float64(i)

			pos := mgl32.Vec3{
				float32(math.Cos(theta) * radiusAtY),
				float32(y),
				float32(math.Sin(theta) * radiusAtY),
			}.Mul(SphereRadius)
			ps[i] = newParticle(pos)
		}
	}
	return ps
}

// newParticle builds a particle at pos with zero velocity and a spawn
// color derived from the normalized position.
func newParticle(pos mgl32.Vec3) Particle {
	norm := pos.Mul(1.0 / SphereRadius).Add(mgl32.Vec3{1, 1, 1}).Mul(0.5)
	color := mgl32.Vec4{norm[0], norm[1], norm[2], 1}
	return Particle{
		Pos:          pos,
		Color:        color,
		InitialColor: color,
	}
}
