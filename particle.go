package particles

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Particle byte layout. Each record occupies ParticleStride bytes with
// vec3 fields padded to 16-byte alignment as required by GPU buffer rules.
// The renderer and every shader consume this exact layout; the offsets are
// part of the wire contract, not incidental.
const (
	// ParticleStride is the byte size of one particle record.
	ParticleStride = 64

	// ParticlePosOffset is the byte offset of the position vec3.
	ParticlePosOffset = 0

	// ParticleVelOffset is the byte offset of the velocity vec3.
	ParticleVelOffset = 16

	// ParticleColorOffset is the byte offset of the display color vec4.
	ParticleColorOffset = 32

	// ParticleInitialColorOffset is the byte offset of the spawn color vec4.
	ParticleInitialColorOffset = 48
)

// Particle is the unit of simulation state: position and velocity drive
// the physics, Color is what the renderer draws, and InitialColor keeps
// the spawn color so ColorModeOriginal can restore it after a heatmap
// mode rewrote Color.
type Particle struct {
	Pos          mgl32.Vec3
	Vel          mgl32.Vec3
	Color        mgl32.Vec4
	InitialColor mgl32.Vec4
}

// encodeTo writes the particle into buf using the GPU wire layout.
// buf must be at least ParticleStride bytes.
func (p *Particle) encodeTo(buf []byte) {
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], math.Float32bits(p.Pos[0]))
	le.PutUint32(buf[4:8], math.Float32bits(p.Pos[1]))
	le.PutUint32(buf[8:12], math.Float32bits(p.Pos[2]))
	le.PutUint32(buf[12:16], 0) // pad
	le.PutUint32(buf[16:20], math.Float32bits(p.Vel[0]))
	le.PutUint32(buf[20:24], math.Float32bits(p.Vel[1]))
	le.PutUint32(buf[24:28], math.Float32bits(p.Vel[2]))
	le.PutUint32(buf[28:32], 0) // pad
	le.PutUint32(buf[32:36], math.Float32bits(p.Color[0]))
	le.PutUint32(buf[36:40], math.Float32bits(p.Color[1]))
	le.PutUint32(buf[40:44], math.Float32bits(p.Color[2]))
	le.PutUint32(buf[44:48], math.Float32bits(p.Color[3]))
	le.PutUint32(buf[48:52], math.Float32bits(p.InitialColor[0]))
	le.PutUint32(buf[52:56], math.Float32bits(p.InitialColor[1]))
	le.PutUint32(buf[56:60], math.Float32bits(p.InitialColor[2]))
	le.PutUint32(buf[60:64], math.Float32bits(p.InitialColor[3]))
}

// decodeParticle reads one particle record from buf.
func decodeParticle(buf []byte) Particle {
	le := binary.LittleEndian
	f := func(off int) float32 { return math.Float32frombits(le.Uint32(buf[off : off+4])) }
	return Particle{
		Pos:          mgl32.Vec3{f(0), f(4), f(8)},
		Vel:          mgl32.Vec3{f(16), f(20), f(24)},
		Color:        mgl32.Vec4{f(32), f(36), f(40), f(44)},
		InitialColor: mgl32.Vec4{f(48), f(52), f(56), f(60)},
	}
}

// EncodeParticles serializes particles into the GPU wire layout.
func EncodeParticles(ps []Particle) []byte {
	buf := make([]byte, len(ps)*ParticleStride)
	encodeParticlesTo(buf, ps)
	return buf
}

// encodeParticlesTo serializes particles into buf, which must hold at
// least len(ps)*ParticleStride bytes.
func encodeParticlesTo(buf []byte, ps []Particle) {
	for i := range ps {
		ps[i].encodeTo(buf[i*ParticleStride:])
	}
}
