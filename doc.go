// Package particles implements a real-time 3D particle simulation with
// interchangeable execution strategies.
//
// A simulation maintains up to one million point particles and advances
// them each frame under gravity, damping, and an optional mouse-driven
// attractor. Four strategies implement the same behavioral contract:
//
//   - [MethodCPU]: data-parallel integration on the host, bulk-uploaded
//     to a GPU-visible buffer every step. Works without a GPU device
//     (host-only mode) and serves as the numeric reference for the
//     GPU strategies.
//   - [MethodCompute]: a compute kernel advancing a storage buffer
//     in place on the device.
//   - [MethodTransformFeedback]: transform-feedback emulation; a
//     vertex-only render pass integrates each particle and scatters the
//     result into the write half of a ping-pong buffer pair.
//   - [MethodFragment]: texture ping-pong fallback for targets without
//     compute or vertex storage writes; particle state lives in
//     floating-point textures advanced by a full-screen fragment pass.
//
// Strategies are constructed through [New] and swapped at runtime by
// rebuilding; [Simulation.Resize] and [Simulation.Reset] manage the
// buffer lifecycle so the renderer never observes a stale handle.
//
// The companion packages render, camera, and app provide the point-cloud
// renderer, the free-flying camera, and the session controller that ties
// input state to per-frame simulation parameters.
//
// By default the package produces no log output. Call [SetLogger] to
// enable structured logging.
package particles
