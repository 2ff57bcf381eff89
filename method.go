package particles

import "fmt"

// Method identifies one of the interchangeable simulation strategies.
// Exactly one is active per simulation; switching methods rebuilds the
// strategy from scratch, preserving only the particle count, the paused
// flag, and the generation mode.
type Method uint8

const (
	// MethodCPU integrates particles on the host with a work-stealing
	// parallel-for and bulk-uploads the result each step.
	MethodCPU Method = iota

	// MethodCompute advances a GPU storage buffer in place with a
	// compute kernel.
	MethodCompute

	// MethodTransformFeedback emulates transform feedback: a
	// vertex-only render pass integrates each particle and writes the
	// result into the other half of a ping-pong buffer pair.
	MethodTransformFeedback

	// MethodFragment is the most constrained fallback: particle state
	// lives in floating-point textures advanced by a full-screen
	// fragment pass, ping-ponging texture roles.
	MethodFragment
)

// String returns the method name as used in configuration files.
func (m Method) String() string {
	switch m {
	case MethodCPU:
		return "cpu"
	case MethodCompute:
		return "compute"
	case MethodTransformFeedback:
		return "transform-feedback"
	case MethodFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
}

// ParseMethod converts a configuration string into a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "cpu":
		return MethodCPU, nil
	case "compute":
		return MethodCompute, nil
	case "transform-feedback", "feedback":
		return MethodTransformFeedback, nil
	case "fragment":
		return MethodFragment, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// ParseGenerationMode converts a configuration string into a
// GenerationMode.
func ParseGenerationMode(s string) (GenerationMode, error) {
	switch s {
	case "hollow":
		return Hollow, nil
	case "filled":
		return Filled, nil
	default:
		return 0, fmt.Errorf("unknown generation mode %q", s)
	}
}
