package particles

import (
	"errors"
	"testing"
)

func TestNewRejectsCountOutOfRange(t *testing.T) {
	for _, count := range []int{-1, MaxParticles + 1} {
		_, err := New(nil, Config{Method: MethodCPU, Count: count})
		if !errors.Is(err, ErrCountOutOfRange) {
			t.Errorf("New(count=%d) error = %v, want ErrCountOutOfRange", count, err)
		}
	}
}

func TestNewGPUMethodsRequireDevice(t *testing.T) {
	for _, m := range []Method{MethodCompute, MethodTransformFeedback, MethodFragment} {
		_, err := New(nil, Config{Method: m, Count: 10})
		if !errors.Is(err, ErrDeviceRequired) {
			t.Errorf("New(%s, nil device) error = %v, want ErrDeviceRequired", m, err)
		}
	}
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	_, err := New(nil, Config{Method: Method(99), Count: 10})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("error = %v, want ErrUnknownMethod", err)
	}
}

func TestNewCPUHostOnly(t *testing.T) {
	s, err := New(nil, Config{Method: MethodCPU, Count: 100, Mode: Filled})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if s.ParticleCount() != 100 {
		t.Errorf("count = %d, want 100", s.ParticleCount())
	}
	if s.Mode() != Filled {
		t.Errorf("mode = %v, want Filled", s.Mode())
	}
	if s.ParticleBuffer() != nil {
		t.Error("host-only simulation has a particle buffer")
	}
}
