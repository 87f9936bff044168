package driver

import (
	"errors"
	"math"
	"sync"
)

// ErrSimulatedFault is returned by the simulated driver for injected failures.
var ErrSimulatedFault = errors.New("simulated sensor fault")

// Sim is a deterministic in-memory driver for tests and hardware-free runs.
// It produces a 1g gravity baseline on Z with a small sine vibration on X.
type Sim struct {
	mu       sync.Mutex
	phase    float64
	failures int
	reinits  int
}

// NewSim returns a simulated driver.
func NewSim() *Sim {
	return &Sim{}
}

// FailNext makes the next n reads fail with ErrSimulatedFault.
func (s *Sim) FailNext(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

// ReadRaw returns the next simulated triplet.
func (s *Sim) ReadRaw() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return Reading{}, ErrSimulatedFault
	}

	// ~0.05g vibration riding on gravity.
	x := 0.05 * math.Sin(s.phase)
	s.phase += 2 * math.Pi / 80

	return Reading{
		X: int16(x * Sensitivity),
		Y: 0,
		Z: int16(Sensitivity),
	}, nil
}

// Reinit records the call; the simulated sensor holds no device state.
func (s *Sim) Reinit() error {
	s.mu.Lock()
	s.reinits++
	s.mu.Unlock()
	return nil
}

// Reinits returns how many times Reinit was called.
func (s *Sim) Reinits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reinits
}

// Close is a no-op.
func (s *Sim) Close() error {
	return nil
}
