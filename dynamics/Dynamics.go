// Package dynamics declares the external dynamics-model contract (C4):
// the kernel never prescribes a plant, only the shape a plant must expose.
// A model speaks one of two dialects. Derivative models expose F and are
// preferred wherever available; Legacy models expose only Step and are
// bridged through compat.LegacyToIntegrator. Neither dialect is implemented here — see
// dynamics/reference for a concrete plant used by this repo's own tests.
package dynamics

import "gonum.org/v1/gonum/mat"

// Model is the integrator-style dynamics contract: F returns the time
// derivative of x under control u at time t. An error (or a non-finite
// return) is treated as a failed step by every caller.
type Model interface {
	F(t float64, x, u mat.Vector) (mat.Vector, error)
}

// LegacyModel is the older dynamics contract: Step returns the next state
// directly, without exposing a derivative. Orchestrators that need an
// integrator-style contract must bridge a LegacyModel through
// compat.LegacyToIntegrator first.
type LegacyModel interface {
	Step(x, u mat.Vector, dt float64) (mat.Vector, error)
}

// StateDimer is an optional introspection capability: a model may report
// its native state dimension so callers (e.g. the batch simulator) can
// size initial states without simulating a probe step.
type StateDimer interface {
	StateDim() int
}

// DimOf returns m's declared state dimension and true, or (0, false) if m
// does not implement StateDimer.
func DimOf(m any) (int, bool) {
	if d, ok := m.(StateDimer); ok {
		return d.StateDim(), true
	}
	return 0, false
}
