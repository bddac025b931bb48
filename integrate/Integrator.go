// Package integrate implements the numerical integrators (C3): fixed-step
// Euler/RK family, the embedded Dormand-Prince 4(5) adaptive integrator, and
// zero-order-hold exact discretization for linear models. A Factory
// resolves an integrator by string alias, mirroring the registry pattern
// used throughout this codebase for pluggable strategies.
package integrate

import (
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
)

// Stats reports per-step diagnostics an integrator may accumulate. Fixed-
// step integrators leave Rejected/LastError at zero.
type Stats struct {
	Rejected  int
	LastError float64
}

// Integrator advances a dynamics.Model's state by one step of size dt.
// Adaptive integrators may take smaller internal substeps but always
// return the state at t+dt.
type Integrator interface {
	// Step returns the state at t+dt given the state x at t under control u.
	Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error)

	// Order is the integrator's formal order of accuracy.
	Order() int

	// Adaptive reports whether the integrator internally adjusts its
	// step size to meet an error tolerance.
	Adaptive() bool

	// Stats returns the integrator's accumulated diagnostics.
	Stats() Stats
}

// addScaled returns a+scale*b as a new *mat.VecDense.
func addScaled(a, b mat.Vector, scale float64) *mat.VecDense {
	n := a.Len()
	out := mat.NewVecDense(n, nil)
	out.AddScaledVec(a, scale, b)
	return out
}
