// Package compat bridges the two dynamics-model dialects (C11): a
// LegacyModel (Step-only) can be driven through integrator-style callers via
// LegacyToIntegrator, and conversely a derivative-only Model can be driven
// through a legacy Step-style caller via IntegratorToLegacy.
package compat

import (
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/simerr"
)

// finiteDiffDelta is the perturbation used to synthesize a derivative from
// a legacy Step method: f(t,x,u) ~= (step(x,u,delta) - x) / delta.
const finiteDiffDelta = 1e-6

// LegacyToIntegrator adapts a dynamics.LegacyModel to the dynamics.Model
// (derivative) contract via a finite-difference probe. On a probe failure
// the derivative is reported as zero rather than propagating the error,
// since a single bad probe should not abort the caller's higher-order
// stage evaluation; the wrapped Step call that actually advances state
// still surfaces errors normally.
type LegacyToIntegrator struct {
	Model dynamics.LegacyModel
}

var _ dynamics.Model = LegacyToIntegrator{}

// F synthesizes the time derivative of Model's state at (t, x, u) by a
// single forward-difference probe of size finiteDiffDelta.
func (l LegacyToIntegrator) F(t float64, x, u mat.Vector) (mat.Vector, error) {
	next, err := l.Model.Step(x, u, finiteDiffDelta)
	if err != nil {
		return mat.NewVecDense(x.Len(), nil), nil
	}

	n := x.Len()
	deriv := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		deriv.SetVec(i, (next.AtVec(i)-x.AtVec(i))/finiteDiffDelta)
	}
	return deriv, nil
}

// IntegratorToLegacy adapts a dynamics.Model (derivative-only) to the
// dynamics.LegacyModel (Step) contract by integrating one step with the
// supplied Integrator. It carries its own clock, which starts at 0, moves
// forward by dt on every successful Step, and is zeroed by Reset.
type IntegratorToLegacy struct {
	Model      dynamics.Model
	Integrator interface {
		Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error)
	}
	clock float64
}

// Step advances Model by dt starting from the adapter's internally tracked
// clock, which begins at 0 and moves forward by dt on every call.
func (a *IntegratorToLegacy) Step(x, u mat.Vector, dt float64) (mat.Vector, error) {
	next, err := a.Integrator.Step(a.Model, a.clock, x, u, dt)
	if err != nil {
		return nil, simerr.NewNumericFailure("IntegratorToLegacy.Step", 0, "%v", err)
	}
	a.clock += dt
	return next, nil
}

// Reset zeroes the adapter's internal clock, for reuse across rollouts.
func (a *IntegratorToLegacy) Reset() { a.clock = 0 }
