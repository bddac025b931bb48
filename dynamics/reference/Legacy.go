package reference

import (
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/integrate"
)

// LegacyDIP wraps DIP behind the older Step-only dialect using a fixed
// internal RK4 sub-integrator: a model that was always Step-only, never
// exposing a derivative, the kind compat.LegacyToIntegrator bridges into
// the integrator-style contract.
type LegacyDIP struct {
	Plant DIP
}

var _ dynamics.LegacyModel = LegacyDIP{}

// Step advances Plant by dt using a classic RK4 sub-integrator.
func (l LegacyDIP) Step(x, u mat.Vector, dt float64) (mat.Vector, error) {
	return (integrate.RK4{}).Step(l.Plant, 0, x, u, dt)
}

// Linearized returns the small-angle (theta1, theta2 ~ 0) state-space
// linearization of Plant about the upright equilibrium, for use with
// integrate.ZeroOrderHold.
type Linearized struct {
	Plant DIP
}

var _ integrate.LinearModel = Linearized{}
var _ dynamics.Model = Linearized{}

// StateSpace returns the (A, B) pair of the plant linearized about
// x = 0 (cart centered, both links upright, zero velocity).
func (l Linearized) StateSpace() (a, b *mat.Dense) {
	mCart, m1, m2 := l.Plant.CartMass, l.Plant.Mass1, l.Plant.Mass2
	l1, l2 := l.Plant.Length1, l.Plant.Length2
	lc1, lc2 := l1/2, l2/2
	i1, i2 := l.Plant.Inertia1, l.Plant.Inertia2
	g := l.Plant.Gravity

	mass := mat.NewDense(3, 3, []float64{
		mCart + m1 + m2, m1*lc1 + m2*l1, m2 * lc2,
		m1*lc1 + m2*l1, m1*lc1*lc1 + m2*l1*l1 + i1, m2 * l1 * lc2,
		m2 * lc2, m2 * l1 * lc2, m2*lc2*lc2 + i2,
	})

	stiffness := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		0, -(m1*lc1 + m2*l1) * g, 0,
		0, 0, -m2 * lc2 * g,
	})

	var massInv mat.Dense
	if err := massInv.Inverse(mass); err != nil {
		// Singular only for a degenerate (zero-mass) configuration; fall
		// back to an uncoupled identity so StateSpace never panics.
		massInv = *mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}

	var accelBlock mat.Dense
	accelBlock.Mul(&massInv, stiffness)

	a = mat.NewDense(6, 6, nil)
	a.Set(0, 3, 1)
	a.Set(1, 4, 1)
	a.Set(2, 5, 1)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a.Set(3+i, j, accelBlock.At(i, j))
		}
	}

	bAccel := mat.NewVecDense(3, nil)
	bAccel.MulVec(&massInv, mat.NewVecDense(3, []float64{1, 0, 0}))

	b = mat.NewDense(6, 1, nil)
	for i := 0; i < 3; i++ {
		b.Set(3+i, 0, bAccel.AtVec(i))
	}

	return a, b
}

// F linearizes Plant about the upright equilibrium and evaluates the
// linear model at (x, u), satisfying dynamics.Model for comparison against
// the full nonlinear plant in tests.
func (l Linearized) F(t float64, x, u mat.Vector) (mat.Vector, error) {
	a, b := l.StateSpace()
	deriv := mat.NewVecDense(6, nil)
	deriv.MulVec(a, x)
	bu := mat.NewVecDense(6, nil)
	bu.MulVec(b, u)
	deriv.AddVec(deriv, bu)
	return deriv, nil
}
