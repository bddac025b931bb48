// Package reference provides a concrete double-inverted-pendulum-on-cart
// plant used by this repository's own tests, including the root-level
// integration tests that drive it through the compat shim, the
// orchestrators, the batch simulator, and the cost/robust evaluators. It is
// not part of the public dynamics contract: CLI entry points are out of
// scope, so this package exists purely to exercise dynamics.Model,
// dynamics.LegacyModel, and integrate.LinearModel with a physically
// meaningful system, the way the acrobot two-link pendulum exercises this
// codebase's original control environments.
package reference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
)

// State layout: [x, theta1, theta2, xdot, theta1dot, theta2dot]. x is cart
// position, theta1/theta2 are the first and second pendulum link angles
// measured from the upward vertical.
const stateDim = 6

// DIP is a full-fidelity double-inverted-pendulum-on-cart plant: a cart of
// mass M on a frictionless rail carries two pin-jointed pendulum links of
// mass m1, m2 and length l1, l2, actuated by a single horizontal force on
// the cart.
type DIP struct {
	CartMass   float64
	Mass1      float64
	Mass2      float64
	Length1    float64
	Length2    float64
	Inertia1   float64
	Inertia2   float64
	Gravity    float64
	CartDamp   float64
	Joint1Damp float64
	Joint2Damp float64
}

var (
	_ dynamics.Model       = DIP{}
	_ dynamics.StateDimer  = DIP{}
)

// NewDefault returns a DIP with physically plausible nominal parameters:
// a 1 kg cart carrying two 0.1 kg, 0.3 m uniform links.
func NewDefault() DIP {
	linkInertia := func(mass, length float64) float64 {
		return mass * length * length / 12
	}
	return DIP{
		CartMass: 1.0,
		Mass1:    0.1, Mass2: 0.1,
		Length1: 0.3, Length2: 0.3,
		Inertia1: linkInertia(0.1, 0.3), Inertia2: linkInertia(0.1, 0.3),
		Gravity: 9.81,
	}
}

// StateDim reports the plant's 6-dimensional state.
func (d DIP) StateDim() int { return stateDim }

// F computes the time derivative of the augmented state under a single
// scalar horizontal force u applied to the cart, via the standard
// Lagrangian mass-matrix formulation D(q) qddot + C(q, qdot) qdot + G(q) = Bu,
// solved for qddot by direct 3x3 linear solve.
func (d DIP) F(t float64, x, u mat.Vector) (mat.Vector, error) {
	if x.Len() != stateDim {
		return nil, fmt.Errorf("DIP.F: want state length %d, have %d", stateDim, x.Len())
	}

	theta1 := x.AtVec(1)
	theta2 := x.AtVec(2)
	xdot := x.AtVec(3)
	theta1dot := x.AtVec(4)
	theta2dot := x.AtVec(5)
	force := u.AtVec(0)

	mCart, m1, m2 := d.CartMass, d.Mass1, d.Mass2
	l1, l2 := d.Length1, d.Length2
	lc1, lc2 := l1/2, l2/2
	i1, i2 := d.Inertia1, d.Inertia2
	g := d.Gravity

	s1, c1 := math.Sincos(theta1)
	s2, c2 := math.Sincos(theta2)
	s12, c12 := math.Sincos(theta1 - theta2)

	mass := mat.NewDense(3, 3, nil)
	mass.Set(0, 0, mCart+m1+m2)
	mass.Set(0, 1, (m1*lc1+m2*l1)*c1)
	mass.Set(0, 2, m2*lc2*c2)
	mass.Set(1, 0, mass.At(0, 1))
	mass.Set(1, 1, (m1*lc1*lc1+m2*l1*l1)+i1)
	mass.Set(1, 2, m2*l1*lc2*c12)
	mass.Set(2, 0, mass.At(0, 2))
	mass.Set(2, 1, mass.At(1, 2))
	mass.Set(2, 2, m2*lc2*lc2+i2)

	rhs := mat.NewVecDense(3, []float64{
		force + (m1*lc1+m2*l1)*theta1dot*theta1dot*s1 + m2*lc2*theta2dot*theta2dot*s2 - d.CartDamp*xdot,
		-m2*l1*lc2*theta2dot*theta2dot*s12 - (m1*lc1+m2*l1)*g*s1 - d.Joint1Damp*theta1dot,
		m2*l1*lc2*theta1dot*theta1dot*s12 - m2*lc2*g*s2 - d.Joint2Damp*theta2dot,
	})

	var qddot mat.VecDense
	if err := qddot.SolveVec(mass, rhs); err != nil {
		return nil, fmt.Errorf("DIP.F: mass matrix solve failed: %w", err)
	}

	deriv := mat.NewVecDense(stateDim, []float64{
		xdot, theta1dot, theta2dot,
		qddot.AtVec(0), qddot.AtVec(1), qddot.AtVec(2),
	})
	return deriv, nil
}

// Energy returns the plant's total mechanical energy (kinetic energy plus
// potential energy measured relative to the upright equilibrium) at state
// x, for use as a safety.EnergyFunc: it is minimal when both links are
// upright and at rest, and grows as either link falls away from vertical,
// so an EnergyCap guard built from it trips when the pendulum is falling
// rather than when it is balanced.
func (d DIP) Energy(x mat.Vector) float64 {
	theta1 := x.AtVec(1)
	theta2 := x.AtVec(2)
	xdot := x.AtVec(3)
	theta1dot := x.AtVec(4)
	theta2dot := x.AtVec(5)

	lc1, lc2 := d.Length1/2, d.Length2/2

	v1x := xdot + lc1*theta1dot*math.Cos(theta1)
	v1y := -lc1 * theta1dot * math.Sin(theta1)
	v2x := xdot + d.Length1*theta1dot*math.Cos(theta1) + lc2*theta2dot*math.Cos(theta2)
	v2y := -d.Length1*theta1dot*math.Sin(theta1) - lc2*theta2dot*math.Sin(theta2)

	kinetic := 0.5*d.CartMass*xdot*xdot +
		0.5*d.Mass1*(v1x*v1x+v1y*v1y) + 0.5*d.Inertia1*theta1dot*theta1dot +
		0.5*d.Mass2*(v2x*v2x+v2y*v2y) + 0.5*d.Inertia2*theta2dot*theta2dot

	potential := d.Mass1*d.Gravity*lc1*(1-math.Cos(theta1)) +
		d.Mass2*d.Gravity*(d.Length1*(1-math.Cos(theta1))+lc2*(1-math.Cos(theta2)))

	return kinetic + potential
}
