package integrate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/simerr"
)

// ForwardEuler is the explicit first-order Euler method: x' = x + dt*f(t,x,u).
type ForwardEuler struct{}

func (ForwardEuler) Order() int      { return 1 }
func (ForwardEuler) Adaptive() bool  { return false }
func (ForwardEuler) Stats() Stats    { return Stats{} }

func (ForwardEuler) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	k1, err := model.F(t, x, u)
	if err != nil {
		return nil, simerr.NewNumericFailure("ForwardEuler.Step", 0, "%v", err)
	}
	return addScaled(x, k1, dt), nil
}

// BackwardEuler is the implicit first-order Euler method, solved by fixed-
// point iteration. A model that does not converge within maxIter iterations
// falls back to a ForwardEuler step rather than failing the rollout.
type BackwardEuler struct {
	Tol     float64
	MaxIter int
}

func (b BackwardEuler) Order() int     { return 1 }
func (b BackwardEuler) Adaptive() bool { return false }
func (b BackwardEuler) Stats() Stats   { return Stats{} }

func (b BackwardEuler) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	tol, maxIter := b.Tol, b.MaxIter
	if tol <= 0 {
		tol = 1e-9
	}
	if maxIter <= 0 {
		maxIter = 25
	}

	guess := x
	f0, err := model.F(t, x, u)
	if err != nil {
		return nil, simerr.NewNumericFailure("BackwardEuler.Step", 0, "%v", err)
	}
	guess = addScaled(x, f0, dt)

	for i := 0; i < maxIter; i++ {
		fNext, err := model.F(t+dt, guess, u)
		if err != nil {
			return (ForwardEuler{}).Step(model, t, x, u, dt)
		}
		next := addScaled(x, fNext, dt)
		if vecDist(next, guess) < tol {
			return next, nil
		}
		guess = next
	}

	// Did not converge: fall back to the explicit method rather than
	// returning a potentially garbage iterate.
	return (ForwardEuler{}).Step(model, t, x, u, dt)
}

func vecDist(a, b mat.Vector) float64 {
	var sum float64
	for i := 0; i < a.Len(); i++ {
		d := a.AtVec(i) - b.AtVec(i)
		sum += d * d
	}
	return math.Sqrt(sum)
}

// RK2 is the explicit midpoint (2nd order Runge-Kutta) method.
type RK2 struct{}

func (RK2) Order() int     { return 2 }
func (RK2) Adaptive() bool { return false }
func (RK2) Stats() Stats   { return Stats{} }

func (RK2) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	k1, err := model.F(t, x, u)
	if err != nil {
		return nil, simerr.NewNumericFailure("RK2.Step", 0, "%v", err)
	}
	xMid := addScaled(x, k1, dt/2)
	k2, err := model.F(t+dt/2, xMid, u)
	if err != nil {
		return nil, simerr.NewNumericFailure("RK2.Step", 0, "%v", err)
	}
	return addScaled(x, k2, dt), nil
}

// RK4 is the classic 4th-order Runge-Kutta method.
type RK4 struct{}

func (RK4) Order() int     { return 4 }
func (RK4) Adaptive() bool { return false }
func (RK4) Stats() Stats   { return Stats{} }

func (RK4) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	const op = "RK4.Step"
	k1, err := model.F(t, x, u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}
	k2, err := model.F(t+dt/2, addScaled(x, k1, dt/2), u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}
	k3, err := model.F(t+dt/2, addScaled(x, k2, dt/2), u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}
	k4, err := model.F(t+dt, addScaled(x, k3, dt), u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}

	n := x.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sum := k1.AtVec(i) + 2*k2.AtVec(i) + 2*k3.AtVec(i) + k4.AtVec(i)
		out.SetVec(i, x.AtVec(i)+dt/6*sum)
	}
	return out, nil
}

// RK38 is the "3/8 rule" 4th-order Runge-Kutta variant, offered as an
// alternative error-constant profile to RK4.
type RK38 struct{}

func (RK38) Order() int     { return 4 }
func (RK38) Adaptive() bool { return false }
func (RK38) Stats() Stats   { return Stats{} }

func (RK38) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	const op = "RK38.Step"
	k1, err := model.F(t, x, u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}
	x2 := addScaled(x, k1, dt/3)
	k2, err := model.F(t+dt/3, x2, u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}

	n := x.Len()
	x3 := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x3.SetVec(i, x.AtVec(i)+dt*(-k1.AtVec(i)/3+k2.AtVec(i)))
	}
	k3, err := model.F(t+2*dt/3, x3, u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}

	x4 := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x4.SetVec(i, x.AtVec(i)+dt*(k1.AtVec(i)-k2.AtVec(i)+k3.AtVec(i)))
	}
	k4, err := model.F(t+dt, x4, u)
	if err != nil {
		return nil, simerr.NewNumericFailure(op, 0, "%v", err)
	}

	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sum := k1.AtVec(i) + 3*k2.AtVec(i) + 3*k3.AtVec(i) + k4.AtVec(i)
		out.SetVec(i, x.AtVec(i)+dt/8*sum)
	}
	return out, nil
}
