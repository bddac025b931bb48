package integrate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/simerr"
	"github.com/controlsim/dipkernel/utils/floatutils"
)

// Dormand-Prince 4(5) Butcher tableau coefficients, matching the classic
// DOPRI formulation: c nodes, a coupling coefficients, b (5th order) and
// bHat (4th order embedded estimate) weights.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}

	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}

	dpB = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}

	dpBHat = [7]float64{
		5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40,
	}
)

// DormandPrince45 is the embedded 4(5) Runge-Kutta integrator with PI
// step-size control. It reports order 5 (the propagated solution's order);
// the embedded 4th-order estimate is used only for local error control.
type DormandPrince45 struct {
	RelTol, AbsTol float64
	MinDt, MaxDt   float64
	Safety         float64

	// PI controller memory: the error ratio accepted on the previous
	// successful step.
	prevErrRatio float64
	havePrev     bool

	rejected  int
	lastError float64
}

// NewDormandPrince45 constructs the integrator with the given tolerances
// and step-size bounds. Zero fields fall back to conservative defaults.
func NewDormandPrince45(relTol, absTol, minDt, maxDt float64) *DormandPrince45 {
	if relTol <= 0 {
		relTol = 1e-6
	}
	if absTol <= 0 {
		absTol = 1e-9
	}
	if minDt <= 0 {
		minDt = 1e-6
	}
	if maxDt <= 0 {
		maxDt = 0.1
	}
	return &DormandPrince45{
		RelTol: relTol, AbsTol: absTol,
		MinDt: minDt, MaxDt: maxDt,
		Safety: 0.9,
	}
}

func (d *DormandPrince45) Order() int    { return 5 }
func (d *DormandPrince45) Adaptive() bool { return true }
func (d *DormandPrince45) Stats() Stats {
	return Stats{Rejected: d.rejected, LastError: d.lastError}
}

// Step takes one or more internal substeps (shrinking dt on rejection) to
// advance from t to t+dt, returning the accepted state. The integrator's
// own internal step size is used for error control but the caller's
// requested dt is always honored exactly: the final substep is clipped to
// land precisely on t+dt.
func (d *DormandPrince45) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	const op = "DormandPrince45.Step"
	if dt <= 0 {
		return nil, simerr.NewInvalidInput(op, "dt must be > 0, got %g", dt)
	}

	target := t + dt
	cur := t
	state := x
	h := dt
	if h > d.MaxDt {
		h = d.MaxDt
	}

	const maxAttempts = 1000
	for attempts := 0; cur < target-1e-12; attempts++ {
		if attempts >= maxAttempts {
			return nil, simerr.NewNumericFailure(op, 0, "exceeded %d substeps advancing to t=%g", maxAttempts, target)
		}
		if cur+h > target {
			h = target - cur
		}

		next, errEst, err := d.trialStep(model, cur, state, u, h)
		if err != nil {
			return nil, err
		}

		tol := d.AbsTol + d.RelTol*vecNorm(state)
		errRatio := errEst / tol
		d.lastError = errEst

		if errRatio <= 1 || h <= d.MinDt+1e-15 {
			cur += h
			state = next
			h = d.nextStepSize(h, errRatio)
			continue
		}

		d.rejected++
		h = d.nextStepSize(h, errRatio)
		if h < d.MinDt {
			h = d.MinDt
		}
	}

	return state, nil
}

// trialStep evaluates one Dormand-Prince stage set and returns the
// propagated 5th-order state and the embedded error estimate.
func (d *DormandPrince45) trialStep(model dynamics.Model, t float64, x, u mat.Vector, h float64) (mat.Vector, float64, error) {
	const op = "DormandPrince45.trialStep"
	n := x.Len()
	var k [7]mat.Vector

	for stage := 0; stage < 7; stage++ {
		xi := mat.NewVecDense(n, nil)
		xi.CopyVec(x)
		for j := 0; j < stage; j++ {
			if dpA[stage][j] == 0 {
				continue
			}
			xi.AddScaledVec(xi, h*dpA[stage][j], k[j])
		}
		ki, err := model.F(t+dpC[stage]*h, xi, u)
		if err != nil {
			return nil, 0, simerr.NewNumericFailure(op, 0, "%v", err)
		}
		k[stage] = ki
	}

	sol := mat.NewVecDense(n, nil)
	sol.CopyVec(x)
	errVec := mat.NewVecDense(n, nil)
	for stage := 0; stage < 7; stage++ {
		sol.AddScaledVec(sol, h*dpB[stage], k[stage])
		errVec.AddScaledVec(errVec, h*(dpB[stage]-dpBHat[stage]), k[stage])
	}

	if !floatutils.AllFinite(vecToSlice(sol)) {
		return nil, 0, simerr.NewNumericFailure(op, 0, "non-finite state after substep")
	}

	return sol, vecNorm(errVec), nil
}

// nextStepSize applies the PI controller: the new step weights the current
// error ratio and, once a previous ratio is known, dampens against it to
// avoid oscillating step sizes.
func (d *DormandPrince45) nextStepSize(h, errRatio float64) float64 {
	const alpha, beta = 0.7 / 5, 0.4 / 5
	if errRatio <= 0 || math.IsNaN(errRatio) || math.IsInf(errRatio, 0) {
		errRatio = 1e-12
	}

	var factor float64
	if d.havePrev {
		factor = d.Safety * math.Pow(1/errRatio, alpha) * math.Pow(d.prevErrRatio, beta)
	} else {
		factor = d.Safety * math.Pow(1/errRatio, 1.0/5)
	}
	d.prevErrRatio = errRatio
	d.havePrev = true

	factor = floatutils.Clip(factor, 0.2, 5.0)
	next := h * factor
	return floatutils.Clip(next, d.MinDt, d.MaxDt)
}

func vecNorm(v mat.Vector) float64 {
	var sum float64
	for i := 0; i < v.Len(); i++ {
		sum += v.AtVec(i) * v.AtVec(i)
	}
	return math.Sqrt(sum)
}

func vecToSlice(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
