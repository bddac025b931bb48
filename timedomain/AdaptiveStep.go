package timedomain

import (
	"math"

	"github.com/controlsim/dipkernel/utils/floatutils"
)

// AdaptiveStep computes the next integrator step size from the local error
// estimate of the previous step, independent of any particular integrator.
// Integrators that embed their own PI controller (DormandPrince45) do not
// need this type; it exists for callers that want adaptive stepping layered
// on top of a fixed-order integrator driven from the orchestrator.
type AdaptiveStep struct {
	minDt  float64
	maxDt  float64
	safety float64
	order  int // order of the underlying integrator's local truncation error

	// PI controller gains. Zero values disable the PI term and fall back
	// to the basic formula.
	alpha float64 // weight on the current error ratio
	beta  float64 // weight on the previous error ratio

	prevErrRatio float64
	havePrev     bool
}

// Default growth/shrink bounds on the step-size factor itself (not the
// absolute dt), per spec.md §4.1: a step never grows by more than 5x or
// shrinks by more than 10x in a single update, regardless of how extreme
// the error ratio is.
const (
	defaultMaxGrowthFactor = 5.0
	defaultMinShrinkFactor = 0.1
)

// NewAdaptiveStep constructs a basic (non-PI) adaptive step controller.
func NewAdaptiveStep(minDt, maxDt, safety float64, order int) *AdaptiveStep {
	return &AdaptiveStep{
		minDt:  minDt,
		maxDt:  maxDt,
		safety: safety,
		order:  order,
		alpha:  1,
	}
}

// NewPIAdaptiveStep constructs a PI-controller variant that additionally
// weights the previous step's error ratio by beta, damping oscillation in
// the step-size sequence that a purely reactive controller can exhibit.
func NewPIAdaptiveStep(minDt, maxDt, safety float64, order int, alpha, beta float64) *AdaptiveStep {
	return &AdaptiveStep{
		minDt:  minDt,
		maxDt:  maxDt,
		safety: safety,
		order:  order,
		alpha:  alpha,
		beta:   beta,
	}
}

// Update computes the next step size given the current step dt, the local
// error estimate errEst, and the caller's error tolerance tol. A degenerate
// errEst (zero or non-finite) grows dt by the controller's ceiling rather
// than dividing by zero.
func (a *AdaptiveStep) Update(dt, errEst, tol float64) float64 {
	if tol <= 0 || !floatutils.AllFinite([]float64{tol}) {
		return floatutils.Clip(dt, a.minDt, a.maxDt)
	}
	if errEst <= 0 || !floatutils.AllFinite([]float64{errEst}) {
		next := dt * a.maxGrowth()
		a.prevErrRatio = 1
		a.havePrev = true
		return floatutils.Clip(next, a.minDt, a.maxDt)
	}

	errRatio := tol / errEst
	exponent := 1.0 / float64(a.order+1)

	var factor float64
	if a.beta != 0 && a.havePrev {
		factor = a.safety * pow(errRatio, a.alpha*exponent) * pow(a.prevErrRatio, -a.beta*exponent)
	} else {
		factor = a.safety * pow(errRatio, exponent)
	}

	a.prevErrRatio = errRatio
	a.havePrev = true

	factor = floatutils.Clip(factor, defaultMinShrinkFactor, defaultMaxGrowthFactor)
	next := dt * factor
	return floatutils.Clip(next, a.minDt, a.maxDt)
}

// Reset clears the controller's memory of the previous step's error ratio,
// so the next Update call behaves as if it were the first step.
func (a *AdaptiveStep) Reset() {
	a.havePrev = false
	a.prevErrRatio = 0
}

// maxGrowth is the largest single-step growth factor the controller allows
// when it has no usable error estimate to react to.
func (a *AdaptiveStep) maxGrowth() float64 {
	const defaultGrowth = 2.0
	return defaultGrowth
}

func pow(base, exp float64) float64 {
	if base <= 0 {
		return 1
	}
	return math.Pow(base, exp)
}
