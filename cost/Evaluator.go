// Package cost implements the batch fitness evaluator (C9): it runs the
// controller factory over a population of gain vectors through the batch
// simulator, reduces each row's trajectory tensor to a composite ISE +
// control-effort + control-slew + sliding-energy cost, and applies a
// graded instability penalty to rows that fall or diverge before the
// horizon completes.
package cost

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/batchsim"
	"github.com/controlsim/dipkernel/control"
	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/simerr"
	"github.com/controlsim/dipkernel/utils/floatutils"
)

// fallAngle and explodeBound are the pendulum-fall and divergence
// thresholds from spec.md §4.8: a row fails at the first step where
// |x[.,1]| exceeds fallAngle (roughly past horizontal) or any state
// component exceeds explodeBound in magnitude.
const (
	fallAngle    = math.Pi / 2
	explodeBound = 1e6
	defaultKappa = 100.0
	defaultUMax  = 150.0
)

// Weights are the non-negative linear combination weights applied to the
// four normalized cost components.
type Weights struct {
	StateError    float64
	ControlEffort float64
	ControlRate   float64
	Sliding       float64
}

// Normalization holds the positive thresholds each cost component is
// divided by before weighting. A threshold at or below 1e-12 is treated
// as "no normalization requested" (see floatutils.Normalize).
type Normalization struct {
	StateError    float64
	ControlEffort float64
	ControlRate   float64
	Sliding       float64
}

// Config parameterizes an Evaluator. Zero-valued fields fall back to the
// documented defaults: Kappa defaults to 100, MinCostFloor to 0, and
// InstabilityPenalty (when nil) is computed from Normalization per
// spec.md §4.8.
type Config struct {
	Weights       Weights
	Normalization Normalization

	// InstabilityPenalty overrides the computed default when non-nil.
	InstabilityPenalty *float64
	Kappa              float64
	MinCostFloor       float64

	// UMax overrides per-controller max_force resolution unconditionally
	// when > 0.
	UMax float64
}

// Evaluator runs the batch fitness function (C9) for a fixed dynamics
// model, controller factory, and simulation horizon.
type Evaluator struct {
	factory control.Factory
	model   dynamics.LegacyModel
	dt      float64
	simTime float64
	cfg     Config
	uMax    float64

	// Logger receives a Warn event for each controller-factory retry and
	// the eventual FactoryFailure penalty assignment. It defaults to a
	// disabled logger (see NewEvaluator).
	Logger zerolog.Logger
}

// NewEvaluator builds an Evaluator. gainArity is the length of the gain
// vectors the factory expects; it is used only to build the dummy probe
// gain vector for u_max resolution when cfg.UMax is not set.
func NewEvaluator(factory control.Factory, model dynamics.LegacyModel, gainArity int, dt, simTime float64, cfg Config) (*Evaluator, error) {
	const op = "cost.NewEvaluator"
	if dt <= 0 {
		return nil, simerr.NewInvalidInput(op, "dt must be > 0, got %g", dt)
	}
	if simTime <= 0 {
		return nil, simerr.NewInvalidInput(op, "sim_time must be > 0, got %g", simTime)
	}
	if cfg.Kappa <= 0 {
		cfg.Kappa = defaultKappa
	}

	e := &Evaluator{factory: factory, model: model, dt: dt, simTime: simTime, cfg: cfg, Logger: zerolog.Nop()}
	e.uMax = resolveUMax(factory, gainArity, cfg.UMax)
	return e, nil
}

// resolveUMax implements §4.8's "u_max resolution": an explicit override
// wins unconditionally; otherwise a probe controller is built from a
// dummy zero gain vector of the right arity and its MaxForce queried;
// failing that, the default of 150.0 is used.
func resolveUMax(factory control.Factory, gainArity int, override float64) float64 {
	if override > 0 {
		return override
	}
	probe, err := factory(make([]float64, gainArity))
	if err != nil {
		return defaultUMax
	}
	if mf, ok := probe.(control.MaxForcer); ok {
		return mf.MaxForce()
	}
	return defaultUMax
}

// instabilityPenalty returns the configured or computed instability
// penalty: κ·(n_ISE+n_u+n_Δu+n_σ), with the normalizer sum floored at 1
// when all four are (pathologically) zero, guaranteeing penalty > 0.
func (e *Evaluator) instabilityPenalty() float64 {
	if e.cfg.InstabilityPenalty != nil {
		return *e.cfg.InstabilityPenalty
	}
	n := e.cfg.Normalization
	sum := n.StateError + n.ControlEffort + n.ControlRate + n.Sliding
	if sum <= 0 {
		sum = 1
	}
	return e.cfg.Kappa * sum
}

// EvaluateBatch is the primary entry point: given a (B,G) population
// matrix, returns one non-negative cost per row. Rows with non-finite
// gains are assigned the instability penalty directly and never reach the
// simulator.
func (e *Evaluator) EvaluateBatch(particles *mat.Dense) ([]float64, error) {
	return e.EvaluateBatchFrom(particles, nil)
}

// EvaluateSingle is a convenience wrapper reshaping a single gain vector
// to a (1,G) population and returning its scalar cost.
func (e *Evaluator) EvaluateSingle(gains []float64) (float64, error) {
	p := mat.NewDense(1, len(gains), append([]float64(nil), gains...))
	j, err := e.EvaluateBatch(p)
	if err != nil {
		return 0, err
	}
	return j[0], nil
}

// EvaluateBatchFrom is EvaluateBatch parameterized on an initial state
// override, used by the robust evaluator to run the same population
// under a perturbed scenario initial condition.
func (e *Evaluator) EvaluateBatchFrom(particles *mat.Dense, x0 mat.Vector) ([]float64, error) {
	b, g := particles.Dims()
	penalty := e.instabilityPenalty()

	j := make([]float64, b)
	valid := make([]int, 0, b)
	for r := 0; r < b; r++ {
		row := make([]float64, g)
		mat.Row(row, r, particles)
		if floatutils.AllFinite(row) {
			valid = append(valid, r)
		} else {
			j[r] = penalty
		}
	}
	// spec.md §7 FactoryFailure: one retry is permitted per row; on a
	// second failure the particle is marked invalid and its cost is set
	// to the instability penalty, the same as a non-finite-gain row.
	constructible := make([]int, 0, len(valid))
	for _, r := range valid {
		row := make([]float64, g)
		mat.Row(row, r, particles)
		gains := append([]float64(nil), row...)

		_, err := e.factory(gains)
		if err != nil {
			e.Logger.Warn().Int("row", r).Err(err).Msg("controller factory failed, retrying")
			_, err = e.factory(gains)
		}
		if err != nil {
			e.Logger.Warn().Int("row", r).Err(err).Msg("controller factory failed twice, assigning instability penalty")
			j[r] = penalty
			continue
		}
		constructible = append(constructible, r)
	}
	valid = constructible

	if len(valid) == 0 {
		return j, nil
	}

	vecs := make([]mat.Vector, len(valid))
	for i, r := range valid {
		row := make([]float64, g)
		mat.Row(row, r, particles)
		vecs[i] = mat.NewVecDense(g, row)
	}

	var initState []mat.Vector
	if x0 != nil {
		initState = []mat.Vector{x0}
	}

	res, err := batchsim.Run(e.factory, e.model, batchsim.Options{
		Particles:    vecs,
		SimTime:      e.simTime,
		Dt:           e.dt,
		UMax:         e.uMax,
		InitialState: initState,
	})
	if err != nil {
		// Any simulator-level exception assigns the penalty to the whole
		// (valid) batch, per spec.md §4.8 step 2.
		for _, r := range valid {
			j[r] = penalty
		}
		return j, nil
	}

	h := len(res.Times) - 1
	for i, r := range valid {
		j[r] = e.rowCost(res.States[i], res.Controls[i], res.Sigmas[i], h)
	}
	return j, nil
}

// rowCost computes J_r from one row's trajectory per spec.md §4.8 step 3-4.
func (e *Evaluator) rowCost(states []mat.Vector, controls, sigmas []float64, h int) float64 {
	kc := len(controls)
	failAt := kc // no failure observed within this row's retained samples
	for k := 0; k < len(states); k++ {
		x := states[k]
		if math.Abs(x.AtVec(1)) > fallAngle || maxAbsComponent(x) > explodeBound {
			failAt = k
			break
		}
	}

	var ise, effort, slew, sigmaEnergy float64
	prevU := 0.0
	if kc > 0 {
		prevU = controls[0]
	}
	for k := 0; k < kc; k++ {
		if k >= failAt-1 {
			prevU = controls[k]
			continue
		}
		x := states[k]
		for d := 0; d < x.Len(); d++ {
			v := x.AtVec(d)
			ise += v * v * e.dt
		}
		u := controls[k]
		effort += u * u * e.dt
		du := u - prevU
		slew += du * du * e.dt
		sigmaEnergy += sigmas[k] * sigmas[k] * e.dt
		prevU = u
	}

	n := e.cfg.Normalization
	w := e.cfg.Weights
	jr := w.StateError*floatutils.Normalize(ise, n.StateError) +
		w.ControlEffort*floatutils.Normalize(effort, n.ControlEffort) +
		w.ControlRate*floatutils.Normalize(slew, n.ControlRate) +
		w.Sliding*floatutils.Normalize(sigmaEnergy, n.Sliding)

	if failAt < h {
		jr *= 1 + float64(h-failAt)/float64(h)
	}
	if jr < e.cfg.MinCostFloor {
		jr = e.cfg.MinCostFloor
	}
	return jr
}

func maxAbsComponent(x mat.Vector) float64 {
	m := 0.0
	for d := 0; d < x.Len(); d++ {
		if v := math.Abs(x.AtVec(d)); v > m {
			m = v
		}
	}
	return m
}
