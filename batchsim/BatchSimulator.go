// Package batchsim implements the batch simulator (C8): a vectorized
// multi-particle rollout over a shared gain-controller factory, with
// per-step saturation, early termination on the first exception across
// the whole batch, and optional sliding-surface convergence stopping.
package batchsim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/control"
	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/simerr"
	"github.com/controlsim/dipkernel/utils/floatutils"
)

const defaultStateDim = 6

// Options configures a single Run call.
type Options struct {
	Particles []mat.Vector // (B, G): one gain vector per row

	SimTime, Dt float64

	// UMax, when > 0, saturates every row uniformly, overriding each
	// controller's own max_force.
	UMax float64

	// InitialState is broadcast to every row when it has a single entry,
	// or supplies one initial state per row when it has len == B. A nil
	// InitialState falls back to a probed state dimension, then a default
	// of defaultStateDim.
	InitialState []mat.Vector

	ConvergenceTol float64
	GracePeriod    float64
}

// Result holds the batch simulator's raw output tensors, shaped exactly
// as the contract specifies: Times (H+1,), States (B,H+1,D) as
// States[row][step], Controls (B,H), Sigmas (B,H).
type Result struct {
	Times    []float64
	States   [][]mat.Vector
	Controls [][]float64
	Sigmas   [][]float64

	// Histories holds each row's final controller history, attached for
	// post-hoc analysis the way the reference implementation stashes it
	// as an attribute on the controller object.
	Histories []any
}

// rowState tracks one row's live controller state across the loop.
type rowState struct {
	controller control.Controller
	state      any
	history    any
	uMax       float64
	alive      bool // false when the factory failed to build this row's controller
}

// Run executes the batch simulator algorithm: build one controller per
// row, resolve saturation, then advance every row in lockstep until the
// horizon, a batch-wide exception, or convergence. A controller or
// dynamics error at any row terminates the entire batch at that step,
// matching the reference contract that no row may run longer than its
// siblings.
func Run(factory control.Factory, model dynamics.LegacyModel, opts Options) (*Result, error) {
	const op = "batchsim.Run"

	b := len(opts.Particles)
	if b == 0 {
		return nil, simerr.NewInvalidInput(op, "particles must have at least one row")
	}
	if opts.Dt <= 0 {
		return nil, simerr.NewInvalidInput(op, "dt must be > 0, got %g", opts.Dt)
	}

	h := 0
	if opts.SimTime > 0 {
		h = int(math.Round(opts.SimTime / opts.Dt))
	}

	rows := make([]*rowState, b)
	for r := 0; r < b; r++ {
		ctrl, err := factory(vecToFloats(opts.Particles[r]))
		rows[r] = &rowState{controller: ctrl}
		if err != nil {
			rows[r].alive = false
			continue
		}
		rows[r].alive = true

		state, err := ctrl.InitializeState()
		if err != nil {
			rows[r].state = nil
		} else {
			rows[r].state = state
		}
		history, err := ctrl.InitializeHistory()
		if err != nil {
			rows[r].history = nil
		} else {
			rows[r].history = history
		}
	}

	d := resolveStateDim(rows, model)
	x0 := broadcastInitialState(opts.InitialState, b, d)

	resolveSaturation(rows, opts.UMax)

	times := make([]float64, 1, h+1)
	states := make([][]mat.Vector, b)
	controls := make([][]float64, b)
	sigmas := make([][]float64, b)
	for r := 0; r < b; r++ {
		states[r] = make([]mat.Vector, 1, h+1)
		states[r][0] = cloneVec(x0[r])
		controls[r] = make([]float64, 0, h)
		sigmas[r] = make([]float64, 0, h)
	}

	checkConvergence := opts.ConvergenceTol > 0
	graceSteps := 0
	if opts.GracePeriod > 0 {
		graceSteps = int(math.Round(opts.GracePeriod / opts.Dt))
	}

	for i := 0; i < h; i++ {
		tNow := float64(i) * opts.Dt
		times = append(times, tNow+opts.Dt)

		u := make([]float64, b)
		sigma := make([]float64, b)

		for r := 0; r < b; r++ {
			row := rows[r]
			xCur := states[r][i]

			if !row.alive {
				u[r], sigma[r] = 0, 0
				continue
			}

			out, nextState, nextHistory, err := row.controller.ComputeControl(xCur, row.state, row.history)
			if err != nil {
				return truncate(times, states, controls, sigmas, rows, i), nil
			}
			row.state, row.history = nextState, nextHistory

			uVal := out.U.AtVec(0)
			if row.uMax < math.Inf(1) {
				uVal = floatutils.Clip(uVal, -row.uMax, row.uMax)
			}
			u[r] = uVal
			if out.HasSigma {
				sigma[r] = out.Sigma
			}
		}

		for r := 0; r < b; r++ {
			controls[r] = append(controls[r], u[r])
			sigmas[r] = append(sigmas[r], sigma[r])
		}

		for r := 0; r < b; r++ {
			xCur := states[r][i]
			uVec := mat.NewVecDense(1, []float64{u[r]})
			next, err := model.Step(xCur, uVec, opts.Dt)
			if err != nil || !finiteVec(next) {
				times = times[:i+1]
				return truncate(times, states, controls, sigmas, rows, i), nil
			}
			states[r] = append(states[r], next)
		}

		if checkConvergence && i >= graceSteps {
			maxSigma := 0.0
			for r := 0; r < b; r++ {
				if v := math.Abs(sigma[r]); v > maxSigma {
					maxSigma = v
				}
			}
			if maxSigma < opts.ConvergenceTol {
				return finish(times, states, controls, sigmas, rows), nil
			}
		}
	}

	return finish(times, states, controls, sigmas, rows), nil
}

func truncate(times []float64, states [][]mat.Vector, controls, sigmas [][]float64, rows []*rowState, step int) *Result {
	for r := range states {
		if len(states[r]) > step+1 {
			states[r] = states[r][:step+1]
		}
		if len(controls[r]) > step {
			controls[r] = controls[r][:step]
		}
		if len(sigmas[r]) > step {
			sigmas[r] = sigmas[r][:step]
		}
	}
	if len(times) > step+1 {
		times = times[:step+1]
	}
	return finish(times, states, controls, sigmas, rows)
}

func finish(times []float64, states [][]mat.Vector, controls, sigmas [][]float64, rows []*rowState) *Result {
	histories := make([]any, len(rows))
	for r, row := range rows {
		histories[r] = row.history
	}
	return &Result{Times: times, States: states, Controls: controls, Sigmas: sigmas, Histories: histories}
}

func resolveStateDim(rows []*rowState, model dynamics.LegacyModel) int {
	for _, row := range rows {
		if row.alive {
			if sd, ok := row.controller.(control.StateDimer); ok {
				return sd.StateDim()
			}
		}
	}
	if sd, ok := dynamics.DimOf(model); ok {
		return sd
	}
	return defaultStateDim
}

func broadcastInitialState(init []mat.Vector, b, d int) []mat.Vector {
	out := make([]mat.Vector, b)
	switch {
	case len(init) == 0:
		zero := mat.NewVecDense(d, nil)
		for r := 0; r < b; r++ {
			out[r] = zero
		}
	case len(init) == 1:
		for r := 0; r < b; r++ {
			out[r] = init[0]
		}
	default:
		for r := 0; r < b && r < len(init); r++ {
			out[r] = init[r]
		}
	}
	return out
}

func resolveSaturation(rows []*rowState, uMax float64) {
	for _, row := range rows {
		switch {
		case uMax > 0:
			row.uMax = uMax
		case row.alive:
			if mf, ok := row.controller.(control.MaxForcer); ok {
				row.uMax = mf.MaxForce()
			} else {
				row.uMax = math.Inf(1)
			}
		default:
			row.uMax = math.Inf(1)
		}
	}
}

func vecToFloats(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func cloneVec(v mat.Vector) *mat.VecDense {
	cp := mat.NewVecDense(v.Len(), nil)
	cp.CopyVec(v)
	return cp
}

func finiteVec(v mat.Vector) bool {
	return floatutils.AllFinite(vecToFloats(v))
}
