package orchestrator

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/result"
)

// BatchOptions extends Options with the batch-specific per-row control
// sequence and stop function. Of the embedded Options, Batch reads
// SafetyGuards, T0 and USeq; Controller and StopFn are not consulted. A
// step beyond a row's control sequence uses a zero control vector of
// length 1.
type BatchOptions struct {
	Options

	// USeqRows, when set, supplies a (B,H) or (B,H,M) control sequence
	// already broadcast to B rows; row r uses USeqRows[r]. A nil row
	// falls back to Options.USeq broadcast to every row.
	USeqRows [][]mat.Vector

	// StopFnRow, when non-nil, is polled per-row after every step; a true
	// return deactivates that row without affecting the others.
	StopFnRow func(row int, x mat.Vector) bool
}

// Batch drives B independent rollouts over a shared horizon, deactivating
// rows individually on guard violation, non-finite state, or StopFnRow,
// while the global horizon continues until every row is inactive or the
// horizon is exhausted.
type Batch struct {
	Base
}

// NewBatch constructs a Batch orchestrator over base.
func NewBatch(base Base) *Batch {
	return &Batch{Base: base}
}

// Execute promotes x0Rows (one initial state per row) and runs all B rows
// step-synchronously: row i's step k always completes before any row
// advances to step k+1. Inactive rows keep their last valid state but stop
// appending to their own trajectory.
func (o *Batch) Execute(x0Rows []mat.Vector, dt float64, horizon int, opts BatchOptions) (*result.Batch, error) {
	start := time.Now()
	b := len(x0Rows)
	n := x0Rows[0].Len()

	x := make([]*mat.VecDense, b)
	active := make([]bool, b)
	for r := range x0Rows {
		x[r] = mat.NewVecDense(n, nil)
		x[r].CopyVec(x0Rows[r])
		active[r] = true
	}

	times := []float64{opts.T0}
	states := make([][]mat.Vector, b)
	controls := make([][]mat.Vector, b)
	sigmas := make([][]float64, b)
	truncatedAt := make([]int, b)
	for r := 0; r < b; r++ {
		states[r] = append(states[r], cloneVec(x[r]))
		truncatedAt[r] = -1
	}

	t := opts.T0
	totalSteps := 0

	for i := 0; i < horizon; i++ {
		anyActive := false
		for r := 0; r < b; r++ {
			if !active[r] {
				continue
			}
			anyActive = true

			u := rowControl(opts, r, i)

			if opts.SafetyGuards != nil {
				if v := opts.SafetyGuards.Check(i, t, x[r]); v != nil {
					active[r] = false
					truncatedAt[r] = i
					continue
				}
			}

			next, err := o.Integrator.Step(o.Model, t, x[r], u, dt)
			if err != nil || !finite(next) {
				active[r] = false
				truncatedAt[r] = i
				continue
			}

			x[r] = mat.NewVecDense(n, nil)
			x[r].CopyVec(next)
			states[r] = append(states[r], cloneVec(x[r]))
			controls[r] = append(controls[r], cloneVec(u))
			sigmas[r] = append(sigmas[r], 0)

			if opts.StopFnRow != nil && opts.StopFnRow(r, x[r]) {
				active[r] = false
				truncatedAt[r] = i + 1
			}
		}

		if !anyActive {
			break
		}
		t += dt
		times = append(times, t)
		totalSteps++
	}

	batch := result.NewBatch()
	for r := 0; r < b; r++ {
		meta := result.Metadata{"truncated": truncatedAt[r] >= 0}
		if truncatedAt[r] >= 0 {
			meta["truncation_step"] = truncatedAt[r]
		}
		rowTimes := times[:len(states[r])]
		batch.Set(r, result.NewContainer(rowTimes, states[r], controls[r], sigmas[r], meta))
	}

	o.recordRun(totalSteps*b, time.Since(start))
	return batch, nil
}

func rowControl(opts BatchOptions, row, step int) mat.Vector {
	if row < len(opts.USeqRows) && opts.USeqRows[row] != nil && step < len(opts.USeqRows[row]) {
		return opts.USeqRows[row][step]
	}
	if step < len(opts.USeq) {
		return opts.USeq[step]
	}
	return mat.NewVecDense(1, nil)
}
