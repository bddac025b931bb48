package orchestrator

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/result"
	"github.com/controlsim/dipkernel/timedomain"
)

// ViolationDecision is the action a ViolationHandler selects after a
// missed real-time deadline.
type ViolationDecision int

const (
	Continue ViolationDecision = iota
	Abort
	Degrade
)

// ViolationHandler is invoked whenever the scheduler reports a missed
// deadline, with the step's elapsed compute time and the deadline period
// it was measured against. Its return value selects how the rollout
// proceeds.
type ViolationHandler func(step int, elapsed, deadline time.Duration) ViolationDecision

// RealTimeOptions extends Options with the real-time scheduling hooks.
type RealTimeOptions struct {
	Options

	Scheduler        *timedomain.RealTimeScheduler
	ViolationHandler ViolationHandler
}

// RealTime wraps the same per-step loop as Sequential, pacing each step
// against a timedomain.RealTimeScheduler and reporting timing statistics
// in the result metadata. It differs from Sequential in two ways: a USeq
// shorter than the horizon truncates the rollout with reason
// control_sequence_exhausted instead of returning an error, and an
// integrator error and a non-finite state are both recorded as
// numeric_failure.
type RealTime struct {
	Base
}

// NewRealTime constructs a RealTime orchestrator over base.
func NewRealTime(base Base) *RealTime {
	return &RealTime{Base: base}
}

// Execute drives the rollout with the per-step loop described on RealTime,
// inserting a Scheduler.WaitForNextStep call after every accepted step. A missed
// deadline invokes ViolationHandler (if set); Abort truncates the
// rollout at the next step boundary. The returned Container's metadata
// always carries {missed_deadlines, max_jitter, mean_latency,
// p95_latency} when a Scheduler was supplied.
func (o *RealTime) Execute(x0 mat.Vector, dt float64, horizon int, opts RealTimeOptions) (*result.Container, error) {
	start := time.Now()
	n := x0.Len()

	times := make([]float64, 0, horizon+1)
	states := make([]mat.Vector, 0, horizon+1)
	controls := make([]mat.Vector, 0, horizon)
	sigmas := make([]float64, 0, horizon)
	meta := result.Metadata{"truncated": false}

	t := opts.T0
	x := mat.NewVecDense(n, nil)
	x.CopyVec(x0)

	var ctrlState, ctrlHistory any
	if opts.Controller != nil {
		var err error
		ctrlState, err = opts.Controller.InitializeState()
		if err != nil {
			return nil, err
		}
		ctrlHistory, err = opts.Controller.InitializeHistory()
		if err != nil {
			return nil, err
		}
	}

	times = append(times, t)
	states = append(states, cloneVec(x))

	steps := 0
	aborted := false

	for i := 0; i < horizon; i++ {
		stepStart := time.Now()

		var u mat.Vector
		var sigma float64
		var hasSigma bool

		if opts.Controller != nil {
			out, nextState, nextHistory, err := opts.Controller.ComputeControl(x, ctrlState, ctrlHistory)
			if err != nil {
				meta["truncated"] = true
				meta["truncation_reason"] = "controller_error"
				break
			}
			u = out.U
			sigma, hasSigma = out.Sigma, out.HasSigma
			ctrlState, ctrlHistory = nextState, nextHistory
		} else {
			if i >= len(opts.USeq) {
				meta["truncated"] = true
				meta["truncation_reason"] = "control_sequence_exhausted"
				break
			}
			u = opts.USeq[i]
		}

		if opts.SafetyGuards != nil {
			if v := opts.SafetyGuards.Check(i, t, x); v != nil {
				meta["truncated"] = true
				meta["truncation_reason"] = string(v.Kind)
				meta["violation"] = v.Error()
				break
			}
		}

		next, err := o.Integrator.Step(o.Model, t, x, u, dt)
		if err != nil || !finite(next) {
			meta["truncated"] = true
			meta["truncation_reason"] = "numeric_failure"
			break
		}

		t += dt
		steps++
		x = cloneVec(next)

		controls = append(controls, cloneVec(u))
		if hasSigma {
			sigmas = append(sigmas, sigma)
		} else {
			sigmas = append(sigmas, 0)
		}
		times = append(times, t)
		states = append(states, cloneVec(x))

		elapsed := time.Since(stepStart)

		if opts.Scheduler != nil {
			opts.Scheduler.StartStep()
			met := opts.Scheduler.WaitForNextStep()
			if !met && opts.ViolationHandler != nil {
				deadline := opts.Scheduler.Stats().TargetPeriod
				switch opts.ViolationHandler(i, elapsed, deadline) {
				case Abort:
					aborted = true
				case Degrade, Continue:
					// Continue is the default behavior already taken;
					// Degrade is a caller-level policy (e.g. swapping in a
					// cheaper controller on the next step) that RealTime
					// does not itself implement.
				}
			}
		}

		if aborted {
			meta["truncated"] = true
			meta["truncation_reason"] = "deadline_abort"
			break
		}

		if opts.StopFn != nil && opts.StopFn(x) {
			meta["truncated"] = true
			meta["truncation_reason"] = "stop_fn"
			break
		}
	}

	if opts.Scheduler != nil {
		stats := opts.Scheduler.Stats()
		meta["missed_deadlines"] = stats.Missed
		meta["max_jitter"] = stats.MaxJitter
		meta["mean_latency"] = stats.MeanLatency
		meta["p95_latency"] = stats.P95Latency
	}

	o.recordRun(steps, time.Since(start))
	return result.NewContainer(times, states, controls, sigmas, meta), nil
}

// CheckWeaklyHard delegates to the configured Scheduler's (m,k)-firm
// query, for callers polling real-time health mid-rollout.
func (o *RealTime) CheckWeaklyHard(scheduler *timedomain.RealTimeScheduler, m, k int) bool {
	return scheduler.CheckWeaklyHard(m, k)
}
