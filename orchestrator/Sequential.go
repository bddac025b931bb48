package orchestrator

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/result"
	"github.com/controlsim/dipkernel/simerr"
	"github.com/controlsim/dipkernel/utils/floatutils"
)

// Sequential is the reference orchestrator: a linear loop over
// i in [0, horizon) that every other orchestrator must reproduce
// byte-identically when fed identical inputs and a sequential scheduler.
type Sequential struct {
	Base
}

// NewSequential constructs a Sequential orchestrator over base.
func NewSequential(base Base) *Sequential {
	return &Sequential{Base: base}
}

// Execute drives model/integrator over [0, horizon) starting from x0 under
// opts, returning the accumulated result.Container. The rollout truncates
// early (without error) on a guard violation, a non-finite state, or
// opts.StopFn returning true; the returned Container's metadata records
// the truncation reason.
func (s *Sequential) Execute(x0 mat.Vector, dt float64, horizon int, opts Options) (*result.Container, error) {
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
	for i := 0; i < horizon; i++ {
		var u mat.Vector
		var sigma float64
		var hasSigma bool

		if opts.Controller != nil {
			out, nextState, nextHistory, err := opts.Controller.ComputeControl(x, ctrlState, ctrlHistory)
			if err != nil {
				s.Logger.Warn().Int("step", i).Err(err).Msg("controller error, truncating rollout")
				meta["truncated"] = true
				meta["truncation_reason"] = "controller_error"
				break
			}
			u = out.U
			sigma, hasSigma = out.Sigma, out.HasSigma
			ctrlState, ctrlHistory = nextState, nextHistory
		} else {
			if i >= len(opts.USeq) {
				return nil, simerr.NewInvalidInput("Sequential.Execute", "control sequence shorter than horizon")
			}
			u = opts.USeq[i]
		}

		if opts.SafetyGuards != nil {
			if v := opts.SafetyGuards.Check(i, t, x); v != nil {
				s.Logger.Warn().Int("step", i).Str("kind", string(v.Kind)).Msg("guard violation, truncating rollout")
				meta["truncated"] = true
				meta["truncation_reason"] = string(v.Kind)
				meta["violation"] = v.Error()
				break
			}
		}

		next, err := s.Integrator.Step(s.Model, t, x, u, dt)
		if err != nil {
			s.Logger.Warn().Int("step", i).Err(err).Msg("numeric failure, truncating rollout")
			meta["truncated"] = true
			meta["truncation_reason"] = "numeric_failure"
			meta["error"] = err.Error()
			break
		}
		if !finite(next) {
			s.Logger.Warn().Int("step", i).Msg("non-finite state, truncating rollout")
			meta["truncated"] = true
			meta["truncation_reason"] = "non_finite_state"
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

		if opts.StopFn != nil && opts.StopFn(x) {
			meta["truncated"] = true
			meta["truncation_reason"] = "stop_fn"
			break
		}
	}

	s.recordRun(steps, time.Since(start))
	return result.NewContainer(times, states, controls, sigmas, meta), nil
}

func cloneVec(v mat.Vector) *mat.VecDense {
	cp := mat.NewVecDense(v.Len(), nil)
	cp.CopyVec(v)
	return cp
}

func finite(v mat.Vector) bool {
	vals := make([]float64, v.Len())
	for i := range vals {
		vals[i] = v.AtVec(i)
	}
	return floatutils.AllFinite(vals)
}
