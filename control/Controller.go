// Package control declares the external controller contract (C5) consumed
// by every orchestrator and by the batch simulator. A controller is either
// a stateless callable or a stateful object threading an opaque
// (state, history) pair through ComputeControl, per spec.md §6.
package control

import "gonum.org/v1/gonum/mat"

// Output is what ComputeControl returns for a single step: the control
// vector and, optionally, the sliding-mode surface value sigma that
// feeds the cost evaluator's sigma-energy term.
type Output struct {
	U        mat.Vector
	Sigma    float64
	HasSigma bool
}

// Controller is the stateful controller contract. State and History are
// opaque values produced by InitializeState/InitializeHistory; they persist
// across steps within a single rollout and are never shared between rows
// of a batch.
type Controller interface {
	InitializeState() (any, error)
	InitializeHistory() (any, error)

	// ComputeControl advances the controller by one step and returns the
	// control output together with the updated (state, history) pair.
	ComputeControl(x mat.Vector, state, history any) (Output, any, any, error)
}

// MaxForcer is an optional capability: a controller may expose its own
// saturation limit, used when the caller does not supply an explicit
// u_max.
type MaxForcer interface {
	MaxForce() float64
}

// StateDimer lets a controller declare the state dimension it expects,
// used by the batch simulator when no initial_state is supplied and the
// dynamics model itself does not declare a dimension.
type StateDimer interface {
	StateDim() int
}

// Factory builds a Controller from a gain vector. It must be pure with
// respect to its argument: the batch simulator calls it once per row, and
// the cost evaluator may call it again for the same gains when it retries.
type Factory func(gains []float64) (Controller, error)

// callable adapts a stateless controller(t, x) -> u function to the
// Controller interface. State and history are unused (nil).
type callable struct {
	f func(t float64, x mat.Vector) float64
	t float64
}

// FromFunc wraps a stateless callable controller(t, x) -> u as a
// Controller. The wrapped controller carries no internal state: t must be
// supplied by the caller on each call via AdvanceTime, or the controller
// always observes t=0 if the caller never advances it (suitable for
// autonomous feedback laws that do not depend explicitly on time).
func FromFunc(f func(t float64, x mat.Vector) float64) Controller {
	return &callable{f: f}
}

func (c *callable) InitializeState() (any, error)   { return nil, nil }
func (c *callable) InitializeHistory() (any, error) { return nil, nil }

func (c *callable) ComputeControl(x mat.Vector, state, history any) (Output, any, any, error) {
	u := c.f(c.t, x)
	return Output{U: mat.NewVecDense(1, []float64{u})}, state, history, nil
}

// AdvanceTime returns a copy of a callable-backed Controller with its
// internal clock set to t. It is a no-op (returns c unchanged) for any
// Controller not built by FromFunc.
func AdvanceTime(c Controller, t float64) Controller {
	if cc, ok := c.(*callable); ok {
		return &callable{f: cc.f, t: t}
	}
	return c
}
