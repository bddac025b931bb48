// Package orchestrator implements the four rollout drivers (C6): Sequential
// (the reference implementation), Batch, Parallel, and RealTime. Every
// orchestrator shares the Base execution-stats counter and produces a
// result.Container or result.Batch from identical Options.
package orchestrator

import (
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/control"
	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/integrate"
	"github.com/controlsim/dipkernel/safety"
)

// Stats accumulates execution statistics shared by every orchestrator
// instance, mirroring the base counter every concrete orchestrator owns.
type Stats struct {
	TotalSimulations int
	TotalSteps       int
	TotalTime        time.Duration
}

// AvgStepTime returns TotalTime/TotalSteps, or zero if no steps have run.
func (s Stats) AvgStepTime() time.Duration {
	if s.TotalSteps == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.TotalSteps)
}

// Base owns the dynamics model, integrator, running Stats, and logger
// shared by every concrete orchestrator.
type Base struct {
	Model      dynamics.Model
	Integrator integrate.Integrator
	stats      Stats

	// Logger receives a Warn event for every recoverable truncation
	// (controller error, guard violation, numeric failure) this
	// orchestrator's rollout hits. It defaults to a disabled logger so a
	// caller that never injects one pays nothing and the sequential
	// orchestrator's reference trajectory stays byte-identical regardless
	// of log level.
	Logger zerolog.Logger
}

// NewBase constructs a Base over model and integrator with logging
// disabled by default; use WithLogger to inject a real logger.
func NewBase(model dynamics.Model, integrator integrate.Integrator) Base {
	return Base{Model: model, Integrator: integrator, Logger: zerolog.Nop()}
}

// WithLogger returns a copy of b logging recoverable conditions to logger.
func (b Base) WithLogger(logger zerolog.Logger) Base {
	b.Logger = logger
	return b
}

// Stats returns the orchestrator's accumulated execution statistics.
func (b *Base) Stats() Stats { return b.stats }

func (b *Base) recordRun(steps int, elapsed time.Duration) {
	b.stats.TotalSimulations++
	b.stats.TotalSteps += steps
	b.stats.TotalTime += elapsed
}

// Options configures a single execute() call, shared across every
// orchestrator.
type Options struct {
	// SafetyGuards, when non-nil, is consulted on the current state before
	// every integration step (including x0); a violation truncates the
	// rollout.
	SafetyGuards *safety.Manager

	// StopFn, when non-nil, is polled after every step; a true return
	// truncates the rollout (without being treated as a failure).
	StopFn func(x mat.Vector) bool

	// T0 is the rollout's starting simulation time.
	T0 float64

	// Controller, when non-nil, is consulted for u_i via ComputeControl
	// instead of indexing USeq.
	Controller control.Controller

	// USeq supplies the control sequence when Controller is nil. It must
	// have length >= horizon.
	USeq []mat.Vector
}
