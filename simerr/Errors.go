// Package simerr defines the typed error kinds shared by every package in
// the simulation kernel: InvalidInput, SafetyViolation, NumericFailure,
// TimingViolation, and FactoryFailure. Integrators and guards never handle
// their own errors; the orchestrator is the single point that catches
// NumericFailure/SafetyViolation and decides truncation. InvalidInput
// surfaces to the caller; a FactoryFailure leaves that row inert in the
// batch simulator, and the cost evaluator retries it once and then assigns
// the instability penalty.
package simerr

import "fmt"

// InvalidInput reports a caller error that is fatal for the current call:
// dt <= 0, a non-finite initial state, or an inconsistent
// total_time/horizon pair. There is no retry.
type InvalidInput struct {
	Op      string
	Message string
}

func (e *InvalidInput) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Op, e.Message)
}

// NewInvalidInput builds an InvalidInput error for op.
func NewInvalidInput(op, format string, args ...any) *InvalidInput {
	return &InvalidInput{Op: op, Message: fmt.Sprintf(format, args...)}
}

// ViolationKind enumerates the safety guards that can trip.
type ViolationKind string

const (
	ViolationNaN    ViolationKind = "nan"
	ViolationEnergy ViolationKind = "energy"
	ViolationBounds ViolationKind = "bounds"
)

// SafetyViolation is raised by a guard when a per-step invariant fails.
// The orchestrator catches it, truncates the trajectory, and returns the
// partial result with a metadata flag; it does not retry.
type SafetyViolation struct {
	Kind    ViolationKind
	Step    int
	Message string
}

func (e *SafetyViolation) Error() string {
	return e.Message
}

// NaN detection raises with the frozen substring "NaN detected in state at
// step <i>" so downstream string matching on the wire contract keeps
// working.
func NewNaNViolation(step int) *SafetyViolation {
	return &SafetyViolation{
		Kind:    ViolationNaN,
		Step:    step,
		Message: fmt.Sprintf("NaN detected in state at step %d", step),
	}
}

// NewEnergyViolation raises with the frozen substring
// "Energy check failed: total_energy=<val> exceeds <max>".
func NewEnergyViolation(step int, totalEnergy, max float64) *SafetyViolation {
	return &SafetyViolation{
		Kind: ViolationEnergy,
		Step: step,
		Message: fmt.Sprintf(
			"Energy check failed: total_energy=%g exceeds %g", totalEnergy, max),
	}
}

// NewBoundsViolation raises with the frozen substring
// "State bounds violated at t=<t>".
func NewBoundsViolation(step int, t float64) *SafetyViolation {
	return &SafetyViolation{
		Kind:    ViolationBounds,
		Step:    step,
		Message: fmt.Sprintf("State bounds violated at t=%g", t),
	}
}

// NumericFailure covers a non-finite state, integrator divergence, or a
// dynamics-model exception surfaced as an error. The orchestrator truncates
// on this error; the batch simulator truncates the whole batch at the
// offending step.
type NumericFailure struct {
	Op      string
	Step    int
	Message string
}

func (e *NumericFailure) Error() string {
	return fmt.Sprintf("%s: numeric failure at step %d: %s", e.Op, e.Step, e.Message)
}

func NewNumericFailure(op string, step int, format string, args ...any) *NumericFailure {
	return &NumericFailure{Op: op, Step: step, Message: fmt.Sprintf(format, args...)}
}

// TimingViolation records a missed deadline in the real-time orchestrator.
// It is never fatal on its own; it is recorded and optionally reported
// through a violation handler.
type TimingViolation struct {
	Deadline float64
	Elapsed  float64
}

func (e *TimingViolation) Error() string {
	return fmt.Sprintf("missed deadline: elapsed=%.6f deadline=%.6f", e.Elapsed, e.Deadline)
}

// FactoryFailure records a controller construction failure. One retry is
// permitted by the caller; on a second failure the particle is marked
// invalid with the instability penalty.
type FactoryFailure struct {
	Row     int
	Message string
}

func (e *FactoryFailure) Error() string {
	return fmt.Sprintf("controller factory failed for row %d: %s", e.Row, e.Message)
}

func NewFactoryFailure(row int, format string, args ...any) *FactoryFailure {
	return &FactoryFailure{Row: row, Message: fmt.Sprintf(format, args...)}
}
