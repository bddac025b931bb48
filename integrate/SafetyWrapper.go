package integrate

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/dynamics"
	"github.com/controlsim/dipkernel/utils/floatutils"
)

// SafetyWrapper degrades a primary integrator to ForwardEuler after
// repeated step failures, and halves dt exactly once as a last resort; if
// even the halved Euler steps are non-finite it returns the input state
// unchanged with a nil error. Once the primary
// integrator has failed consecutiveFailureLimit times, the fallback is
// permanent for the remaining rollout: a plant pathological enough to fail
// the primary method repeatedly is not expected to recover.
type SafetyWrapper struct {
	Primary                 Integrator
	ConsecutiveFailureLimit int

	// Logger receives a Warn event the moment the permanent fallback
	// engages. It defaults to a disabled logger (see NewSafetyWrapper).
	Logger zerolog.Logger

	consecutiveFailures int
	permanentFallback   bool
}

// NewSafetyWrapper wraps primary with a 3-strike permanent fallback to
// ForwardEuler, matching this codebase's default tolerance for integrator
// instability before giving up on the higher-order method. Logging is
// disabled by default; set Logger to observe the fallback engaging.
func NewSafetyWrapper(primary Integrator) *SafetyWrapper {
	return &SafetyWrapper{Primary: primary, ConsecutiveFailureLimit: 3, Logger: zerolog.Nop()}
}

func (s *SafetyWrapper) Order() int {
	if s.permanentFallback {
		return (ForwardEuler{}).Order()
	}
	return s.Primary.Order()
}

func (s *SafetyWrapper) Adaptive() bool {
	if s.permanentFallback {
		return false
	}
	return s.Primary.Adaptive()
}

func (s *SafetyWrapper) Stats() Stats {
	return s.Primary.Stats()
}

func (s *SafetyWrapper) Step(model dynamics.Model, t float64, x, u mat.Vector, dt float64) (mat.Vector, error) {
	if !s.permanentFallback {
		next, err := s.Primary.Step(model, t, x, u, dt)
		if err == nil && finiteVec(next) {
			s.consecutiveFailures = 0
			return next, nil
		}

		s.consecutiveFailures++
		if s.consecutiveFailures >= s.ConsecutiveFailureLimit {
			s.permanentFallback = true
			s.Logger.Warn().
				Int("consecutive_failures", s.consecutiveFailures).
				Msg("primary integrator failed repeatedly, switching to permanent ForwardEuler fallback")
		}
	}

	// Either permanently degraded to Euler already, or the primary just
	// failed this step before tripping the permanent switch: either way,
	// this step is served by Euler.
	next, err := (ForwardEuler{}).Step(model, t, x, u, dt)
	if err == nil && finiteVec(next) {
		return next, nil
	}

	// Ultimate fallback: even Euler returned non-finite. Halve dt once and
	// retry with Euler across the two half-steps.
	half, halfErr := (ForwardEuler{}).Step(model, t, x, u, dt/2)
	if halfErr == nil && finiteVec(half) {
		final, finalErr := (ForwardEuler{}).Step(model, t+dt/2, half, u, dt/2)
		if finalErr == nil && finiteVec(final) {
			return final, nil
		}
	}

	// Still non-finite: leave the state unchanged rather than ever
	// propagate a NaN/Inf trajectory sample.
	unchanged := mat.NewVecDense(x.Len(), nil)
	unchanged.CopyVec(x)
	return unchanged, nil
}

func finiteVec(v mat.Vector) bool {
	if v == nil {
		return false
	}
	vals := make([]float64, v.Len())
	for i := range vals {
		vals[i] = v.AtVec(i)
	}
	return floatutils.AllFinite(vals)
}
