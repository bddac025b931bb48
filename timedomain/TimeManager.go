// Package timedomain implements the scalar clock, horizon/dt bookkeeping,
// real-time scheduler, and adaptive-step controller (C1).
package timedomain

import (
	"math"

	"github.com/controlsim/dipkernel/simerr"
)

const horizonConsistencyEps = 1e-9

// TimeManager maintains (dt, total_time, horizon, t, step_index) for a
// single rollout. Exactly one of {totalTime, horizon} may be derived from
// the other; supplying both requires them to be numerically consistent.
type TimeManager struct {
	dt        float64
	totalTime *float64
	horizon   *int

	t    float64
	step int
}

// NewTimeManager constructs a TimeManager. Either totalTime or horizon (or
// both, if consistent) must be non-nil.
func NewTimeManager(dt float64, totalTime *float64, horizon *int) (*TimeManager, error) {
	const op = "NewTimeManager"
	if dt <= 0 {
		return nil, simerr.NewInvalidInput(op, "dt must be > 0, got %g", dt)
	}

	m := &TimeManager{dt: dt}

	switch {
	case totalTime != nil && horizon != nil:
		computed := float64(*horizon) * dt
		if math.Abs(computed-*totalTime) >= horizonConsistencyEps {
			return nil, simerr.NewInvalidInput(op,
				"horizon*dt (%g) inconsistent with total_time (%g)", computed, *totalTime)
		}
		tt := *totalTime
		h := *horizon
		m.totalTime, m.horizon = &tt, &h
	case totalTime != nil:
		tt := *totalTime
		h := int(math.Ceil(tt / dt))
		m.totalTime, m.horizon = &tt, &h
	case horizon != nil:
		h := *horizon
		tt := float64(h) * dt
		m.totalTime, m.horizon = &tt, &h
	default:
		return nil, simerr.NewInvalidInput(op, "one of total_time or horizon must be supplied")
	}

	return m, nil
}

// Dt returns the manager's base timestep.
func (m *TimeManager) Dt() float64 { return m.dt }

// Start resets the manager's clock to t=0, step=0.
func (m *TimeManager) Start() {
	m.t = 0
	m.step = 0
}

// Advance moves the clock forward by dt (or the manager's default dt when
// dt <= 0) and returns the new (t, step).
func (m *TimeManager) Advance(dt float64) (float64, int) {
	if dt <= 0 {
		dt = m.dt
	}
	m.t += dt
	m.step++
	return m.t, m.step
}

// T returns the current simulation time.
func (m *TimeManager) T() float64 { return m.t }

// Step returns the current step index.
func (m *TimeManager) Step() int { return m.step }

// IsFinished reports whether the manager has reached its horizon/total
// time.
func (m *TimeManager) IsFinished() bool {
	if m.horizon != nil {
		return m.step >= *m.horizon
	}
	if m.totalTime != nil {
		return m.t >= *m.totalTime
	}
	return false
}

// Progress returns completion fraction in [0, 1].
func (m *TimeManager) Progress() float64 {
	if m.totalTime == nil || *m.totalTime == 0 {
		return 0
	}
	p := m.t / *m.totalTime
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// RemainingTime returns the time left before total_time, or +Inf when the
// manager has no total_time configured.
func (m *TimeManager) RemainingTime() float64 {
	if m.totalTime == nil {
		return math.Inf(1)
	}
	remaining := *m.totalTime - m.t
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSteps returns the number of steps left before horizon. Per
// spec.md §9 Open Question (b), an unbounded manager (no horizon) does not
// silently overflow an int: it returns a typed InvalidInput error instead.
func (m *TimeManager) RemainingSteps() (int, error) {
	if m.horizon == nil {
		return 0, simerr.NewInvalidInput("TimeManager.RemainingSteps",
			"remaining step count is undefined: manager has no configured horizon")
	}
	remaining := *m.horizon - m.step
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TimeVector returns the (horizon+1)-length vector {0, dt, 2dt, ..., horizon*dt}.
func (m *TimeManager) TimeVector() ([]float64, error) {
	if m.horizon == nil {
		return nil, simerr.NewInvalidInput("TimeManager.TimeVector",
			"cannot generate a time vector without a configured horizon")
	}
	h := *m.horizon
	times := make([]float64, h+1)
	for i := 0; i <= h; i++ {
		times[i] = float64(i) * m.dt
	}
	return times, nil
}
