// Package safety implements the per-step safety guards (C2): pure
// predicates over a state vector (and, for energy, an energy function) that
// a Manager applies in insertion order, stopping at the first
// violation and raising a typed simerr.SafetyViolation.
package safety

import (
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/simerr"
	"github.com/controlsim/dipkernel/utils/floatutils"
)

// Guard checks a single state vector at a given step/time and returns a
// non-nil *simerr.SafetyViolation if the state is unsafe. A nil return
// means the state passed this guard.
type Guard interface {
	Check(step int, t float64, x mat.Vector) *simerr.SafetyViolation
}

// NoNaN rejects any state containing a NaN or +/-Inf component.
type NoNaN struct{}

func (NoNaN) Check(step int, t float64, x mat.Vector) *simerr.SafetyViolation {
	n := x.Len()
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = x.AtVec(i)
	}
	if !floatutils.AllFinite(vals) {
		return simerr.NewNaNViolation(step)
	}
	return nil
}

// EnergyFunc computes a scalar energy (or Lyapunov-like) quantity from a
// state vector. Dynamics models that want energy guarding implement this
// directly or supply a closure over their own physical parameters.
type EnergyFunc func(x mat.Vector) float64

// EnergyCap rejects any state whose EnergyFunc value exceeds Max.
type EnergyCap struct {
	Energy EnergyFunc
	Max    float64
}

// NewEnergyCap builds an EnergyCap using spec.md §4.2's default energy
// function: the sum of squared state components, Σ x_i².
func NewEnergyCap(max float64) EnergyCap {
	return EnergyCap{
		Energy: func(x mat.Vector) float64 {
			var s float64
			for i := 0; i < x.Len(); i++ {
				s += x.AtVec(i) * x.AtVec(i)
			}
			return s
		},
		Max: max,
	}
}

func (g EnergyCap) Check(step int, t float64, x mat.Vector) *simerr.SafetyViolation {
	e := g.Energy(x)
	if e > g.Max {
		return simerr.NewEnergyViolation(step, e, g.Max)
	}
	return nil
}

// Bounds rejects any state with a component outside [Lo[i], Hi[i]].
// Lo and Hi must have the same length as the checked state.
type Bounds struct {
	Lo, Hi []float64
}

func (g Bounds) Check(step int, t float64, x mat.Vector) *simerr.SafetyViolation {
	n := x.Len()
	for i := 0; i < n && i < len(g.Lo) && i < len(g.Hi); i++ {
		v := x.AtVec(i)
		if v < g.Lo[i] || v > g.Hi[i] {
			return simerr.NewBoundsViolation(step, t)
		}
	}
	return nil
}

// Manager applies a fixed, ordered list of guards to each state, stopping
// at (and returning) the first violation.
type Manager struct {
	guards []Guard
}

// NewManager builds a Manager that checks guards in the given order.
func NewManager(guards ...Guard) *Manager {
	return &Manager{guards: guards}
}

// Check runs every guard against x in order and returns the first
// violation encountered, or nil if x passes all of them.
func (m *Manager) Check(step int, t float64, x mat.Vector) *simerr.SafetyViolation {
	for _, g := range m.guards {
		if v := g.Check(step, t, x); v != nil {
			return v
		}
	}
	return nil
}

// Len reports how many guards are installed.
func (m *Manager) Len() int { return len(m.guards) }
