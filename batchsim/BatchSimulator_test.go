package batchsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/control"
	"github.com/controlsim/dipkernel/simerr"
)

// legacyDecayModel implements dynamics.LegacyModel over x' = -x via an
// explicit Euler step x*(1-dt), independent of u.
type legacyDecayModel struct{}

func (legacyDecayModel) Step(x, u mat.Vector, dt float64) (mat.Vector, error) {
	n := x.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, x.AtVec(i)*(1-dt))
	}
	return out, nil
}

// gainController is a minimal proportional controller u = -gain*x[0],
// reporting sigma = x[0] as its sliding surface.
type gainController struct {
	gain float64
}

func (gainController) InitializeState() (any, error)   { return nil, nil }
func (gainController) InitializeHistory() (any, error) { return nil, nil }

func (g gainController) ComputeControl(x mat.Vector, state, history any) (control.Output, any, any, error) {
	u := -g.gain * x.AtVec(0)
	return control.Output{U: mat.NewVecDense(1, []float64{u}), Sigma: x.AtVec(0), HasSigma: true}, state, history, nil
}

func gainFactory(gains []float64) (control.Controller, error) {
	return gainController{gain: gains[0]}, nil
}

func rowVec(v float64) mat.Vector { return mat.NewVecDense(1, []float64{v}) }

func TestBatchSimulatorRunsFullHorizon(t *testing.T) {
	opts := Options{
		Particles:    []mat.Vector{rowVec(1.0), rowVec(2.0)},
		SimTime:      1.0,
		Dt:           0.1,
		InitialState: []mat.Vector{mat.NewVecDense(1, []float64{1.0})},
	}
	res, err := Run(gainFactory, legacyDecayModel{}, opts)
	require.NoError(t, err)
	assert.Len(t, res.Times, 11)
	assert.Len(t, res.States[0], 11)
	assert.Len(t, res.Controls[0], 10)
	assert.Len(t, res.Sigmas[0], 10)
}

func TestBatchSimulatorAppliesUniformSaturation(t *testing.T) {
	opts := Options{
		Particles:    []mat.Vector{rowVec(100.0)}, // huge gain would blow past UMax
		SimTime:      0.2,
		Dt:           0.1,
		UMax:         0.5,
		InitialState: []mat.Vector{mat.NewVecDense(1, []float64{1.0})},
	}
	res, err := Run(gainFactory, legacyDecayModel{}, opts)
	require.NoError(t, err)
	for _, u := range res.Controls[0] {
		assert.LessOrEqual(t, u, 0.5+1e-12)
		assert.GreaterOrEqual(t, u, -0.5-1e-12)
	}
}

func TestBatchSimulatorRejectsEmptyParticles(t *testing.T) {
	_, err := Run(gainFactory, legacyDecayModel{}, Options{Dt: 0.1, SimTime: 1.0})
	require.Error(t, err)
}

func TestBatchSimulatorRejectsNonPositiveDt(t *testing.T) {
	_, err := Run(gainFactory, legacyDecayModel{}, Options{Particles: []mat.Vector{rowVec(1.0)}, Dt: 0})
	require.Error(t, err)
}

func TestBatchSimulatorHandlesFactoryFailureForOneRow(t *testing.T) {
	failing := func(gains []float64) (control.Controller, error) {
		if gains[0] < 0 {
			return nil, simerr.NewFactoryFailure(0, "negative gain")
		}
		return gainController{gain: gains[0]}, nil
	}
	opts := Options{
		Particles:    []mat.Vector{rowVec(-1.0), rowVec(1.0)},
		SimTime:      0.3,
		Dt:           0.1,
		InitialState: []mat.Vector{mat.NewVecDense(1, []float64{1.0})},
	}
	res, err := Run(failing, legacyDecayModel{}, opts)
	require.NoError(t, err)
	// The failing row stays inert (zero control every step) while its
	// sibling keeps rolling out normally.
	for _, u := range res.Controls[0] {
		assert.Equal(t, 0.0, u)
	}
	assert.NotEqual(t, 0.0, res.Controls[1][0])
}

func TestBatchSimulatorStopsEarlyOnConvergence(t *testing.T) {
	opts := Options{
		Particles:     []mat.Vector{rowVec(5.0)}, // the model ignores u; sigma = x[0] shrinks by 0.9 per step
		SimTime:       10.0,
		Dt:            0.1,
		InitialState:  []mat.Vector{mat.NewVecDense(1, []float64{1.0})},
		ConvergenceTol: 1e-3,
	}
	res, err := Run(gainFactory, legacyDecayModel{}, opts)
	require.NoError(t, err)
	assert.Less(t, len(res.Times), 101)
}
