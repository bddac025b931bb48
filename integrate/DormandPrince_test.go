package integrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDormandPrince45MatchesExactDecay(t *testing.T) {
	dp := NewDormandPrince45(1e-9, 1e-12, 1e-6, 0.05)
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	next, err := dp.Step(linearDecay{}, 0, x0, u, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.6065306597126334, next.AtVec(0), 1e-6)
}

func TestDormandPrince45RejectsNonPositiveDt(t *testing.T) {
	dp := NewDormandPrince45(1e-6, 1e-9, 1e-6, 0.1)
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	_, err := dp.Step(linearDecay{}, 0, x0, u, 0)
	require.Error(t, err)
}

func TestDormandPrince45ReportsStats(t *testing.T) {
	dp := NewDormandPrince45(1e-9, 1e-12, 1e-6, 0.05)
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	_, err := dp.Step(linearDecay{}, 0, x0, u, 0.5)
	require.NoError(t, err)
	stats := dp.Stats()
	assert.GreaterOrEqual(t, stats.Rejected, 0)
}

func TestDormandPrince45SurfacesModelFailure(t *testing.T) {
	dp := NewDormandPrince45(1e-6, 1e-9, 1e-6, 0.1)
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	_, err := dp.Step(failingModel{}, 0, x0, u, 0.1)
	require.Error(t, err)
}

func TestDormandPrince45ExactlyHonorsRequestedDt(t *testing.T) {
	dp := NewDormandPrince45(1e-6, 1e-9, 1e-6, 0.02)
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	// With MaxDt well below the full requested dt, the integrator must take
	// multiple substeps but still land exactly on t+dt.
	next, err := dp.Step(linearDecay{}, 0, x0, u, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 0.8187307530779818, next.AtVec(0), 1e-5)
}
