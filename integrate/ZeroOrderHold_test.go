package integrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// linearTestModel implements both dynamics.Model and LinearModel over
// x' = A*x + B*u for a fixed (A, B) pair.
type linearTestModel struct {
	a, b *mat.Dense
}

func (m linearTestModel) StateSpace() (*mat.Dense, *mat.Dense) { return m.a, m.b }

func (m linearTestModel) F(t float64, x, u mat.Vector) (mat.Vector, error) {
	n, _ := m.a.Dims()
	out := mat.NewVecDense(n, nil)
	out.MulVec(m.a, x)
	if m.b != nil {
		bu := mat.NewVecDense(n, nil)
		bu.MulVec(m.b, u)
		out.AddVec(out, bu)
	}
	return out, nil
}

func TestZeroOrderHoldUsesExactDiscretizationForLinearModel(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{-1.0})
	b := mat.NewDense(1, 1, []float64{0.0})
	model := linearTestModel{a: a, b: b}

	zoh := NewZeroOrderHold()
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	next, err := zoh.Step(model, 0, x0, u, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.6065306597126334, next.AtVec(0), 1e-9)
}

func TestZeroOrderHoldCachesByStepSize(t *testing.T) {
	a := mat.NewDense(1, 1, []float64{-1.0})
	model := linearTestModel{a: a}

	zoh := NewZeroOrderHold()
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	_, err := zoh.Step(model, 0, x0, u, 0.25)
	require.NoError(t, err)
	assert.Len(t, zoh.cache, 1)

	_, err = zoh.Step(model, 0.25, x0, u, 0.25)
	require.NoError(t, err)
	assert.Len(t, zoh.cache, 1) // same dt reuses the cached pair

	_, err = zoh.Step(model, 0.5, x0, u, 0.5)
	require.NoError(t, err)
	assert.Len(t, zoh.cache, 2)
}

func TestZeroOrderHoldFallsBackToRK4ForNonlinearModel(t *testing.T) {
	zoh := NewZeroOrderHold()
	x0 := mat.NewVecDense(1, []float64{1.0})
	u := mat.NewVecDense(1, []float64{0})
	next, err := zoh.Step(linearDecay{}, 0, x0, u, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.9048374180359595, next.AtVec(0), 1e-6)
}
