package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLegacyDIPStepMatchesPlantDerivativeToFirstOrder(t *testing.T) {
	plant := NewDefault()
	legacy := LegacyDIP{Plant: plant}
	x0 := mat.NewVecDense(stateDim, []float64{0, 0.05, -0.03, 0, 0, 0})
	u := mat.NewVecDense(1, []float64{1.0})

	next, err := legacy.Step(x0, u, 1e-4)
	require.NoError(t, err)

	deriv, err := plant.F(0, x0, u)
	require.NoError(t, err)
	for i := 0; i < stateDim; i++ {
		expected := x0.AtVec(i) + 1e-4*deriv.AtVec(i)
		assert.InDelta(t, expected, next.AtVec(i), 1e-6, "component %d", i)
	}
}

func TestLinearizedMatchesNonlinearNearEquilibrium(t *testing.T) {
	plant := NewDefault()
	lin := Linearized{Plant: plant}
	x0 := mat.NewVecDense(stateDim, []float64{0, 0.001, -0.001, 0, 0, 0})
	u := mat.NewVecDense(1, []float64{0.1})

	nonlinear, err := plant.F(0, x0, u)
	require.NoError(t, err)
	linear, err := lin.F(0, x0, u)
	require.NoError(t, err)

	for i := 0; i < stateDim; i++ {
		assert.InDelta(t, nonlinear.AtVec(i), linear.AtVec(i), 1e-3, "component %d", i)
	}
}

func TestLinearizedStateSpaceShapes(t *testing.T) {
	lin := Linearized{Plant: NewDefault()}
	a, b := lin.StateSpace()
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	assert.Equal(t, 6, ra)
	assert.Equal(t, 6, ca)
	assert.Equal(t, 6, rb)
	assert.Equal(t, 1, cb)
}
