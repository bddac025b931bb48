package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDIPAtRestIsAtRestWithNoForce(t *testing.T) {
	d := NewDefault()
	x0 := mat.NewVecDense(stateDim, nil) // cart centered, both links upright, zero velocity
	u := mat.NewVecDense(1, []float64{0})
	deriv, err := d.F(0, x0, u)
	require.NoError(t, err)
	for i := 0; i < stateDim; i++ {
		assert.InDelta(t, 0.0, deriv.AtVec(i), 1e-9, "component %d", i)
	}
}

func TestDIPRejectsWrongStateLength(t *testing.T) {
	d := NewDefault()
	x0 := mat.NewVecDense(3, nil)
	u := mat.NewVecDense(1, []float64{0})
	_, err := d.F(0, x0, u)
	require.Error(t, err)
}

func TestDIPStateDimMatchesLayout(t *testing.T) {
	d := NewDefault()
	assert.Equal(t, 6, d.StateDim())
}

func TestDIPEnergyIsMinimalAtUprightRest(t *testing.T) {
	d := NewDefault()
	rest := mat.NewVecDense(stateDim, nil)
	tilted := mat.NewVecDense(stateDim, []float64{0, 0.2, -0.1, 0, 0, 0})
	assert.Greater(t, d.Energy(tilted), d.Energy(rest))
}

func TestDIPForceAcceleratesCart(t *testing.T) {
	d := NewDefault()
	x0 := mat.NewVecDense(stateDim, nil)
	u := mat.NewVecDense(1, []float64{5.0})
	deriv, err := d.F(0, x0, u)
	require.NoError(t, err)
	assert.Greater(t, deriv.AtVec(3), 0.0) // positive force accelerates cart forward
}
