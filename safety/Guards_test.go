package safety

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/simerr"
)

func TestNoNaN(t *testing.T) {
	g := NoNaN{}
	ok := mat.NewVecDense(2, []float64{1, 2})
	assert.Nil(t, g.Check(0, 0, ok))

	bad := mat.NewVecDense(2, []float64{1, math.NaN()})
	v := g.Check(5, 0, bad)
	require.NotNil(t, v)
	assert.Equal(t, simerr.ViolationNaN, v.Kind)
	assert.Contains(t, v.Error(), "NaN detected in state at step 5")
}

func TestEnergyCap(t *testing.T) {
	g := EnergyCap{Energy: func(x mat.Vector) float64 {
		var s float64
		for i := 0; i < x.Len(); i++ {
			s += x.AtVec(i) * x.AtVec(i)
		}
		return s
	}, Max: 10}

	low := mat.NewVecDense(2, []float64{1, 1})
	assert.Nil(t, g.Check(0, 0, low))

	high := mat.NewVecDense(2, []float64{10, 10})
	v := g.Check(2, 0, high)
	require.NotNil(t, v)
	assert.Contains(t, v.Error(), "Energy check failed: total_energy=")
	assert.Contains(t, v.Error(), "exceeds 10")
}

func TestBounds(t *testing.T) {
	g := Bounds{Lo: []float64{-1, -1}, Hi: []float64{1, 1}}

	inside := mat.NewVecDense(2, []float64{0.5, -0.5})
	assert.Nil(t, g.Check(0, 1.0, inside))

	outside := mat.NewVecDense(2, []float64{2, 0})
	v := g.Check(1, 2.5, outside)
	require.NotNil(t, v)
	assert.Contains(t, v.Error(), "State bounds violated at t=2.5")
}

func TestManagerStopsAtFirstViolation(t *testing.T) {
	m := NewManager(NoNaN{}, Bounds{Lo: []float64{-1}, Hi: []float64{1}})
	assert.Equal(t, 2, m.Len())

	bad := mat.NewVecDense(1, []float64{math.NaN()})
	v := m.Check(0, 0, bad)
	require.NotNil(t, v)
	assert.Equal(t, simerr.ViolationNaN, v.Kind)

	outOfBounds := mat.NewVecDense(1, []float64{5})
	v2 := m.Check(1, 0, outOfBounds)
	require.NotNil(t, v2)
	assert.Equal(t, simerr.ViolationBounds, v2.Kind)

	ok := mat.NewVecDense(1, []float64{0})
	assert.Nil(t, m.Check(2, 0, ok))
}
