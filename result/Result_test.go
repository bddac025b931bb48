package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewContainerOwnsCopies(t *testing.T) {
	times := []float64{0, 1}
	states := []mat.Vector{mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, []float64{2})}
	controls := []mat.Vector{mat.NewVecDense(1, []float64{0.5})}
	sigmas := []float64{0.1}
	meta := Metadata{"reason": "ok"}

	c := NewContainer(times, states, controls, sigmas, meta)

	// Mutate the original inputs; the container must be unaffected.
	times[0] = 99
	states[0].(*mat.VecDense).SetVec(0, 99)
	meta["reason"] = "mutated"

	assert.Equal(t, 0.0, c.Times()[0])
	assert.Equal(t, 1.0, c.States()[0].AtVec(0))
	assert.Equal(t, "ok", c.Metadata()["reason"])
}

func TestContainerAccessorsReturnFreshCopies(t *testing.T) {
	states := []mat.Vector{mat.NewVecDense(1, []float64{1})}
	c := NewContainer([]float64{0}, states, nil, nil, nil)

	got := c.States()
	got[0].(*mat.VecDense).SetVec(0, 42)

	assert.Equal(t, 1.0, c.States()[0].AtVec(0))
}

func TestContainerLenMatchesStateCount(t *testing.T) {
	states := []mat.Vector{mat.NewVecDense(1, nil), mat.NewVecDense(1, nil), mat.NewVecDense(1, nil)}
	c := NewContainer([]float64{0, 1, 2}, states, nil, nil, nil)
	assert.Equal(t, 3, c.Len())
}

func TestNewContainerNilMetaYieldsEmptyMap(t *testing.T) {
	c := NewContainer(nil, nil, nil, nil, nil)
	assert.NotNil(t, c.Metadata())
	assert.Len(t, c.Metadata(), 0)
}
