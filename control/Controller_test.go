package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFromFuncWrapsStatelessCallable(t *testing.T) {
	c := FromFunc(func(t float64, x mat.Vector) float64 {
		return -2 * x.AtVec(0)
	})
	x := mat.NewVecDense(1, []float64{3.0})

	state, err := c.InitializeState()
	require.NoError(t, err)
	history, err := c.InitializeHistory()
	require.NoError(t, err)

	out, _, _, err := c.ComputeControl(x, state, history)
	require.NoError(t, err)
	assert.Equal(t, -6.0, out.U.AtVec(0))
	assert.False(t, out.HasSigma)
}

func TestAdvanceTimeUpdatesCallableClock(t *testing.T) {
	c := FromFunc(func(t float64, x mat.Vector) float64 { return t })
	c2 := AdvanceTime(c, 2.5)
	x := mat.NewVecDense(1, []float64{0})
	out, _, _, err := c2.ComputeControl(x, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, out.U.AtVec(0))
}

// nonCallableController is not built via FromFunc, so AdvanceTime must be a
// pass-through no-op for it.
type nonCallableController struct{}

func (nonCallableController) InitializeState() (any, error)   { return nil, nil }
func (nonCallableController) InitializeHistory() (any, error) { return nil, nil }
func (nonCallableController) ComputeControl(x mat.Vector, state, history any) (Output, any, any, error) {
	return Output{U: mat.NewVecDense(1, []float64{1})}, state, history, nil
}

func TestAdvanceTimeIsNoOpForNonCallable(t *testing.T) {
	c := nonCallableController{}
	same := AdvanceTime(c, 9.0)
	assert.Equal(t, c, same)
}
