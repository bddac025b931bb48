package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func rowContainer(n int, val float64) *Container {
	times := make([]float64, n)
	states := make([]mat.Vector, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i)
		states[i] = mat.NewVecDense(1, []float64{val})
	}
	return NewContainer(times, states, nil, nil, nil)
}

func TestBatchSetAndRow(t *testing.T) {
	b := NewBatch()
	b.Set(2, rowContainer(3, 1.0))
	b.Set(0, rowContainer(3, 2.0))
	assert.Equal(t, 2, b.Len())
	assert.NotNil(t, b.Row(0))
	assert.Nil(t, b.Row(1)) // absent row
}

func TestBatchStatesStacksInAscendingIndexOrder(t *testing.T) {
	b := NewBatch()
	b.Set(1, rowContainer(2, 1.0))
	b.Set(0, rowContainer(2, 0.0))

	stacked := b.States()
	require := assert.New(t)
	require.Len(stacked, 2)
	require.Equal(0.0, stacked[0][0].AtVec(0))
	require.Equal(1.0, stacked[1][0].AtVec(0))
}

func TestBatchHandlesFailedRows(t *testing.T) {
	b := NewBatch()
	b.Set(0, rowContainer(2, 1.0))
	b.Set(1, nil) // failed row

	stacked := b.States()
	assert.Len(t, stacked, 2)
	assert.Nil(t, stacked[1])
}

func TestUniformStatesBackfillsShortRows(t *testing.T) {
	b := NewBatch()
	b.Set(0, rowContainer(5, 1.0))
	b.Set(1, rowContainer(2, 2.0)) // truncated early

	uniform := b.UniformStates()
	assert.Len(t, uniform[0], 5)
	assert.Len(t, uniform[1], 5)
	// Backfilled entries repeat the last valid state.
	assert.Equal(t, 2.0, uniform[1][4].AtVec(0))

	// The row's own truncation length is preserved via Row().
	assert.Equal(t, 2, b.Row(1).Len())
}

func TestBatchTimesUsesFirstAvailableRow(t *testing.T) {
	b := NewBatch()
	b.Set(0, nil)
	b.Set(1, rowContainer(3, 1.0))
	times := b.Times()
	assert.Len(t, times, 3)
}
