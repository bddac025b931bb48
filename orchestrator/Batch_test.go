package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/controlsim/dipkernel/integrate"
	"github.com/controlsim/dipkernel/safety"
)

func zeroUSeq(n int) []mat.Vector {
	out := make([]mat.Vector, n)
	for i := range out {
		out[i] = mat.NewVecDense(1, []float64{0})
	}
	return out
}

func TestBatchExecuteRunsAllRowsToHorizon(t *testing.T) {
	orch := NewBatch(NewBase(decayModel{}, integrate.ForwardEuler{}))
	x0Rows := []mat.Vector{
		mat.NewVecDense(1, []float64{1.0}),
		mat.NewVecDense(1, []float64{2.0}),
	}

	b, err := orch.Execute(x0Rows, 0.1, 5, BatchOptions{Options: Options{USeq: zeroUSeq(5)}})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 6, b.Row(0).Len())
	assert.Equal(t, 6, b.Row(1).Len())
}

func TestBatchExecuteDeactivatesRowIndependently(t *testing.T) {
	orch := NewBatch(NewBase(decayModel{}, integrate.ForwardEuler{}))
	x0Rows := []mat.Vector{
		mat.NewVecDense(1, []float64{1.0}), // stays in bounds
		mat.NewVecDense(1, []float64{5.0}), // violates immediately
	}
	guards := safety.NewManager(safety.Bounds{Lo: []float64{-2}, Hi: []float64{2}})

	b, err := orch.Execute(x0Rows, 0.1, 5, BatchOptions{Options: Options{USeq: zeroUSeq(5), SafetyGuards: guards}})
	require.NoError(t, err)
	assert.True(t, b.Row(1).Metadata()["truncated"].(bool))
	assert.Less(t, b.Row(1).Len(), b.Row(0).Len())
}

func TestBatchExecuteStopsWhenAllRowsInactive(t *testing.T) {
	orch := NewBatch(NewBase(decayModel{}, integrate.ForwardEuler{}))
	x0Rows := []mat.Vector{mat.NewVecDense(1, []float64{10.0})}
	guards := safety.NewManager(safety.Bounds{Lo: []float64{-1}, Hi: []float64{1}})

	b, err := orch.Execute(x0Rows, 0.1, 50, BatchOptions{Options: Options{USeq: zeroUSeq(50), SafetyGuards: guards}})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Row(0).Len()) // truncated at the very first check
}

func TestUniformStatesAfterBatchExecute(t *testing.T) {
	orch := NewBatch(NewBase(decayModel{}, integrate.ForwardEuler{}))
	x0Rows := []mat.Vector{
		mat.NewVecDense(1, []float64{1.0}),
		mat.NewVecDense(1, []float64{5.0}),
	}
	guards := safety.NewManager(safety.Bounds{Lo: []float64{-2}, Hi: []float64{2}})

	b, err := orch.Execute(x0Rows, 0.1, 5, BatchOptions{Options: Options{USeq: zeroUSeq(5), SafetyGuards: guards}})
	require.NoError(t, err)
	uniform := b.UniformStates()
	assert.Equal(t, len(uniform[0]), len(uniform[1]))
}
