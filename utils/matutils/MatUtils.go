// Package matutils implements utility functions for working with
// gonum mat.Matrix and mat.Vector values, used by the robust package.
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Format formats a matrix for printing, e.g. in Stringer implementations
// and log fields.
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// RowSumSquares returns, for each row of matrix, the sum of squared
// elements in that row, reducing a batch of state rows to one scalar each.
func RowSumSquares(matrix *mat.Dense) []float64 {
	r, c := matrix.Dims()
	sums := make([]float64, r)
	for i := 0; i < r; i++ {
		var total float64
		for j := 0; j < c; j++ {
			v := matrix.At(i, j)
			total += v * v
		}
		sums[i] = total
	}
	return sums
}

// VecClip performs an element-wise clipping of a vector's values such
// that each value is at least min and at most max.
func VecClip(a *mat.VecDense, min, max float64) {
	for i := 0; i < a.Len(); i++ {
		value := a.AtVec(i)

		if value < min {
			a.SetVec(i, min)
		} else if value > max {
			a.SetVec(i, max)
		}
	}
}

// ColMean computes, for each column of matrix, the mean across all rows,
// the way the teacher's RowMean leans on stat.Mean for its row reduction.
// Used by the robust evaluator to average a scenario-by-particle cost
// matrix down to one mean cost per particle.
func ColMean(matrix *mat.Dense) []float64 {
	r, c := matrix.Dims()
	means := make([]float64, c)
	if r == 0 {
		return means
	}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			col[i] = matrix.At(i, j)
		}
		means[j] = stat.Mean(col, nil)
	}
	return means
}

// ColMax computes, for each column of matrix, the maximum across all rows.
// Used by the robust evaluator's worst-case term.
func ColMax(matrix *mat.Dense) []float64 {
	r, c := matrix.Dims()
	maxes := make([]float64, c)
	if r == 0 {
		return maxes
	}
	for j := 0; j < c; j++ {
		m := matrix.At(0, j)
		for i := 1; i < r; i++ {
			if v := matrix.At(i, j); v > m {
				m = v
			}
		}
		maxes[j] = m
	}
	return maxes
}
