package freq

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linspace returns n values evenly spaced over [lo, hi], endpoints included.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	out := floats.Span(make([]float64, n), lo, hi)
	out[0], out[n-1] = lo, hi
	return out
}

// InsertionPoint returns the first index at which sorted[i] >= x, len(sorted)
// if there is none.
func InsertionPoint(sorted []float64, x float64) int {
	return sort.SearchFloat64s(sorted, x)
}

// HorizontalAxis extracts the non-negative horizontal axis (row 0) of a
// frequency field.
func HorizontalAxis(field mat.Matrix) []float64 {
	_, cols := field.Dims()
	return mat.Row(make([]float64, cols), 0, field)
}

// PositiveVerticalAxis extracts the first rows/2 entries of column 0 of a
// frequency field, the non-negative part of the wrapped vertical axis.
func PositiveVerticalAxis(field mat.Matrix) []float64 {
	rows, _ := field.Dims()
	col := mat.Col(make([]float64, rows), 0, field)
	return col[:rows/2]
}
