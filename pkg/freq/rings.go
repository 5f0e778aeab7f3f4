package freq

import (
	"math"

	"cryorestore/pkg/errdefs"
)

// RingAssignment maps every coefficient of a half-spectrum to a frequency ring.
type RingAssignment struct {
	// Rows and Cols give the half-spectrum shape the assignment was built for.
	Rows, Cols int

	// Index holds the ring of each coefficient in row-major order.
	Index []int

	// N is the number of rings reported by ring correlations. Rings at or beyond
	// N (the corners of the spectrum) are accumulated but not reported.
	N int
}

// Rings assigns each coefficient of a window×window half-spectrum to the ring
// round(|f|·window), with f measured in cycles per pixel. window/2 rings are kept.
func Rings(window int) (*RingAssignment, error) {
	if window < 2 {
		return nil, errdefs.InvalidArgumentf("ring window %d must be at least 2", window)
	}
	mag, _ := fields(window, window, 1, false)
	rows, cols := mag.Dims()

	ra := &RingAssignment{
		Rows:  rows,
		Cols:  cols,
		Index: make([]int, rows*cols),
		N:     window / 2,
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			ra.Index[i*cols+j] = int(math.RoundToEven(mag.At(i, j) * float64(window)))
		}
	}
	return ra, nil
}

// Count returns the number of accumulator bins needed to hold every ring.
func (ra *RingAssignment) Count() int {
	max := 0
	for _, r := range ra.Index {
		if r > max {
			max = r
		}
	}
	if max+1 < ra.N {
		return ra.N
	}
	return max + 1
}

// Bins returns N frequencies evenly spaced from zero to Nyquist for pixelSize,
// the axis that accompanies ring-resolved estimates.
func (ra *RingAssignment) Bins(pixelSize float64) []float64 {
	return Linspace(0, Nyquist(pixelSize), ra.N)
}
