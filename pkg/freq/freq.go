// Package freq computes the spatial-frequency fields that accompany a
// half-spectrum Fourier transform.
//
// The horizontal axis of a half-spectrum runs from zero to Nyquist. The vertical
// axis is the full signed axis in wrapped order: index 0 holds zero frequency,
// the first half holds positive frequencies and the tail holds the negative ones.
// SignedIndex and Index convert between the two representations.
package freq

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
)

// RFFTFreq returns the n/2+1 non-negative sample frequencies of a real FFT of
// length n with sample spacing d.
func RFFTFreq(n int, d float64) []float64 {
	out := make([]float64, n/2+1)
	for i := range out {
		out[i] = float64(i) / (d * float64(n))
	}
	return out
}

// FFTFreq returns the n signed sample frequencies of a complex FFT of length n
// with sample spacing d, in wrapped order.
func FFTFreq(n int, d float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(SignedIndex(i, n)) / (d * float64(n))
	}
	return out
}

// SignedIndex maps a wrapped array index on an axis of length n to its signed
// frequency index: 0..ceil(n/2)-1 are non-negative, the rest are negative.
func SignedIndex(i, n int) int {
	if i < (n+1)/2 {
		return i
	}
	return i - n
}

// Index is the inverse of SignedIndex. k must lie in [-n/2, ceil(n/2)-1].
func Index(k, n int) int {
	if k < 0 {
		return k + n
	}
	return k
}

// Nyquist returns the highest representable frequency for the given pixel size.
func Nyquist(pixelSize float64) float64 {
	return 1 / (2 * pixelSize)
}

func validate(rows, cols int, pixelSize float64) error {
	if rows <= 0 || cols <= 0 {
		return errdefs.InvalidArgumentf("shape (%d, %d) must have positive dimensions", rows, cols)
	}
	if !(pixelSize > 0) {
		return errdefs.InvalidArgumentf("pixel size %g must be positive", pixelSize)
	}
	return nil
}

// Spatial returns the frequency magnitude of every coefficient in the
// half-spectrum of a (rows, cols) image, in cycles per unit of pixelSize.
// The result has shape (rows, cols/2+1).
func Spatial(rows, cols int, pixelSize float64) (*mat.Dense, error) {
	if err := validate(rows, cols, pixelSize); err != nil {
		return nil, err
	}
	mag, _ := fields(rows, cols, pixelSize, false)
	return mag, nil
}

// SpatialWithAngles returns the frequency magnitudes together with the angle of
// every coefficient relative to the horizontal axis, atan2(vertical, horizontal).
func SpatialWithAngles(rows, cols int, pixelSize float64) (mag, ang *mat.Dense, err error) {
	if err := validate(rows, cols, pixelSize); err != nil {
		return nil, nil, err
	}
	mag, ang = fields(rows, cols, pixelSize, true)
	return mag, ang, nil
}

func fields(rows, cols int, pixelSize float64, angles bool) (*mat.Dense, *mat.Dense) {
	h := RFFTFreq(cols, pixelSize)
	v := FFTFreq(rows, pixelSize)

	mag := mat.NewDense(rows, len(h), nil)
	var ang *mat.Dense
	if angles {
		ang = mat.NewDense(rows, len(h), nil)
	}
	for i, fy := range v {
		for j, fx := range h {
			mag.Set(i, j, math.Hypot(fx, fy))
			if angles {
				ang.Set(i, j, math.Atan2(fy, fx))
			}
		}
	}

	logger.L().Debug().
		Int("rows", rows).
		Int("cols", cols).
		Float64("pixelSize", pixelSize).
		Msg("computed spatial frequency field")
	return mag, ang
}
