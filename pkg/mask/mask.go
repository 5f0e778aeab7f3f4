// Package mask builds soft-edged Fourier masks that taper a spectrum smoothly
// to zero instead of truncating it, which suppresses ringing after padding.
package mask

import (
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/fft"
	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/freq"
)

// Soft builds a soft-edged low-pass mask over a frequency field.
// The region field < cutoff is eroded by width pixels; the surviving core is 1
// and the mask decays along a quarter sine to 0 over the next width pixels of
// Euclidean distance from that core.
//
// Parameters:
//   - field: Frequency magnitudes, usually from freq.Spatial
//   - cutoff: Frequency bounding the pass region, in the units of field
//   - width: Length of the fall-off in pixels, at least 2
//
// Returns:
//   - A mask of the shape of field with values in [0, 1]
//   - ErrInvalidArgument for an empty field, a non-positive cutoff or width < 2
func Soft(field *mat.Dense, cutoff float64, width int) (*mat.Dense, error) {
	if field == nil || field.IsEmpty() {
		return nil, errdefs.InvalidArgumentf("frequency field is empty")
	}
	if !(cutoff > 0) {
		return nil, errdefs.InvalidArgumentf("cutoff %g must be positive", cutoff)
	}
	if width < 2 {
		return nil, errdefs.InvalidArgumentf("mask width %d must be at least 2", width)
	}

	profile, err := sineProfile(width)
	if err != nil {
		return nil, err
	}

	rows, cols := field.Dims()
	region := make([]bool, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			region[i*cols+j] = field.At(i, j) < cutoff
		}
	}
	core := Erode(region, rows, cols, width)
	dist := DistanceTransform(core, rows, cols)

	out := mat.NewDense(rows, cols, nil)
	raw := out.RawMatrix()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			raw.Data[i*raw.Stride+j] = profile.Predict(dist[i*cols+j])
		}
	}

	logger.L().Debug().
		Int("rows", rows).
		Int("cols", cols).
		Float64("cutoff", cutoff).
		Int("width", width).
		Msg("built soft mask")
	return out, nil
}

// sineProfile interpolates sin over [π/2, 0] at distances 1..width, holding 1
// below the first sample and 0 beyond the last.
func sineProfile(width int) (*interp.PiecewiseLinear, error) {
	xs := make([]float64, width)
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	ys := freq.Linspace(math.Pi/2, 0, width)
	for i, phase := range ys {
		ys[i] = math.Sin(phase)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, errdefs.InvalidArgumentf("mask profile: %v", err)
	}
	return &pl, nil
}

// ApplyToSpectrum multiplies spec in place by m, which must share its shape.
func ApplyToSpectrum(spec *fft.Spectrum, m mat.Matrix) error {
	rows, cols := m.Dims()
	if rows != spec.Rows || cols != spec.Cols {
		return errdefs.InvalidArgumentf("mask shape (%d, %d) does not match spectrum (%d, %d)",
			rows, cols, spec.Rows, spec.Cols)
	}
	for i := 0; i < rows; i++ {
		row := spec.Row(i)
		for j := range row {
			row[j] *= complex(m.At(i, j), 0)
		}
	}
	return nil
}
