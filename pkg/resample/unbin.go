package resample

import (
	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/fft"
	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/freq"
	"cryorestore/pkg/mask"
)

func validateUnbin(img *mat.Dense, rows, cols int) error {
	if img == nil || img.IsEmpty() {
		return errdefs.InvalidArgumentf("image is empty")
	}
	srcRows, srcCols := img.Dims()
	if srcRows%2 != 0 {
		return errdefs.InvalidArgumentf("image row count %d must be even", srcRows)
	}
	if rows < srcRows || cols < srcCols {
		return errdefs.InvalidArgumentf("target shape (%d, %d) is smaller than source shape (%d, %d)",
			rows, cols, srcRows, srcCols)
	}
	return nil
}

// Unbin upsamples img to (rows, cols) by zero-padding its half-spectrum.
// This is Fourier (sinc) interpolation and rings near sharp edges; UnbinSoft
// tapers the padded spectrum to suppress that.
func Unbin(img *mat.Dense, rows, cols int) (*mat.Dense, error) {
	if err := validateUnbin(img, rows, cols); err != nil {
		return nil, err
	}
	out := fft.Inverse(pad(fft.Forward(img), rows, fft.HalfCols(cols)), cols)

	srcRows, srcCols := img.Dims()
	logger.L().Debug().
		Int("rows", srcRows).
		Int("cols", srcCols).
		Int("unbinnedRows", rows).
		Int("unbinnedCols", cols).
		Msg("unbinned micrograph")
	return out, nil
}

// UnbinSoft upsamples like Unbin and multiplies the padded spectrum by a soft
// mask that falls from 1 to 0 over width pixels inside cutoff. pixelSize is the
// pixel size of the upsampled image.
func UnbinSoft(img *mat.Dense, rows, cols int, pixelSize, cutoff float64, width int) (*mat.Dense, error) {
	if err := validateUnbin(img, rows, cols); err != nil {
		return nil, err
	}
	field, err := freq.Spatial(rows, cols, pixelSize)
	if err != nil {
		return nil, err
	}
	taper, err := mask.Soft(field, cutoff, width)
	if err != nil {
		return nil, err
	}

	spec := pad(fft.Forward(img), rows, fft.HalfCols(cols))
	if err := mask.ApplyToSpectrum(spec, taper); err != nil {
		return nil, err
	}
	return fft.Inverse(spec, cols), nil
}

// pad places the top half of spec's rows at the top of a zero-filled
// (rows, cols) half-spectrum and the bottom half flush against its bottom.
func pad(spec *fft.Spectrum, rows, cols int) *fft.Spectrum {
	out := fft.NewSpectrum(rows, cols)
	half := spec.Rows / 2
	for i := 0; i < half; i++ {
		copy(out.Row(i), spec.Row(i))
	}
	for i := half; i < spec.Rows; i++ {
		copy(out.Row(rows-spec.Rows+i), spec.Row(i))
	}
	return out
}
