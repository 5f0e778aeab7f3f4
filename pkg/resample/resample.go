// Package resample changes the size of micrographs in the Fourier domain.
//
// Binning crops the half-spectrum to the frequencies below a cutoff, optionally
// after a Butterworth low-pass filter; unbinning zero-pads the half-spectrum to a
// larger grid. Both keep the wrapped negative-frequency row layout of the
// transform, so no real-space interpolation takes place.
//
// Transforms are unnormalized forward and 1/N on the inverse, which means
// resampled intensities scale by the ratio of input to output pixel counts.
package resample

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/fft"
	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/freq"
)

// DefaultButterworthOrder is the filter order used when Options are not given.
const DefaultButterworthOrder = 5

// Options controls binning.
type Options struct {
	// LowPass applies a Butterworth filter before cropping.
	LowPass bool

	// ButterworthOrder sets the roll-off steepness of the filter.
	ButterworthOrder int

	// Frequencies is an optional precomputed frequency field for the input
	// shape and pixel size, as returned by freq.Spatial. Supplying it avoids
	// recomputing the field for many same-shaped micrographs.
	Frequencies *mat.Dense
}

// DefaultOptions returns low-pass filtering with a fifth order Butterworth filter.
func DefaultOptions() Options {
	return Options{
		LowPass:          true,
		ButterworthOrder: DefaultButterworthOrder,
	}
}

// Butterworth returns the low-pass transfer 1/(1+(f/cutoff)^(2·order)).
// The response is exactly 0.5 at f == cutoff for every order.
func Butterworth(f, cutoff float64, order int) float64 {
	return 1 / (1 + math.Pow(f/cutoff, float64(2*order)))
}

// NextMultipleOf32 rounds n up to the next multiple of 32.
func NextMultipleOf32(n int) int {
	if r := n % 32; r != 0 {
		if n < 0 {
			return n - r
		}
		return n + 32 - r
	}
	return n
}

// cropBounds holds the number of retained horizontal columns and the height of
// each of the two retained vertical bands.
type cropBounds struct {
	hCut int
	vCut int
}

func (b cropBounds) shape() (rows, cols int) {
	return 2 * b.vCut, 2 * (b.hCut - 1)
}

// CropShape returns the shape that Bin produces for an image of the given shape,
// pixel size and cutoff.
func CropShape(rows, cols int, pixelSize, cutoff float64) (int, int, error) {
	b, err := bounds(rows, cols, pixelSize, cutoff, nil)
	if err != nil {
		return 0, 0, err
	}
	r, c := b.shape()
	return r, c, nil
}

// bounds validates the binning geometry and locates the crop. A non-nil field
// supplies the axes, otherwise they are computed from the shape.
func bounds(rows, cols int, pixelSize, cutoff float64, field *mat.Dense) (cropBounds, error) {
	if rows <= 0 || cols <= 0 {
		return cropBounds{}, errdefs.InvalidArgumentf("image shape (%d, %d) must have positive dimensions", rows, cols)
	}
	if rows%2 != 0 {
		return cropBounds{}, errdefs.InvalidArgumentf("image row count %d must be even", rows)
	}
	if !(pixelSize > 0) {
		return cropBounds{}, errdefs.InvalidArgumentf("pixel size %g must be positive", pixelSize)
	}
	if !(cutoff > 0) {
		return cropBounds{}, errdefs.InvalidArgumentf("cutoff %g must be positive", cutoff)
	}
	if nyquist := freq.Nyquist(pixelSize); cutoff > nyquist {
		return cropBounds{}, errdefs.InvalidArgumentf("cutoff %g exceeds Nyquist frequency %g", cutoff, nyquist)
	}

	var h, v []float64
	if field != nil {
		fr, fc := field.Dims()
		if fr != rows || fc != fft.HalfCols(cols) {
			return cropBounds{}, errdefs.InvalidArgumentf("frequency field shape (%d, %d) does not match half-spectrum (%d, %d)",
				fr, fc, rows, fft.HalfCols(cols))
		}
		h = freq.HorizontalAxis(field)
		v = freq.PositiveVerticalAxis(field)
	} else {
		h = freq.RFFTFreq(cols, pixelSize)
		v = freq.FFTFreq(rows, pixelSize)[:rows/2]
	}

	b := cropBounds{
		hCut: freq.InsertionPoint(h, cutoff),
		vCut: freq.InsertionPoint(v, cutoff),
	}
	if b.hCut < 2 || b.vCut < 1 {
		return cropBounds{}, errdefs.InvalidArgumentf("cutoff %g keeps no usable frequencies for shape (%d, %d)", cutoff, rows, cols)
	}
	return b, nil
}

// Bin downsamples img by cropping its half-spectrum to frequencies below
// cutoff. The spectrum is optionally multiplied by a Butterworth low-pass
// response first, so the crop edge does not leave a hard step. Rows are cut
// from both ends of the wrapped vertical axis to keep the negative
// frequencies in place.
//
// Parameters:
//   - img: Input micrograph with an even number of rows
//   - pixelSize: Sampling of img in Ångström per pixel
//   - cutoff: Highest frequency to keep in 1/Ångström, at most Nyquist
//   - opts: Low-pass switch, Butterworth order and an optional precomputed
//     frequency field of shape (rows, cols/2+1)
//
// Returns:
//   - The binned image of shape (2·v, 2·(h−1)), where h and v are the insertion
//     points of cutoff on the horizontal and positive vertical frequency axes.
//     Intensities scale by the ratio of pixel counts.
//   - ErrInvalidArgument for odd row counts, non-positive pixel size or cutoff,
//     a cutoff above Nyquist, or a cutoff too low to keep any columns
func Bin(img *mat.Dense, pixelSize, cutoff float64, opts Options) (*mat.Dense, error) {
	if img == nil || img.IsEmpty() {
		return nil, errdefs.InvalidArgumentf("image is empty")
	}
	rows, cols := img.Dims()
	if opts.LowPass && opts.ButterworthOrder < 1 {
		return nil, errdefs.InvalidArgumentf("butterworth order %d must be at least 1", opts.ButterworthOrder)
	}
	b, err := bounds(rows, cols, pixelSize, cutoff, opts.Frequencies)
	if err != nil {
		return nil, err
	}

	spec := fft.Forward(img)
	if opts.LowPass {
		field := opts.Frequencies
		if field == nil {
			if field, err = freq.Spatial(rows, cols, pixelSize); err != nil {
				return nil, err
			}
		}
		lowPass(spec, field, cutoff, opts.ButterworthOrder)
	}

	outRows, outCols := b.shape()
	binned := fft.Inverse(crop(spec, b), outCols)

	logger.L().Debug().
		Int("rows", rows).
		Int("cols", cols).
		Int("binnedRows", outRows).
		Int("binnedCols", outCols).
		Float64("cutoff", cutoff).
		Bool("lowPass", opts.LowPass).
		Msg("binned micrograph")
	return binned, nil
}

// lowPass multiplies spec in place by the Butterworth response of field.
func lowPass(spec *fft.Spectrum, field mat.Matrix, cutoff float64, order int) {
	for i := 0; i < spec.Rows; i++ {
		row := spec.Row(i)
		for j := range row {
			row[j] *= complex(Butterworth(field.At(i, j), cutoff, order), 0)
		}
	}
}

// crop keeps the first hCut columns of the top vCut rows and the bottom vCut
// rows, stacking the two bands into a smaller half-spectrum.
func crop(spec *fft.Spectrum, b cropBounds) *fft.Spectrum {
	out := fft.NewSpectrum(2*b.vCut, b.hCut)
	for i := 0; i < b.vCut; i++ {
		copy(out.Row(i), spec.Row(i)[:b.hCut])
		copy(out.Row(b.vCut+i), spec.Row(spec.Rows-b.vCut+i)[:b.hCut])
	}
	return out
}
