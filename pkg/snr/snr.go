// Package snr estimates the signal-to-noise ratio of paired micrographs.
//
// Two images of the same specimen with independent noise, such as the even and
// odd frame sums of a movie, correlate with coefficient CC = S/(S+N). The
// estimator of Frank and Al-Ali (1975) inverts that to SNR = CC/(1-CC). The
// spectral variant applies the same law per Fourier ring.
//
// Arithmetic edge cases are not errors: CC == 1 yields +Inf, negative CC yields
// negative SNR and constant inputs yield NaN. Callers filter those after
// aggregation. Structurally invalid input fails with errdefs.ErrInvalidArgument
// before any work is done.
package snr

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/logger"
	"cryorestore/pkg/correlation"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/patch"
)

// DefaultSpectralWindow is the patch size used for spectral estimates.
const DefaultSpectralWindow = 256

// Options configures the patch geometry of the estimators.
type Options struct {
	// PatchSize is the edge length of the patches averaged by SNR.
	PatchSize int

	// SpectralWindow is the edge length of the patches averaged by SSNR.
	// It also fixes the number of frequency bins, SpectralWindow/2.
	SpectralWindow int
}

// DefaultOptions returns 192 pixel patches for SNR and 256 pixel windows for SSNR.
func DefaultOptions() Options {
	return Options{
		PatchSize:      patch.DefaultSize,
		SpectralWindow: DefaultSpectralWindow,
	}
}

// Validate reports unusable patch geometry as errdefs.ErrInvalidArgument.
func (o Options) Validate() error {
	if o.PatchSize <= 0 {
		return errdefs.InvalidArgumentf("patch size %d must be positive", o.PatchSize)
	}
	if o.SpectralWindow < 2 {
		return errdefs.InvalidArgumentf("spectral window %d must be at least 2", o.SpectralWindow)
	}
	return nil
}

// checkShapes verifies that all images are non-empty and equally shaped, and
// that at least one patch of edge size fits.
func checkShapes(size int, images ...*mat.Dense) error {
	var rows, cols int
	for k, img := range images {
		if img == nil || img.IsEmpty() {
			return errdefs.InvalidArgumentf("image %d is empty", k)
		}
		r, c := img.Dims()
		if k == 0 {
			rows, cols = r, c
			continue
		}
		if r != rows || c != cols {
			return errdefs.InvalidArgumentf("image %d shape (%d, %d) differs from (%d, %d)", k, r, c, rows, cols)
		}
	}
	if len(patch.Offsets(rows, size, 0)) == 0 || len(patch.Offsets(cols, size, 0)) == 0 {
		return errdefs.InvalidArgumentf("image shape (%d, %d) yields no patches of size %d", rows, cols, size)
	}
	return nil
}

// FromCorrelation converts a correlation coefficient into an SNR, CC/(1-CC).
func FromCorrelation(cc float64) float64 {
	return cc / (1 - cc)
}

// Combine applies the denoised half-sum law: the mean of the two mixed
// (denoised × raw) estimates, squared, divided by the raw estimate.
func Combine(raw, mixed1, mixed2 float64) float64 {
	mixed := (mixed1 + mixed2) / 2
	return mixed * mixed / raw
}

// SNR estimates the SNR of two images from their patch-averaged
// cross-correlation with default options.
func SNR(a, b *mat.Dense) (float64, error) {
	return SNRWithOptions(a, b, DefaultOptions())
}

// SNRWithOptions is SNR with an explicit patch size.
func SNRWithOptions(a, b *mat.Dense, opts Options) (float64, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	if err := checkShapes(opts.PatchSize, a, b); err != nil {
		return 0, err
	}
	return snr(a, b, opts.PatchSize)
}

func snr(a, b *mat.Dense, size int) (float64, error) {
	cc, err := correlation.PatchCrossCorrelation(a, b, size)
	if err != nil {
		return 0, err
	}
	v := FromCorrelation(cc)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		logger.L().Warn().Float64("cc", cc).Float64("snr", v).Msg("degenerate SNR estimate")
	}
	return v, nil
}

// DenoisedHalfSNR estimates the SNR of a denoised half-sum from the raw even and
// odd frame sums and their denoised counterparts. It returns the denoised SNR
// Combine(raw, SNR(denoisedEven, rawOdd), SNR(rawEven, denoisedOdd)) together
// with the raw SNR(rawEven, rawOdd).
func DenoisedHalfSNR(rawEven, rawOdd, denoisedEven, denoisedOdd *mat.Dense) (denoised, raw float64, err error) {
	return DenoisedHalfSNRWithOptions(rawEven, rawOdd, denoisedEven, denoisedOdd, DefaultOptions())
}

// DenoisedHalfSNRWithOptions is DenoisedHalfSNR with an explicit patch size.
func DenoisedHalfSNRWithOptions(rawEven, rawOdd, denoisedEven, denoisedOdd *mat.Dense, opts Options) (denoised, raw float64, err error) {
	if err := opts.Validate(); err != nil {
		return 0, 0, err
	}
	if err := checkShapes(opts.PatchSize, rawEven, rawOdd, denoisedEven, denoisedOdd); err != nil {
		return 0, 0, err
	}

	if raw, err = snr(rawEven, rawOdd, opts.PatchSize); err != nil {
		return 0, 0, err
	}
	mixed1, err := snr(denoisedEven, rawOdd, opts.PatchSize)
	if err != nil {
		return 0, 0, err
	}
	mixed2, err := snr(rawEven, denoisedOdd, opts.PatchSize)
	if err != nil {
		return 0, 0, err
	}
	denoised = Combine(raw, mixed1, mixed2)

	logger.L().Debug().
		Float64("raw", raw).
		Float64("mixed1", mixed1).
		Float64("mixed2", mixed2).
		Float64("denoised", denoised).
		Msg("denoised half-sum SNR")
	return denoised, raw, nil
}
