package snr

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/logger"
	"cryorestore/pkg/correlation"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/freq"
	"cryorestore/pkg/patch"
)

// Spectral is a frequency-resolved estimate: Values[k] belongs to Frequencies[k].
type Spectral struct {
	Frequencies []float64
	Values      []float64
}

// SSNR estimates the spectral SNR of two images with default options.
func SSNR(a, b *mat.Dense, pixelSize float64) (*Spectral, error) {
	return SSNRWithOptions(a, b, pixelSize, DefaultOptions())
}

// SSNRWithOptions estimates the spectral SNR of two independent observations
// of the same signal. The Fourier ring correlation is computed on every pair of
// matching SpectralWindow patches and averaged (Welch's method), then each ring
// is converted with FRC/(1-FRC).
//
// Parameters:
//   - a, b: Equally shaped images, typically the even and odd frame sums
//   - pixelSize: Sampling in Ångström per pixel, used only for the frequency axis
//   - opts: SpectralWindow sets the patch edge and the bin count, SpectralWindow/2
//
// Returns:
//   - Frequencies running linearly from zero to Nyquist and one SSNR value per
//     bin. Degenerate bins are returned as NaN or Inf and logged at warn level.
//   - ErrInvalidArgument for a non-positive pixel size, mismatched shapes or
//     images smaller than one window
func SSNRWithOptions(a, b *mat.Dense, pixelSize float64, opts Options) (*Spectral, error) {
	if err := validateSpectral(pixelSize, opts, a, b); err != nil {
		return nil, err
	}
	return ssnr(a, b, pixelSize, opts.SpectralWindow)
}

func validateSpectral(pixelSize float64, opts Options, images ...*mat.Dense) error {
	if !(pixelSize > 0) {
		return errdefs.InvalidArgumentf("pixel size %g must be positive", pixelSize)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	return checkShapes(opts.SpectralWindow, images...)
}

func ssnr(a, b *mat.Dense, pixelSize float64, window int) (*Spectral, error) {
	pa, err := patch.Extract(a, window, 0)
	if err != nil {
		return nil, err
	}
	pb, err := patch.Extract(b, window, 0)
	if err != nil {
		return nil, err
	}
	rings, err := freq.Rings(window)
	if err != nil {
		return nil, err
	}

	mean := make([]float64, rings.N)
	for k := range pa {
		frc, err := correlation.FourierRingCorrelation(pa[k], pb[k], rings)
		if err != nil {
			return nil, err
		}
		floats.Add(mean, frc)
	}
	floats.Scale(1/float64(len(pa)), mean)

	values := make([]float64, len(mean))
	for k, frc := range mean {
		values[k] = FromCorrelation(frc)
		if math.IsNaN(values[k]) || math.IsInf(values[k], 0) {
			logger.L().Warn().
				Int("bin", k).
				Float64("frc", frc).
				Float64("ssnr", values[k]).
				Msg("degenerate SSNR bin")
		}
	}

	logger.L().Debug().
		Int("patches", len(pa)).
		Int("window", window).
		Int("rings", rings.N).
		Msg("spectral SNR")
	return &Spectral{
		Frequencies: rings.Bins(pixelSize),
		Values:      values,
	}, nil
}

// DenoisedHalfSSNR applies the DenoisedHalfSNR combination per frequency bin.
// It returns the frequency bins, the denoised half-sum SSNR and the raw SSNR.
func DenoisedHalfSSNR(rawEven, rawOdd, denoisedEven, denoisedOdd *mat.Dense, pixelSize float64) (frequencies, denoised, raw []float64, err error) {
	return DenoisedHalfSSNRWithOptions(rawEven, rawOdd, denoisedEven, denoisedOdd, pixelSize, DefaultOptions())
}

// DenoisedHalfSSNRWithOptions is DenoisedHalfSSNR with an explicit window.
func DenoisedHalfSSNRWithOptions(rawEven, rawOdd, denoisedEven, denoisedOdd *mat.Dense, pixelSize float64, opts Options) (frequencies, denoised, raw []float64, err error) {
	if err := validateSpectral(pixelSize, opts, rawEven, rawOdd, denoisedEven, denoisedOdd); err != nil {
		return nil, nil, nil, err
	}

	rawEst, err := ssnr(rawEven, rawOdd, pixelSize, opts.SpectralWindow)
	if err != nil {
		return nil, nil, nil, err
	}
	mixed1, err := ssnr(denoisedEven, rawOdd, pixelSize, opts.SpectralWindow)
	if err != nil {
		return nil, nil, nil, err
	}
	mixed2, err := ssnr(rawEven, denoisedOdd, pixelSize, opts.SpectralWindow)
	if err != nil {
		return nil, nil, nil, err
	}

	denoised = make([]float64, len(rawEst.Values))
	for k := range denoised {
		denoised[k] = Combine(rawEst.Values[k], mixed1.Values[k], mixed2.Values[k])
	}
	return rawEst.Frequencies, denoised, rawEst.Values, nil
}
