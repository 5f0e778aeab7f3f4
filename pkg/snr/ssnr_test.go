package snr

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
)

// TestSSNRFrequencyBins checks the bin axis and the white-noise level
func TestSSNRFrequencyBins(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	a, b := noisyPair(whiteSignal(600, 600, rng), 1, rng)

	est, err := SSNR(a, b, 1.5)
	require.NoError(t, err)
	require.Len(t, est.Frequencies, 128)
	require.Len(t, est.Values, 128)

	assert.Equal(t, 0.0, est.Frequencies[0])
	assert.InDelta(t, 1/(2*1.5), est.Frequencies[127], 1e-12)
	for k := 1; k < len(est.Frequencies); k++ {
		assert.Greater(t, est.Frequencies[k], est.Frequencies[k-1])
	}

	// White signal and white noise of equal power give SSNR near 1 in every ring
	sum := 0.0
	for _, v := range est.Values[20:] {
		sum += v
	}
	mean := sum / float64(len(est.Values[20:]))
	assert.InDelta(t, 1.0, mean, 0.3)
}

// TestSSNRWindowOption changes the number of bins
func TestSSNRWindowOption(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	a, b := noisyPair(whiteSignal(200, 200, rng), 0.5, rng)

	est, err := SSNRWithOptions(a, b, 2, Options{PatchSize: 64, SpectralWindow: 64})
	require.NoError(t, err)
	assert.Len(t, est.Values, 32)
	assert.InDelta(t, 0.25, est.Frequencies[31], 1e-12)
}

// TestDenoisedHalfSSNR checks the per-bin combination law
func TestDenoisedHalfSSNR(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	signal := whiteSignal(300, 300, rng)
	rawEven, rawOdd := noisyPair(signal, 1.5, rng)
	denEven, denOdd := noisyPair(signal, 0.5, rng)

	raw, err := SSNR(rawEven, rawOdd, 1)
	require.NoError(t, err)
	m1, err := SSNR(denEven, rawOdd, 1)
	require.NoError(t, err)
	m2, err := SSNR(rawEven, denOdd, 1)
	require.NoError(t, err)

	f, denoised, rawValues, err := DenoisedHalfSSNR(rawEven, rawOdd, denEven, denOdd, 1)
	require.NoError(t, err)
	assert.Equal(t, raw.Frequencies, f)
	assert.Equal(t, raw.Values, rawValues)
	require.Len(t, denoised, len(raw.Values))
	// Ring 0 holds a single coefficient and may legitimately be Inf or NaN
	for k := 1; k < len(denoised); k++ {
		mixed := (m1.Values[k] + m2.Values[k]) / 2
		assert.Equal(t, mixed*mixed/raw.Values[k], denoised[k], "bin %d", k)
	}
}

// TestSSNRInvalid rejects bad pixel sizes and images smaller than the window
func TestSSNRInvalid(t *testing.T) {
	rng := rand.New(rand.NewSource(24))
	img := whiteSignal(300, 300, rng)

	_, err := SSNR(img, mat.DenseCopyOf(img), 0)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))

	small := whiteSignal(256, 256, rng)
	_, err = SSNR(small, mat.DenseCopyOf(small), 1)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))

	_, err = SSNR(img, whiteSignal(300, 310, rng), 1)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))

	_, _, _, err = DenoisedHalfSSNR(img, img, img, small, 1)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
}

// TestSSNRDegenerateBinsWarn returns NaN bins unchanged and logs each at warn level
func TestSSNRDegenerateBinsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger.Set(logger.New(&buf, zerolog.WarnLevel))
	t.Cleanup(func() { logger.Set(zerolog.Nop()) })

	blank := mat.NewDense(300, 300, nil)
	est, err := SSNRWithOptions(blank, mat.DenseCopyOf(blank), 1, Options{PatchSize: 64, SpectralWindow: 64})
	require.NoError(t, err)
	for k, v := range est.Values {
		assert.True(t, math.IsNaN(v), "bin %d", k)
	}

	out := buf.String()
	assert.Contains(t, out, `"message":"degenerate SSNR bin"`)
	assert.Contains(t, out, `"bin":0`)
	assert.Contains(t, out, `"bin":31`)
	assert.Equal(t, 32, bytes.Count(buf.Bytes(), []byte("\n")))
}
