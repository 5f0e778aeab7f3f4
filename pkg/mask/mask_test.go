package mask

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/fft"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/freq"
)

// TestErodeBorderIsForeground checks that a full region survives erosion
func TestErodeBorderIsForeground(t *testing.T) {
	region := make([]bool, 5*5)
	for i := range region {
		region[i] = true
	}
	eroded := Erode(region, 5, 5, 3)
	for i, v := range eroded {
		assert.True(t, v, "pixel %d was eroded", i)
	}
}

// TestErodeCross checks a single hole grows into a cross, then a diamond
func TestErodeCross(t *testing.T) {
	rows, cols := 7, 7
	region := make([]bool, rows*cols)
	for i := range region {
		region[i] = true
	}
	region[3*cols+3] = false

	once := Erode(region, rows, cols, 1)
	for _, p := range [][2]int{{3, 3}, {2, 3}, {4, 3}, {3, 2}, {3, 4}} {
		assert.False(t, once[p[0]*cols+p[1]], "expected %v eroded", p)
	}
	assert.True(t, once[2*cols+2])

	twice := Erode(region, rows, cols, 2)
	assert.False(t, twice[2*cols+2])
	assert.False(t, twice[1*cols+3])
	assert.True(t, twice[1*cols+2])

	// Input must not be modified
	assert.True(t, region[2*cols+3])
}

// TestDistanceTransformMatchesBruteForce compares against exhaustive search
func TestDistanceTransformMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows, cols := 13, 17
	feature := make([]bool, rows*cols)
	for i := range feature {
		feature[i] = rng.Float64() < 0.08
	}
	feature[5*cols+5] = true

	dist := DistanceTransform(feature, rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			best := math.Inf(1)
			for a := 0; a < rows; a++ {
				for b := 0; b < cols; b++ {
					if feature[a*cols+b] {
						best = math.Min(best, math.Hypot(float64(i-a), float64(j-b)))
					}
				}
			}
			assert.InDelta(t, best, dist[i*cols+j], 1e-9, "distance at (%d,%d)", i, j)
		}
	}
}

// TestDistanceTransformNoFeature reports infinite distance everywhere
func TestDistanceTransformNoFeature(t *testing.T) {
	dist := DistanceTransform(make([]bool, 12), 3, 4)
	for _, d := range dist {
		assert.True(t, math.IsInf(d, 1))
	}
}

// TestSoftBoundaryValues checks the plateau, the taper and the zero band
func TestSoftBoundaryValues(t *testing.T) {
	field, err := freq.Spatial(64, 64, 1)
	require.NoError(t, err)

	width := 4
	m, err := Soft(field, 0.25, width)
	require.NoError(t, err)

	rows, cols := m.Dims()
	require.Equal(t, 64, rows)
	require.Equal(t, 33, cols)

	assert.Equal(t, 1.0, m.At(0, 0), "minimum frequency must be fully passed")
	assert.Equal(t, 0.0, m.At(0, 32), "Nyquist must be fully blocked")
	assert.Equal(t, 0.0, m.At(32, 32))

	fractional := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
			if v > 0 && v < 1 {
				fractional++
			}
			// Anything at or beyond the cutoff plus the taper band is zero
			if field.At(i, j)*64 >= 16+float64(width)+1 {
				assert.Equal(t, 0.0, v, "expected zero at (%d,%d)", i, j)
			}
		}
	}
	assert.Greater(t, fractional, 0, "mask has no soft edge")

	// The taper is non-increasing along the horizontal axis
	for j := 1; j < cols; j++ {
		assert.LessOrEqual(t, m.At(0, j), m.At(0, j-1))
	}
}

// TestSoftProfile checks the interpolated sine against the eroded core
func TestSoftProfile(t *testing.T) {
	profile, err := sineProfile(5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, profile.Predict(0))
	assert.Equal(t, 1.0, profile.Predict(0.5))
	assert.Equal(t, 1.0, profile.Predict(1))
	assert.InDelta(t, math.Sin(3*math.Pi/8), profile.Predict(2), 1e-12)
	assert.Equal(t, 0.0, profile.Predict(5))
	assert.Equal(t, 0.0, profile.Predict(math.Inf(1)))
}

// TestSoftInvalid exercises the argument checks
func TestSoftInvalid(t *testing.T) {
	field, err := freq.Spatial(8, 8, 1)
	require.NoError(t, err)

	_, err = Soft(field, 0, 3)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
	_, err = Soft(field, 0.2, 1)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
	_, err = Soft(nil, 0.2, 3)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
}

// TestApplyToSpectrum multiplies coefficients and rejects shape mismatches
func TestApplyToSpectrum(t *testing.T) {
	spec := fft.NewSpectrum(2, 3)
	for i := range spec.Data {
		spec.Data[i] = complex(1, 1)
	}
	m := mat.NewDense(2, 3, []float64{1, 0.5, 0, 0, 0.25, 1})
	require.NoError(t, ApplyToSpectrum(spec, m))
	assert.Equal(t, complex(0.5, 0.5), spec.At(0, 1))
	assert.Equal(t, complex(0, 0), spec.At(1, 0))

	err := ApplyToSpectrum(spec, mat.NewDense(3, 2, nil))
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
}
