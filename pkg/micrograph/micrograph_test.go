package micrograph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TestNew verifies the fields and dimensions of a new micrograph
func TestNew(t *testing.T) {
	data := mat.NewDense(3, 5, nil)
	m := New("mic_0001", data, 1.34)

	assert.Equal(t, "mic_0001", m.Name)
	assert.Equal(t, 1.34, m.PixelSize)
	assert.Same(t, data, m.Data)

	rows, cols := m.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 5, cols)
}

// TestNormalize checks zero mean and unit population deviation
func TestNormalize(t *testing.T) {
	img := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	out := Normalize(img)

	values := append(append([]float64{}, out.RawRowView(0)...), out.RawRowView(1)...)
	mean, std := stat.PopMeanStdDev(values, nil)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, std, 1e-12)

	// The input is left untouched
	assert.Equal(t, 1.0, img.At(0, 0))
	require.Less(t, out.At(0, 0), 0.0)
	assert.InDelta(t, -out.At(0, 0), out.At(1, 2), 1e-12)
}

// TestNormalizeConstant yields NaN for an image without variance
func TestNormalizeConstant(t *testing.T) {
	img := mat.NewDense(2, 2, []float64{3, 3, 3, 3})
	out := Normalize(img)
	assert.True(t, math.IsNaN(out.At(1, 1)))
}
