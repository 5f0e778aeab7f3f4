package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"cryorestore/pkg/errdefs"
)

func rampImage(rows, cols int) *mat.Dense {
	img := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			img.Set(i, j, float64(i*cols+j))
		}
	}
	return img
}

// TestOffsets checks the exclusive upper bound and step flooring
func TestOffsets(t *testing.T) {
	assert.Equal(t, []int{0, 192}, Offsets(512, 192, 0))
	assert.Equal(t, []int{0, 96, 192, 288}, Offsets(512, 192, 0.5))
	assert.Equal(t, []int{0, 1, 2}, Offsets(5, 2, 0.99))
	assert.Empty(t, Offsets(192, 192, 0))
	assert.Empty(t, Offsets(100, 192, 0))
}

// TestExtractCoverage checks the patch count and shape on a 512x512 image
func TestExtractCoverage(t *testing.T) {
	patches, err := Extract(rampImage(512, 512), DefaultSize, 0)
	require.NoError(t, err)

	// len(range(0, 512-192, 192))^2
	assert.Len(t, patches, 4)
	for _, p := range patches {
		r, c := p.Dims()
		assert.Equal(t, 192, r)
		assert.Equal(t, 192, c)
	}
}

// TestExtractOrder verifies row-major ordering and content
func TestExtractOrder(t *testing.T) {
	img := rampImage(10, 12)
	patches, err := Extract(img, 4, 0)
	require.NoError(t, err)

	// rows offsets {0,4}, cols offsets {0,4}
	require.Len(t, patches, 4)
	starts := [][2]int{{0, 0}, {0, 4}, {4, 0}, {4, 4}}
	for k, s := range starts {
		assert.Equal(t, img.At(s[0], s[1]), patches[k].At(0, 0), "patch %d", k)
		assert.Equal(t, img.At(s[0]+3, s[1]+3), patches[k].At(3, 3), "patch %d", k)
	}
}

// TestExtractCopies ensures patches do not alias the source image
func TestExtractCopies(t *testing.T) {
	img := rampImage(10, 10)
	patches, err := Extract(img, 4, 0)
	require.NoError(t, err)

	patches[0].Set(0, 0, -1)
	assert.Equal(t, 0.0, img.At(0, 0))
}

// TestExtractInvalid covers empty patch sets and bad parameters
func TestExtractInvalid(t *testing.T) {
	img := rampImage(16, 16)
	for _, c := range []struct {
		size    int
		overlap float64
	}{
		{16, 0},
		{32, 0},
		{0, 0},
		{4, 1},
		{4, -0.1},
	} {
		_, err := Extract(img, c.size, c.overlap)
		assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument), "case %+v", c)
	}
	_, err := Extract(nil, 4, 0)
	assert.True(t, errors.Is(err, errdefs.ErrInvalidArgument))
}
