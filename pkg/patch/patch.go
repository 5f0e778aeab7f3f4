// Package patch tiles a micrograph into equal square patches for the
// patch-averaged quality estimators.
package patch

import (
	"gonum.org/v1/gonum/mat"

	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
)

// DefaultSize is the patch edge length used by the SNR estimator.
const DefaultSize = 192

// Offsets returns the start offsets 0, step, 2·step, ... strictly below
// extent-size, where step is size·(1-overlap) floored, at least 1.
func Offsets(extent, size int, overlap float64) []int {
	step := int(float64(size) * (1 - overlap))
	if step < 1 {
		step = 1
	}
	var out []int
	for o := 0; o < extent-size; o += step {
		out = append(out, o)
	}
	return out
}

// Extract copies square patches of edge size out of img. Offsets along each axis
// come from Offsets; patches are ordered row-major with the row offset in the
// outer loop, so patch k of two equally shaped images covers the same region.
//
// Returns ErrInvalidArgument for a non-positive size, an overlap outside [0, 1)
// or an image too small to hold a single patch.
func Extract(img *mat.Dense, size int, overlap float64) ([]*mat.Dense, error) {
	if img == nil || img.IsEmpty() {
		return nil, errdefs.InvalidArgumentf("image is empty")
	}
	if size <= 0 {
		return nil, errdefs.InvalidArgumentf("patch size %d must be positive", size)
	}
	if !(overlap >= 0 && overlap < 1) {
		return nil, errdefs.InvalidArgumentf("patch overlap %g must lie in [0, 1)", overlap)
	}
	rows, cols := img.Dims()
	rowOffsets := Offsets(rows, size, overlap)
	colOffsets := Offsets(cols, size, overlap)
	if len(rowOffsets) == 0 || len(colOffsets) == 0 {
		return nil, errdefs.InvalidArgumentf("image shape (%d, %d) yields no patches of size %d", rows, cols, size)
	}

	patches := make([]*mat.Dense, 0, len(rowOffsets)*len(colOffsets))
	for _, r := range rowOffsets {
		for _, c := range colOffsets {
			patches = append(patches, mat.DenseCopyOf(img.Slice(r, r+size, c, c+size)))
		}
	}

	logger.L().Debug().
		Int("rows", rows).
		Int("cols", cols).
		Int("size", size).
		Int("patches", len(patches)).
		Msg("extracted patches")
	return patches, nil
}
