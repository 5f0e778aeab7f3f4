// Package correlation measures the similarity of two images in real space and
// per Fourier ring.
package correlation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"cryorestore/internal/fft"
	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/freq"
	"cryorestore/pkg/patch"
)

func sameShape(a, b *mat.Dense) error {
	if a == nil || b == nil || a.IsEmpty() || b.IsEmpty() {
		return errdefs.InvalidArgumentf("images must not be empty")
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return errdefs.InvalidArgumentf("image shapes (%d, %d) and (%d, %d) differ", ar, ac, br, bc)
	}
	return nil
}

// center subtracts the mean of m from every element in place.
func center(m *mat.Dense) {
	rows, cols := m.Dims()
	raw := m.RawMatrix()
	means := make([]float64, rows)
	for i := 0; i < rows; i++ {
		means[i] = stat.Mean(raw.Data[i*raw.Stride:i*raw.Stride+cols], nil)
	}
	mean := stat.Mean(means, nil)
	for i := 0; i < rows; i++ {
		floats.AddConst(-mean, raw.Data[i*raw.Stride:i*raw.Stride+cols])
	}
}

// CrossCorrelation returns the sample correlation coefficient
// Σab / sqrt(Σa²·Σb²) of two equally shaped images.
//
// CrossCorrelation mean-centres a and b IN PLACE. Pass copies when the
// originals are still needed. Constant inputs yield NaN.
func CrossCorrelation(a, b *mat.Dense) (float64, error) {
	if err := sameShape(a, b); err != nil {
		return 0, err
	}
	center(a)
	center(b)

	rows, cols := a.Dims()
	ra, rb := a.RawMatrix(), b.RawMatrix()
	var ab, aa, bb float64
	for i := 0; i < rows; i++ {
		rowA := ra.Data[i*ra.Stride : i*ra.Stride+cols]
		rowB := rb.Data[i*rb.Stride : i*rb.Stride+cols]
		ab += floats.Dot(rowA, rowB)
		aa += floats.Dot(rowA, rowA)
		bb += floats.Dot(rowB, rowB)
	}
	return ab / (math.Sqrt(aa) * math.Sqrt(bb)), nil
}

// PatchCrossCorrelation averages CrossCorrelation over matching patches of
// edge size taken from a and b. The inputs are left untouched.
func PatchCrossCorrelation(a, b *mat.Dense, size int) (float64, error) {
	if err := sameShape(a, b); err != nil {
		return 0, err
	}
	pa, err := patch.Extract(a, size, 0)
	if err != nil {
		return 0, err
	}
	pb, err := patch.Extract(b, size, 0)
	if err != nil {
		return 0, err
	}

	ccs := make([]float64, len(pa))
	for k := range pa {
		if ccs[k], err = CrossCorrelation(pa[k], pb[k]); err != nil {
			return 0, err
		}
	}
	cc := stat.Mean(ccs, nil)

	logger.L().Debug().
		Int("patches", len(ccs)).
		Int("size", size).
		Float64("cc", cc).
		Msg("patch cross-correlation")
	return cc, nil
}

// FourierRingCorrelation returns, for each of the first rings.N rings,
// |Σ Re(F1·conj(F2))| / sqrt(Σ|F1|²·Σ|F2|²) over the coefficients in the ring,
// where F1 and F2 are the half-spectra of a and b.
func FourierRingCorrelation(a, b *mat.Dense, rings *freq.RingAssignment) ([]float64, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	if rings == nil {
		return nil, errdefs.InvalidArgumentf("ring assignment is nil")
	}
	rows, cols := a.Dims()
	if rings.Rows != rows || rings.Cols != fft.HalfCols(cols) {
		return nil, errdefs.InvalidArgumentf("ring assignment (%d, %d) does not match half-spectrum of (%d, %d)",
			rings.Rows, rings.Cols, rows, cols)
	}

	fa := fft.Forward(a)
	fb := fft.Forward(b)

	n := rings.Count()
	cross := make([]float64, n)
	powA := make([]float64, n)
	powB := make([]float64, n)
	for k, r := range rings.Index {
		ca, cb := fa.Data[k], fb.Data[k]
		cross[r] += real(ca)*real(cb) + imag(ca)*imag(cb)
		powA[r] += real(ca)*real(ca) + imag(ca)*imag(ca)
		powB[r] += real(cb)*real(cb) + imag(cb)*imag(cb)
	}

	frc := make([]float64, rings.N)
	for r := range frc {
		frc[r] = math.Abs(cross[r]) / math.Sqrt(powA[r]*powB[r])
	}
	return frc, nil
}
