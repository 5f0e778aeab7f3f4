// Package fft implements the two-dimensional real-to-complex transform pair used
// for Fourier-domain resampling and ring correlation. Rows are transformed with
// gonum's real FFT, columns of the resulting half-spectrum with the complex FFT.
//
// The layout matches the usual rfft2 convention: a real image of shape
// (rows, cols) maps to a Spectrum of shape (rows, cols/2+1), with the zero
// frequency at row 0 and negative vertical frequencies wrapped into the tail rows.
package fft

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Spectrum holds a half-spectrum in row-major order.
type Spectrum struct {
	Rows int
	Cols int
	Data []complex128
}

// NewSpectrum allocates a zero-filled half-spectrum.
func NewSpectrum(rows, cols int) *Spectrum {
	return &Spectrum{
		Rows: rows,
		Cols: cols,
		Data: make([]complex128, rows*cols),
	}
}

// At returns the coefficient at row i, column j.
func (s *Spectrum) At(i, j int) complex128 {
	return s.Data[i*s.Cols+j]
}

// Set stores v at row i, column j.
func (s *Spectrum) Set(i, j int, v complex128) {
	s.Data[i*s.Cols+j] = v
}

// Row returns a view of row i.
func (s *Spectrum) Row(i int) []complex128 {
	return s.Data[i*s.Cols : (i+1)*s.Cols]
}

// HalfCols returns the number of half-spectrum columns for an image of width cols.
func HalfCols(cols int) int {
	return cols/2 + 1
}

// Forward computes the half-spectrum of img. The transform is unnormalized.
func Forward(img mat.Matrix) *Spectrum {
	rows, cols := img.Dims()
	half := HalfCols(cols)
	spec := NewSpectrum(rows, half)

	// Row-wise real FFT
	rowFFT := fourier.NewFFT(cols)
	rowInput := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(rowInput, i, img)
		rowFFT.Coefficients(spec.Row(i), rowInput)
	}

	// Column-wise complex FFT over the half-spectrum
	transformColumns(spec, true)
	return spec
}

// Inverse transforms spec back into a real image of width cols, normalizing by
// the number of output samples. spec.Cols must equal HalfCols(cols); the
// imaginary parts of the zero and Nyquist columns are ignored.
func Inverse(spec *Spectrum, cols int) *mat.Dense {
	if HalfCols(cols) != spec.Cols {
		panic("fft: spectrum width does not match output width")
	}
	work := &Spectrum{Rows: spec.Rows, Cols: spec.Cols, Data: make([]complex128, len(spec.Data))}
	copy(work.Data, spec.Data)

	transformColumns(work, false)

	out := mat.NewDense(spec.Rows, cols, nil)
	raw := out.RawMatrix()
	rowFFT := fourier.NewFFT(cols)
	scale := 1 / float64(spec.Rows*cols)
	for i := 0; i < spec.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+cols]
		rowFFT.Sequence(row, work.Row(i))
		for j := range row {
			row[j] *= scale
		}
	}
	return out
}

// transformColumns applies the forward or backward complex FFT to every column.
func transformColumns(spec *Spectrum, forward bool) {
	colFFT := fourier.NewCmplxFFT(spec.Rows)
	colInput := make([]complex128, spec.Rows)
	colOutput := make([]complex128, spec.Rows)
	for j := 0; j < spec.Cols; j++ {
		for i := 0; i < spec.Rows; i++ {
			colInput[i] = spec.Data[i*spec.Cols+j]
		}
		if forward {
			colFFT.Coefficients(colOutput, colInput)
		} else {
			colFFT.Sequence(colOutput, colInput)
		}
		for i := 0; i < spec.Rows; i++ {
			spec.Data[i*spec.Cols+j] = colOutput[i]
		}
	}
}
