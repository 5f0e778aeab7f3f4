// Package micrograph defines the in-memory micrograph value and the interfaces
// of the containers that load and store it.
package micrograph

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Micrograph represents a single 2D micrograph with its sampling
type Micrograph struct {
	// Name identifies the micrograph, usually the file it was read from
	Name string

	// Data holds the samples, one row per image line
	Data *mat.Dense

	// PixelSize is the physical length of one sample in Ångström
	PixelSize float64
}

// New wraps data as a micrograph with the given pixel size
func New(name string, data *mat.Dense, pixelSize float64) *Micrograph {
	return &Micrograph{
		Name:      name,
		Data:      data,
		PixelSize: pixelSize,
	}
}

// Dims returns the number of rows and columns
func (m *Micrograph) Dims() (rows, cols int) {
	return m.Data.Dims()
}

// Loader is implemented by micrograph containers that can be read by identifier.
// Implementations fail with errdefs.ErrNotFound for missing input and
// errdefs.ErrFormat for corrupt input.
type Loader interface {
	Load(id string) (*Micrograph, error)
}

// Saver is implemented by micrograph containers that can be written by identifier.
// Implementations fail with errdefs.ErrAlreadyExists when the target exists and
// overwrite is false.
type Saver interface {
	Save(m *Micrograph, id string, overwrite bool) error
}

// Normalize returns the z-score of img, (img - mean) / std, as a new matrix.
// The standard deviation is the population value. A constant image yields NaN.
func Normalize(img *mat.Dense) *mat.Dense {
	rows, cols := img.Dims()
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		values = append(values, img.RawRowView(i)...)
	}
	mean, std := stat.PopMeanStdDev(values, nil)

	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		return (v - mean) / std
	}, img)
	return out
}
