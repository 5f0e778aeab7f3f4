// Package preview renders micrographs, masks and power spectra as 16-bit
// grayscale images for visual inspection.
package preview

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"cryorestore/internal/fft"
	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/freq"
)

// Gray16 maps the full value range of img linearly onto 16-bit gray levels
func Gray16(img mat.Matrix) *image.Gray16 {
	lo, hi := math.Inf(1), math.Inf(-1)
	rows, cols := img.Dims()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := img.At(y, x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return render(img, lo, hi)
}

// Gray16Percentile clips img to its lower and upper quantiles before mapping,
// so that a few outliers do not flatten the contrast. Quantiles are in [0,1].
func Gray16Percentile(img mat.Matrix, lower, upper float64) (*image.Gray16, error) {
	if !(lower >= 0 && lower < upper && upper <= 1) {
		return nil, errdefs.InvalidArgumentf("quantiles [%g, %g] must satisfy 0 <= lower < upper <= 1", lower, upper)
	}
	rows, cols := img.Dims()
	values := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if v := img.At(y, x); !math.IsNaN(v) && !math.IsInf(v, 0) {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return render(img, 0, 0), nil
	}
	sort.Float64s(values)
	lo := stat.Quantile(lower, stat.Empirical, values, nil)
	hi := stat.Quantile(upper, stat.Empirical, values, nil)
	return render(img, lo, hi), nil
}

func render(img mat.Matrix, lo, hi float64) *image.Gray16 {
	rows, cols := img.Dims()
	out := image.NewGray16(image.Rect(0, 0, cols, rows))
	scale := 0.0
	if hi > lo {
		scale = 1 / (hi - lo)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := (img.At(y, x) - lo) * scale
			// NaNs become black, else encoders break
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			out.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 65535))})
		}
	}
	return out
}

// PowerSpectrum returns log(1+|F|) of the half-spectrum of img with the
// vertical axis shifted so that the zero frequency sits in row rows/2.
// The result has rows x (cols/2+1) entries and shows directly what a crop keeps.
func PowerSpectrum(img *mat.Dense) (*mat.Dense, error) {
	if img == nil || img.IsEmpty() {
		return nil, errdefs.InvalidArgumentf("empty image")
	}
	spec := fft.Forward(img)
	out := mat.NewDense(spec.Rows, spec.Cols, nil)
	for i := 0; i < spec.Rows; i++ {
		dst := freq.SignedIndex(i, spec.Rows) + spec.Rows/2
		for j := 0; j < spec.Cols; j++ {
			out.Set(dst, j, math.Log1p(cmplx.Abs(spec.At(i, j))))
		}
	}
	return out, nil
}

// Save writes img to path in the format named by its extension:
// .png, .jpg/.jpeg or .tif/.tiff
func Save(img image.Image, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return SavePNG(img, path)
	case ".jpg", ".jpeg":
		return SaveJPEG(img, path)
	case ".tif", ".tiff":
		return SaveTIFF(img, path)
	default:
		return errdefs.InvalidArgumentf("unsupported preview format %q", filepath.Ext(path))
	}
}

// SavePNG saves img losslessly as PNG
func SavePNG(img image.Image, path string) error {
	return saveWith(path, func(w *bufio.Writer) error {
		return png.Encode(w, img)
	})
}

// SaveJPEG saves img as an 8-bit JPEG
func SaveJPEG(img image.Image, path string) error {
	return saveWith(path, func(w *bufio.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	})
}

// SaveTIFF saves img as a deflate-compressed TIFF, keeping 16-bit depth
func SaveTIFF(img image.Image, path string) error {
	return saveWith(path, func(w *bufio.Writer) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	})
}

func saveWith(path string, encode func(w *bufio.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	writer := bufio.NewWriter(file)
	if err := encode(writer); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.L().Debug().Str("path", path).Msg("saved preview")
	return nil
}
