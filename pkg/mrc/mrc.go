package mrc

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"cryorestore/internal/logger"
	"cryorestore/pkg/errdefs"
	"cryorestore/pkg/micrograph"
)

const writerLabel = "cryorestore"

// Read decodes the first section of an MRC stream. Row y of the result is
// line y of the file, x runs along the columns.
func Read(r io.Reader, name string) (*micrograph.Micrograph, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errdefs.Formatf("%s: truncated header: %v", name, err)
	}
	h, err := parseHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if h.nsymbt > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(h.nsymbt)); err != nil {
			return nil, errdefs.Formatf("%s: truncated extended header: %v", name, err)
		}
	}

	// Sized by the bytes present, not by the header
	var section bytes.Buffer
	want := h.sectionBytes()
	if n, err := io.CopyN(&section, r, want); err != nil {
		return nil, errdefs.Formatf("%s: truncated data: got %d of %d bytes: %v", name, n, want, err)
	}
	data := make([]float64, int(h.nx)*int(h.ny))
	decode(section.Bytes(), h.mode, h.order, data)

	logger.L().Debug().
		Str("name", name).
		Int32("nx", h.nx).
		Int32("ny", h.ny).
		Int32("nz", h.nz).
		Int32("mode", h.mode).
		Float64("pixelSize", h.pixelSize()).
		Msg("read MRC")
	return micrograph.New(name, mat.NewDense(int(h.ny), int(h.nx), data), h.pixelSize()), nil
}

// Write encodes m as a single-section little-endian float32 MRC stream
func Write(w io.Writer, m *micrograph.Micrograph) error {
	if m == nil || m.Data == nil {
		return errdefs.InvalidArgumentf("nil micrograph")
	}
	if m.PixelSize < 0 {
		return errdefs.InvalidArgumentf("pixel size %g must not be negative", m.PixelSize)
	}
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return errdefs.InvalidArgumentf("empty micrograph")
	}

	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		values = append(values, m.Data.RawRowView(i)...)
	}
	mean, rms := stat.PopMeanStdDev(values, nil)

	h := &header{
		nx:     int32(cols),
		ny:     int32(rows),
		nz:     1,
		mode:   ModeFloat32,
		mx:     int32(cols),
		my:     int32(rows),
		mz:     1,
		cella:  [3]float32{float32(float64(cols) * m.PixelSize), float32(float64(rows) * m.PixelSize), float32(m.PixelSize)},
		dmin:   float32(floats.Min(values)),
		dmax:   float32(floats.Max(values)),
		dmean:  float32(mean),
		rms:    float32(rms),
		labels: []string{writerLabel},
		order:  binary.LittleEndian,
	}
	if _, err := w.Write(h.marshal()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	samples := make([]float32, len(values))
	for i, v := range values {
		samples[i] = float32(v)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

func isGzip(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".gz" || ext == ".gzip"
}

// baseName strips directory and container suffixes from path
func baseName(path string) string {
	name := filepath.Base(path)
	if isGzip(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ReadFile loads the micrograph stored at path. Files ending in .gz or .gzip
// are decompressed on the fly.
func ReadFile(path string) (*micrograph.Micrograph, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errdefs.NotFoundf("%s", path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if isGzip(path) {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errdefs.Formatf("%s: %v", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return Read(r, baseName(path))
}

// WriteFile stores m at path, compressing when the name ends in .gz or .gzip.
// Without overwrite an existing file yields errdefs.ErrAlreadyExists.
func WriteFile(path string, m *micrograph.Micrograph, overwrite bool) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return errdefs.AlreadyExistsf("%s", path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if isGzip(path) {
		gz := gzip.NewWriter(bw)
		if err := Write(gz, m); err != nil {
			return err
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to compress %s: %w", path, err)
		}
	} else if err := Write(bw, m); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.L().Debug().Str("path", path).Bool("overwrite", overwrite).Msg("wrote MRC")
	return nil
}

// Store resolves micrograph identifiers to MRC files below Root.
// Absolute identifiers are used as they are.
type Store struct {
	Root string
}

var (
	_ micrograph.Loader = (*Store)(nil)
	_ micrograph.Saver  = (*Store)(nil)
)

// NewStore returns a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{Root: dir}
}

func (s *Store) path(id string) string {
	if s.Root == "" || filepath.IsAbs(id) {
		return id
	}
	return filepath.Join(s.Root, id)
}

// Load reads the micrograph identified by id
func (s *Store) Load(id string) (*micrograph.Micrograph, error) {
	return ReadFile(s.path(id))
}

// Save writes m under id
func (s *Store) Save(m *micrograph.Micrograph, id string, overwrite bool) error {
	return WriteFile(s.path(id), m, overwrite)
}
