// Package mrc reads and writes single micrographs in the MRC2014 container.
package mrc

import (
	"encoding/binary"
	"math"

	"cryorestore/pkg/errdefs"
)

// HeaderSize is the size of the fixed MRC2014 header in bytes
const HeaderSize = 1024

// Data modes
const (
	ModeInt8    = 0
	ModeInt16   = 1
	ModeFloat32 = 2
	ModeUint16  = 6
	ModeFloat16 = 12
)

// MaxSectionBytes bounds the size of a single section; larger headers are corrupt
const MaxSectionBytes = 1 << 32

const (
	nversion  = 20140
	labelSize = 80
	numLabels = 10
)

// Word offsets into the header
const (
	offNX     = 0
	offMode   = 12
	offMX     = 28
	offCellA  = 40
	offCellB  = 52
	offMapCRS = 64
	offDMin   = 76
	offDMax   = 80
	offDMean  = 84
	offNSymbt = 92
	offExtTyp = 104
	offNVer   = 108
	offMap    = 208
	offMachSt = 212
	offRMS    = 216
	offNLabl  = 220
	offLabels = 224
)

var sampleSize = map[int32]int{
	ModeInt8:    1,
	ModeInt16:   2,
	ModeFloat32: 4,
	ModeUint16:  2,
	ModeFloat16: 2,
}

// header holds the fields of an MRC header that are used here
type header struct {
	nx, ny, nz int32
	mode       int32
	mx, my, mz int32
	cella      [3]float32
	dmin       float32
	dmax       float32
	dmean      float32
	rms        float32
	nsymbt     int32
	labels     []string
	order      binary.ByteOrder
}

// byteOrder decodes the machine stamp. Files without a recognised stamp
// are read as little endian, which is what nearly every writer produces.
func byteOrder(stamp []byte) binary.ByteOrder {
	if stamp[0] == 0x11 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func machineStamp(order binary.ByteOrder) []byte {
	if order == binary.BigEndian {
		return []byte{0x11, 0x11, 0, 0}
	}
	return []byte{0x44, 0x44, 0, 0}
}

func parseHeader(buf []byte) (*header, error) {
	if len(buf) < HeaderSize {
		return nil, errdefs.Formatf("header has %d bytes, need %d", len(buf), HeaderSize)
	}
	order := byteOrder(buf[offMachSt : offMachSt+4])
	i32 := func(off int) int32 { return int32(order.Uint32(buf[off:])) }
	f32 := func(off int) float32 { return math.Float32frombits(order.Uint32(buf[off:])) }

	h := &header{
		nx:     i32(offNX),
		ny:     i32(offNX + 4),
		nz:     i32(offNX + 8),
		mode:   i32(offMode),
		mx:     i32(offMX),
		my:     i32(offMX + 4),
		mz:     i32(offMX + 8),
		dmin:   f32(offDMin),
		dmax:   f32(offDMax),
		dmean:  f32(offDMean),
		rms:    f32(offRMS),
		nsymbt: i32(offNSymbt),
		order:  order,
	}
	for k := range h.cella {
		h.cella[k] = f32(offCellA + 4*k)
	}

	if h.nx <= 0 || h.ny <= 0 || h.nz <= 0 {
		return nil, errdefs.Formatf("invalid dimensions %dx%dx%d", h.nx, h.ny, h.nz)
	}
	if _, ok := sampleSize[h.mode]; !ok {
		return nil, errdefs.Formatf("unsupported mode %d", h.mode)
	}
	if n := int64(h.nx) * int64(h.ny) * int64(sampleSize[h.mode]); n > MaxSectionBytes {
		return nil, errdefs.Formatf("section of %dx%d samples in mode %d exceeds %d bytes", h.nx, h.ny, h.mode, int64(MaxSectionBytes))
	}
	if h.nsymbt < 0 {
		return nil, errdefs.Formatf("negative extended header size %d", h.nsymbt)
	}

	nlabl := int(i32(offNLabl))
	if nlabl > numLabels {
		nlabl = numLabels
	}
	for k := 0; k < nlabl; k++ {
		raw := buf[offLabels+k*labelSize : offLabels+(k+1)*labelSize]
		h.labels = append(h.labels, trimLabel(raw))
	}
	return h, nil
}

func trimLabel(raw []byte) string {
	end := len(raw)
	for end > 0 && (raw[end-1] == ' ' || raw[end-1] == 0) {
		end--
	}
	return string(raw[:end])
}

// pixelSize returns the sampling along x, or 0 when the header carries none
func (h *header) pixelSize() float64 {
	if h.mx <= 0 || !(h.cella[0] > 0) {
		return 0
	}
	return float64(h.cella[0]) / float64(h.mx)
}

func (h *header) sectionBytes() int64 {
	return int64(h.nx) * int64(h.ny) * int64(sampleSize[h.mode])
}

func (h *header) marshal() []byte {
	order := h.order
	if order == nil {
		order = binary.LittleEndian
	}
	buf := make([]byte, HeaderSize)
	put := func(off int, v int32) { order.PutUint32(buf[off:], uint32(v)) }
	putf := func(off int, v float32) { order.PutUint32(buf[off:], math.Float32bits(v)) }

	put(offNX, h.nx)
	put(offNX+4, h.ny)
	put(offNX+8, h.nz)
	put(offMode, h.mode)
	put(offMX, h.mx)
	put(offMX+4, h.my)
	put(offMX+8, h.mz)
	for k, v := range h.cella {
		putf(offCellA+4*k, v)
		putf(offCellB+4*k, 90)
		put(offMapCRS+4*k, int32(k+1))
	}
	putf(offDMin, h.dmin)
	putf(offDMax, h.dmax)
	putf(offDMean, h.dmean)
	put(offNSymbt, h.nsymbt)
	copy(buf[offExtTyp:], "MRCO")
	put(offNVer, nversion)
	copy(buf[offMap:], "MAP ")
	copy(buf[offMachSt:], machineStamp(order))
	putf(offRMS, h.rms)

	labels := h.labels
	if len(labels) > numLabels {
		labels = labels[:numLabels]
	}
	put(offNLabl, int32(len(labels)))
	for k, label := range labels {
		dst := buf[offLabels+k*labelSize : offLabels+(k+1)*labelSize]
		for j := range dst {
			dst[j] = ' '
		}
		copy(dst, label)
	}
	return buf
}

// decode converts one section of raw samples into dst
func decode(raw []byte, mode int32, order binary.ByteOrder, dst []float64) {
	switch mode {
	case ModeInt8:
		for i, b := range raw {
			dst[i] = float64(int8(b))
		}
	case ModeInt16:
		for i := range dst {
			dst[i] = float64(int16(order.Uint16(raw[2*i:])))
		}
	case ModeUint16:
		for i := range dst {
			dst[i] = float64(order.Uint16(raw[2*i:]))
		}
	case ModeFloat16:
		for i := range dst {
			dst[i] = float64(halfToFloat32(order.Uint16(raw[2*i:])))
		}
	case ModeFloat32:
		for i := range dst {
			dst[i] = float64(math.Float32frombits(order.Uint32(raw[4*i:])))
		}
	}
}

// halfToFloat32 widens an IEEE 754 binary16 value
func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch exp {
	case 0:
		v := float32(math.Ldexp(float64(frac), -24))
		if sign != 0 {
			return -v
		}
		return v
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+112)<<23 | frac<<13)
	}
}
