package npz

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// DType is the on-disk element type of an array. All arrays are float64 in memory; the
// DType only controls how values are stored, so narrowing loses precision by design of
// the caller.
type DType int

const (
	// Float16 is IEEE 754 half precision, numpy "<f2".
	Float16 DType = iota
	// Float32 is IEEE 754 single precision, numpy "<f4".
	Float32
	// Float64 is IEEE 754 double precision, numpy "<f8".
	Float64
)

func (d DType) String() string {
	switch d {
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return "unknown"
}

// Size returns the number of bytes used by one element.
func (d DType) Size() int {
	switch d {
	case Float16:
		return 2
	case Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// ParseDType accepts the numpy names and type codes of the supported float types.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float16", "f2", "half":
		return Float16, nil
	case "float32", "f4", "single":
		return Float32, nil
	case "float64", "f8", "double":
		return Float64, nil
	}
	return 0, errors.Errorf("unsupported dtype %q (want float16, float32 or float64)", s)
}

// MarshalText implements encoding.TextMarshaler so a DType can appear in config files.
func (d DType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DType) UnmarshalText(text []byte) error {
	parsed, err := ParseDType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// descr is the numpy array-protocol type string, always little endian on write.
func (d DType) descr() string {
	switch d {
	case Float16:
		return "<f2"
	case Float32:
		return "<f4"
	case Float64:
		return "<f8"
	}
	return ""
}

// parseDescr returns the dtype and byte order of a numpy descr such as "<f4" or ">f8".
func parseDescr(descr string) (DType, binary.ByteOrder, error) {
	if len(descr) != 3 {
		return 0, nil, errors.Errorf("unsupported dtype %q", descr)
	}
	var order binary.ByteOrder
	switch descr[0] {
	case '<', '|', '=':
		order = binary.LittleEndian
	case '>':
		order = binary.BigEndian
	default:
		return 0, nil, errors.Errorf("unsupported byte order in dtype %q", descr)
	}
	if descr[1] != 'f' {
		return 0, nil, errors.Errorf("unsupported dtype %q (only floating point arrays are supported)", descr)
	}
	dtype, err := ParseDType(descr[1:])
	if err != nil {
		return 0, nil, err
	}
	return dtype, order, nil
}

func (d DType) put(order binary.ByteOrder, buf []byte, v float64) {
	switch d {
	case Float16:
		order.PutUint16(buf, float16.Fromfloat32(float32(v)).Bits())
	case Float32:
		order.PutUint32(buf, math.Float32bits(float32(v)))
	case Float64:
		order.PutUint64(buf, math.Float64bits(v))
	}
}

func (d DType) get(order binary.ByteOrder, buf []byte) float64 {
	switch d {
	case Float16:
		return float64(float16.Frombits(order.Uint16(buf)).Float32())
	case Float32:
		return float64(math.Float32frombits(order.Uint32(buf)))
	case Float64:
		return math.Float64frombits(order.Uint64(buf))
	}
	return math.NaN()
}

// Quantize returns v as it reads back after being stored with this dtype.
func (d DType) Quantize(v float64) float64 {
	var buf [8]byte
	d.put(binary.LittleEndian, buf[:], v)
	return d.get(binary.LittleEndian, buf[:])
}
