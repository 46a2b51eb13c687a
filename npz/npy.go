package npz

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// magic is the prefix of every .npy stream.
const magic = "\x93NUMPY"

// headerAlign is the alignment numpy uses for the end of the header.
const headerAlign = 64

// maxInt is the largest value of int on this platform.
const maxInt = int(^uint(0) >> 1)

// Array is an n-dimensional float array stored in C (row-major) order.
type Array struct {
	Shape []int
	DType DType
	Data  []float64
}

// NewArray returns an array of the given shape over data. It fails if the number of
// elements does not match the shape.
func NewArray(dtype DType, data []float64, shape ...int) (*Array, error) {
	count, err := elementCount(shape)
	if err != nil {
		return nil, err
	}
	if count != len(data) {
		return nil, errors.Errorf("shape %v needs %d elements but got %d", shape, count, len(data))
	}
	return &Array{Shape: append([]int(nil), shape...), DType: dtype, Data: data}, nil
}

// Len returns the number of elements in the array.
func (a *Array) Len() int {
	return len(a.Data)
}

// Dense returns a rank-2 array as a matrix sharing the array's data.
func (a *Array) Dense() (*mat.Dense, error) {
	if len(a.Shape) != 2 {
		return nil, errors.Errorf("expected a rank 2 array but got shape %v", a.Shape)
	}
	if a.Shape[0] == 0 || a.Shape[1] == 0 {
		return nil, errors.Errorf("cannot make a matrix from empty shape %v", a.Shape)
	}
	return mat.NewDense(a.Shape[0], a.Shape[1], a.Data), nil
}

// WriteArray writes a as a version 1.0 .npy stream.
func WriteArray(w io.Writer, a *Array) error {
	header := headerDict(a.DType, a.Shape)
	// magic + version + uint16 length + header + '\n' padded to the alignment.
	preamble := len(magic) + 2 + 2
	total := preamble + len(header) + 1
	if rem := total % headerAlign; rem != 0 {
		header += strings.Repeat(" ", headerAlign-rem)
	}
	header += "\n"
	if len(header) > 0xffff {
		return errors.Errorf("npy header too long (%d bytes)", len(header))
	}

	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.Write([]byte{1, 0})
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	buf.Write(hlen[:])
	buf.WriteString(header)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	size := a.DType.Size()
	if size == 0 {
		return errors.Errorf("unsupported dtype %v", a.DType)
	}
	const chunk = 4096
	out := make([]byte, 0, chunk*size)
	elem := make([]byte, size)
	for i, v := range a.Data {
		a.DType.put(binary.LittleEndian, elem, v)
		out = append(out, elem...)
		if (i+1)%chunk == 0 {
			if _, err := w.Write(out); err != nil {
				return err
			}
			out = out[:0]
		}
	}
	if len(out) > 0 {
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
	return nil
}

func headerDict(dtype DType, shape []int) string {
	dims := make([]string, len(shape))
	for i, dim := range shape {
		dims[i] = strconv.Itoa(dim)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	return fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", dtype.descr(), shapeStr)
}

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadArray reads one .npy stream. Fortran ordered arrays are returned in C order.
func ReadArray(r io.Reader) (*Array, error) {
	return readArray(r, -1)
}

// readArray reads one .npy stream of at most limit bytes, or of any size if limit is negative.
func readArray(r io.Reader, limit int64) (*Array, error) {
	var pre [len(magic) + 2]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, errors.Wrap(err, "reading npy magic")
	}
	if string(pre[:len(magic)]) != magic {
		return nil, errors.New("not an npy stream: bad magic")
	}

	var headerLen int
	switch major := pre[len(magic)]; major {
	case 1:
		var hlen [2]byte
		if _, err := io.ReadFull(r, hlen[:]); err != nil {
			return nil, errors.Wrap(err, "reading npy header length")
		}
		headerLen = int(binary.LittleEndian.Uint16(hlen[:]))
	case 2, 3:
		var hlen [4]byte
		if _, err := io.ReadFull(r, hlen[:]); err != nil {
			return nil, errors.Wrap(err, "reading npy header length")
		}
		headerLen = int(binary.LittleEndian.Uint32(hlen[:]))
	default:
		return nil, errors.Errorf("unsupported npy version %d", major)
	}

	if limit >= 0 && int64(headerLen) > limit {
		return nil, errors.Errorf("npy header length %d exceeds the entry size %d", headerLen, limit)
	}
	header, err := io.ReadAll(io.LimitReader(r, int64(headerLen)))
	if err != nil {
		return nil, errors.Wrap(err, "reading npy header")
	}
	if len(header) != headerLen {
		return nil, errors.Errorf("npy header truncated: want %d bytes, got %d", headerLen, len(header))
	}

	descrMatch := descrRe.FindSubmatch(header)
	shapeMatch := shapeRe.FindSubmatch(header)
	if descrMatch == nil || shapeMatch == nil {
		return nil, errors.Errorf("malformed npy header %q", strings.TrimSpace(string(header)))
	}
	dtype, order, err := parseDescr(string(descrMatch[1]))
	if err != nil {
		return nil, err
	}
	fortran := false
	if m := fortranRe.FindSubmatch(header); m != nil {
		fortran = string(m[1]) == "True"
	}
	shape, err := parseShape(string(shapeMatch[1]))
	if err != nil {
		return nil, err
	}

	count, err := elementCount(shape)
	if err != nil {
		return nil, err
	}
	size := dtype.Size()
	if count > maxInt/size {
		return nil, errors.Errorf("npy shape %v is too large", shape)
	}
	need := count * size
	if limit >= 0 && int64(need) > limit {
		return nil, errors.Errorf("npy shape %v needs %d bytes but the entry holds %d", shape, need, limit)
	}
	// the buffer grows with the bytes actually present, not the declared size
	raw, err := io.ReadAll(io.LimitReader(r, int64(need)))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %d npy elements", count)
	}
	if len(raw) != need {
		return nil, errors.Errorf("npy data truncated: want %d bytes, got %d", need, len(raw))
	}
	data := make([]float64, count)
	for i := range data {
		data[i] = dtype.get(order, raw[i*size:(i+1)*size])
	}
	if fortran && len(shape) > 1 {
		data = fortranToC(data, shape)
	}
	return &Array{Shape: shape, DType: dtype, Data: data}, nil
}

// elementCount returns the product of shape's dimensions, rejecting negative dimensions
// and products that overflow int.
func elementCount(shape []int) (int, error) {
	count := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, errors.Errorf("negative dimension in shape %v", shape)
		}
		if dim != 0 && count > maxInt/dim {
			return 0, errors.Errorf("npy shape %v overflows the element count", shape)
		}
		count *= dim
	}
	return count, nil
}

func parseShape(s string) ([]int, error) {
	var shape []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.TrimSuffix(part, "L")
		dim, err := strconv.Atoi(part)
		if err != nil || dim < 0 {
			return nil, errors.Errorf("invalid npy shape (%s)", s)
		}
		shape = append(shape, dim)
	}
	return shape, nil
}

// fortranToC reorders column-major data into row-major order.
func fortranToC(data []float64, shape []int) []float64 {
	out := make([]float64, len(data))
	idx := make([]int, len(shape))
	for c := range out {
		// idx is the multi-index of row-major position c.
		f, stride := 0, 1
		for k := range shape {
			f += idx[k] * stride
			stride *= shape[k]
		}
		out[c] = data[f]
		for k := len(shape) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}
