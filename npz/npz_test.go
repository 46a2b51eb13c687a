package npz

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestParseDType(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out DType
	}{
		{"float16", Float16},
		{"f2", Float16},
		{"Float32", Float32},
		{"double", Float64},
	} {
		dtype, err := ParseDType(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, dtype, test.ShouldEqual, tc.out)
	}
	_, err := ParseDType("int8")
	test.That(t, err, test.ShouldNotBeNil)

	var d DType
	test.That(t, d.UnmarshalText([]byte("float32")), test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, Float32)
	text, err := Float16.MarshalText()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(text), test.ShouldEqual, "float16")
}

func TestQuantize(t *testing.T) {
	test.That(t, Float64.Quantize(0.1), test.ShouldEqual, 0.1)
	test.That(t, Float32.Quantize(0.1), test.ShouldEqual, float64(float32(0.1)))
	test.That(t, Float16.Quantize(0.5), test.ShouldEqual, 0.5)
	test.That(t, Float16.Quantize(0.1), test.ShouldAlmostEqual, 0.1, 1e-4)
	test.That(t, Float16.Quantize(65504), test.ShouldEqual, 65504.)
	test.That(t, math.IsInf(Float16.Quantize(1e6), 1), test.ShouldBeTrue)
}

func TestArrayHeaderAlignment(t *testing.T) {
	for _, shape := range [][]int{{3}, {4, 3}, {400000, 3}} {
		count := 1
		for _, d := range shape {
			count *= d
		}
		arr, err := NewArray(Float32, make([]float64, count), shape...)
		test.That(t, err, test.ShouldBeNil)

		var buf bytes.Buffer
		test.That(t, WriteArray(&buf, arr), test.ShouldBeNil)
		headerLen := int(binary.LittleEndian.Uint16(buf.Bytes()[8:10]))
		test.That(t, (10+headerLen)%headerAlign, test.ShouldEqual, 0)
		test.That(t, buf.Len(), test.ShouldEqual, 10+headerLen+count*4)
		test.That(t, buf.Bytes()[10+headerLen-1], test.ShouldEqual, byte('\n'))
	}

	var buf bytes.Buffer
	arr, err := NewArray(Float64, []float64{1, 2, 3}, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, WriteArray(&buf, arr), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "'shape': (3,)")
}

func TestNewArrayShapeMismatch(t *testing.T) {
	_, err := NewArray(Float64, []float64{1, 2}, 2, 3)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "needs 6 elements")
}

func TestRoundTripArchive(t *testing.T) {
	points := []float64{
		0, 0, 0,
		1.25, -2.5, 3.75,
		0.1, 0.2, 0.3,
		-1000.5, 12.125, 7,
	}
	normals := []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, -1,
		0.57735, 0.57735, 0.57735,
	}

	for _, tc := range []struct {
		dtype DType
		tol   float64
	}{
		{Float64, 0},
		{Float32, 1e-4},
		{Float16, 0.5},
	} {
		t.Run(tc.dtype.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pointcloud.npz")
			f, err := os.Create(path)
			test.That(t, err, test.ShouldBeNil)

			w := NewWriter(f)
			pArr, err := NewArray(tc.dtype, points, 4, 3)
			test.That(t, err, test.ShouldBeNil)
			nArr, err := NewArray(tc.dtype, normals, 4, 3)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, w.Write("points", pArr), test.ShouldBeNil)
			test.That(t, w.Write("normals", nArr), test.ShouldBeNil)
			test.That(t, w.Write("normals", nArr), test.ShouldNotBeNil)
			test.That(t, w.Close(), test.ShouldBeNil)
			test.That(t, f.Close(), test.ShouldBeNil)

			r, err := Open(path)
			test.That(t, err, test.ShouldBeNil)
			defer func() {
				test.That(t, r.Close(), test.ShouldBeNil)
			}()
			test.That(t, r.Keys(), test.ShouldResemble, []string{"points", "normals"})
			test.That(t, r.Has("points"), test.ShouldBeTrue)

			got, err := r.Read("points")
			test.That(t, err, test.ShouldBeNil)
			test.That(t, got.Shape, test.ShouldResemble, []int{4, 3})
			test.That(t, got.DType, test.ShouldEqual, tc.dtype)
			approx := cmpopts.EquateApprox(0, tc.tol)
			test.That(t, cmp.Equal(got.Data, points, approx), test.ShouldBeTrue)
			for i, v := range points {
				test.That(t, got.Data[i], test.ShouldEqual, tc.dtype.Quantize(v))
			}

			got, err = r.Read("normals")
			test.That(t, err, test.ShouldBeNil)
			test.That(t, cmp.Equal(got.Data, normals, cmpopts.EquateApprox(0, 1e-3)), test.ShouldBeTrue)

			_, err = r.Read("colors")
			test.That(t, errors.Is(err, ErrKeyNotFound), test.ShouldBeTrue)
			test.That(t, err.Error(), test.ShouldContainSubstring, "colors")
		})
	}
}

// rawNpy builds a version 1.0 npy stream by hand.
func rawNpy(header string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(magic)
	buf.Write([]byte{1, 0})
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	buf.Write(hlen[:])
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}

func TestReadArrayVariants(t *testing.T) {
	t.Run("fortran order", func(t *testing.T) {
		// 2x3 matrix [[1 2 3] [4 5 6]] stored column-major.
		data := make([]byte, 0, 6*8)
		for _, v := range []float64{1, 4, 2, 5, 3, 6} {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
		raw := rawNpy("{'descr': '<f8', 'fortran_order': True, 'shape': (2, 3), }\n", data)
		arr, err := ReadArray(bytes.NewReader(raw))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, arr.Shape, test.ShouldResemble, []int{2, 3})
		test.That(t, arr.Data, test.ShouldResemble, []float64{1, 2, 3, 4, 5, 6})

		dense, err := arr.Dense()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, dense.At(1, 0), test.ShouldEqual, 4.)
	})

	t.Run("big endian float32", func(t *testing.T) {
		data := make([]byte, 0, 3*4)
		for _, v := range []float32{1.5, -2, 8} {
			data = binary.BigEndian.AppendUint32(data, math.Float32bits(v))
		}
		raw := rawNpy("{'descr': '>f4', 'fortran_order': False, 'shape': (1, 3), }\n", data)
		arr, err := ReadArray(bytes.NewReader(raw))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, arr.DType, test.ShouldEqual, Float32)
		test.That(t, arr.Data, test.ShouldResemble, []float64{1.5, -2, 8})
	})

	t.Run("integer arrays are rejected", func(t *testing.T) {
		raw := rawNpy("{'descr': '<i8', 'fortran_order': False, 'shape': (1,), }\n", make([]byte, 8))
		_, err := ReadArray(bytes.NewReader(raw))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "only floating point")
	})

	t.Run("truncated data", func(t *testing.T) {
		raw := rawNpy("{'descr': '<f8', 'fortran_order': False, 'shape': (2, 3), }\n", make([]byte, 8))
		_, err := ReadArray(bytes.NewReader(raw))
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("overflowing shape", func(t *testing.T) {
		for _, shape := range []string{"(4611686018427387904, 4)", "(6148914691236517206, 3)", "(3037000500, 3037000500, 3)"} {
			raw := rawNpy("{'descr': '<f8', 'fortran_order': False, 'shape': "+shape+", }\n", make([]byte, 24))
			arr, err := ReadArray(bytes.NewReader(raw))
			test.That(t, arr, test.ShouldBeNil)
			test.That(t, err, test.ShouldNotBeNil)
		}
	})

	t.Run("shape larger than data", func(t *testing.T) {
		raw := rawNpy("{'descr': '<f4', 'fortran_order': False, 'shape': (100000000000, 3), }\n", make([]byte, 12))
		_, err := ReadArray(bytes.NewReader(raw))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "truncated")
	})

	t.Run("bad magic", func(t *testing.T) {
		_, err := ReadArray(bytes.NewReader([]byte("PK\x03\x04nonsense")))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "bad magic")
	})

	t.Run("rank 1 is not a matrix", func(t *testing.T) {
		arr, err := NewArray(Float64, []float64{1, 2, 3}, 3)
		test.That(t, err, test.ShouldBeNil)
		_, err = arr.Dense()
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestNewReaderFromBytes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterLevel(&buf, 1)
	arr, err := NewArray(Float16, []float64{0.5, 1, 2}, 1, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w.Write("points", arr), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	test.That(t, err, test.ShouldBeNil)
	got, err := r.Read("points")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Data, test.ShouldResemble, []float64{0.5, 1, 2})
	test.That(t, r.Close(), test.ShouldBeNil)
}

func TestReaderEntrySizeBound(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("points.npy")
	test.That(t, err, test.ShouldBeNil)
	_, err = w.Write(rawNpy("{'descr': '<f8', 'fortran_order': False, 'shape': (1000000, 3), }\n", make([]byte, 24)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zw.Close(), test.ShouldBeNil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	test.That(t, err, test.ShouldBeNil)
	arr, err := r.Read("points")
	test.That(t, arr, test.ShouldBeNil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "the entry holds")
}
