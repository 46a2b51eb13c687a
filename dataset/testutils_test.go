package dataset

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/klauspost/compress/zip"
	"go.viam.com/test"

	"go.viam.com/pointprep/npz"
)

// tenPoints is a small cloud that is neither collinear nor coplanar.
var tenPoints = []r3.Vector{
	{X: 0, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 0}, {X: 0, Y: 4, Z: 0}, {X: 0, Y: 0, Z: 4}, {X: 4, Y: 4, Z: 0},
	{X: 4, Y: 0, Z: 4}, {X: 0, Y: 4, Z: 4}, {X: 4, Y: 4, Z: 4}, {X: 2, Y: 2, Z: 2}, {X: 1, Y: 3, Z: 2},
}

func writeInputArchive(t *testing.T, path string, dtype npz.DType, arrays map[string][]r3.Vector) {
	t.Helper()
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	w := npz.NewWriter(f)
	for key, points := range arrays {
		arr, err := npz.NewArray(dtype, flatten(points), len(points), 3)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, w.Write(key, arr), test.ShouldBeNil)
	}
	test.That(t, w.Close(), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
}

func readOutputArray(t *testing.T, path, key string) *npz.Array {
	t.Helper()
	r, err := npz.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, r.Close(), test.ShouldBeNil)
	}()
	arr, err := r.Read(key)
	test.That(t, err, test.ShouldBeNil)
	return arr
}

func testConfig(t *testing.T, input string) *Config {
	t.Helper()
	cfg := NewConfig()
	cfg.InputPath = input
	cfg.OutputDir = filepath.Join(t.TempDir(), "processed")
	return cfg
}

// writeRawArchive stores a hand built version 1.0 npy stream under key, bypassing the
// array writer so that the header can disagree with the data.
func writeRawArchive(t *testing.T, path, key, header string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	zw := zip.NewWriter(f)
	w, err := zw.Create(key + ".npy")
	test.That(t, err, test.ShouldBeNil)
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	for _, part := range [][]byte{[]byte("\x93NUMPY\x01\x00"), hlen[:], []byte(header), data} {
		_, err = w.Write(part)
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, zw.Close(), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)
}
