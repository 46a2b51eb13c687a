// Package npz reads and writes NumPy .npy arrays and .npz archives of float arrays.
//
// Only floating point arrays are supported (float16, float32 and float64 on disk, any byte
// order, C or Fortran order). Values are always float64 in memory.
package npz

import (
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const npyExt = ".npy"

// ErrKeyNotFound is returned by Reader.Read when the archive has no array with the given key.
var ErrKeyNotFound = errors.New("array not found in archive")

// Reader gives access to the arrays of an .npz archive.
type Reader struct {
	files  map[string]*zip.File
	keys   []string
	closer io.Closer
}

// Open opens the .npz archive at path.
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	r := newReader(rc.File)
	r.closer = rc
	return r, nil
}

// NewReader reads an .npz archive of the given size from ra.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, err
	}
	return newReader(zr.File), nil
}

func newReader(files []*zip.File) *Reader {
	r := &Reader{files: make(map[string]*zip.File, len(files))}
	for _, f := range files {
		key := strings.TrimSuffix(f.Name, npyExt)
		if _, ok := r.files[key]; ok {
			continue
		}
		r.files[key] = f
		r.keys = append(r.keys, key)
	}
	return r
}

// Keys returns the array names in archive order.
func (r *Reader) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Has reports whether the archive contains an array named key.
func (r *Reader) Has(key string) bool {
	_, ok := r.files[key]
	return ok
}

// Read decodes the array named key.
func (r *Reader) Read(key string) (arr *Array, err error) {
	f, ok := r.files[key]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "%q (have %v)", key, r.sortedKeys())
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", f.Name)
	}
	defer func() {
		err = multierr.Combine(err, rc.Close())
	}()
	arr, err = readArray(rc, int64(f.UncompressedSize64))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %q", f.Name)
	}
	return arr, nil
}

func (r *Reader) sortedKeys() []string {
	keys := r.Keys()
	sort.Strings(keys)
	return keys
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Writer writes arrays into a deflate-compressed .npz archive, like numpy.savez_compressed.
type Writer struct {
	zw   *zip.Writer
	seen map[string]struct{}
}

// NewWriter returns a Writer that compresses at the default flate level.
func NewWriter(w io.Writer) *Writer {
	return NewWriterLevel(w, flate.DefaultCompression)
}

// NewWriterLevel returns a Writer that compresses at the given flate level.
func NewWriterLevel(w io.Writer, level int) *Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return &Writer{zw: zw, seen: map[string]struct{}{}}
}

// Write adds arr to the archive under key.
func (w *Writer) Write(key string, arr *Array) error {
	if key == "" {
		return errors.New("array key must not be empty")
	}
	if _, ok := w.seen[key]; ok {
		return errors.Errorf("duplicate array key %q", key)
	}
	w.seen[key] = struct{}{}

	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   key + npyExt,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	return WriteArray(fw, arr)
}

// Close finishes the archive. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}
