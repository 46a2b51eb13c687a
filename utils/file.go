package utils

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}

// EnsureDir creates dir and any missing parents. It is a no-op if dir exists.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewIOError(dir, err)
	}
	return nil
}

// WriteFileAtomic writes the output of write to a temporary file next to path and
// renames it into place once write and the flush succeed. On failure path is left
// untouched and the temporary file is removed.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return NewIOError(path, err)
	}
	tmpName := f.Name()
	defer func() {
		if err != nil {
			RemoveFileNoError(tmpName)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return NewIOError(path, multierr.Combine(err, f.Close()))
	}
	if err := bw.Flush(); err != nil {
		return NewIOError(path, multierr.Combine(err, f.Close()))
	}
	if err := f.Close(); err != nil {
		return NewIOError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return NewIOError(path, err)
	}
	return nil
}

// WriteFilePathAtomic is WriteFileAtomic for writers that need a file name rather than
// an io.Writer. write receives the temporary path, which keeps the extension of path
// and is renamed to path on success.
func WriteFilePathAtomic(path string, write func(tmpPath string) error) (err error) {
	ext := filepath.Ext(path)
	f, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), ext)+".tmp*"+ext)
	if err != nil {
		return NewIOError(path, err)
	}
	tmpName := f.Name()
	defer func() {
		if err != nil {
			RemoveFileNoError(tmpName)
		}
	}()
	if err := f.Close(); err != nil {
		return NewIOError(path, err)
	}
	if err := write(tmpName); err != nil {
		return NewIOError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return NewIOError(path, err)
	}
	return nil
}
