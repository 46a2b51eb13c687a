package utils

import (
	"github.com/pkg/errors"
)

// Error kinds reported by the dataset pipeline. Use errors.Is to classify an error
// returned from any stage.
var (
	// ErrNotFound is returned when an input path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrFormat is returned when an input exists but does not have the expected layout.
	ErrFormat = errors.New("format error")
	// ErrInvalidArgument is returned for non-positive counts or factors and empty clouds.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrGeometry is returned when a convex hull cannot be built from the given points.
	ErrGeometry = errors.New("degenerate geometry")
	// ErrIO is returned when an output cannot be created or written.
	ErrIO = errors.New("io error")
)

// NewNotFoundError is used when the file at path does not exist.
func NewNotFoundError(path string) error {
	return errors.Wrapf(ErrNotFound, "%q", path)
}

// NewFormatError is used when the contents of path are malformed.
func NewFormatError(path, format string, args ...interface{}) error {
	return errors.Wrapf(ErrFormat, "%q: %s", path, errors.Errorf(format, args...))
}

// NewInvalidArgumentError is used when a caller supplied value is out of range.
func NewInvalidArgumentError(name string, value interface{}, reason string) error {
	return errors.Wrapf(ErrInvalidArgument, "%s=%v %s", name, value, reason)
}

// NewGeometryError is used when a geometric construction degenerates.
func NewGeometryError(format string, args ...interface{}) error {
	return errors.Wrap(ErrGeometry, errors.Errorf(format, args...).Error())
}

// NewIOError wraps a filesystem error that happened while writing path.
func NewIOError(path string, err error) error {
	return errors.Wrapf(ErrIO, "%q: %v", path, err)
}
