package pointcloud

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/pointprep/logging"
	"go.viam.com/pointprep/utils"
)

// Format names an interchange file layout a cloud can be written in.
type Format string

// The supported interchange formats.
const (
	FormatPLY       Format = "ply"
	FormatPLYAscii  Format = "ply-ascii"
	FormatPCD       Format = "pcd"
	FormatPCDBinary Format = "pcd-binary"
	FormatLAS       Format = "las"
)

// Formats lists every supported Format.
var Formats = []Format{FormatPLY, FormatPLYAscii, FormatPCD, FormatPCDBinary, FormatLAS}

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown interchange format %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler so a Format can appear in config files.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Extension returns the file extension, including the dot, used for f.
func (f Format) Extension() string {
	switch f {
	case FormatPLY, FormatPLYAscii:
		return ".ply"
	case FormatPCD, FormatPCDBinary:
		return ".pcd"
	case FormatLAS:
		return ".las"
	default:
		return ""
	}
}

// WriteToFile writes cloud to path in the given format. The file is replaced atomically
// so a failed write leaves any previous file in place.
func WriteToFile(cloud PointCloud, path string, format Format) error {
	switch format {
	case FormatPLY, FormatPLYAscii:
		plyType := PLYBinary
		if format == FormatPLYAscii {
			plyType = PLYAscii
		}
		return utils.WriteFileAtomic(path, func(w io.Writer) error {
			return ToPLY(cloud, w, plyType)
		})
	case FormatPCD, FormatPCDBinary:
		pcdType := PCDAscii
		if format == FormatPCDBinary {
			pcdType = PCDBinary
		}
		return utils.WriteFileAtomic(path, func(w io.Writer) error {
			return ToPCD(cloud, w, pcdType)
		})
	case FormatLAS:
		return utils.WriteFilePathAtomic(path, func(tmpPath string) error {
			return WriteToLASFile(cloud, tmpPath)
		})
	default:
		return utils.NewInvalidArgumentError("format", format, "is not a supported interchange format")
	}
}

// NewFromFile returns a pointcloud read in from the given file. The format is chosen by
// extension.
func NewFromFile(fn string, logger logging.Logger) (PointCloud, error) {
	if _, err := os.Stat(fn); err != nil {
		if os.IsNotExist(err) {
			return nil, utils.NewNotFoundError(fn)
		}
		return nil, utils.NewIOError(fn, err)
	}
	ext := strings.ToLower(filepath.Ext(fn))
	var read func(io.Reader) (PointCloud, error)
	switch ext {
	case ".las":
		cloud, err := NewFromLASFile(fn, logger)
		if err != nil {
			return nil, utils.NewFormatError(fn, "%v", err)
		}
		return cloud, nil
	case ".pcd":
		read = ReadPCD
	case ".ply":
		read = ReadPLY
	default:
		return nil, utils.NewFormatError(fn, "do not know how to read %q files", ext)
	}
	return readFile(fn, read)
}

func readFile(fn string, read func(io.Reader) (PointCloud, error)) (cloud PointCloud, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, utils.NewIOError(fn, err)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	cloud, err = read(f)
	if err != nil {
		return nil, utils.NewFormatError(fn, "%v", err)
	}
	return cloud, nil
}
