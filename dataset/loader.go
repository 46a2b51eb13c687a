package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"go.viam.com/pointprep/logging"
	"go.viam.com/pointprep/npz"
	"go.viam.com/pointprep/pointcloud"
	"go.viam.com/pointprep/utils"
)

// LoadPointCloud reads the raw cloud at path. For .npz archives key names the (N, 3)
// float array holding the coordinates; .las, .pcd and .ply files are read whole.
func LoadPointCloud(path, key string, logger logging.Logger) (pointcloud.PointCloud, error) {
	if strings.ToLower(filepath.Ext(path)) != ".npz" {
		return pointcloud.NewFromFile(path, logger)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, utils.NewNotFoundError(path)
		}
		return nil, utils.NewIOError(path, err)
	}
	arr, err := readArchiveArray(path, key)
	if err != nil {
		return nil, err
	}
	if len(arr.Shape) != 2 || arr.Shape[1] != 3 {
		return nil, utils.NewFormatError(path, "array %q has shape %v, want (N, 3)", key, arr.Shape)
	}
	if arr.Shape[0] == 0 {
		logger.Warnw("array is empty", "path", path, "key", key)
		return pointcloud.New(nil), nil
	}
	m, err := arr.Dense()
	if err != nil {
		return nil, utils.NewFormatError(path, "%v", err)
	}
	rows, _ := m.Dims()
	points := make([]r3.Vector, rows)
	for i := range points {
		row := m.RawRowView(i)
		points[i] = r3.Vector{X: row[0], Y: row[1], Z: row[2]}
	}
	logger.Debugw("loaded point cloud", "path", path, "key", key, "dtype", arr.DType, "points", rows)
	return pointcloud.New(points), nil
}

func readArchiveArray(path, key string) (arr *npz.Array, err error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, utils.NewFormatError(path, "not an npz archive: %v", err)
	}
	defer func() {
		err = multierr.Combine(err, r.Close())
	}()
	arr, err = r.Read(key)
	if err != nil {
		return nil, utils.NewFormatError(path, "%v", err)
	}
	return arr, nil
}
