package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/pointprep/utils"
)

// Scale returns a new cloud with every coordinate multiplied by factor. The factor must
// be finite and positive.
func Scale(cloud PointCloud, factor float64) (PointCloud, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return nil, utils.NewInvalidArgumentError("scale_factor", factor, "must be finite and positive")
	}
	scaled := make([]r3.Vector, 0, cloud.Size())
	cloud.Iterate(func(_ int, p r3.Vector) bool {
		scaled = append(scaled, p.Mul(factor))
		return true
	})
	return New(scaled), nil
}
