package pointcloud

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/pointprep/spatialmath"
)

// EstimateNormals assigns one unit normal to every point of cloud using the convex hull
// heuristic: the hull of the cloud is sampled area weighted cloud.Size() times and the
// i-th normal is the outward normal of the face the i-th sample landed on. Normals
// follow sampling order, not the geometry of the i-th point, so for non-convex input
// they are only a coarse approximation.
func EstimateNormals(cloud PointCloud, rng *rand.Rand) (Vectors, error) {
	hull, err := spatialmath.NewConvexHull(cloud.Points())
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	_, faces, err := hull.SampleSurface(cloud.Size(), rng)
	if err != nil {
		return nil, errors.Wrap(err, "sampling hull surface")
	}
	triangles := hull.Triangles()
	normals := make(Vectors, len(faces))
	for i, face := range faces {
		normals[i] = triangles[face].Normal()
	}
	return normals, nil
}
