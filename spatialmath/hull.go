package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	quickhull "github.com/markus-wa/quickhull-go/v2"

	"go.viam.com/pointprep/utils"
)

const (
	// relativeEpsilon scales the bounding box diagonal into the tolerance used for degeneracy checks.
	relativeEpsilon = 1e-9
	// floatEpsilon bounds the bounding box diagonal, relative to the coordinate magnitude,
	// below which all points are taken to coincide.
	floatEpsilon = 1e-12
)

// ConvexHull is the smallest convex polytope enclosing a point set, stored as a triangle
// mesh whose face normals all point away from the interior.
type ConvexHull struct {
	*Mesh
}

// NewConvexHull computes the convex hull of points. Inputs with fewer than four points, or
// whose points are all collinear or coplanar, have no volume and produce a geometry error.
func NewConvexHull(points []r3.Vector) (hull *ConvexHull, err error) {
	if len(points) < 4 {
		return nil, utils.NewGeometryError("convex hull needs at least 4 points, got %d", len(points))
	}
	center, diagonal, err := boundingBox(points)
	if err != nil {
		return nil, err
	}

	// quickhull's tolerance grows with the coordinate magnitude, so the hull is built
	// around the bounding box center and moved back afterwards.
	centered := make([]r3.Vector, len(points))
	for i, pt := range points {
		centered[i] = pt.Sub(center)
	}
	eps := diagonal * relativeEpsilon
	simplex, err := initialSimplex(centered, eps)
	if err != nil {
		return nil, err
	}
	interior := r3.Vector{}
	for _, pt := range simplex {
		interior = interior.Add(pt)
	}
	interior = interior.Mul(0.25)

	defer func() {
		if r := recover(); r != nil {
			hull = nil
			err = utils.NewGeometryError("convex hull construction failed: %v", r)
		}
	}()
	qh := new(quickhull.QuickHull).ConvexHull(centered, true, false, 0)
	if len(qh.Indices)%3 != 0 {
		return nil, utils.NewGeometryError("convex hull returned %d indices, not a triangle list", len(qh.Indices))
	}

	triangles := make([]*Triangle, 0, len(qh.Indices)/3)
	for i := 0; i < len(qh.Indices); i += 3 {
		tri := NewTriangle(qh.Vertices[qh.Indices[i]], qh.Vertices[qh.Indices[i+1]], qh.Vertices[qh.Indices[i+2]])
		if tri.Degenerate(eps * eps) {
			continue
		}
		if tri.Normal().Dot(tri.Centroid().Sub(interior)) < 0 {
			tri = tri.Flipped()
		}
		triangles = append(triangles, tri.Translated(center))
	}
	if len(triangles) == 0 {
		return nil, utils.NewGeometryError("convex hull has no faces with positive area")
	}
	return &ConvexHull{Mesh: NewMesh(triangles)}, nil
}

// boundingBox returns the center and diagonal length of the axis aligned box around points.
func boundingBox(points []r3.Vector) (r3.Vector, float64, error) {
	minPt, maxPt := points[0], points[0]
	for _, pt := range points[1:] {
		minPt = r3.Vector{X: math.Min(minPt.X, pt.X), Y: math.Min(minPt.Y, pt.Y), Z: math.Min(minPt.Z, pt.Z)}
		maxPt = r3.Vector{X: math.Max(maxPt.X, pt.X), Y: math.Max(maxPt.Y, pt.Y), Z: math.Max(maxPt.Z, pt.Z)}
	}
	diagonal := maxPt.Sub(minPt).Norm()
	magnitude := math.Max(minPt.Norm(), maxPt.Norm())
	if math.IsNaN(diagonal) || math.IsInf(diagonal, 0) || math.IsInf(magnitude, 0) {
		return r3.Vector{}, 0, utils.NewGeometryError("points are not finite")
	}
	if diagonal <= floatEpsilon*magnitude {
		return r3.Vector{}, 0, utils.NewGeometryError("all %d points coincide", len(points))
	}
	return minPt.Add(maxPt).Mul(0.5), diagonal, nil
}

// initialSimplex finds four affinely independent points spanning a tetrahedron whose
// height over its base exceeds eps, or reports why the input is degenerate.
func initialSimplex(points []r3.Vector, eps float64) ([4]r3.Vector, error) {
	var simplex [4]r3.Vector

	// first edge: the pair of axis-extreme points farthest apart
	var extremes []r3.Vector
	for axis := 0; axis < 3; axis++ {
		lo, hi := points[0], points[0]
		for _, pt := range points[1:] {
			if component(pt, axis) < component(lo, axis) {
				lo = pt
			}
			if component(pt, axis) > component(hi, axis) {
				hi = pt
			}
		}
		extremes = append(extremes, lo, hi)
	}
	best := -1.
	for i := range extremes {
		for j := i + 1; j < len(extremes); j++ {
			if d := extremes[i].Sub(extremes[j]).Norm(); d > best {
				best = d
				simplex[0], simplex[1] = extremes[i], extremes[j]
			}
		}
	}

	edge := simplex[1].Sub(simplex[0])
	best = -1.
	for _, pt := range points {
		if d := edge.Cross(pt.Sub(simplex[0])).Norm() / edge.Norm(); d > best {
			best = d
			simplex[2] = pt
		}
	}
	if best <= eps {
		return simplex, utils.NewGeometryError("all %d points are collinear", len(points))
	}

	normal := PlaneNormal(simplex[0], simplex[1], simplex[2])
	best = -1.
	for _, pt := range points {
		if d := math.Abs(normal.Dot(pt.Sub(simplex[0]))); d > best {
			best = d
			simplex[3] = pt
		}
	}
	if best <= eps {
		return simplex, utils.NewGeometryError("all %d points are coplanar", len(points))
	}
	return simplex, nil
}

func component(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
