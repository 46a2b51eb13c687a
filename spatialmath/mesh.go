package spatialmath

import (
	"math/rand"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/pointprep/utils"
)

// Mesh is a set of triangles describing a surface.
type Mesh struct {
	triangles []*Triangle
}

// NewMesh creates a mesh from the given triangles.
func NewMesh(triangles []*Triangle) *Mesh {
	return &Mesh{triangles: triangles}
}

// Triangles returns the triangles of the mesh.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// Area returns the total surface area of the mesh.
func (m *Mesh) Area() float64 {
	return floats.Sum(m.areas())
}

func (m *Mesh) areas() []float64 {
	areas := make([]float64, len(m.triangles))
	for i, tri := range m.triangles {
		areas[i] = tri.Area()
	}
	return areas
}

// SampleSurface draws n points uniformly over the surface of the mesh. A triangle is chosen
// with probability proportional to its area and a point is then drawn uniformly inside it.
// The second return holds, for every sample, the index of the triangle it was drawn from.
func (m *Mesh) SampleSurface(n int, rng *rand.Rand) ([]r3.Vector, []int, error) {
	if n < 0 {
		return nil, nil, utils.NewInvalidArgumentError("n", n, "cannot be negative")
	}
	if len(m.triangles) == 0 {
		return nil, nil, utils.NewGeometryError("cannot sample an empty mesh")
	}
	cumulative := floats.CumSum(make([]float64, len(m.triangles)), m.areas())
	total := cumulative[len(cumulative)-1]
	if !(total > 0) {
		return nil, nil, utils.NewGeometryError("cannot sample a mesh with zero area")
	}

	points := make([]r3.Vector, n)
	faces := make([]int, n)
	last := len(cumulative) - 1
	for i := 0; i < n; i++ {
		face := sort.SearchFloat64s(cumulative, rng.Float64()*total)
		if face > last {
			face = last
		}
		faces[i] = face
		points[i] = m.triangles[face].PointAt(rng.Float64(), rng.Float64())
	}
	return points, faces, nil
}
