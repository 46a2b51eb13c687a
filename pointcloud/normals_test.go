package pointcloud

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/pointprep/spatialmath"
	"go.viam.com/pointprep/utils"
)

func TestEstimateNormalsCube(t *testing.T) {
	var points []r3.Vector
	for _, x := range []float64{0, 1} {
		for _, y := range []float64{0, 1} {
			for _, z := range []float64{0, 1} {
				points = append(points, r3.Vector{X: x, Y: y, Z: z})
			}
		}
	}
	points = append(points, r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vector{X: 0.25, Y: 0.5, Z: 0.75})
	pc := New(points)

	normals, err := EstimateNormals(pc, rand.New(rand.NewSource(1)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, normals, test.ShouldHaveLength, pc.Size())
	axes := []r3.Vector{{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: -1}}
	for _, n := range normals {
		test.That(t, n.Norm(), test.ShouldAlmostEqual, 1.)
		closest := 0.
		for _, axis := range axes {
			if d := n.Dot(axis); d > closest {
				closest = d
			}
		}
		test.That(t, closest, test.ShouldAlmostEqual, 1.)
	}

	again, err := EstimateNormals(pc, rand.New(rand.NewSource(1)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, normals)
}

func TestEstimateNormalsOutward(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	center := r3.Vector{X: 120, Y: -40, Z: 7}
	points := make([]r3.Vector, 200)
	for i := range points {
		points[i] = r3.Vector{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}.Normalize().Mul(3).Add(center)
	}
	normals, err := EstimateNormals(New(points), rand.New(rand.NewSource(5)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, normals, test.ShouldHaveLength, 200)

	// replaying the same draws over the same hull gives the sample behind each normal
	hull, err := spatialmath.NewConvexHull(points)
	test.That(t, err, test.ShouldBeNil)
	samples, faces, err := hull.SampleSurface(len(points), rand.New(rand.NewSource(5)))
	test.That(t, err, test.ShouldBeNil)
	for i, n := range normals {
		test.That(t, n.Norm(), test.ShouldAlmostEqual, 1.)
		test.That(t, n, test.ShouldResemble, hull.Triangles()[faces[i]].Normal())
		test.That(t, n.Dot(samples[i].Sub(center)), test.ShouldBeGreaterThan, 0)
	}
}

func TestEstimateNormalsDegenerate(t *testing.T) {
	for _, points := range [][]r3.Vector{
		nil,
		{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}, {X: 2, Y: 2, Z: 2}, {X: 3, Y: 3, Z: 3}},
		{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 2, Y: 3, Z: 0}},
	} {
		_, err := EstimateNormals(New(points), nil)
		test.That(t, errors.Is(err, utils.ErrGeometry), test.ShouldBeTrue)
	}
}
