package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/pointprep/utils"
)

func TestPointCloudBasic(t *testing.T) {
	points := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1}, {X: -1, Y: -2, Z: 1}}
	pc := New(points)
	test.That(t, pc.Size(), test.ShouldEqual, 3)
	test.That(t, pc.At(2), test.ShouldResemble, r3.Vector{X: -1, Y: -2, Z: 1})

	// the cloud owns its points
	points[0] = r3.Vector{X: 9, Y: 9, Z: 9}
	test.That(t, pc.At(0), test.ShouldResemble, r3.Vector{})
	copied := pc.Points()
	copied[1] = r3.Vector{X: 9, Y: 9, Z: 9}
	test.That(t, pc.At(1), test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: 1})

	meta := pc.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, -1.)
	test.That(t, meta.MaxX, test.ShouldEqual, 1.)
	test.That(t, meta.MinY, test.ShouldEqual, -2.)
	test.That(t, meta.MaxY, test.ShouldEqual, 0.)
	test.That(t, meta.MinZ, test.ShouldEqual, 0.)
	test.That(t, meta.MaxZ, test.ShouldEqual, 1.)
	test.That(t, meta.Extent(), test.ShouldResemble, r3.Vector{X: 2, Y: 2, Z: 1})

	count := 0
	pc.Iterate(func(i int, p r3.Vector) bool {
		test.That(t, p, test.ShouldResemble, pc.At(i))
		count++
		return i < 1
	})
	test.That(t, count, test.ShouldEqual, 2)

	empty := New(nil)
	test.That(t, empty.Size(), test.ShouldEqual, 0)
	test.That(t, empty.MetaData().Extent(), test.ShouldResemble, r3.Vector{})
}

func TestScale(t *testing.T) {
	pc := New([]r3.Vector{{X: 1, Y: 2, Z: 3}, {X: -10, Y: 0, Z: 4}})
	scaled, err := Scale(pc, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scaled.Size(), test.ShouldEqual, 2)
	test.That(t, scaled.At(0).Sub(r3.Vector{X: 0.1, Y: 0.2, Z: 0.3}).Norm(), test.ShouldBeLessThan, 1e-12)
	test.That(t, scaled.At(1).Sub(r3.Vector{X: -1, Y: 0, Z: 0.4}).Norm(), test.ShouldBeLessThan, 1e-12)
	test.That(t, pc.At(0), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})

	identity, err := Scale(pc, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, identity.Points(), test.ShouldResemble, pc.Points())

	for _, factor := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Scale(pc, factor)
		test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "scale_factor")
	}
}
