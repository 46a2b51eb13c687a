package pointcloud

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/test"

	"go.viam.com/pointprep/utils"
)

func TestResampleIndicesWithoutReplacement(t *testing.T) {
	indices, err := ResampleIndices(100, 40, rand.New(rand.NewSource(1)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indices, test.ShouldHaveLength, 40)
	test.That(t, lo.Uniq(indices), test.ShouldHaveLength, 40)
	for _, idx := range indices {
		test.That(t, idx, test.ShouldBeBetweenOrEqual, 0, 99)
	}

	// k = n-1 leaves out exactly one index
	indices, err = ResampleIndices(10, 9, rand.New(rand.NewSource(2)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lo.Uniq(indices), test.ShouldHaveLength, 9)
}

func TestResampleIndicesUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	counts := make([]int, 10)
	for trial := 0; trial < 2000; trial++ {
		indices, err := ResampleIndices(10, 3, rng)
		test.That(t, err, test.ShouldBeNil)
		for _, idx := range indices {
			counts[idx]++
		}
	}
	// each index is expected 600 times
	for _, c := range counts {
		test.That(t, c, test.ShouldBeBetween, 450, 750)
	}
}

func TestResampleIndicesWithReplacement(t *testing.T) {
	indices, err := ResampleIndices(3, 50, rand.New(rand.NewSource(1)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, indices, test.ShouldHaveLength, 50)
	test.That(t, len(lo.Uniq(indices)), test.ShouldBeLessThanOrEqualTo, 3)

	// equal sizes still draw with replacement
	duplicates := false
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 20 && !duplicates; trial++ {
		indices, err := ResampleIndices(10, 10, rng)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, indices, test.ShouldHaveLength, 10)
		duplicates = len(lo.Uniq(indices)) < 10
	}
	test.That(t, duplicates, test.ShouldBeTrue)
}

func TestResampleIndicesErrors(t *testing.T) {
	for _, tc := range []struct{ n, k int }{{10, 0}, {10, -5}, {0, 4}} {
		_, err := ResampleIndices(tc.n, tc.k, nil)
		test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
	}
}

func TestResample(t *testing.T) {
	points := lo.Times(20, func(i int) r3.Vector { return r3.Vector{X: float64(i), Y: float64(2 * i)} })
	pc := New(points)

	a, err := Resample(pc, 8, rand.New(rand.NewSource(11)))
	test.That(t, err, test.ShouldBeNil)
	b, err := Resample(pc, 8, rand.New(rand.NewSource(11)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Points(), test.ShouldResemble, b.Points())
	test.That(t, a.Size(), test.ShouldEqual, 8)
	for _, p := range a.Points() {
		test.That(t, points, test.ShouldContain, p)
	}

	up, err := Resample(pc, 50, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, up.Size(), test.ShouldEqual, 50)

	_, err = Resample(New(nil), 5, nil)
	test.That(t, errors.Is(err, utils.ErrInvalidArgument), test.ShouldBeTrue)
}
