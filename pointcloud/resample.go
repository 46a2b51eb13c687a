package pointcloud

import (
	"math/rand"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/pointprep/utils"
)

// ResampleIndices chooses k indices into a cloud of n points. When n > k the indices are
// distinct and drawn uniformly without replacement, in draw order. Otherwise, including
// n == k, they are drawn uniformly with replacement so duplicates are expected.
// A nil rng uses a freshly seeded source.
func ResampleIndices(n, k int, rng *rand.Rand) ([]int, error) {
	if k <= 0 {
		return nil, utils.NewInvalidArgumentError("num_points", k, "must be positive")
	}
	if n <= 0 {
		return nil, utils.NewInvalidArgumentError("cloud size", n, "cannot resample an empty cloud")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}

	indices := make([]int, k)
	if n > k {
		// partial Fisher-Yates; only the swapped positions are materialized
		swapped := make(map[int]int, k)
		lookup := func(i int) int {
			if v, ok := swapped[i]; ok {
				return v
			}
			return i
		}
		for i := 0; i < k; i++ {
			j := i + rng.Intn(n-i)
			indices[i] = lookup(j)
			swapped[j] = lookup(i)
		}
		return indices, nil
	}
	for i := range indices {
		indices[i] = rng.Intn(n)
	}
	return indices, nil
}

// Resample returns a new cloud of exactly k points taken from cloud as chosen by
// ResampleIndices.
func Resample(cloud PointCloud, k int, rng *rand.Rand) (PointCloud, error) {
	indices, err := ResampleIndices(cloud.Size(), k, rng)
	if err != nil {
		return nil, err
	}
	points := make([]r3.Vector, len(indices))
	for i, idx := range indices {
		points[i] = cloud.At(idx)
	}
	return New(points), nil
}
