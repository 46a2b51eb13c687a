package dataset

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/pointprep/npz"
	"go.viam.com/pointprep/utils"
)

// ArrayInfo summarizes one array of an archive.
type ArrayInfo struct {
	Key   string
	Shape []int
	DType npz.DType

	// Min, Max and Mean are over every element; NaN for empty arrays.
	Min, Max, Mean float64
	// MeanRowNorm is the mean Euclidean length of the rows of a rank 2 array, NaN otherwise.
	MeanRowNorm float64
}

// ShapeString formats the shape the way numpy prints it, e.g. (400000, 3) or (3,).
func (info ArrayInfo) ShapeString() string {
	shape := strings.Trim(strings.Join(strings.Fields(fmt.Sprint(info.Shape)), ", "), "[]")
	if len(info.Shape) == 1 {
		shape += ","
	}
	return "(" + shape + ")"
}

func (info ArrayInfo) String() string {
	return fmt.Sprintf("%s: shape=%s dtype=%s min=%g max=%g mean=%g mean_row_norm=%g",
		info.Key, info.ShapeString(), info.DType, info.Min, info.Max, info.Mean, info.MeanRowNorm)
}

// InspectArchive describes every array of the .npz archive at path, in archive order.
func InspectArchive(path string) (infos []ArrayInfo, err error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, utils.NewNotFoundError(path)
		}
		return nil, utils.NewIOError(path, err)
	}
	r, err := npz.Open(path)
	if err != nil {
		return nil, utils.NewFormatError(path, "not an npz archive: %v", err)
	}
	defer func() {
		err = multierr.Combine(err, r.Close())
	}()

	for _, key := range r.Keys() {
		arr, err := r.Read(key)
		if err != nil {
			return nil, utils.NewFormatError(path, "%v", err)
		}
		infos = append(infos, summarize(key, arr))
	}
	return infos, nil
}

func summarize(key string, arr *npz.Array) ArrayInfo {
	info := ArrayInfo{
		Key:         key,
		Shape:       arr.Shape,
		DType:       arr.DType,
		Min:         math.NaN(),
		Max:         math.NaN(),
		Mean:        math.NaN(),
		MeanRowNorm: math.NaN(),
	}
	data := stats.Float64Data(arr.Data)
	if data.Len() == 0 {
		return info
	}
	info.Min, _ = data.Min()
	info.Max, _ = data.Max()
	info.Mean, _ = data.Mean()

	if len(arr.Shape) == 2 && arr.Shape[1] > 0 {
		norms := lo.Map(lo.Chunk(arr.Data, arr.Shape[1]), func(row []float64, _ int) float64 {
			sum := 0.
			for _, v := range row {
				sum += v * v
			}
			return math.Sqrt(sum)
		})
		info.MeanRowNorm, _ = stats.Mean(norms)
	}
	return info
}
