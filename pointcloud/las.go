package pointcloud

import (
	"fmt"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/pointprep/logging"
)

// LAS stores coordinates as scaled 32-bit integers; values outside this range lose precision.
const (
	maxPreciseFloat64 = float64(1<<31-1) / 10000
	minPreciseFloat64 = -maxPreciseFloat64
)

// NewFromLASFile returns a point cloud from reading a LAS file. If any
// lossiness of points could occur from reading it in, it's reported but is not
// an error.
func NewFromLASFile(fn string, logger logging.Logger) (PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	points := make([]r3.Vector, 0, lf.Header.NumberPoints)
	warned := false
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()
		v := r3.Vector{X: data.X, Y: data.Y, Z: data.Z}
		if !warned && !precise(v) {
			logger.Warnw("potential floating point lossiness for LAS point",
				"point", v, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
			warned = true
		}
		points = append(points, v)
	}
	return New(points), nil
}

func precise(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if c < minPreciseFloat64 || c > maxPreciseFloat64 {
			return false
		}
	}
	return true
}

// WriteToLASFile writes the point cloud out to a LAS file using point format 0.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: 0,
	}); err != nil {
		return
	}

	cloud.Iterate(func(_ int, pos r3.Vector) bool {
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			PointSourceID: 1,
		}
		if lerr := lf.AddLasPoint(pr0); lerr != nil {
			err = lerr
			return false
		}
		return true
	})

	// nolint:nakedret
	return
}
