// Package pointcloud defines an ordered point cloud and the stages that transform one:
// scaling, resampling to a fixed size and convex hull based normal estimation. It also
// reads and writes the interchange formats a cloud is exchanged in (PLY, PCD and LAS).
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData whose bounds are empty.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MinZ: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
		MaxZ: math.Inf(-1),
	}
}

// Merge grows the bounds to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
}

// Extent returns the size of the bounding box along each axis.
func (meta MetaData) Extent() r3.Vector {
	if meta.MinX > meta.MaxX {
		return r3.Vector{}
	}
	return r3.Vector{X: meta.MaxX - meta.MinX, Y: meta.MaxY - meta.MinY, Z: meta.MaxZ - meta.MinZ}
}

// PointCloud is an ordered, immutable sequence of points. Every stage that transforms
// a cloud returns a new one.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns the axis aligned bounds of the cloud.
	MetaData() MetaData

	// At returns the i-th point.
	At(i int) r3.Vector

	// Points returns a copy of the points in order.
	Points() []r3.Vector

	// Iterate calls fn for every point in order until fn returns false.
	Iterate(fn func(i int, p r3.Vector) bool)
}

// Vectors is an ordered list of vectors such as the normals of a cloud.
type Vectors []r3.Vector

type basicPointCloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns a PointCloud holding a copy of points.
func New(points []r3.Vector) PointCloud {
	cloud := &basicPointCloud{
		points: make([]r3.Vector, len(points)),
		meta:   NewMetaData(),
	}
	copy(cloud.points, points)
	for _, p := range points {
		cloud.meta.Merge(p)
	}
	return cloud
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) MetaData() MetaData {
	return cloud.meta
}

func (cloud *basicPointCloud) At(i int) r3.Vector {
	return cloud.points[i]
}

func (cloud *basicPointCloud) Points() []r3.Vector {
	out := make([]r3.Vector, len(cloud.points))
	copy(out, cloud.points)
	return out
}

func (cloud *basicPointCloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range cloud.points {
		if !fn(i, p) {
			return
		}
	}
}
