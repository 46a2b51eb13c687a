// Package spatialmath holds the surface geometry used to estimate normals: triangles,
// triangle meshes and convex hulls over r3 points.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Triangle is a planar triangle with a precomputed unit normal following the
// right-hand rule over p0, p1, p2.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle creates a triangle from three points.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: PlaneNormal(p0, p1, p2),
	}
}

// PlaneNormal returns the unit normal of the plane through three points. It is the zero
// vector if the points are collinear.
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	return p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
}

// Points returns the vertices of the triangle.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal of the triangle.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return 0.5 * t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm()
}

// Centroid returns the centroid of the triangle.
func (t *Triangle) Centroid() r3.Vector {
	return t.p0.Add(t.p1).Add(t.p2).Mul(1. / 3)
}

// Flipped returns the same triangle with the opposite winding and normal.
func (t *Triangle) Flipped() *Triangle {
	return &Triangle{p0: t.p0, p1: t.p2, p2: t.p1, normal: t.normal.Mul(-1)}
}

// Translated returns the triangle moved by offset. The normal is carried over unchanged.
func (t *Triangle) Translated(offset r3.Vector) *Triangle {
	return &Triangle{p0: t.p0.Add(offset), p1: t.p1.Add(offset), p2: t.p2.Add(offset), normal: t.normal}
}

// PointAt maps two uniform samples in [0, 1) to a point uniformly distributed over the
// triangle. Samples falling in the far half of the parallelogram are reflected back.
func (t *Triangle) PointAt(u, v float64) r3.Vector {
	if u+v > 1 {
		u, v = 1-u, 1-v
	}
	return t.p0.Add(t.p1.Sub(t.p0).Mul(u)).Add(t.p2.Sub(t.p0).Mul(v))
}

// DistanceToPlane returns the signed distance from pt to the triangle's plane, positive
// on the side the normal points to.
func (t *Triangle) DistanceToPlane(pt r3.Vector) float64 {
	return t.normal.Dot(pt.Sub(t.p0))
}

// Degenerate reports whether the triangle's area is at most tol or its normal is undefined.
func (t *Triangle) Degenerate(tol float64) bool {
	return t.Area() <= tol || math.IsNaN(t.normal.X)
}
