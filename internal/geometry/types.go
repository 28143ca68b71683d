// Package geometry provides the computational-geometry primitives used by the
// detection analyzers: Delaunay triangulation, unique edge extraction,
// one-dimensional k-means, quartile fences, convex hulls and polygon moments.
//
// Every routine is deterministic and degrades to an empty result instead of
// failing when its input is degenerate (too few points, collinear points,
// zero-length input).
package geometry

import "math"

// Point is a 2-D point in pixel space. X is the column, Y the row.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Midpoint returns the point halfway between p and other.
func (p Point) Midpoint(other Point) Point {
	return Point{X: (p.X + other.X) / 2, Y: (p.Y + other.Y) / 2}
}

// Edge is an undirected edge between two point indices, stored with A < B.
type Edge struct {
	A int
	B int
}

// NewEdge returns the canonical form of the edge between i and j.
func NewEdge(i, j int) Edge {
	if i > j {
		i, j = j, i
	}
	return Edge{A: i, B: j}
}

// Length returns the Euclidean length of the edge over the given points.
func (e Edge) Length(points []Point) float64 {
	return points[e.A].Distance(points[e.B])
}

// Midpoint returns the midpoint of the edge over the given points.
func (e Edge) Midpoint(points []Point) Point {
	return points[e.A].Midpoint(points[e.B])
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
