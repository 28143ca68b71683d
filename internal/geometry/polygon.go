package geometry

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of a set of points using Andrew's
// monotone chain. Returns the hull in counter-clockwise order without
// repeating the first point. Fewer than three distinct points are returned
// as-is (deduplicated).
func ConvexHull(points []Point) []Point {
	pts := append([]Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}

// Moments are the raw spatial moments of a closed polygon.
type Moments struct {
	M00 float64
	M10 float64
	M01 float64
}

// Centroid returns (m10/m00, m01/m00) and false when the area is zero.
func (m Moments) Centroid() (Point, bool) {
	if m.M00 == 0 {
		return Point{}, false
	}
	return Point{X: m.M10 / m.M00, Y: m.M01 / m.M00}, true
}

// PolygonMoments computes area and first-order moments of a closed polygon
// with Green's theorem. The result does not depend on vertex orientation.
func PolygonMoments(poly []Point) Moments {
	var a, cx, cy float64
	n := len(poly)
	if n < 3 {
		return Moments{}
	}
	for i := 0; i < n; i++ {
		p, q := poly[i], poly[(i+1)%n]
		c := p.X*q.Y - q.X*p.Y
		a += c
		cx += (p.X + q.X) * c
		cy += (p.Y + q.Y) * c
	}
	m := Moments{M00: a / 2, M10: cx / 6, M01: cy / 6}
	if m.M00 < 0 {
		m = Moments{M00: -m.M00, M10: -m.M10, M01: -m.M01}
	}
	return m
}

// PolygonArea returns the absolute area of a closed polygon.
func PolygonArea(poly []Point) float64 {
	return math.Abs(PolygonMoments(poly).M00)
}
