package stage

import "math"

// Distance returns the 3-D Euclidean distance between a point and ref.
func (p Point) Distance(ref [3]float64) float64 {
	dx := p.Position[0] - ref[0]
	dy := p.Position[1] - ref[1]
	dz := p.Position[2] - ref[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Nearest returns the point closest to ref, the first one on ties. It
// reports false only for an empty slice.
func Nearest(points []Point, ref [3]float64) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	best, bestDist := 0, points[0].Distance(ref)
	for i := 1; i < len(points); i++ {
		if d := points[i].Distance(ref); d < bestDist {
			best, bestDist = i, d
		}
	}
	return points[best], true
}
