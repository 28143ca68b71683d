package geometry

import (
	"math"
	"sort"
)

// superScale sizes the enclosing triangle relative to the point span. It is
// large enough that flat hull triangles are not cut away with it.
const superScale = 1000

// Triangle holds three point indices.
type Triangle [3]int

type circle struct {
	x, y, r2 float64
}

type workTriangle struct {
	v    Triangle
	c    circle
	dead bool
}

// Triangulate computes the Delaunay triangulation of points with the
// Bowyer-Watson algorithm.
//
// Returns nil when fewer than three points are given or when all points are
// collinear. Exact duplicate points are ignored after their first occurrence.
func Triangulate(points []Point) []Triangle {
	n := len(points)
	if n < 3 {
		return nil
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		return nil
	}
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	// Super triangle vertices live at indices n, n+1, n+2.
	all := make([]Point, n, n+3)
	copy(all, points)
	all = append(all,
		Point{X: midX - superScale*span, Y: midY - span},
		Point{X: midX, Y: midY + superScale*span},
		Point{X: midX + superScale*span, Y: midY - span},
	)

	tris := []*workTriangle{newWorkTriangle(all, Triangle{n, n + 1, n + 2})}

	for i := 0; i < n; i++ {
		p := all[i]

		var bad []*workTriangle
		for _, t := range tris {
			if !t.dead && t.c.contains(p) {
				bad = append(bad, t)
			}
		}
		if len(bad) == 0 {
			continue
		}

		// The cavity boundary is made of the edges owned by exactly one bad
		// triangle.
		edgeCount := make(map[Edge]int, 3*len(bad))
		var order []Edge
		for _, t := range bad {
			t.dead = true
			for k := 0; k < 3; k++ {
				e := NewEdge(t.v[k], t.v[(k+1)%3])
				if edgeCount[e] == 0 {
					order = append(order, e)
				}
				edgeCount[e]++
			}
		}

		for _, e := range order {
			if edgeCount[e] != 1 {
				continue
			}
			if cross(all[e.A], all[e.B], p) == 0 {
				continue
			}
			tris = append(tris, newWorkTriangle(all, Triangle{e.A, e.B, i}))
		}

		live := tris[:0]
		for _, t := range tris {
			if !t.dead {
				live = append(live, t)
			}
		}
		tris = live
	}

	var out []Triangle
	for _, t := range tris {
		if t.v[0] >= n || t.v[1] >= n || t.v[2] >= n {
			continue
		}
		out = append(out, t.v)
	}
	return out
}

func newWorkTriangle(pts []Point, v Triangle) *workTriangle {
	return &workTriangle{v: v, c: circumcircle(pts[v[0]], pts[v[1]], pts[v[2]])}
}

func circumcircle(a, b, c Point) circle {
	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	if d == 0 {
		return circle{r2: math.Inf(1)}
	}
	a2 := a.X*a.X + a.Y*a.Y
	b2 := b.X*b.X + b.Y*b.Y
	c2 := c.X*c.X + c.Y*c.Y
	ux := (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / d
	uy := (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d
	dx, dy := a.X-ux, a.Y-uy
	return circle{x: ux, y: uy, r2: dx*dx + dy*dy}
}

func (c circle) contains(p Point) bool {
	dx, dy := p.X-c.x, p.Y-c.y
	d2 := dx*dx + dy*dy
	return d2 < c.r2*(1-1e-12)
}

// UniqueEdges collects the undirected edges of the triangles, each stored
// once regardless of how many triangles share it, sorted by (A, B).
func UniqueEdges(triangles []Triangle) []Edge {
	seen := make(map[Edge]struct{}, 3*len(triangles))
	edges := make([]Edge, 0, 3*len(triangles)/2+1)
	for _, t := range triangles {
		for k := 0; k < 3; k++ {
			e := NewEdge(t[k], t[(k+1)%3])
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// DelaunayEdges is Triangulate followed by UniqueEdges.
func DelaunayEdges(points []Point) []Edge {
	return UniqueEdges(Triangulate(points))
}
