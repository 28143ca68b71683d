package detection

import (
	"math"
	"reflect"
	"testing"

	"github.com/ironsheep/stagepoint/internal/geometry"
	"github.com/ironsheep/stagepoint/internal/imaging"
)

// createLatticePlane draws bright dots on a triangular lattice plus a
// mid-level band so the histogram has three classes
func createLatticePlane(rows, cols int) (*imaging.Plane, int) {
	const (
		spacing = 24
		rowStep = 21
		origin  = 24
	)
	p := imaging.NewPlane(origin*2+cols*spacing+spacing/2, origin*2+rows*rowStep)
	for y := 0; y < 6; y++ {
		for x := 0; x < p.Width; x++ {
			p.Set(x, y, 120)
		}
	}
	n := 0
	for r := 0; r < rows; r++ {
		offset := 0
		if r%2 == 1 {
			offset = spacing / 2
		}
		for c := 0; c < cols; c++ {
			drawDisk(p, origin+offset+c*spacing, origin+r*rowStep, 4, 255)
			n++
		}
	}
	return p, n
}

func countTypes(ds []Detection) map[string]int {
	counts := make(map[string]int)
	for _, d := range ds {
		counts[d.Type]++
	}
	return counts
}

func TestHexagonalMeshLattice(t *testing.T) {
	p, dots := createLatticePlane(4, 4)
	img := newTestImage(t, imaging.Single, p)

	a, err := NewHexagonalMesh(img, nil, Params{"blur_radius": 1})
	if err != nil {
		t.Fatalf("NewHexagonalMesh failed: %v", err)
	}
	got, err := a.Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	counts := countTypes(got)
	if counts[TypeNode] != dots {
		t.Errorf("expected %d nodes, got %d", dots, counts[TypeNode])
	}
	if counts[TypeEdgeMidpoint] == 0 {
		t.Error("expected edge midpoints")
	}
	if counts[TypePolygonCentroid] == 0 {
		t.Error("expected polygon centroids")
	}
	for _, d := range got {
		if len(d.Position) != 2 {
			t.Errorf("planar detection has position %v", d.Position)
		}
	}
}

func TestHexagonalMeshDeterministic(t *testing.T) {
	p, _ := createLatticePlane(3, 4)
	img := newTestImage(t, imaging.Single, p)

	a, err := NewHexagonalMesh(img, nil, Params{"blur_radius": 1})
	if err != nil {
		t.Fatal(err)
	}
	first, err := a.Detect()
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Detect()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Detect is not deterministic")
	}
}

func TestHexagonalMeshDegenerate(t *testing.T) {
	tests := []struct {
		name  string
		plane func() *imaging.Plane
		nodes int
	}{
		{
			name:  "flat plane",
			plane: func() *imaging.Plane { return imaging.NewPlane(40, 40) },
			nodes: 0,
		},
		{
			name: "two dots",
			plane: func() *imaging.Plane {
				p := imaging.NewPlane(80, 40)
				for x := 0; x < 80; x++ {
					p.Set(x, 0, 120)
					p.Set(x, 1, 120)
				}
				drawDisk(p, 20, 20, 4, 255)
				drawDisk(p, 60, 20, 4, 255)
				return p
			},
			nodes: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := newTestImage(t, imaging.Single, tt.plane())
			a, err := NewHexagonalMesh(img, nil, Params{"blur_radius": 1})
			if err != nil {
				t.Fatal(err)
			}
			got, err := a.Detect()
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			counts := countTypes(got)
			if counts[TypeNode] != tt.nodes {
				t.Errorf("expected %d nodes, got %d", tt.nodes, counts[TypeNode])
			}
			if counts[TypeEdgeMidpoint] != 0 || counts[TypePolygonCentroid] != 0 {
				t.Errorf("expected no midpoints, got %v", counts)
			}
		})
	}
}

func TestMeshMidpointsClusters(t *testing.T) {
	// A 2x3 grid of unit-ish rectangles: short edges 10, long edges 14,
	// diagonals ~17.2.
	nodes := []geometry.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0},
		{X: 0, Y: 14}, {X: 10, Y: 14}, {X: 20, Y: 14},
	}
	mid, cent := meshMidpoints(nodes, 3, false)

	if len(mid) == 0 || len(cent) == 0 {
		t.Fatalf("expected midpoints and centroids, got %d and %d", len(mid), len(cent))
	}
	for _, m := range mid {
		// Shortest cluster holds the horizontal edges at y=0 and y=14.
		if m.Y != 0 && m.Y != 14 {
			t.Errorf("edge midpoint %v is not on a short edge", m)
		}
	}
	for _, c := range cent {
		if c.Y != 7 {
			t.Errorf("centroid %v is not on a diagonal", c)
		}
	}
}

func TestMeshMidpointsFewEdges(t *testing.T) {
	// Three points give three edges; ten clusters collapse to three.
	nodes := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 20}}
	mid, cent := meshMidpoints(nodes, 10, false)
	if len(mid) != 1 || len(cent) != 1 {
		t.Fatalf("expected one midpoint and one centroid, got %d and %d", len(mid), len(cent))
	}
	if mid[0] != (geometry.Point{X: 5, Y: 0}) {
		t.Errorf("midpoint = %v, want (5, 0)", mid[0])
	}
	want := geometry.Point{X: 5, Y: 10}
	if math.Abs(cent[0].X-want.X) > 1e-9 || math.Abs(cent[0].Y-want.Y) > 1e-9 {
		t.Errorf("centroid = %v, want %v", cent[0], want)
	}
}

func TestMultiOtsu3(t *testing.T) {
	bins := make([]int, 256)
	bins[10] = 500
	bins[120] = 300
	bins[240] = 100

	low, high := multiOtsu3(bins)
	if low < 10 || low >= 120 {
		t.Errorf("low threshold %d not between classes 10 and 120", low)
	}
	if high < 120 || high >= 240 {
		t.Errorf("high threshold %d not between classes 120 and 240", high)
	}
}
