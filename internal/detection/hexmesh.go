package detection

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/stagepoint/internal/geometry"
	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

// HexMeshConfig configures the hexagonal-mesh analyzer.
type HexMeshConfig struct {
	// NClusters is the number of edge-length groups. Reduced to the number
	// of edges when fewer are available.
	NClusters int `yaml:"n_clusters"`

	// RemoveOutliers drops edges longer than Q3 + 1.5·IQR before clustering.
	RemoveOutliers bool `yaml:"remove_outliers"`

	// BlurRadius is the Gaussian smoothing radius in pixels.
	BlurRadius float64 `yaml:"blur_radius"`

	// OpenRadius is the erosion/dilation radius of the binary opening.
	OpenRadius float64 `yaml:"open_radius"`
}

// DefaultHexMeshConfig returns the hexagonal-mesh defaults.
func DefaultHexMeshConfig() HexMeshConfig {
	return HexMeshConfig{
		NClusters:      3,
		RemoveOutliers: true,
		BlurRadius:     3,
		OpenRadius:     1,
	}
}

type hexMesh struct {
	img *imaging.Image
	cfg HexMeshConfig
}

// NewHexagonalMesh builds the hexagonal-mesh analyzer.
//
// The analyzer finds the bright nodes of a hexagonal lattice and reports
// three kinds of point:
//   - node: centroid of each bright connected component
//   - edge midpoint: midpoint of every Delaunay edge in the shortest
//     length cluster
//   - polygon centroid: midpoint of every Delaunay edge in the longest
//     length cluster, an approximation of the cell centre
//
// # Algorithm
//
//  1. Smooth the 8-bit normalised plane with a Gaussian blur
//  2. Three-class multi-Otsu on the histogram; keep pixels above the upper cut
//  3. Binary opening (erode then dilate) to remove speckle
//  4. Centroid every 8-connected component
//  5. Delaunay-triangulate the nodes and collect unique edges
//  6. Optionally drop long outlier edges, then k-means the edge lengths
//
// Too few nodes or edges give empty midpoint and centroid groups, never an
// error.
func NewHexagonalMesh(img *imaging.Image, _ *metadata.Metadata, params Params) (Analyzer, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	cfg := DefaultHexMeshConfig()
	if err := decodeParams(params, &cfg); err != nil {
		return nil, err
	}
	return &hexMesh{img: img, cfg: cfg}, nil
}

// Detect implements Analyzer.
func (a *hexMesh) Detect() ([]Detection, error) {
	return eachPlane(a.img, a.detectPlane)
}

func (a *hexMesh) detectPlane(p *imaging.Plane) ([]Detection, error) {
	nodes := a.meshNodes(p)
	midpoints, centroids := meshMidpoints(nodes, a.cfg.NClusters, a.cfg.RemoveOutliers)

	out := make([]Detection, 0, len(nodes)+len(midpoints)+len(centroids))
	groups := []struct {
		points []geometry.Point
		typ    string
	}{
		{nodes, TypeNode},
		{midpoints, TypeEdgeMidpoint},
		{centroids, TypePolygonCentroid},
	}
	for _, g := range groups {
		for _, pt := range g.points {
			out = append(out, Detection{
				Position:   []float64{pt.X, pt.Y},
				Attributes: Attributes{Type: g.typ},
			})
		}
	}
	return out, nil
}

// meshNodes returns the centroids of the bright mesh junctions.
func (a *hexMesh) meshNodes(p *imaging.Plane) []geometry.Point {
	var smoothed image.Image = p.Gray8()
	if a.cfg.BlurRadius > 0 {
		smoothed = blur.Gaussian(smoothed, a.cfg.BlurRadius)
	}

	_, high := multiOtsu3(histogram.NewRGBAHistogram(smoothed).R.Bins)
	if high >= 255 {
		return nil
	}
	var binary image.Image = segment.Threshold(smoothed, uint8(high+1))

	if a.cfg.OpenRadius > 0 {
		binary = effect.Dilate(effect.Erode(binary, a.cfg.OpenRadius), a.cfg.OpenRadius)
	}

	mask := make([]bool, p.Width*p.Height)
	b := binary.Bounds()
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			r, _, _, _ := binary.At(b.Min.X+x, b.Min.Y+y).RGBA()
			mask[y*p.Width+x] = r > 0x7fff
		}
	}

	regions := connectedRegions(mask, p.Width, p.Height)
	nodes := make([]geometry.Point, len(regions))
	for i, r := range regions {
		nodes[i] = r.centroid()
	}
	return nodes
}

// meshMidpoints triangulates the nodes, clusters the edge lengths and
// returns the midpoints of the shortest and longest clusters.
func meshMidpoints(nodes []geometry.Point, nClusters int, removeOutliers bool) (midpoints, centroids []geometry.Point) {
	edges := geometry.DelaunayEdges(nodes)
	if len(edges) == 0 {
		return nil, nil
	}

	lengths := make([]float64, len(edges))
	for i, e := range edges {
		lengths[i] = e.Length(nodes)
	}

	if removeOutliers {
		fence := geometry.UpperFence(lengths)
		keptEdges, keptLengths := edges[:0:0], lengths[:0:0]
		for i, l := range lengths {
			if l <= fence {
				keptEdges = append(keptEdges, edges[i])
				keptLengths = append(keptLengths, l)
			}
		}
		edges, lengths = keptEdges, keptLengths
	}

	centers, labels := geometry.KMeans1D(lengths, nClusters)
	if len(centers) == 0 {
		return nil, nil
	}

	clusters := make([][]geometry.Edge, len(centers))
	for i, e := range edges {
		clusters[labels[i]] = append(clusters[labels[i]], e)
	}

	for _, group := range clusters {
		if len(group) == 0 {
			continue
		}
		for _, e := range group {
			midpoints = append(midpoints, e.Midpoint(nodes))
		}
		break
	}
	for _, e := range clusters[len(clusters)-1] {
		centroids = append(centroids, e.Midpoint(nodes))
	}

	return midpoints, centroids
}

// multiOtsu3 finds the two thresholds splitting a histogram into three
// classes with maximal between-class variance. Class k holds the bins in
// (t[k-1], t[k]]; the returned values are bin indices.
func multiOtsu3(bins []int) (low, high int) {
	n := len(bins)
	if n < 3 {
		return 0, n - 1
	}

	// Prefix sums of weight and first moment.
	w := make([]float64, n+1)
	m := make([]float64, n+1)
	for i, c := range bins {
		w[i+1] = w[i] + float64(c)
		m[i+1] = m[i] + float64(i)*float64(c)
	}

	term := func(from, to int) float64 {
		wk := w[to] - w[from]
		if wk == 0 {
			return 0
		}
		mk := m[to] - m[from]
		return mk * mk / wk
	}

	best := -1.0
	low, high = 0, 1
	for t1 := 0; t1 < n-2; t1++ {
		for t2 := t1 + 1; t2 < n-1; t2++ {
			v := term(0, t1+1) + term(t1+1, t2+1) + term(t2+1, n)
			if v > best {
				best, low, high = v, t1, t2
			}
		}
	}
	return low, high
}
