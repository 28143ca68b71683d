package detection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/stagepoint/internal/errs"
	"github.com/ironsheep/stagepoint/internal/geometry"
	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

// LabelMask is a per-pixel object label map. Zero is background.
type LabelMask struct {
	Width  int
	Height int
	Labels []int
}

// Segmenter produces a label mask for a plane. diameterPx is the expected
// object diameter in pixels; zero lets the model estimate it.
type Segmenter interface {
	Segment(p *imaging.Plane, diameterPx float64) (*LabelMask, error)
}

// DiameterUnit is the unit of the objects_diameter parameter.
type DiameterUnit int

const (
	// DiameterMicrometers converts the diameter with the mean XY scaling.
	DiameterMicrometers DiameterUnit = iota
	// DiameterPixels passes the diameter through.
	DiameterPixels
)

// SegmentationConfig configures the segmentation analyzers.
type SegmentationConfig struct {
	ObjectsDiameter float64 `yaml:"objects_diameter"`

	// FilterShapes enables the circularity, eccentricity and solidity cut.
	FilterShapes bool    `yaml:"filter_shapes"`
	CircThr      float64 `yaml:"circ_thr"`
	EccThr       float64 `yaml:"ecc_thr"`
	SolThr       float64 `yaml:"sol_thr"`
}

// DefaultSegmentationConfig returns the segmentation defaults.
func DefaultSegmentationConfig() SegmentationConfig {
	return SegmentationConfig{
		CircThr: 0.65,
		EccThr:  0.85,
		SolThr:  0.5,
	}
}

type segmentation struct {
	img   *imaging.Image
	cfg   SegmentationConfig
	seg   Segmenter
	unit  DiameterUnit
	scale float64
}

// NewSegmentation returns a constructor for an analyzer backed by an
// external segmentation model.
func NewSegmentation(seg Segmenter, unit DiameterUnit) Constructor {
	return func(img *imaging.Image, meta *metadata.Metadata, params Params) (Analyzer, error) {
		if seg == nil {
			return nil, errs.New(errs.Configuration, "segmentation", "no segmenter configured")
		}
		if err := checkImage(img); err != nil {
			return nil, err
		}
		if err := meta.RequireScaling(); err != nil {
			return nil, err
		}
		cfg := DefaultSegmentationConfig()
		if err := decodeParams(params, &cfg); err != nil {
			return nil, err
		}
		return &segmentation{
			img:   img,
			cfg:   cfg,
			seg:   seg,
			unit:  unit,
			scale: meta.Scaling.MeanXY(),
		}, nil
	}
}

// diameterPx converts the configured diameter to pixels.
func (a *segmentation) diameterPx() float64 {
	d := a.cfg.ObjectsDiameter
	if d <= 0 {
		return 0
	}
	if a.unit == DiameterPixels {
		return d
	}
	return math.Round(d / (a.scale * 1e6))
}

// Detect implements Analyzer.
func (a *segmentation) Detect() ([]Detection, error) {
	return eachPlane(a.img, a.detectPlane)
}

func (a *segmentation) detectPlane(p *imaging.Plane) ([]Detection, error) {
	mask, err := a.seg.Segment(p, a.diameterPx())
	if err != nil {
		return nil, fmt.Errorf("failed to segment plane: %w", err)
	}
	if mask.Width != p.Width || mask.Height != p.Height || len(mask.Labels) != p.Width*p.Height {
		return nil, fmt.Errorf("label mask is %dx%d, expected %dx%d", mask.Width, mask.Height, p.Width, p.Height)
	}

	var out []Detection
	for _, r := range labeledRegions(mask.Labels, mask.Width) {
		props := measureRegion(r, mask)
		if a.cfg.FilterShapes && !a.keep(props) {
			continue
		}
		out = append(out, Detection{
			Position: []float64{props.centroid.X, props.centroid.Y},
			Attributes: Attributes{
				Type:         TypeSegment,
				Radius:       math.Sqrt(props.area / math.Pi),
				Area:         props.area * a.scale * a.scale * 1e12,
				Perimeter:    props.perimeter,
				Eccentricity: props.eccentricity,
				Solidity:     props.solidity,
				Circularity:  props.circularity(),
			},
		})
	}
	return out, nil
}

func (a *segmentation) keep(p regionProps) bool {
	return p.circularity() >= a.cfg.CircThr &&
		p.eccentricity <= a.cfg.EccThr &&
		p.solidity >= a.cfg.SolThr
}

// regionProps are shape measurements of one labelled region, in pixels.
type regionProps struct {
	area         float64
	centroid     geometry.Point
	perimeter    float64
	eccentricity float64
	solidity     float64
}

// circularity is 4π·area/perimeter², zero for a zero perimeter.
func (p regionProps) circularity() float64 {
	if p.perimeter == 0 {
		return 0
	}
	return 4 * math.Pi * p.area / (p.perimeter * p.perimeter)
}

func measureRegion(r region, mask *LabelMask) regionProps {
	props := regionProps{
		area:     float64(len(r.Pixels)),
		centroid: r.centroid(),
	}

	// Perimeter: exposed 4-neighbour pixel sides, scaled so a digital disk
	// measures close to its circumference.
	exposed := 0
	inRegion := func(x, y int) bool {
		if x < 0 || y < 0 || x >= mask.Width || y >= mask.Height {
			return false
		}
		return mask.Labels[y*mask.Width+x] == r.Label
	}
	corners := make([]geometry.Point, 0, 4*len(r.Pixels))
	var mu20, mu02, mu11 float64
	for _, px := range r.Pixels {
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			if !inRegion(px.X+d[0], px.Y+d[1]) {
				exposed++
			}
		}
		x, y := float64(px.X), float64(px.Y)
		corners = append(corners,
			geometry.Point{X: x, Y: y}, geometry.Point{X: x + 1, Y: y},
			geometry.Point{X: x, Y: y + 1}, geometry.Point{X: x + 1, Y: y + 1})

		dx, dy := x-props.centroid.X, y-props.centroid.Y
		mu20 += dx * dx
		mu02 += dy * dy
		mu11 += dx * dy
	}
	props.perimeter = float64(exposed) * math.Pi / 4

	n := props.area
	props.eccentricity = eccentricity(mu20/n, mu02/n, mu11/n)

	if hullArea := geometry.PolygonArea(geometry.ConvexHull(corners)); hullArea > 0 {
		props.solidity = props.area / hullArea
	}

	return props
}

// eccentricity derives the eccentricity of the ellipse with the same second
// moments from the eigenvalues of the inertia tensor.
func eccentricity(mu20, mu02, mu11 float64) float64 {
	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(2, []float64{mu20, mu11, mu11, mu02}), false); !ok {
		return 0
	}
	vals := eig.Values(nil)
	minor, major := vals[0], vals[1]
	if major <= 0 {
		return 0
	}
	return math.Sqrt(math.Max(0, 1-minor/major))
}
