package detection

import (
	"image"
	"log/slog"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"github.com/ironsheep/stagepoint/internal/geometry"
	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

// Canny thresholds of the transmitted-light flavour.
const (
	cannyLow  = 5
	cannyHigh = 15
)

// CirclesConfig configures the circular-object analyzer.
type CirclesConfig struct {
	// MinSizeUM and MaxSizeUM bound the physical radius, inclusive.
	MinSizeUM float64 `yaml:"min_size_um"`
	MaxSizeUM float64 `yaml:"max_size_um"`

	// MinFitRatio rejects contours whose area is a small share of their
	// enclosing circle.
	MinFitRatio float64 `yaml:"min_fit_ratio"`

	// TopN keeps only the N largest external contours. Zero keeps all.
	TopN int `yaml:"top_n"`

	// TL selects edge detection (transmitted light) instead of the Otsu
	// threshold (fluorescence).
	TL bool `yaml:"tl"`
}

// DefaultCirclesConfig returns the circular-object defaults.
func DefaultCirclesConfig() CirclesConfig {
	return CirclesConfig{
		MinSizeUM:   1,
		MaxSizeUM:   50,
		MinFitRatio: 0.2,
	}
}

// CircleMode picks the flavour of the circular-object analyzer.
type CircleMode int

const (
	// CircleModeParams honours the tl parameter.
	CircleModeParams CircleMode = iota
	// CircleModeFluorescence forces the Otsu threshold.
	CircleModeFluorescence
	// CircleModeTransmitted forces edge detection.
	CircleModeTransmitted
)

type circles struct {
	img    *imaging.Image
	cfg    CirclesConfig
	scale  float64
	logger *slog.Logger
}

// NewCircles returns a constructor for the circular-object analyzer. The
// mode either honours the tl parameter or forces one flavour.
func NewCircles(mode CircleMode) Constructor {
	return func(img *imaging.Image, meta *metadata.Metadata, params Params) (Analyzer, error) {
		if err := checkImage(img); err != nil {
			return nil, err
		}
		if err := meta.RequireScaling(); err != nil {
			return nil, err
		}
		cfg := DefaultCirclesConfig()
		if err := decodeParams(params, &cfg); err != nil {
			return nil, err
		}
		switch mode {
		case CircleModeFluorescence:
			cfg.TL = false
		case CircleModeTransmitted:
			cfg.TL = true
		}
		return &circles{
			img:    img,
			cfg:    cfg,
			scale:  meta.Scaling.MeanXY(),
			logger: slog.Default().With("analyzer", "circles"),
		}, nil
	}
}

// Detect implements Analyzer.
//
// # Algorithm
//
//  1. Min-max normalise to 0-255 and smooth with a 3×3 Gaussian
//  2. Fluorescence: Otsu threshold then a 3×3 opening.
//     Transmitted light: Canny edges; an unusable input gives an empty mask.
//  3. Contours with a two-level hierarchy; keep roots, largest area first
//  4. Centroid from polygon moments (truncated), radius from the minimum
//     enclosing circle (truncated)
//  5. Drop contours below MinFitRatio, then radii outside the µm bounds
func (a *circles) Detect() ([]Detection, error) {
	return eachPlane(a.img, a.detectPlane)
}

func (a *circles) detectPlane(p *imaging.Plane) ([]Detection, error) {
	src, err := p.ToMat8()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Point{3, 3}, 0, 0, gocv.BorderDefault)

	mask := gocv.NewMat()
	defer mask.Close()
	if a.cfg.TL {
		a.edgeMask(blurred, &mask)
	} else {
		thresholdMask(blurred, &mask)
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(mask, &hierarchy, gocv.RetrievalCComp, gocv.ChainApproxSimple)
	defer contours.Close()

	var out []Detection
	for _, c := range externalByArea(contours, hierarchy, a.cfg.TopN) {
		fit, ok := fitCircle(c)
		if !ok || fit.ratio < a.cfg.MinFitRatio {
			continue
		}
		radiusUM := float64(fit.radius) * a.scale * 1e6
		if radiusUM < a.cfg.MinSizeUM || radiusUM > a.cfg.MaxSizeUM {
			continue
		}
		out = append(out, Detection{
			Position: []float64{float64(fit.cx), float64(fit.cy)},
			Attributes: Attributes{
				Type:     TypeCircle,
				Radius:   radiusUM,
				FitRatio: fit.ratio,
			},
		})
	}
	return out, nil
}

func thresholdMask(src gocv.Mat, dst *gocv.Mat) {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(src, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{3, 3})
	defer kernel.Close()
	gocv.MorphologyEx(binary, dst, gocv.MorphOpen, kernel)
}

func (a *circles) edgeMask(src gocv.Mat, dst *gocv.Mat) {
	if src.Empty() || src.Type() != gocv.MatTypeCV8U {
		a.logger.Warn("edge detection unavailable, using empty mask", "type", src.Type())
		zero := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), src.Rows(), src.Cols(), gocv.MatTypeCV8U)
		defer zero.Close()
		zero.CopyTo(dst)
		return
	}
	gocv.Canny(src, dst, cannyLow, cannyHigh)
}

type contour struct {
	points gocv.PointVector
	area   float64
}

// externalByArea keeps hierarchy roots sorted by area, largest first, and
// caps the result to topN when topN > 0.
func externalByArea(contours gocv.PointsVector, hierarchy gocv.Mat, topN int) []contour {
	var roots []contour
	for i := 0; i < contours.Size(); i++ {
		if hierarchy.GetVeciAt(0, i)[3] != -1 {
			continue
		}
		pv := contours.At(i)
		roots = append(roots, contour{points: pv, area: gocv.ContourArea(pv)})
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].area > roots[j].area })
	if topN > 0 && len(roots) > topN {
		roots = roots[:topN]
	}
	return roots
}

type circleFit struct {
	cx, cy int
	radius int
	ratio  float64
	area   float64
}

// fitCircle computes the contour centroid and enclosing circle. It reports
// false for contours with zero area.
func fitCircle(c contour) (circleFit, bool) {
	pts := c.points.ToPoints()
	poly := make([]geometry.Point, len(pts))
	for i, p := range pts {
		poly[i] = geometry.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	center, ok := geometry.PolygonMoments(poly).Centroid()
	if !ok {
		return circleFit{}, false
	}

	_, _, r := gocv.MinEnclosingCircle(c.points)
	radius := float64(r)
	ratio := 0.0
	if circleArea := math.Pi * radius * radius; circleArea > 0 {
		ratio = c.area / circleArea
	}

	return circleFit{
		cx:     int(center.X),
		cy:     int(center.Y),
		radius: int(radius),
		ratio:  ratio,
		area:   c.area,
	}, true
}
