package detection

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

// Point type tags reported in Attributes.Type.
const (
	TypeNode            = "node"
	TypeEdgeMidpoint    = "edge midpoint"
	TypePolygonCentroid = "polygon centroid"
	TypeCircle          = "circle"
	TypeMaxIntensity    = "max intensity"
	TypeSegment         = "segment"
)

// Attributes are the algorithm-specific properties carried by a detection
// and copied unchanged onto the stage point built from it.
type Attributes struct {
	// Type tags the kind of point (node, edge midpoint, circle, ...).
	Type string `json:"type,omitempty"`

	// Radius is in micrometers for circle detections and in pixels for
	// segmented regions.
	Radius float64 `json:"radius,omitempty"`

	// FitRatio is contour area divided by the enclosing circle area.
	FitRatio float64 `json:"fit_ratio,omitempty"`

	// Area is in square micrometers for segmented regions.
	Area float64 `json:"area,omitempty"`

	Perimeter    float64 `json:"perimeter,omitempty"`
	Eccentricity float64 `json:"eccentricity,omitempty"`
	Solidity     float64 `json:"solidity,omitempty"`
	Circularity  float64 `json:"circularity,omitempty"`

	// Intensity is the summed plane intensity of a max-intensity detection.
	Intensity float64 `json:"intensity,omitempty"`
}

// Detection is a candidate point in pixel space.
//
// Position holds (x, y) or (x, y, index). The meaning of the third
// component is not stored here; it is fixed by the Z strategy the caller
// picks when mapping to stage coordinates.
type Detection struct {
	Position []float64 `json:"position"`
	Attributes
}

// Analyzer finds detections in the image it was built with.
type Analyzer interface {
	Detect() ([]Detection, error)
}

// Params is the raw per-analyzer configuration map.
type Params map[string]interface{}

// Constructor builds an analyzer for one acquisition.
type Constructor func(img *imaging.Image, meta *metadata.Metadata, params Params) (Analyzer, error)

// decodeParams overlays params onto cfg, which must already hold defaults.
// Unknown keys are ignored.
func decodeParams(params Params, cfg interface{}) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(map[string]interface{}(params))
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	return nil
}

// eachPlane runs a planar detector over every plane of img. For stacks the
// plane index is appended to each position.
func eachPlane(img *imaging.Image, fn func(p *imaging.Plane) ([]Detection, error)) ([]Detection, error) {
	if !img.IsStack() {
		return fn(img.Planes[0])
	}

	var out []Detection
	for i, p := range img.Planes {
		found, err := fn(p)
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		for _, d := range found {
			d.Position = append(d.Position[:len(d.Position):len(d.Position)], float64(i))
			out = append(out, d)
		}
	}
	return out, nil
}

func checkImage(img *imaging.Image) error {
	if img == nil || len(img.Planes) == 0 {
		return fmt.Errorf("image has no planes")
	}
	return nil
}
