// Package stage maps pixel-space detections to physical stage coordinates
// and picks the detection nearest a known stage position.
//
// # Conventions
//
// Stage coordinates are micrometers. Scaling is meters per pixel and is
// multiplied by 1e6. The first pixel component is measured from the image
// centre along the height, the second along the width:
//
//	x = stage.x + (px[0] - H/2 + 0.5) * scaleX * 1e6
//	y = stage.y + (px[1] - W/2 + 0.5) * scaleY * 1e6
//
// # Z strategies
//
// A detection's optional third component is either a depth-slice offset or
// a tile index. The Mapper never guesses which: the caller picks the
// strategy, and the wrong choice yields a wrong Z rather than an error.
package stage

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ironsheep/stagepoint/internal/detection"
	"github.com/ironsheep/stagepoint/internal/errs"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

// XYMode selects how X and Y are resolved.
type XYMode string

const (
	// XYNormal offsets the stage origin by the pixel distance from the
	// image centre.
	XYNormal XYMode = "normal"
	// XYCenter returns the stage origin unchanged.
	XYCenter XYMode = "center"
)

// ZStrategy selects how Z is resolved.
type ZStrategy string

const (
	// ZNone returns the stage Z unchanged.
	ZNone ZStrategy = "none"
	// ZNormal treats the third component as a depth-slice offset.
	ZNormal ZStrategy = "normal"
	// ZAuto uses the slice offset when a depth scan is active and the tile
	// focus table otherwise.
	ZAuto ZStrategy = "auto"
)

// ParseXYMode validates an XY mode name.
func ParseXYMode(s string) (XYMode, error) {
	switch m := XYMode(s); m {
	case XYNormal, XYCenter:
		return m, nil
	}
	return "", errs.New(errs.Configuration, "stage.ParseXYMode", "unknown XY mode %q (want normal or center)", s)
}

// ParseZStrategy validates a Z strategy name.
func ParseZStrategy(s string) (ZStrategy, error) {
	switch z := ZStrategy(s); z {
	case ZNone, ZNormal, ZAuto:
		return z, nil
	}
	return "", errs.New(errs.Configuration, "stage.ParseZStrategy", "unknown Z strategy %q (want none, normal or auto)", s)
}

// Point is a detection mapped to stage coordinates in micrometers.
type Point struct {
	Position [3]float64 `json:"position"`
	detection.Attributes
}

// Mapper converts detections of one acquisition to stage points.
type Mapper struct {
	meta   *metadata.Metadata
	height int
	width  int
	tiles  map[int]float64
}

// NewMapper builds a mapper for an image of the given in-plane shape.
func NewMapper(meta *metadata.Metadata, height, width int) *Mapper {
	if meta == nil {
		meta = &metadata.Metadata{}
	}
	return &Mapper{
		meta:   meta,
		height: height,
		width:  width,
		tiles:  tileTable(meta.Tiles),
	}
}

var digitRun = regexp.MustCompile(`\d+`)

// tileTable maps the 0-based index parsed from the last digit run of each
// tile name to the tile's focus Z. Later tiles win on duplicate indices.
func tileTable(tiles []metadata.Tile) map[int]float64 {
	table := make(map[int]float64, len(tiles))
	for _, t := range tiles {
		if t.Z == nil {
			continue
		}
		runs := digitRun.FindAllString(t.Name, -1)
		if len(runs) == 0 {
			continue
		}
		n, err := strconv.Atoi(runs[len(runs)-1])
		if err != nil {
			continue
		}
		table[n-1] = *t.Z
	}
	return table
}

// TileZ returns the focus Z recorded for a 0-based tile index.
func (m *Mapper) TileZ(index int) (float64, bool) {
	z, ok := m.tiles[index]
	return z, ok
}

// ConvertXY resolves the stage X and Y of a pixel position.
func (m *Mapper) ConvertXY(px []float64, mode XYMode) (x, y float64, err error) {
	if mode != XYNormal && mode != XYCenter {
		return 0, 0, errs.New(errs.Configuration, "stage.ConvertXY", "unknown XY mode %q", mode)
	}

	if m.meta.Stage.X == nil || m.meta.Stage.Y == nil {
		return 0, 0, errs.New(errs.Metadata, "stage.ConvertXY", "stage X/Y position is unknown")
	}
	sx, sy := *m.meta.Stage.X, *m.meta.Stage.Y

	if mode == XYCenter {
		return sx, sy, nil
	}

	if len(px) < 2 {
		return 0, 0, fmt.Errorf("pixel position %v has fewer than two components", px)
	}
	if err := m.meta.RequireScaling(); err != nil {
		return 0, 0, err
	}
	x = sx + (px[0]-float64(m.height)/2+0.5)*m.meta.Scaling.X*1e6
	y = sy + (px[1]-float64(m.width)/2+0.5)*m.meta.Scaling.Y*1e6
	return x, y, nil
}

// ConvertZ resolves the stage Z of a pixel position with the given strategy.
func (m *Mapper) ConvertZ(px []float64, strategy ZStrategy) (float64, error) {
	switch strategy {
	case ZNone:
		return m.stageZ()
	case ZNormal:
		return m.sliceZ(px)
	case ZAuto:
		if m.meta.ZScanActive() {
			return m.sliceZ(px)
		}
		if len(px) > 2 {
			if z, ok := m.TileZ(int(px[2])); ok {
				return z, nil
			}
		}
		return m.stageZ()
	}
	return 0, errs.New(errs.Configuration, "stage.ConvertZ", "unknown Z strategy %q", strategy)
}

func (m *Mapper) stageZ() (float64, error) {
	if m.meta.Stage.Z == nil {
		return 0, errs.New(errs.Metadata, "stage.ConvertZ", "stage Z position is unknown")
	}
	return *m.meta.Stage.Z, nil
}

// sliceZ offsets the stage Z by the third component in depth slices.
func (m *Mapper) sliceZ(px []float64) (float64, error) {
	z, err := m.stageZ()
	if err != nil || len(px) < 3 {
		return z, err
	}
	if m.meta.Scaling.Z <= 0 {
		return 0, errs.New(errs.Metadata, "stage.ConvertZ", "Z scaling missing or not positive")
	}
	return z + px[2]*m.meta.Scaling.Z*1e6, nil
}

// Convert maps one detection to a stage point.
func (m *Mapper) Convert(d detection.Detection, mode XYMode, strategy ZStrategy) (Point, error) {
	x, y, err := m.ConvertXY(d.Position, mode)
	if err != nil {
		return Point{}, err
	}
	z, err := m.ConvertZ(d.Position, strategy)
	if err != nil {
		return Point{}, err
	}
	return Point{Position: [3]float64{x, y, z}, Attributes: d.Attributes}, nil
}

// ConvertPoints maps every detection. The input is not modified.
func (m *Mapper) ConvertPoints(ds []detection.Detection, mode XYMode, strategy ZStrategy) ([]Point, error) {
	out := make([]Point, 0, len(ds))
	for i, d := range ds {
		p, err := m.Convert(d, mode, strategy)
		if err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
