// Package render draws detections over the analysed image so the found
// points can be checked by eye.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/stagepoint/internal/detection"
	imgpkg "github.com/ironsheep/stagepoint/internal/imaging"
)

// Options control the overlay appearance.
type Options struct {
	// MarkerRadius is the marker disk radius in output pixels.
	MarkerRadius int
	// Labels draws the detection index next to each marker.
	Labels bool
	// MaxWidth downsizes wider overlays. Zero keeps the native size.
	MaxWidth int
}

// DefaultOptions returns the options used by the command-line jobs.
func DefaultOptions() Options {
	return Options{MarkerRadius: 3, Labels: true, MaxWidth: 2048}
}

// typeOrder fixes the hue assigned to each known detection type.
var typeOrder = []string{
	detection.TypeNode,
	detection.TypeEdgeMidpoint,
	detection.TypePolygonCentroid,
	detection.TypeCircle,
	detection.TypeMaxIntensity,
	detection.TypeSegment,
}

// MarkerColor returns the marker color of a detection type. Known types get
// evenly spaced hues; anything else is drawn white.
func MarkerColor(typ string) color.RGBA {
	for i, t := range typeOrder {
		if t == typ {
			hue := 360 * float64(i) / float64(len(typeOrder))
			r, g, b := colorful.Hsv(hue, 0.85, 1).Clamped().RGB255()
			return color.RGBA{R: r, G: g, B: b, A: 255}
		}
	}
	return color.RGBA{255, 255, 255, 255}
}

// Overlay renders the maximum projection of img in gray and marks every
// detection at column Position[0], row Position[1]. Detections outside the
// image are skipped.
func Overlay(img *imgpkg.Image, dets []detection.Detection, opts Options) (*image.NRGBA, error) {
	if img == nil || len(img.Planes) == 0 {
		return nil, fmt.Errorf("image has no planes")
	}

	base := projection(img.Planes).Gray8()
	bounds := base.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, base, bounds.Min, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	for i, d := range dets {
		if len(d.Position) < 2 {
			continue
		}
		cx := int(math.Round(d.Position[0]))
		cy := int(math.Round(d.Position[1]))
		if !image.Pt(cx, cy).In(bounds) {
			continue
		}
		drawDisk(canvas, cx, cy, opts.MarkerRadius, MarkerColor(d.Type))
		if opts.Labels {
			drawLabel(canvas, cx+opts.MarkerRadius+2, cy-3, strconv.Itoa(i), labelColor, bgColor)
		}
	}

	out := imaging.Clone(canvas)
	if opts.MaxWidth > 0 && bounds.Dx() > opts.MaxWidth {
		out = imaging.Resize(out, opts.MaxWidth, 0, imaging.Lanczos)
	}
	return out, nil
}

// Save renders the overlay and writes it to path. The format follows the
// file extension.
func Save(path string, img *imgpkg.Image, dets []detection.Detection, opts Options) error {
	out, err := Overlay(img, dets, opts)
	if err != nil {
		return err
	}
	if err := imaging.Save(out, path); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

// projection returns the per-pixel maximum over all planes.
func projection(planes []*imgpkg.Plane) *imgpkg.Plane {
	if len(planes) == 1 {
		return planes[0]
	}
	out := imgpkg.NewPlane(planes[0].Width, planes[0].Height)
	copy(out.Pix, planes[0].Pix)
	for _, p := range planes[1:] {
		for i, v := range p.Pix {
			if v > out.Pix[i] {
				out.Pix[i] = v
			}
		}
	}
	return out
}

func drawDisk(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	bounds := img.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			p := image.Pt(cx+dx, cy+dy)
			if p.In(bounds) {
				img.SetRGBA(p.X, p.Y, c)
			}
		}
	}
}

// digitGlyphs is a 3x5 pixel font for the marker labels.
var digitGlyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

// drawLabel draws text on a dark box at (x, y), clipped to the image.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	bounds := img.Bounds()
	const charWidth, labelHeight = 4, 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < len(text)*charWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.SetRGBA(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range digitGlyphs[ch] {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				if p := image.Pt(cx+col, y+row); p.In(bounds) {
					img.SetRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
