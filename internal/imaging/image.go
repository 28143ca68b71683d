package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Layout tells consumers how to read the planes of an Image.
type Layout int

const (
	// Single is one focal plane.
	Single Layout = iota
	// DepthStack is an ordered sequence of focal planes (z-scan), in
	// acquisition order.
	DepthStack
	// TileStack is a sequence of tiles of a multi-position acquisition,
	// indexed like the tile metadata.
	TileStack
)

// String returns the string representation of Layout.
func (l Layout) String() string {
	switch l {
	case Single:
		return "single"
	case DepthStack:
		return "depth-stack"
	case TileStack:
		return "tile-stack"
	default:
		return "unknown"
	}
}

// Plane is one 2-D sample array stored row-major.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane allocates a zero-filled plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the sample at column x, row y.
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Set stores a sample at column x, row y.
func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.Width+x] = v
}

// Sum returns the total intensity of the plane.
func (p *Plane) Sum() float64 {
	var s float64
	for _, v := range p.Pix {
		s += v
	}
	return s
}

// MinMax returns the smallest and largest sample.
func (p *Plane) MinMax() (lo, hi float64) {
	if len(p.Pix) == 0 {
		return 0, 0
	}
	lo, hi = p.Pix[0], p.Pix[0]
	for _, v := range p.Pix[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Gray8 min-max normalizes the plane to the 0-255 range. A flat plane maps
// to all zeros.
func (p *Plane) Gray8() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	lo, hi := p.MinMax()
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, v := range p.Pix {
		out.Pix[i] = uint8(math.Round((v - lo) / span * 255))
	}
	return out
}

// PlaneFromImage converts any image to a plane of luminance samples.
//
// Gray and Gray16 images keep their native sample values (0-255 or 0-65535).
// Color images are reduced with ITU-R BT.601 weights on 16-bit channels.
func PlaneFromImage(img image.Image) *Plane {
	bounds := img.Bounds()
	p := NewPlane(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, float64(src.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y))
			}
		}
	case *image.Gray16:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, float64(src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y))
			}
		}
	default:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				c := color.Gray16Model.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray16)
				p.Set(x, y, float64(c.Y))
			}
		}
	}

	return p
}

// Image is one acquisition's pixel data: a single plane or a stack.
type Image struct {
	Planes []*Plane
	Layout Layout
}

// NewImage builds an image and checks that every plane has the same shape.
func NewImage(layout Layout, planes ...*Plane) (*Image, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("image has no planes")
	}
	w, h := planes[0].Width, planes[0].Height
	for i, p := range planes[1:] {
		if p.Width != w || p.Height != h {
			return nil, fmt.Errorf("plane %d is %dx%d, expected %dx%d", i+1, p.Width, p.Height, w, h)
		}
	}
	if layout == Single && len(planes) > 1 {
		return nil, fmt.Errorf("single-plane layout with %d planes", len(planes))
	}
	return &Image{Planes: planes, Layout: layout}, nil
}

// Shape returns the in-plane height and width.
func (im *Image) Shape() (height, width int) {
	if len(im.Planes) == 0 {
		return 0, 0
	}
	return im.Planes[0].Height, im.Planes[0].Width
}

// Depth returns the number of planes.
func (im *Image) Depth() int {
	return len(im.Planes)
}

// IsStack reports whether the image carries more than one plane.
func (im *Image) IsStack() bool {
	return im.Layout != Single
}
