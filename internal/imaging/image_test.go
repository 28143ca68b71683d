package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestPlaneFromImage(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want float64
	}{
		{"gray8", func() image.Image {
			g := image.NewGray(image.Rect(0, 0, 3, 3))
			g.SetGray(1, 1, color.Gray{Y: 200})
			return g
		}(), 200},
		{"gray16", func() image.Image {
			g := image.NewGray16(image.Rect(0, 0, 3, 3))
			g.SetGray16(1, 1, color.Gray16{Y: 40000})
			return g
		}(), 40000},
		{"rgba white", func() image.Image {
			g := image.NewRGBA(image.Rect(0, 0, 3, 3))
			g.Set(1, 1, color.White)
			return g
		}(), 65535},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlaneFromImage(tt.img)
			if p.Width != 3 || p.Height != 3 {
				t.Fatalf("unexpected size %dx%d", p.Width, p.Height)
			}
			if got := p.At(1, 1); got != tt.want {
				t.Errorf("At(1,1): got %v, want %v", got, tt.want)
			}
			if got := p.At(0, 0); got != 0 {
				t.Errorf("At(0,0): got %v, want 0", got)
			}
		})
	}
}

func TestPlane_Gray8(t *testing.T) {
	p := NewPlane(3, 1)
	p.Pix = []float64{100, 150, 200}

	g := p.Gray8()
	want := []uint8{0, 128, 255}
	for i, w := range want {
		if g.Pix[i] != w {
			t.Errorf("pixel %d: got %d, want %d", i, g.Pix[i], w)
		}
	}

	flat := NewPlane(2, 2)
	for _, v := range flat.Gray8().Pix {
		if v != 0 {
			t.Fatal("flat plane should normalize to zeros")
		}
	}
}

func TestPlane_SumAndMinMax(t *testing.T) {
	p := NewPlane(2, 2)
	p.Pix = []float64{1, -2, 5, 4}

	if got := p.Sum(); got != 8 {
		t.Errorf("Sum: got %v, want 8", got)
	}
	lo, hi := p.MinMax()
	if lo != -2 || hi != 5 {
		t.Errorf("MinMax: got (%v,%v), want (-2,5)", lo, hi)
	}
}

func TestNewImage(t *testing.T) {
	if _, err := NewImage(Single); err == nil {
		t.Error("NewImage should reject an empty plane list")
	}
	if _, err := NewImage(Single, NewPlane(2, 2), NewPlane(2, 2)); err == nil {
		t.Error("NewImage should reject several planes for a single layout")
	}
	if _, err := NewImage(TileStack, NewPlane(2, 2), NewPlane(3, 2)); err == nil {
		t.Error("NewImage should reject mismatched planes")
	}

	img, err := NewImage(TileStack, NewPlane(4, 2), NewPlane(4, 2))
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	if h, w := img.Shape(); h != 2 || w != 4 {
		t.Errorf("Shape: got (%d,%d), want (2,4)", h, w)
	}
	if img.Layout.String() != "tile-stack" {
		t.Errorf("Layout: got %q", img.Layout)
	}
}
