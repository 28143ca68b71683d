package detection

import (
	"math"
	"testing"

	"github.com/ironsheep/stagepoint/internal/errs"
	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

// createDiskPlane draws a small and a large bright disk on a dark background
func createDiskPlane() *imaging.Plane {
	p := imaging.NewPlane(200, 120)
	drawDisk(p, 50, 60, 10, 1000)
	drawDisk(p, 130, 60, 20, 1000)
	return p
}

func runCircles(t *testing.T, img *imaging.Image, params Params) []Detection {
	t.Helper()
	a, err := NewCircles(CircleModeParams)(img, testMetadata(1e-6), params)
	if err != nil {
		t.Fatalf("NewCircles failed: %v", err)
	}
	got, err := a.Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	return got
}

func TestCirclesFluorescence(t *testing.T) {
	img := newTestImage(t, imaging.Single, createDiskPlane())
	got := runCircles(t, img, nil)

	if len(got) != 2 {
		t.Fatalf("expected 2 circles, got %d", len(got))
	}

	// Largest contour first.
	want := []struct{ x, y, r float64 }{
		{130, 60, 20},
		{50, 60, 10},
	}
	for i, w := range want {
		d := got[i]
		if math.Abs(d.Position[0]-w.x) > 1 || math.Abs(d.Position[1]-w.y) > 1 {
			t.Errorf("circle %d at %v, want near (%v, %v)", i, d.Position, w.x, w.y)
		}
		if math.Abs(d.Radius-w.r) > 2 {
			t.Errorf("circle %d radius %v um, want near %v", i, d.Radius, w.r)
		}
		if d.FitRatio < 0.2 || d.FitRatio > 1.01 {
			t.Errorf("circle %d fit ratio %v out of range", i, d.FitRatio)
		}
		if d.Type != TypeCircle {
			t.Errorf("circle %d type %q", i, d.Type)
		}
	}
}

func TestCirclesRadiusBounds(t *testing.T) {
	img := newTestImage(t, imaging.Single, createDiskPlane())

	bounds := []struct{ lo, hi float64 }{
		{1, 50},
		{5, 40},
		{15, 40},
		{15, 18},
		{30, 40},
	}

	prev := math.MaxInt
	for _, b := range bounds {
		got := runCircles(t, img, Params{"min_size_um": b.lo, "max_size_um": b.hi})
		for _, d := range got {
			if d.Radius < b.lo || d.Radius > b.hi {
				t.Errorf("radius %v outside [%v, %v]", d.Radius, b.lo, b.hi)
			}
		}
		if len(got) > prev {
			t.Errorf("tightening to [%v, %v] increased count from %d to %d", b.lo, b.hi, prev, len(got))
		}
		prev = len(got)
	}
}

func TestCirclesTopN(t *testing.T) {
	img := newTestImage(t, imaging.Single, createDiskPlane())
	got := runCircles(t, img, Params{"top_n": 1})

	if len(got) != 1 {
		t.Fatalf("expected 1 circle, got %d", len(got))
	}
	if math.Abs(got[0].Position[0]-130) > 1 {
		t.Errorf("expected the large disk, got %v", got[0].Position)
	}
}

func TestCirclesFitRatioRejectsBars(t *testing.T) {
	p := imaging.NewPlane(200, 60)
	for y := 28; y < 32; y++ {
		for x := 20; x < 180; x++ {
			p.Set(x, y, 1000)
		}
	}
	img := newTestImage(t, imaging.Single, p)

	got := runCircles(t, img, Params{"max_size_um": 500})
	if len(got) != 0 {
		t.Errorf("expected thin bar to be rejected, got %v", got)
	}
}

func TestCirclesTransmittedLight(t *testing.T) {
	img := newTestImage(t, imaging.Single, createDiskPlane())
	got := runCircles(t, img, Params{"tl": true})

	for _, d := range got {
		if d.Radius < 1 || d.Radius > 50 {
			t.Errorf("radius %v outside default bounds", d.Radius)
		}
	}
}

func TestCirclesStackAppendsPlaneIndex(t *testing.T) {
	empty := imaging.NewPlane(200, 120)
	img := newTestImage(t, imaging.DepthStack, empty, createDiskPlane())
	got := runCircles(t, img, nil)

	if len(got) != 2 {
		t.Fatalf("expected 2 circles, got %d", len(got))
	}
	for _, d := range got {
		if len(d.Position) != 3 || d.Position[2] != 1 {
			t.Errorf("position %v, want plane index 1", d.Position)
		}
	}
}

func TestCirclesRequiresScaling(t *testing.T) {
	img := newTestImage(t, imaging.Single, createDiskPlane())

	_, err := NewCircles(CircleModeFluorescence)(img, &metadata.Metadata{}, nil)
	if !errs.Is(err, errs.Metadata) {
		t.Errorf("expected metadata error, got %v", err)
	}
}
