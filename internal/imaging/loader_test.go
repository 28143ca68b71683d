package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"golang.org/x/image/tiff"
)

// writeGray16TIFF writes a 16-bit grayscale TIFF with a horizontal ramp and
// returns its path.
func writeGray16TIFF(t *testing.T, dir string, width, height int, base uint16) string {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: base + uint16(x)})
		}
	}

	f, err := os.CreateTemp(dir, "plane-*.tif")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := tiff.Encode(f, img, nil); err != nil {
		t.Fatalf("failed to encode tiff: %v", err)
	}
	return f.Name()
}

// writePNG writes a solid color PNG and returns its path.
func writePNG(t *testing.T, dir string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	f, err := os.CreateTemp(dir, "plane-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return f.Name()
}

func TestNewPlaneCache(t *testing.T) {
	cache := NewPlaneCache()
	if cache == nil {
		t.Fatal("NewPlaneCache returned nil")
	}
	if cache.planes == nil || cache.infos == nil {
		t.Fatal("NewPlaneCache did not initialize its maps")
	}
}

func TestPlaneCache_Load16Bit(t *testing.T) {
	cache := NewPlaneCache()
	path := writeGray16TIFF(t, t.TempDir(), 40, 20, 1000)

	p1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p1.Width != 40 || p1.Height != 20 {
		t.Errorf("unexpected dimensions: got %dx%d, want 40x20", p1.Width, p1.Height)
	}
	if got := p1.At(5, 3); got != 1005 {
		t.Errorf("sample at (5,3): got %v, want 1005", got)
	}

	p2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if p1 != p2 {
		t.Error("second Load did not return cached plane")
	}

	info, err := cache.Info(path)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Format != "tiff" || info.ColorDepth != "16-bit" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestPlaneCache_Load_NonExistent(t *testing.T) {
	cache := NewPlaneCache()
	if _, err := cache.Load("/nonexistent/path/to/plane.tif"); err == nil {
		t.Error("Load should fail for non-existent file")
	}
}

func TestPlaneCache_Evict(t *testing.T) {
	cache := NewPlaneCache()
	dir := t.TempDir()
	a := writePNG(t, dir, 8, 8, color.White)
	b := writePNG(t, dir, 8, 8, color.Black)

	pa, _ := cache.Load(a)
	if _, err := cache.Load(b); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cache.Evict(a)
	pa2, err := cache.Load(a)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if pa == pa2 {
		t.Error("evicted plane was served from cache")
	}
	if _, ok := cache.infos[b]; !ok {
		t.Error("Evict dropped an unrelated plane")
	}
}

func TestPlaneCache_ConcurrentLoad(t *testing.T) {
	cache := NewPlaneCache()
	path := writePNG(t, t.TempDir(), 16, 16, color.Gray{Y: 90})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				t.Errorf("concurrent Load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestPlaneCache_LoadImage(t *testing.T) {
	cache := NewPlaneCache()
	dir := t.TempDir()
	a := writeGray16TIFF(t, dir, 10, 6, 0)
	b := writeGray16TIFF(t, dir, 10, 6, 100)

	img, err := cache.LoadImage(DepthStack, a, b)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Depth() != 2 || !img.IsStack() {
		t.Errorf("unexpected stack: depth=%d layout=%v", img.Depth(), img.Layout)
	}
	h, w := img.Shape()
	if h != 6 || w != 10 {
		t.Errorf("Shape: got (%d,%d), want (6,10)", h, w)
	}

	c := writePNG(t, dir, 4, 4, color.White)
	if _, err := cache.LoadImage(DepthStack, a, c); err == nil {
		t.Error("LoadImage should reject planes of different shapes")
	}
}
