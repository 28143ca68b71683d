package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// PlaneCache provides thread-safe caching of decoded planes to avoid
// redundant disk reads.
//
// Reanalysis jobs often revisit the overview acquisition, and the overlay
// renderer reads the same plane the analyzer just used. Planes are keyed by
// the exact path string passed to Load.
//
// PlaneCache is safe for concurrent use by multiple goroutines.
type PlaneCache struct {
	mu     sync.RWMutex
	planes map[string]*Plane
	infos  map[string]*PlaneInfo
}

// NewPlaneCache creates and initializes a new empty plane cache.
func NewPlaneCache() *PlaneCache {
	return &PlaneCache{
		planes: make(map[string]*Plane),
		infos:  make(map[string]*PlaneInfo),
	}
}

// Load retrieves a plane from the cache or decodes it from disk.
//
// Supported formats are TIFF, PNG, JPEG and GIF. 16-bit grayscale TIFFs keep
// their full sample range.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a supported image
func (c *PlaneCache) Load(path string) (*Plane, error) {
	c.mu.RLock()
	if p, ok := c.planes[path]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plane: %w", err)
	}

	p := PlaneFromImage(img)
	info, err := describe(path, img)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.planes[path] = p
	c.infos[path] = info
	c.mu.Unlock()

	return p, nil
}

// Info returns what is known about a plane file, loading it if needed.
func (c *PlaneCache) Info(path string) (*PlaneInfo, error) {
	if _, err := c.Load(path); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.infos[path], nil
}

// Evict removes a specific plane from the cache by its path.
func (c *PlaneCache) Evict(path string) {
	c.mu.Lock()
	delete(c.planes, path)
	delete(c.infos, path)
	c.mu.Unlock()
}

// LoadImage loads the given plane files, in order, as one image.
func (c *PlaneCache) LoadImage(layout Layout, paths ...string) (*Image, error) {
	planes := make([]*Plane, 0, len(paths))
	for _, p := range paths {
		plane, err := c.Load(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		planes = append(planes, plane)
	}
	return NewImage(layout, planes...)
}

// PlaneInfo contains metadata about a loaded plane file.
type PlaneInfo struct {
	// Width is the plane width in pixels.
	Width int `json:"width"`

	// Height is the plane height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "tiff", "png", "jpeg", "gif"
	// or "unknown".
	Format string `json:"format"`

	// ColorDepth is "16-bit" for 16-bit sample types, "8-bit" otherwise.
	ColorDepth string `json:"color_depth"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

func describe(path string, img image.Image) (*PlaneInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		format = "tiff"
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &PlaneInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		FileSizeBytes: stat.Size(),
	}, nil
}
