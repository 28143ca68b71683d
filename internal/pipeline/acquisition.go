// Package pipeline runs the measurement jobs: it opens an acquisition,
// analyses it with a configured preset, maps the detections to stage
// coordinates and writes the point files the microscope macro reads back.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

// MetadataFile is the metadata export expected inside a plane directory.
const MetadataFile = "metadata.xml"

var channelToken = regexp.MustCompile(`(?i)_c(\d+)`)

// Acquisition is one opened image with its calibration metadata.
type Acquisition struct {
	Path  string
	Image *imaging.Image
	Meta  *metadata.Metadata

	// Planes are the plane files in image order.
	Planes []string
}

// isPlaneFile reports whether name is a TIFF plane.
func isPlaneFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tif", ".tiff":
		return true
	}
	return false
}

// OpenAcquisition loads an acquisition from path.
//
// A file is a single plane whose metadata sits next to it with an .xml
// extension. A directory holds TIFF planes, read in name order, plus
// MetadataFile. When channel is positive and the plane names carry _c<N>
// tokens, only the planes of that channel are kept.
//
// Several planes form a depth stack when the metadata reports an active
// depth scan and a tile stack otherwise.
func OpenAcquisition(cache *imaging.PlaneCache, path string, channel int) (*Acquisition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open acquisition: %w", err)
	}

	var planes []string
	var metaPath string
	if info.IsDir() {
		planes, err = planeFiles(path, channel)
		if err != nil {
			return nil, err
		}
		metaPath = filepath.Join(path, MetadataFile)
	} else {
		planes = []string{path}
		metaPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".xml"
	}
	if len(planes) == 0 {
		return nil, fmt.Errorf("no TIFF planes in %s", path)
	}

	meta, err := metadata.ParseFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	layout := imaging.Single
	if len(planes) > 1 {
		layout = imaging.TileStack
		if meta.ZScanActive() {
			layout = imaging.DepthStack
		}
	}

	img, err := cache.LoadImage(layout, planes...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return &Acquisition{Path: path, Image: img, Meta: meta, Planes: planes}, nil
}

// planeFiles lists the TIFF planes of dir in name order, filtered by channel.
func planeFiles(dir string, channel int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list planes: %w", err)
	}

	var all, matched []string
	tagged := false
	for _, e := range entries {
		if e.IsDir() || !isPlaneFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		all = append(all, path)

		m := channelToken.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		tagged = true
		if n, _ := strconv.Atoi(m[1]); n == channel {
			matched = append(matched, path)
		}
	}

	files := all
	if channel > 0 && tagged {
		files = matched
	}
	sort.Strings(files)
	return files, nil
}

// listAcquisitions returns the acquisitions in dir in name order: TIFF
// files and subdirectories holding a MetadataFile.
func listAcquisitions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list acquisitions: %w", err)
	}

	var out []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if _, err := os.Stat(filepath.Join(path, MetadataFile)); err == nil {
				out = append(out, path)
			}
			continue
		}
		if isPlaneFile(e.Name()) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ObjectID returns the part of a file name before the first underscore.
func ObjectID(name string) string {
	base := filepath.Base(name)
	if i := strings.Index(base, "_"); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// stem returns the base name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
