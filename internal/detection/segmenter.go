package detection

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/ironsheep/stagepoint/internal/imaging"
)

// Placeholders substituted in CommandSegmenter arguments.
const (
	PlaceholderInput    = "{input}"
	PlaceholderOutput   = "{output}"
	PlaceholderDiameter = "{diameter}"
)

// CommandSegmenter runs an external segmentation program.
//
// The plane is written as a 16-bit TIFF, the program is started with Args
// after placeholder substitution and must write a 16-bit label TIFF of the
// same size to the output path. Example arguments:
//
//	segment.py --in {input} --out {output} --diameter {diameter}
type CommandSegmenter struct {
	Command string
	Args    []string
	Logger  *slog.Logger
}

// Segment implements Segmenter.
func (s *CommandSegmenter) Segment(p *imaging.Plane, diameterPx float64) (*LabelMask, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := os.MkdirTemp("", "stagepoint-seg-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "plane.tif")
	out := filepath.Join(dir, "labels.tif")
	if err := writePlaneTIFF(in, p); err != nil {
		return nil, err
	}

	r := strings.NewReplacer(
		PlaceholderInput, in,
		PlaceholderOutput, out,
		PlaceholderDiameter, strconv.FormatFloat(diameterPx, 'f', -1, 64),
	)
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = r.Replace(a)
	}

	logger.Debug("running segmenter", "command", s.Command, "args", args)
	cmd := exec.Command(s.Command, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("segmenter %s failed: %w: %s", s.Command, err, strings.TrimSpace(string(output)))
	}

	return readLabelTIFF(out)
}

// writePlaneTIFF stores the plane as 16-bit grayscale, clamping samples to
// the 0-65535 range.
func writePlaneTIFF(path string, p *imaging.Plane) error {
	img := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := math.Max(0, math.Min(65535, math.Round(p.At(x, y))))
			img.Pix[img.PixOffset(x, y)] = uint8(uint16(v) >> 8)
			img.Pix[img.PixOffset(x, y)+1] = uint8(uint16(v))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// readLabelTIFF decodes a label image. Gray16 and Gray images keep their
// sample values as labels.
func readLabelTIFF(path string) (*LabelMask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label mask: %w", err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode label mask: %w", err)
	}

	plane := imaging.PlaneFromImage(img)
	mask := &LabelMask{
		Width:  plane.Width,
		Height: plane.Height,
		Labels: make([]int, len(plane.Pix)),
	}
	for i, v := range plane.Pix {
		mask.Labels[i] = int(v)
	}
	return mask, nil
}
