package detection

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/metadata"
)

type maxIntensity struct {
	img        *imaging.Image
	centerMode bool
}

// NewMaxIntensity builds the max-intensity-along-depth analyzer. It takes
// no parameters.
func NewMaxIntensity(img *imaging.Image, meta *metadata.Metadata, _ Params) (Analyzer, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	return &maxIntensity{img: img, centerMode: meta.CenterMode()}, nil
}

// Detect returns one detection at (H/2-1, W/2-1, index) where index is the
// plane with the largest summed intensity, first on ties.
//
// In centre mode the stack origin is its middle slice, so the index is
// shifted by round(depth/2 + 0.5) with halves rounded to even.
func (a *maxIntensity) Detect() ([]Detection, error) {
	sums := make([]float64, a.img.Depth())
	for i, p := range a.img.Planes {
		sums[i] = p.Sum()
	}
	idx := floats.MaxIdx(sums)

	h, w := a.img.Shape()
	z := float64(idx)
	if a.centerMode {
		z -= math.RoundToEven(float64(len(sums))/2 + 0.5)
	}

	return []Detection{{
		Position: []float64{float64(h)/2 - 1, float64(w)/2 - 1, z},
		Attributes: Attributes{
			Type:      TypeMaxIntensity,
			Intensity: sums[idx],
		},
	}}, nil
}
