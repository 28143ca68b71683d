package photon

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultBinWidth is the histogram bin width in seconds.
const DefaultBinWidth = 0.1

const edgeTolerance = 1e-9

// MeanRate bins the arrival times into fixed-width bins spanning
// [0, last arrival] and returns the mean count per bin divided by the bin
// width, in photons per second.
//
// Bin edges are the multiples of w below last+w, so a recording whose last
// arrival falls on a multiple of w ends with that edge. The final bin is
// closed on the right.
func MeanRate(s *Stream, binWidth float64) (float64, error) {
	if binWidth <= 0 {
		return 0, fmt.Errorf("bin width must be positive, got %g", binWidth)
	}
	if len(s.Ticks) == 0 {
		return 0, fmt.Errorf("stream has no photon records")
	}

	times := s.Seconds()
	last := times[len(times)-1]

	// 1.1/0.1 evaluates to 11.000000000000002; the tolerance keeps float
	// noise from adding an edge.
	n := int(math.Ceil((last+binWidth)/binWidth - edgeTolerance))
	if n < 2 {
		return 0, fmt.Errorf("stream spans no complete bin")
	}
	dividers := make([]float64, n)
	for i := range dividers {
		dividers[i] = float64(i) * binWidth
	}
	lastEdge := dividers[n-1]
	dividers[n-1] = math.Nextafter(lastEdge, math.Inf(1))

	// Arrivals past the last edge fall outside every bin.
	end := len(times)
	for end > 0 && times[end-1] > lastEdge {
		end--
	}

	counts := stat.Histogram(nil, dividers, times[:end], nil)
	for i := range counts {
		counts[i] /= binWidth
	}
	return stat.Mean(counts, nil), nil
}

// Candidate is a ranked photon recording.
type Candidate struct {
	Path     string  `json:"path"`
	MeanRate float64 `json:"mean_rate"`
	Channel  int     `json:"channel"`
	Duration float64 `json:"duration_s"`
}

// Brightest decodes every path and returns the recording with the highest
// mean rate, the first one on ties. Files that fail to decode or hold no
// records are logged and skipped. It reports false when no file qualifies.
func Brightest(paths []string, logger *slog.Logger) (Candidate, bool) {
	if logger == nil {
		logger = slog.Default()
	}

	var best Candidate
	found := false
	for _, path := range paths {
		s, err := DecodeFile(path)
		if err != nil {
			logger.Warn("skipping photon file", "path", path, "error", err)
			continue
		}
		rate, err := MeanRate(s, DefaultBinWidth)
		if err != nil {
			logger.Warn("skipping photon file", "path", path, "error", err)
			continue
		}
		logger.Info("photon rate", "path", path, "rate", rate, "channel", s.Channel)

		if !found || rate > best.MeanRate {
			best = Candidate{Path: path, MeanRate: rate, Channel: s.Channel, Duration: s.Duration()}
			found = true
		}
	}

	if found {
		logger.Info("brightest photon file", "path", best.Path, "rate", best.MeanRate)
	}
	return best, found
}
