package detection

import (
	"sort"
	"strings"

	"github.com/ironsheep/stagepoint/internal/errs"
)

// Registry maps analyzer names to constructors.
//
// A Registry is filled at startup and read afterwards; it is not safe to
// Register while other goroutines call Lookup.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for name.
func (r *Registry) Register(name string, c Constructor) {
	r.constructors[name] = c
}

// Lookup returns the constructor registered under name. An unknown name is a
// configuration error whose message lists every registered name.
func (r *Registry) Lookup(name string) (Constructor, error) {
	c, ok := r.constructors[name]
	if !ok {
		return nil, errs.New(errs.Configuration, "lookup analyzer",
			"unknown analyzer %q, available: %s", name, strings.Join(r.Names(), ", "))
	}
	return c, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry registers every built-in analyzer. seg backs the
// segmentation analyzers; when nil they fail at construction.
func DefaultRegistry(seg Segmenter) *Registry {
	r := NewRegistry()
	r.Register("HexagonalMesh", NewHexagonalMesh)
	r.Register("Circles", NewCircles(CircleModeParams))
	r.Register("FluorescentGUV", NewCircles(CircleModeFluorescence))
	r.Register("TransmittedLightGUV", NewCircles(CircleModeTransmitted))
	r.Register("MaxIntensityZScan", NewMaxIntensity)
	r.Register("Cellpose", NewSegmentation(seg, DiameterMicrometers))
	r.Register("TLGUV", NewSegmentation(seg, DiameterPixels))
	return r
}
