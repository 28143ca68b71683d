// Package metadata holds the calibration record of one acquisition.
//
// A Metadata value is produced once per acquisition, either by parsing the
// instrument's XML metadata export (see Parse) or by a test, and is read-only
// afterwards. Every geometry and mapping component consumes it.
//
// # Units
//
// Scaling is stored in meters per pixel, exactly as the instrument reports it.
// Stage and tile positions are stored in micrometers. Consumers multiply the
// scaling by 1e6 to obtain micrometers per pixel.
//
// # Partially known values
//
// The instrument does not always report every axis of the stage position.
// Absent values are nil pointers and must be treated as unknown, never as
// zero.
package metadata

import (
	"github.com/ironsheep/stagepoint/internal/errs"
)

// Scaling is the physical size of one pixel per axis, in meters per pixel.
// A zero component means the axis was not calibrated.
type Scaling struct {
	X float64 `json:"X" yaml:"X"`
	Y float64 `json:"Y" yaml:"Y"`
	Z float64 `json:"Z,omitempty" yaml:"Z,omitempty"`
}

// MeanXY returns the mean of the X and Y scaling in meters per pixel.
func (s Scaling) MeanXY() float64 {
	return (s.X + s.Y) / 2
}

// Position is a stage position in micrometers. Nil components are unknown.
type Position struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Known reports whether all three axes are present.
func (p Position) Known() bool {
	return p.X != nil && p.Y != nil && p.Z != nil
}

// Channel describes one acquisition channel.
type Channel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	EmissionNM   *float64 `json:"emission_nm"`
	ExcitationNM *float64 `json:"excitation_nm"`
}

// ZScan is the depth-scan setup of an acquisition.
type ZScan struct {
	Activated    bool `json:"is_activated"`
	CenterMode   bool `json:"is_center_mode"`
	IntervalKept bool `json:"is_interval_kept"`
}

// Tile is a named sub-region of a multi-position acquisition with its own
// recorded focus.
type Tile struct {
	Name string   `json:"name"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Z    *float64 `json:"z"`
}

// Metadata is the calibration record of one acquisition.
type Metadata struct {
	Scaling  Scaling   `json:"scaling_um_per_pixel"`
	Stage    Position  `json:"stage_position"`
	Channels []Channel `json:"channels"`

	// ZScan is nil when the acquisition has no depth-scan setup at all.
	ZScan *ZScan `json:"z_scan"`

	Tiles []Tile `json:"tiles"`
}

// StageXYZ returns the stage position as plain numbers, or a Metadata error
// naming the first missing axis.
func (m *Metadata) StageXYZ() (x, y, z float64, err error) {
	switch {
	case m.Stage.X == nil:
		return 0, 0, 0, errs.New(errs.Metadata, "metadata.StageXYZ", "stage position X is unknown")
	case m.Stage.Y == nil:
		return 0, 0, 0, errs.New(errs.Metadata, "metadata.StageXYZ", "stage position Y is unknown")
	case m.Stage.Z == nil:
		return 0, 0, 0, errs.New(errs.Metadata, "metadata.StageXYZ", "stage position Z is unknown")
	}
	return *m.Stage.X, *m.Stage.Y, *m.Stage.Z, nil
}

// RequireScaling returns a Metadata error unless the X and Y scaling are
// positive.
func (m *Metadata) RequireScaling() error {
	if m == nil {
		return errs.New(errs.Metadata, "metadata.RequireScaling", "no calibration metadata")
	}
	if m.Scaling.X <= 0 || m.Scaling.Y <= 0 {
		return errs.New(errs.Metadata, "metadata.RequireScaling",
			"XY scaling missing or not positive (X=%g, Y=%g)", m.Scaling.X, m.Scaling.Y)
	}
	return nil
}

// ZScanActive reports whether a depth scan is present and activated.
func (m *Metadata) ZScanActive() bool {
	return m != nil && m.ZScan != nil && m.ZScan.Activated
}

// CenterMode reports whether a depth scan is present and centred on the
// stage position.
func (m *Metadata) CenterMode() bool {
	return m != nil && m.ZScan != nil && m.ZScan.CenterMode
}

// Float returns a pointer to v. It is convenient for building positions.
func Float(v float64) *float64 {
	return &v
}
