// Package results persists stage points as flat JSON files.
//
// A point file maps a generated identifier to one record per stage point:
//
//	{
//	  "7c1d...": {
//	    "position": [1002.5, 1998.0, 31.5],
//	    "type": "circle",
//	    "radius": 4,
//	    "source": "/data/overview/12_Image_overview.tif",
//	    "timestamp": "2026-10-19T08:15:02.123456Z"
//	  }
//	}
//
// An FCS result maps the position tag of the brightest recording to its
// stored stage position and mean photon rate.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/stagepoint/internal/stage"
)

// TimestampLayout is the UTC timestamp layout written to every record.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t in UTC with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Record is one persisted stage point.
type Record struct {
	stage.Point
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Set maps record identifiers to records.
type Set map[string]Record

// NewSet gives every point a fresh identifier and stamps it with source and
// the time now.
func NewSet(points []stage.Point, source string, now time.Time) Set {
	ts := Timestamp(now)
	set := make(Set, len(points))
	for _, p := range points {
		set[uuid.NewString()] = Record{Point: p, Source: source, Timestamp: ts}
	}
	return set
}

// IDs returns the record identifiers in sorted order.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Points returns the stored points ordered by identifier.
func (s Set) Points() []stage.Point {
	points := make([]stage.Point, 0, len(s))
	for _, id := range s.IDs() {
		points = append(points, s[id].Point)
	}
	return points
}

// Save writes the set to path as indented JSON.
func Save(path string, s Set) error {
	return writeJSON(path, s)
}

// Load reads a set written by Save.
func Load(path string) (Set, error) {
	var s Set
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	if s == nil {
		s = Set{}
	}
	return s, nil
}

// Position is a stored stage position in micrometers.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Array returns the position as an (x, y, z) triple.
func (p Position) Array() [3]float64 {
	return [3]float64{p.X, p.Y, p.Z}
}

// LoadPositions reads a tag to stage position table such as FCS_points.json.
func LoadPositions(path string) (map[string]Position, error) {
	var table map[string]Position
	if err := readJSON(path, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// FCSEntry is the stored result of one FCS ranking.
type FCSEntry struct {
	Position  [3]float64 `json:"position"`
	Intensity float64    `json:"intensity"`
	Source    string     `json:"source"`
	Timestamp string     `json:"timestamp"`
}

// FCSResult maps a position tag to its entry.
type FCSResult map[string]FCSEntry

// SaveFCS writes an FCS result to path as indented JSON.
func SaveFCS(path string, r FCSResult) error {
	return writeJSON(path, r)
}

// LoadFCS reads a result written by SaveFCS.
func LoadFCS(path string) (FCSResult, error) {
	var r FCSResult
	if err := readJSON(path, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
