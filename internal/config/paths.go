package config

import (
	"fmt"
	"path/filepath"
)

// PointsKind selects which point file an object ID maps to.
type PointsKind string

const (
	// Overview points come from the first analysis of an overview image.
	Overview PointsKind = ""
	// ReanalysisXY points come from a re-centring acquisition.
	ReanalysisXY PointsKind = "xy"
	// ReanalysisZ points come from a depth acquisition.
	ReanalysisZ PointsKind = "z"
	// OverviewPoints lists points queued for the overview pass.
	OverviewPoints PointsKind = "overview_points"
)

func (k PointsKind) suffix() (string, error) {
	switch k {
	case Overview:
		return "measurements_points.json", nil
	case ReanalysisXY:
		return "measurements_points_reanalysis_xy.json", nil
	case ReanalysisZ:
		return "measurements_points_reanalysis_z.json", nil
	case OverviewPoints:
		return "points_for_overview.json", nil
	}
	return "", fmt.Errorf("unknown points kind %q", string(k))
}

// prefix returns "name_" or "" when name is empty.
func prefix(name string) string {
	if name == "" {
		return ""
	}
	return name + "_"
}

// OverviewImagePath returns where the overview acquisition of an object is
// stored, optionally prefixed with an experiment name.
func (c *Config) OverviewImagePath(objID, name string) string {
	return filepath.Join(c.Paths.ImageForAnalysis, fmt.Sprintf("%s%s_Image_overview.tif", prefix(name), objID))
}

// PointsPath returns the point file of an object for the given kind.
func (c *Config) PointsPath(objID string, kind PointsKind, name string) (string, error) {
	suffix, err := kind.suffix()
	if err != nil {
		return "", err
	}
	return filepath.Join(c.Paths.MeasuringPoints, fmt.Sprintf("%s%s_%s", prefix(name), objID, suffix)), nil
}

// OverlayPath returns the overlay image written next to a point file.
func (c *Config) OverlayPath(objID string, kind PointsKind) string {
	suffix := ""
	if kind != Overview {
		suffix = "_reanalysis_" + string(kind)
	}
	return filepath.Join(c.Paths.MeasuringPoints, fmt.Sprintf("%s_found_points%s.png", objID, suffix))
}

// ResultDir returns the directory holding the acquisitions of one object.
func (c *Config) ResultDir(objID, name string) string {
	base := c.Paths.Results
	if name != "" {
		base = filepath.Join(base, name)
	}
	return filepath.Join(base, "obj_"+objID)
}

// ResultPath returns the file of one measurement of an object, e.g.
// "12_FCS" or "exp_12_Image_reanalysis_z" with stage "_reanalysis_z".
func (c *Config) ResultPath(objID, stage, measurement, name string) string {
	file := fmt.Sprintf("%s%s_%s%s.tif", prefix(name), objID, measurement, stage)
	return filepath.Join(c.ResultDir(objID, name), file)
}
