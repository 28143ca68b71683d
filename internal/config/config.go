// Package config provides configuration loading and management for
// stagepoint. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/stagepoint/internal/errs"
)

// Preset names one analysis setup selectable from the command line.
type Preset struct {
	// Analysis is the registered analyzer name.
	Analysis string `yaml:"analysis"`

	// Channel selects the planes of one channel in a multi-channel export,
	// counted from 1. Zero uses every plane.
	Channel int `yaml:"channel"`

	// XYMode is "normal" or "center".
	XYMode string `yaml:"xyMode"`

	// ZStrategy is "none", "normal" or "auto".
	ZStrategy string `yaml:"zStrategy"`

	// Params are passed to the analyzer constructor unchanged.
	Params map[string]interface{} `yaml:"params,omitempty"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Paths used by the acquisition jobs
	Paths struct {
		// ImageForAnalysis holds the overview acquisitions
		ImageForAnalysis string `yaml:"imageForAnalysis"`

		// MeasuringPoints receives the point files and overlays
		MeasuringPoints string `yaml:"measuringPoints"`

		// Results holds one obj_<id> directory per measured object
		Results string `yaml:"results"`

		// ZeissTemp is the instrument autosave folder for FCS recordings
		ZeissTemp string `yaml:"zeissTemp"`
	} `yaml:"paths"`

	// Presets maps preset names to analysis setups
	Presets map[string]Preset `yaml:"presets"`

	// Segmenter is the external segmentation command
	Segmenter struct {
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
	} `yaml:"segmenter"`

	// Logging options
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Paths.ImageForAnalysis = "data/overview"
	cfg.Paths.MeasuringPoints = "data/measuring_points"
	cfg.Paths.Results = "data/results"
	cfg.Paths.ZeissTemp = "data/zeiss_temp"

	cfg.Presets = map[string]Preset{
		"FLGUV": {
			Analysis:  "FluorescentGUV",
			Channel:   1,
			XYMode:    "normal",
			ZStrategy: "normal",
			Params:    map[string]interface{}{"min_size_um": 1.0, "max_size_um": 50.0},
		},
		"TLGUV": {
			Analysis:  "TransmittedLightGUV",
			Channel:   1,
			XYMode:    "normal",
			ZStrategy: "normal",
		},
		"HexMesh": {
			Analysis:  "HexagonalMesh",
			Channel:   1,
			XYMode:    "normal",
			ZStrategy: "auto",
			Params:    map[string]interface{}{"n_clusters": 3, "remove_outliers": true},
		},
		"ZScan": {
			Analysis:  "MaxIntensityZScan",
			Channel:   1,
			XYMode:    "center",
			ZStrategy: "normal",
		},
		"Cellpose": {
			Analysis:  "Cellpose",
			Channel:   1,
			XYMode:    "normal",
			ZStrategy: "none",
			Params:    map[string]interface{}{"objects_diameter": 20.0},
		},
	}

	cfg.Segmenter.Command = "python3"
	cfg.Segmenter.Args = []string{
		"segment.py",
		"--in", "{input}",
		"--out", "{output}",
		"--diameter", "{diameter}",
	}

	cfg.Logging.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Preset returns the named preset.
func (c *Config) Preset(name string) (Preset, error) {
	p, ok := c.Presets[name]
	if !ok {
		return Preset{}, errs.New(errs.Configuration, "config.Preset",
			"unknown preset %q, available: %s", name, strings.Join(c.PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames returns the configured preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
