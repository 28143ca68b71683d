package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/stagepoint/internal/errs"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagepoint.yaml")
	yml := `
paths:
  measuringPoints: /srv/points
presets:
  Mesh5:
    analysis: HexagonalMesh
    channel: 2
    xyMode: normal
    zStrategy: auto
    params:
      n_clusters: 5
      remove_outliers: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/points", cfg.Paths.MeasuringPoints)
	assert.Equal(t, "data/results", cfg.Paths.Results, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)

	p, err := cfg.Preset("Mesh5")
	require.NoError(t, err)
	assert.Equal(t, "HexagonalMesh", p.Analysis)
	assert.Equal(t, 2, p.Channel)
	assert.Equal(t, 5, p.Params["n_clusters"])
	assert.Equal(t, false, p.Params["remove_outliers"])

	_, err = cfg.Preset("FLGUV")
	assert.NoError(t, err, "file presets extend the defaults")
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: [unterminated"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stagepoint.yaml")
	cfg := DefaultConfig()
	cfg.Paths.ZeissTemp = "/autosave"
	cfg.Segmenter.Args = []string{"{input}", "{output}"}

	require.NoError(t, SaveConfig(cfg, path))
	back, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/autosave", back.Paths.ZeissTemp)
	assert.Equal(t, []string{"{input}", "{output}"}, back.Segmenter.Args)
	assert.Equal(t, cfg.PresetNames(), back.PresetNames())
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stagepoint.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestDefaultConfig_CirclePresetsUseSliceDepth(t *testing.T) {
	cfg := DefaultConfig()
	for _, name := range []string{"FLGUV", "TLGUV"} {
		p, err := cfg.Preset(name)
		require.NoError(t, err)
		assert.Equal(t, "normal", p.ZStrategy, name)
	}
}

func TestPreset_Unknown(t *testing.T) {
	_, err := DefaultConfig().Preset("Nope")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Configuration))
	assert.Contains(t, err.Error(), "FLGUV")
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths.ImageForAnalysis = "/img"
	cfg.Paths.MeasuringPoints = "/pts"
	cfg.Paths.Results = "/res"

	assert.Equal(t, "/img/12_Image_overview.tif", cfg.OverviewImagePath("12", ""))
	assert.Equal(t, "/img/exp_12_Image_overview.tif", cfg.OverviewImagePath("12", "exp"))

	tests := []struct {
		kind PointsKind
		name string
		want string
	}{
		{Overview, "", "/pts/12_measurements_points.json"},
		{ReanalysisXY, "", "/pts/12_measurements_points_reanalysis_xy.json"},
		{ReanalysisZ, "exp", "/pts/exp_12_measurements_points_reanalysis_z.json"},
		{OverviewPoints, "", "/pts/12_points_for_overview.json"},
	}
	for _, tt := range tests {
		got, err := cfg.PointsPath("12", tt.kind, tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := cfg.PointsPath("12", PointsKind("sideways"), "")
	assert.Error(t, err)

	assert.Equal(t, "/pts/12_found_points.png", cfg.OverlayPath("12", Overview))
	assert.Equal(t, "/pts/12_found_points_reanalysis_xy.png", cfg.OverlayPath("12", ReanalysisXY))

	assert.Equal(t, "/res/obj_12", cfg.ResultDir("12", ""))
	assert.Equal(t, "/res/exp/obj_12", cfg.ResultDir("12", "exp"))
	assert.Equal(t, "/res/obj_12/12_FCS.tif", cfg.ResultPath("12", "", "FCS", ""))
	assert.Equal(t, "/res/exp/obj_12/exp_12_Image_reanalysis_z.tif", cfg.ResultPath("12", "_reanalysis_z", "Image", "exp"))
}
