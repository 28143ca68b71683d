package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ironsheep/stagepoint/internal/config"
	"github.com/ironsheep/stagepoint/internal/detection"
	"github.com/ironsheep/stagepoint/internal/errs"
	"github.com/ironsheep/stagepoint/internal/imaging"
	"github.com/ironsheep/stagepoint/internal/photon"
	"github.com/ironsheep/stagepoint/internal/render"
	"github.com/ironsheep/stagepoint/internal/results"
	"github.com/ironsheep/stagepoint/internal/stage"
)

// FCS file names inside a recording folder.
const (
	FCSPointsFile = "FCS_points.json"
	FCSResultFile = "FCS_result.json"
)

var positionTag = regexp.MustCompile(`P(\d+)`)

// Runner executes jobs against one configuration.
type Runner struct {
	Config   *config.Config
	Registry *detection.Registry
	Cache    *imaging.PlaneCache
	Logger   *slog.Logger

	// Now stamps written records. Defaults to time.Now.
	Now func() time.Time
}

// NewRunner builds a runner whose registry uses the configured segmenter.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	seg := &detection.CommandSegmenter{
		Command: cfg.Segmenter.Command,
		Args:    cfg.Segmenter.Args,
		Logger:  logger,
	}
	return &Runner{
		Config:   cfg,
		Registry: detection.DefaultRegistry(seg),
		Cache:    imaging.NewPlaneCache(),
		Logger:   logger,
		Now:      time.Now,
	}
}

// Analysis is the outcome of analysing one acquisition with a preset.
type Analysis struct {
	Acquisition *Acquisition
	Detections  []detection.Detection
	Points      []stage.Point
}

// Analyze opens the acquisition at path and runs the named preset on it.
// The acquisition's planes stay cached until the caller releases them.
func (r *Runner) Analyze(path, presetName string) (_ *Analysis, err error) {
	preset, err := r.Config.Preset(presetName)
	if err != nil {
		return nil, err
	}
	xyMode, err := stage.ParseXYMode(preset.XYMode)
	if err != nil {
		return nil, err
	}
	zStrategy, err := stage.ParseZStrategy(preset.ZStrategy)
	if err != nil {
		return nil, err
	}
	construct, err := r.Registry.Lookup(preset.Analysis)
	if err != nil {
		return nil, err
	}

	acq, err := OpenAcquisition(r.Cache, path, preset.Channel)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			r.release(acq)
		}
	}()
	r.logPlanes(acq)

	analyzer, err := construct(acq.Image, acq.Meta, detection.Params(preset.Params))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s analyzer: %w", preset.Analysis, err)
	}
	dets, err := analyzer.Detect()
	if err != nil {
		return nil, fmt.Errorf("%s analysis failed: %w", preset.Analysis, err)
	}

	h, w := acq.Image.Shape()
	points, err := stage.NewMapper(acq.Meta, h, w).ConvertPoints(dets, xyMode, zStrategy)
	if err != nil {
		return nil, err
	}

	r.logger().Info("analysed acquisition",
		"path", path,
		"analysis", preset.Analysis,
		"layout", acq.Image.Layout.String(),
		"planes", acq.Image.Depth(),
		"detections", len(dets))

	return &Analysis{Acquisition: acq, Detections: dets, Points: points}, nil
}

// Overview analyses an overview image from the analysis folder and writes
// its point file and overlay. It returns the point file path.
func (r *Runner) Overview(fileName, presetName string) (string, error) {
	id := ObjectID(fileName)
	path := filepath.Join(r.Config.Paths.ImageForAnalysis, fileName)

	a, err := r.Analyze(path, presetName)
	if err != nil {
		return "", err
	}
	defer r.release(a.Acquisition)

	out, err := r.save(id, config.Overview, a)
	if err != nil {
		return "", err
	}
	r.logger().Info("finished overview analysis", "file", fileName, "points", len(a.Points))
	return out, nil
}

// ReanalysisXY analyses the first acquisition of an object's result folder.
// When several points are found only the one nearest the stage position is
// kept.
func (r *Runner) ReanalysisXY(objID, presetName string) (string, error) {
	dir := r.Config.ResultDir(objID, "")
	acqs, err := listAcquisitions(dir)
	if err != nil {
		return "", err
	}
	if len(acqs) == 0 {
		return "", fmt.Errorf("no acquisitions in %s", dir)
	}

	a, err := r.Analyze(acqs[0], presetName)
	if err != nil {
		return "", err
	}
	defer r.release(a.Acquisition)

	switch len(a.Points) {
	case 0:
		r.logger().Warn("no objects found after xy reanalysis", "object", objID)
	case 1:
		r.logger().Info("found exactly one object after xy reanalysis", "object", objID)
	default:
		x, y, z, err := a.Acquisition.Meta.StageXYZ()
		if err != nil {
			return "", err
		}
		nearest, _ := stage.Nearest(a.Points, [3]float64{x, y, z})
		r.logger().Info("kept object nearest the stage",
			"object", objID, "found", len(a.Points), "position", nearest.Position)
		a.Points = []stage.Point{nearest}
	}

	return r.save(objID, config.ReanalysisXY, a)
}

// ReanalysisZ analyses the acquisition of an object whose name ends with
// reanalysis_z.
func (r *Runner) ReanalysisZ(objID, presetName string) (string, error) {
	dir := r.Config.ResultDir(objID, "")
	acqs, err := listAcquisitions(dir)
	if err != nil {
		return "", err
	}

	var path string
	for _, p := range acqs {
		if strings.HasSuffix(strings.ToLower(stem(p)), "reanalysis_z") {
			path = p
			break
		}
	}
	if path == "" {
		return "", fmt.Errorf("no reanalysis_z acquisition in %s", dir)
	}

	a, err := r.Analyze(path, presetName)
	if err != nil {
		return "", err
	}
	defer r.release(a.Acquisition)

	out, err := r.savePoints(objID, config.ReanalysisZ, a)
	if err != nil {
		return "", err
	}
	r.logger().Info("finished z reanalysis", "object", objID, "points", len(a.Points))
	return out, nil
}

// FCS ranks the photon recordings of a folder and stores the stage position
// of the brightest one. It returns the result file path.
func (r *Runner) FCS(folder string) (string, error) {
	raws, err := rawFiles(folder)
	if err != nil {
		return "", err
	}
	return r.rankFCS(folder, raws)
}

// LatestFCS ranks the recordings of the newest FCS session in the
// instrument autosave folder.
func (r *Runner) LatestFCS() (string, error) {
	folder := r.Config.Paths.ZeissTemp
	session, raws, err := LatestSession(folder)
	if err != nil {
		return "", err
	}
	r.logger().Info("latest FCS session", "session", session, "recordings", len(raws))
	return r.rankFCS(folder, raws)
}

func (r *Runner) rankFCS(folder string, raws []string) (string, error) {
	best, ok := photon.Brightest(raws, r.logger())
	if !ok {
		return "", fmt.Errorf("no valid photon data in %s", folder)
	}

	tag := positionTag.FindString(filepath.Base(best.Path))
	if tag == "" {
		return "", errs.New(errs.Configuration, "pipeline.FCS",
			"recording %s carries no P<number> position tag", filepath.Base(best.Path))
	}

	positions, err := results.LoadPositions(filepath.Join(folder, FCSPointsFile))
	if err != nil {
		return "", err
	}
	pos, ok := positions[tag]
	if !ok {
		return "", errs.New(errs.Configuration, "pipeline.FCS", "position %s not found in %s", tag, FCSPointsFile)
	}

	out := filepath.Join(folder, FCSResultFile)
	res := results.FCSResult{tag: {
		Position:  pos.Array(),
		Intensity: best.MeanRate,
		Source:    folder,
		Timestamp: results.Timestamp(r.now()),
	}}
	if err := results.SaveFCS(out, res); err != nil {
		return "", err
	}
	r.logger().Info("saved FCS result", "path", out, "tag", tag, "rate", best.MeanRate)
	return out, nil
}

// rawFiles lists the .raw recordings of folder in name order.
func rawFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	var raws []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".raw") {
			raws = append(raws, filepath.Join(folder, e.Name()))
		}
	}
	sort.Strings(raws)
	return raws, nil
}

// LatestSession finds the most recently written .fcs file in folder and the
// .raw recordings whose names start with its base name.
func LatestSession(folder string) (session string, raws []string, err error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list autosave folder: %w", err)
	}

	var newest time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".fcs") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if session == "" || info.ModTime().After(newest) {
			session, newest = filepath.Join(folder, e.Name()), info.ModTime()
		}
	}
	if session == "" {
		return "", nil, fmt.Errorf("no .fcs session in %s", folder)
	}

	all, err := rawFiles(folder)
	if err != nil {
		return "", nil, err
	}
	prefix := stem(session)
	for _, p := range all {
		if strings.HasPrefix(filepath.Base(p), prefix) {
			raws = append(raws, p)
		}
	}
	if len(raws) == 0 {
		return "", nil, fmt.Errorf("no .raw recordings for session %s", filepath.Base(session))
	}
	return session, raws, nil
}

// Analyzers returns the registered analyzer names.
func (r *Runner) Analyzers() []string {
	return r.Registry.Names()
}

// save writes the point file and the overlay of an analysis.
func (r *Runner) save(objID string, kind config.PointsKind, a *Analysis) (string, error) {
	out, err := r.savePoints(objID, kind, a)
	if err != nil {
		return "", err
	}
	overlay := r.Config.OverlayPath(objID, kind)
	if err := render.Save(overlay, a.Acquisition.Image, a.Detections, render.DefaultOptions()); err != nil {
		return "", err
	}
	r.logger().Debug("saved overlay", "path", overlay)
	return out, nil
}

func (r *Runner) savePoints(objID string, kind config.PointsKind, a *Analysis) (string, error) {
	out, err := r.Config.PointsPath(objID, kind, "")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	set := results.NewSet(a.Points, a.Acquisition.Path, r.now())
	if err := results.Save(out, set); err != nil {
		return "", err
	}
	r.logger().Info("saved measurement points", "path", out, "points", len(set))
	return out, nil
}

// logPlanes reports the files behind an acquisition at debug level.
func (r *Runner) logPlanes(acq *Acquisition) {
	for _, p := range acq.Planes {
		info, err := r.Cache.Info(p)
		if err != nil {
			r.logger().Warn("plane info unavailable", "path", p, "error", err)
			continue
		}
		r.logger().Debug("plane",
			"path", p,
			"width", info.Width,
			"height", info.Height,
			"format", info.Format,
			"depth", info.ColorDepth,
			"bytes", info.FileSizeBytes)
	}
}

// release drops an acquisition's planes from the cache.
func (r *Runner) release(acq *Acquisition) {
	for _, p := range acq.Planes {
		r.Cache.Evict(p)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
