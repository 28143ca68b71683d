package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ironsheep/stagepoint/internal/config"
	"github.com/ironsheep/stagepoint/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultConfigPath = "stagepoint.yaml"

func usage() {
	fmt.Println("stagepoint - measurement points from microscope acquisitions")
	fmt.Println()
	fmt.Println("Usage: stagepoint <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  overview <file> <preset>          Analyse an overview image")
	fmt.Println("  reanalysis-xy <objID> <preset>    Re-centre an object, keeping the point nearest the stage")
	fmt.Println("  reanalysis-z <objID> <preset>     Find the focus of an object's depth acquisition")
	fmt.Println("  fcs [folder]                      Store the position of the brightest FCS recording")
	fmt.Println("                                    (newest autosave session when folder is omitted)")
	fmt.Println("  analyzers                         List registered analyzers")
	fmt.Println("  presets                           List configured presets")
	fmt.Println("  init-config [path]                Write the default configuration")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  STAGEPOINT_CONFIG=path         Configuration file (default stagepoint.yaml)")
	fmt.Println("  STAGEPOINT_LOG_LEVEL=debug     Override the configured log level")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("stagepoint %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	case "init-config":
		path := defaultConfigPath
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(path)
		return
	}

	cfgPath := os.Getenv("STAGEPOINT_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)
	logger.Debug("stagepoint starting", "version", Version, "commit", GitCommit, "config", cfgPath)

	if err := run(pipeline.NewRunner(cfg, logger), cfg, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes text logs to stderr; stdout carries the output paths.
func newLogger(configured string) *slog.Logger {
	level := configured
	if env := os.Getenv("STAGEPOINT_LOG_LEVEL"); env != "" {
		level = env
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func run(r *pipeline.Runner, cfg *config.Config, cmd string, args []string) error {
	need := func(n int, names string) error {
		if len(args) < n {
			return fmt.Errorf("usage: stagepoint %s %s", cmd, names)
		}
		return nil
	}

	var out string
	var err error
	switch cmd {
	case "overview":
		if err := need(2, "<file> <preset>"); err != nil {
			return err
		}
		out, err = r.Overview(args[0], args[1])
	case "reanalysis-xy", "reanalysis_xy":
		if err := need(2, "<objID> <preset>"); err != nil {
			return err
		}
		out, err = r.ReanalysisXY(args[0], args[1])
	case "reanalysis-z", "reanalysis_z":
		if err := need(2, "<objID> <preset>"); err != nil {
			return err
		}
		out, err = r.ReanalysisZ(args[0], args[1])
	case "fcs":
		if len(args) > 0 {
			out, err = r.FCS(args[0])
		} else {
			out, err = r.LatestFCS()
		}
	case "analyzers":
		fmt.Println(strings.Join(r.Analyzers(), "\n"))
		return nil
	case "presets":
		for _, name := range cfg.PresetNames() {
			p := cfg.Presets[name]
			fmt.Printf("%-12s %s (channel %d, xy %s, z %s)\n", name, p.Analysis, p.Channel, p.XYMode, p.ZStrategy)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q (see stagepoint --help)", cmd)
	}
	if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}
