// ncube runs the ncube guest in the terminal. It bootstraps from the latest
// release (or a local bundle), then lets you drop cube data files by path;
// exports are written to the export directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ncube-web/internal/bridge"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/config"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ncube-web/internal/loader"
	"github.com/GriffinCanCode/ncube-web/internal/release"
	"github.com/GriffinCanCode/ncube-web/internal/session"
	"github.com/GriffinCanCode/ncube-web/internal/shared/id"
	"github.com/GriffinCanCode/ncube-web/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadOrDefault()

	var (
		bundlePath string
		releaseURL string
		exportDir  string
		logOutput  string
		direct     bool
	)
	flagSet := pflag.NewFlagSet("ncube", pflag.ContinueOnError)
	flagSet.StringVar(&bundlePath, "bundle", cfg.Bootstrap.BundlePath, "load this release zip instead of downloading")
	flagSet.StringVar(&releaseURL, "release-url", cfg.Release.URL, "release zip to download")
	flagSet.StringVar(&exportDir, "export-dir", cfg.Bridge.ExportDir, "directory exported cube files are written to")
	flagSet.StringVar(&logOutput, "log-output", filepath.Join(os.TempDir(), "ncube.log"), "write JSON log records to this file")
	flagSet.BoolVar(&direct, "direct", false, "instantiate the payload without evaluating the loader script")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	logger, err := logging.ToFile(logOutput, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	var source release.Source
	if bundlePath != "" {
		source = release.FileSource{Path: bundlePath}
	} else {
		source = release.NewFetcher(releaseURL,
			release.WithTimeout(cfg.Release.Timeout),
			release.WithLogger(logger.Named("fetch")))
	}

	sessCfg := session.Config{
		Source:        source,
		Downloader:    bridge.DirDownloader{Dir: exportDir},
		NoticeDelay:   cfg.Bootstrap.NoticeDelay,
		FrameInterval: cfg.Bootstrap.FrameInterval,
		ScriptTimeout: cfg.Bootstrap.ScriptTimeout,
		MemoryPages:   cfg.Bootstrap.MemoryPages,
		Logger:        logger.Logger,
	}
	if direct {
		sessCfg.NewLoader = func(env loader.Env) loader.Loader { return loader.DirectLoader{Env: env} }
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := session.New(ctx, id.NewSessionID().String(), sessCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			logger.Warn("session close failed", zap.Error(err))
		}
	}()
	s.Start(ctx)

	program := tea.NewProgram(tui.New(s), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ncube: explore n-dimensional cubes in the terminal host.

The latest release is downloaded and started. Once it has loaded, type or
paste the path of a cube data file and press enter to drop it. Exported
cubes are written to --export-dir as <dimension>cube-<unix time>.data.

Usage:
  ncube [flags]

Examples:
  # Download and run the latest release
  ncube

  # Run a release zip that is already on disk
  ncube --bundle ./wasm.zip --export-dir ./cubes

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
