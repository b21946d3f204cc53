// Package main is the entry point for the headless asset viewer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/asset-viewer/internal/config"
	"github.com/Faultbox/asset-viewer/internal/loader"
	"github.com/Faultbox/asset-viewer/internal/logger"
	"github.com/Faultbox/asset-viewer/internal/render/preview"
	"github.com/Faultbox/asset-viewer/internal/snapshot"
	"github.com/Faultbox/asset-viewer/internal/viewer"
	"github.com/Faultbox/asset-viewer/internal/watch"
)

// tickInterval drives animation and auto-rotate while watching.
const tickInterval = 50 * time.Millisecond

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", path)
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Asset Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.Viewer.Model == "" {
		return errors.New("no model given, use -model or viewer.model")
	}

	l := loader.New(loader.Config{
		Timeout:   cfg.Loader.Timeout.Std(),
		MaxBytes:  cfg.Loader.MaxBytes,
		UserAgent: cfg.Loader.UserAgent,
	}, logger.Named("loader"))

	v, err := viewer.New(l, viewer.Options{
		Preferences:     preferences(cfg.Viewer),
		AutoRotateSpeed: cfg.Viewer.AutoRotateSpeed,
		Logger:          logger.Named("viewer"),
	})
	if err != nil {
		return fmt.Errorf("creating viewer: %w", err)
	}
	defer v.Close()

	exp, err := newExporter(cfg)
	if err != nil {
		return err
	}

	src := sourceFor(cfg.Viewer.Model)
	if _, err := v.Open(src); err != nil {
		return err
	}
	if err := v.Await(ctx); err != nil {
		return err
	}
	ready(v, cfg, exp, out)

	if !cfg.Watch.Enabled {
		return nil
	}
	if src.Kind != loader.KindFile {
		return fmt.Errorf("watch needs a local file, got %s", src.Kind)
	}
	return watchLoop(ctx, v, cfg, exp, out, src.Location)
}

// ready runs everything that follows a successful load.
func ready(v *viewer.Viewer, cfg *config.Config, exp *exporter, out io.Writer) {
	applyPlayback(v.Store(), cfg.Viewer)
	printInfo(out, v)
	if exp != nil {
		v.Update(0)
		if err := exp.export(v); err != nil {
			logger.Error("snapshot failed", zap.Error(err))
		}
	}
}

func watchLoop(ctx context.Context, v *viewer.Viewer, cfg *config.Config, exp *exporter, out io.Writer, path string) error {
	w, err := watch.New(path, cfg.Watch.Debounce.Std(), logger.Named("watch"))
	if err != nil {
		return err
	}
	defer w.Close()

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("watcher stopped", zap.Error(err))
		}
	}()
	logger.Info("watching for changes", zap.String("path", w.Path()))

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-w.Changes():
			if _, err := v.Reload(); err != nil {
				logger.Warn("reload rejected", zap.Error(err))
				continue
			}
			if err := v.Await(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("reload failed, keeping previous model", zap.Error(err))
				continue
			}
			ready(v, cfg, exp, out)

		case now := <-ticker.C:
			v.Update(now.Sub(last))
			last = now
		}
	}
}

// sourceFor treats http(s) locations as URLs and everything else as a file.
func sourceFor(location string) loader.Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return loader.URL(location)
	}
	return loader.File(location)
}

func preferences(c config.ViewerConfig) viewer.Preferences {
	return viewer.Preferences{
		Wireframe:      c.Wireframe,
		AutoRotate:     c.AutoRotate,
		Background:     c.Background,
		LightIntensity: c.LightIntensity,
		ShowGrid:       c.ShowGrid,
		ShowAxes:       c.ShowAxes,
		Camera:         mgl32.Vec3(c.Camera),
	}
}

// applyPlayback selects and starts the configured clip. Problems are logged
// and leave the auto-selected clip in place.
func applyPlayback(s *viewer.Store, c config.ViewerConfig) {
	if c.Clip != "" {
		if err := s.SetSelectedAnimation(c.Clip); err != nil {
			logger.Warn("clip not selected", zap.String("clip", c.Clip), zap.Strings("available", s.AnimationNames()), zap.Error(err))
		}
	}
	if c.Play {
		if err := s.SetPlaying(true); err != nil {
			logger.Warn("playback not started", zap.Error(err))
		}
	}
}

func printInfo(out io.Writer, v *viewer.Viewer) {
	m := v.Model()
	if m == nil {
		return
	}
	info := m.Info
	fmt.Fprintf(out, "Model:      %s (%s)\n", info.Name, info.Format)
	fmt.Fprintf(out, "ID:         %s\n", info.ID)
	fmt.Fprintf(out, "Size:       %d bytes\n", info.Size)
	fmt.Fprintf(out, "Nodes:      %d\n", info.Stats.Nodes)
	fmt.Fprintf(out, "Meshes:     %d\n", info.Stats.Meshes)
	fmt.Fprintf(out, "Vertices:   %d\n", info.Stats.Vertices)
	fmt.Fprintf(out, "Triangles:  %d\n", info.Stats.Triangles)
	fmt.Fprintf(out, "Scale:      %.4f\n", v.Fit().Scale)

	s := v.Store()
	names := s.AnimationNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "Animations: none")
		return
	}
	fmt.Fprintf(out, "Animations: %s\n", strings.Join(names, ", "))
	if name, ok := s.SelectedAnimation(); ok {
		state := "paused"
		if s.Playing() {
			state = "playing"
		}
		fmt.Fprintf(out, "Selected:   %s (%s)\n", name, state)
	}
}

// exporter renders the current frame and writes it with an optional
// thumbnail.
type exporter struct {
	renderer *preview.Renderer
	capture  *snapshot.Capture
	thumbs   *snapshot.Capture
	thumbW   int
	thumbH   int
}

func newExporter(cfg *config.Config) (*exporter, error) {
	if !cfg.Snapshot.Enabled {
		return nil, nil
	}
	r, err := preview.New(preview.Config{
		Width:     cfg.Preview.Width,
		Height:    cfg.Preview.Height,
		LineWidth: cfg.Preview.LineWidth,
	})
	if err != nil {
		return nil, err
	}
	prefix := cfg.Snapshot.Prefix
	if prefix == "" {
		prefix = snapshot.DefaultPrefix
	}
	e := &exporter{
		renderer: r,
		capture:  snapshot.NewCapture(cfg.Snapshot.OutputDir, prefix),
		thumbW:   cfg.Snapshot.ThumbnailWidth,
		thumbH:   cfg.Snapshot.ThumbnailHeight,
	}
	if e.thumbW > 0 && e.thumbH > 0 {
		e.thumbs = snapshot.NewCapture(cfg.Snapshot.OutputDir, prefix+"-thumb")
	}
	return e, nil
}

func (e *exporter) export(v *viewer.Viewer) error {
	img, err := e.renderer.Render(v.Frame())
	if err != nil {
		return err
	}
	path, err := e.capture.Save(img)
	if err != nil {
		return err
	}
	logger.Info("snapshot saved", zap.String("path", path))

	if e.thumbs != nil {
		thumb, err := e.thumbs.Save(snapshot.Thumbnail(img, e.thumbW, e.thumbH))
		if err != nil {
			return err
		}
		logger.Info("thumbnail saved", zap.String("path", thumb))
	}
	return nil
}
