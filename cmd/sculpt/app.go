package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/assets"
	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/editor"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/metrics"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

// app holds the services shared by commands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *storage.Store
	metrics *metrics.Metrics
	stop    context.CancelFunc
	served  chan error
}

func openApp(cfg *config.Config) (*app, error) {
	if err := logger.InitWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		Console: true,
		JSON:    cfg.Logging.JSON,
		File:    logFile(cfg.Logging.LogFile),
	}); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger.Named("sculpt")}

	var err error
	if cfg.Storage.InMemory {
		a.store, err = storage.OpenInMemory(cfg.Storage.Compress)
	} else {
		a.store, err = storage.Open(cfg.Storage.Path, cfg.Storage.Compress)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			a.store.Close()
			return nil, err
		}
		a.metrics = m
		ctx, cancel := context.WithCancel(context.Background())
		a.stop = cancel
		a.served = make(chan error, 1)
		go func() {
			a.served <- metrics.Serve(ctx, cfg.Metrics.Addr, reg)
		}()
		a.log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}
	return a, nil
}

func logFile(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

// newEditor builds an editor wired to the app's logger and metrics.
func (a *app) newEditor() (*editor.Editor, *logHost) {
	host := newLogHost(a.log)
	opts := []editor.Option{
		editor.WithConfig(a.cfg.Editor.EditorOptions()),
		editor.WithLogger(logger.Named("editor")),
		editor.WithHost(host),
	}
	if a.metrics != nil {
		opts = append(opts, editor.WithRecorder(a.metrics))
	}
	if a.cfg.Editor.JitterSeed != 0 {
		opts = append(opts, editor.WithSeed(a.cfg.Editor.JitterSeed))
	}
	return editor.New(opts...), host
}

func newLibrary(cfg *config.Config) (*assets.Library, error) {
	lib := assets.NewLibrary()
	for _, dir := range cfg.Brushes.Dirs {
		if err := lib.AddDir(dir); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Debug("brush directory missing", zap.String("dir", dir))
				continue
			}
			return nil, err
		}
	}
	return lib, nil
}

func (a *app) Close() {
	if a.stop != nil {
		a.stop()
		if err := <-a.served; err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	logger.Sync()
}

// logHost reports editor notifications through the logger and collects the
// regions that need saving.
type logHost struct {
	log     *zap.Logger
	changed map[math.Vec2i]struct{}
	order   []math.Vec2i
}

func newLogHost(log *zap.Logger) *logHost {
	return &logHost{log: log, changed: make(map[math.Vec2i]struct{})}
}

func (h *logHost) RegionsChanged(changes []editor.Change) {
	for _, c := range changes {
		h.log.Debug("region changed", zap.Stringer("offset", c.Offset), zap.Stringer("layer", c.Layer))
		if _, ok := h.changed[c.Offset]; !ok {
			h.changed[c.Offset] = struct{}{}
			h.order = append(h.order, c.Offset)
		}
	}
}

// Changed returns every region offset reported so far, in first-report order.
func (h *logHost) Changed() []math.Vec2i {
	return h.order
}

func (h *logHost) Status(s editor.Status) {
	h.log.Warn(s.Message, zap.Stringer("kind", s.Kind))
}
