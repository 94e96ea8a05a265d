// Package config handles sculpt tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/midgard-terrain/internal/editor"
)

// Config holds all settings.
type Config struct {
	Terrain TerrainConfig `yaml:"terrain"`
	Editor  EditorConfig  `yaml:"editor"`
	Brushes BrushesConfig `yaml:"brushes"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// TerrainConfig holds the geometry of newly created terrains.
type TerrainConfig struct {
	RegionSize    int     `yaml:"region_size"`
	VertexSpacing float32 `yaml:"vertex_spacing"`
	MaxRegions    int     `yaml:"max_regions"`
}

// EditorConfig holds stroke and journal tuning.
type EditorConfig struct {
	HistorySize       int           `yaml:"history_size"`
	JournalBudgetMB   int           `yaml:"journal_budget_mb"`
	StrokeTimeout     time.Duration `yaml:"stroke_timeout"`
	OperationInterval float32       `yaml:"operation_interval"`
	CompressSnapshots bool          `yaml:"compress_snapshots"`
	JitterSeed        uint64        `yaml:"jitter_seed"` // 0 seeds each stroke from its start time
}

// BrushesConfig lists stamp image directories.
type BrushesConfig struct {
	Dirs  []string `yaml:"dirs"`
	Watch bool     `yaml:"watch"`
}

// StorageConfig holds the terrain database location.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	Compress bool   `yaml:"compress"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			RegionSize:    1024,
			VertexSpacing: 1,
			MaxRegions:    0,
		},
		Editor: EditorConfig{
			HistorySize:       16,
			JournalBudgetMB:   256,
			StrokeTimeout:     500 * time.Millisecond,
			OperationInterval: 0,
			CompressSnapshots: true,
		},
		Brushes: BrushesConfig{
			Dirs: []string{"brushes"},
		},
		Storage: StorageConfig{
			Path:     "terrain.db",
			Compress: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if s := c.Terrain.RegionSize; s <= 0 || s&(s-1) != 0 {
		errs = append(errs, fmt.Errorf("terrain.region_size %d is not a power of two", s))
	}
	if !(c.Terrain.VertexSpacing > 0) {
		errs = append(errs, fmt.Errorf("terrain.vertex_spacing %v must be positive", c.Terrain.VertexSpacing))
	}
	if c.Terrain.MaxRegions < 0 {
		errs = append(errs, fmt.Errorf("terrain.max_regions %d is negative", c.Terrain.MaxRegions))
	}
	if c.Editor.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("editor.history_size %d must be at least 1", c.Editor.HistorySize))
	}
	if c.Editor.JournalBudgetMB < 0 {
		errs = append(errs, fmt.Errorf("editor.journal_budget_mb %d is negative", c.Editor.JournalBudgetMB))
	}
	if c.Editor.OperationInterval < 0 {
		errs = append(errs, fmt.Errorf("editor.operation_interval %v is negative", c.Editor.OperationInterval))
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		errs = append(errs, errors.New("storage.path is empty"))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is empty"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not debug, info, warn or error", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// EditorOptions converts the editor section to editor tuning. A zero
// journal budget means unlimited.
func (c EditorConfig) EditorOptions() editor.Config {
	return editor.Config{
		HistorySize:       c.HistorySize,
		JournalBudget:     int64(c.JournalBudgetMB) << 20,
		StrokeTimeout:     c.StrokeTimeout,
		OperationInterval: c.OperationInterval,
		CompressSnapshots: c.CompressSnapshots,
	}
}
