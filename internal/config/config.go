// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all viewer settings.
type Config struct {
	Viewer   ViewerConfig   `yaml:"viewer" toml:"viewer"`
	Loader   LoaderConfig   `yaml:"loader" toml:"loader"`
	Snapshot SnapshotConfig `yaml:"snapshot" toml:"snapshot"`
	Preview  PreviewConfig  `yaml:"preview" toml:"preview"`
	Watch    WatchConfig    `yaml:"watch" toml:"watch"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ViewerConfig holds the startup view and the model to open.
type ViewerConfig struct {
	Model           string     `yaml:"model" toml:"model"` // URL or file path
	Wireframe       bool       `yaml:"wireframe" toml:"wireframe"`
	AutoRotate      bool       `yaml:"auto_rotate" toml:"auto_rotate"`
	AutoRotateSpeed float32    `yaml:"auto_rotate_speed" toml:"auto_rotate_speed"`
	Background      string     `yaml:"background" toml:"background"`
	LightIntensity  float32    `yaml:"light_intensity" toml:"light_intensity"`
	ShowGrid        bool       `yaml:"show_grid" toml:"show_grid"`
	ShowAxes        bool       `yaml:"show_axes" toml:"show_axes"`
	Camera          [3]float32 `yaml:"camera" toml:"camera"`
	Clip            string     `yaml:"clip" toml:"clip"` // clip to select after loading
	Play            bool       `yaml:"play" toml:"play"`
}

// LoaderConfig holds model fetch settings.
type LoaderConfig struct {
	Timeout   Duration `yaml:"timeout" toml:"timeout"`
	MaxBytes  int64    `yaml:"max_bytes" toml:"max_bytes"`
	UserAgent string   `yaml:"user_agent" toml:"user_agent"`
}

// SnapshotConfig holds image export settings.
type SnapshotConfig struct {
	Enabled         bool   `yaml:"enabled" toml:"enabled"`
	OutputDir       string `yaml:"output_dir" toml:"output_dir"`
	Prefix          string `yaml:"prefix" toml:"prefix"`
	ThumbnailWidth  int    `yaml:"thumbnail_width" toml:"thumbnail_width"` // 0 disables thumbnails
	ThumbnailHeight int    `yaml:"thumbnail_height" toml:"thumbnail_height"`
}

// PreviewConfig holds the software renderer settings.
type PreviewConfig struct {
	Width     int     `yaml:"width" toml:"width"`
	Height    int     `yaml:"height" toml:"height"`
	LineWidth float64 `yaml:"line_width" toml:"line_width"`
}

// WatchConfig holds hot reload settings.
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled"`
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Duration is a time.Duration written as "30s" in both file formats.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			AutoRotateSpeed: 1,
			Background:      "#1a1a1a",
			LightIntensity:  1,
			ShowGrid:        true,
			ShowAxes:        true,
			Camera:          [3]float32{5, 5, 5},
		},
		Loader: LoaderConfig{
			Timeout:   Duration(30 * time.Second),
			MaxBytes:  256 << 20,
			UserAgent: "asset-viewer",
		},
		Snapshot: SnapshotConfig{
			OutputDir:       "screenshots",
			Prefix:          "model-screenshot",
			ThumbnailWidth:  256,
			ThumbnailHeight: 256,
		},
		Preview: PreviewConfig{
			Width:     800,
			Height:    600,
			LineWidth: 1,
		},
		Watch: WatchConfig{
			Debounce: Duration(250 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		return fmt.Errorf("preview size %dx%d must be positive", c.Preview.Width, c.Preview.Height)
	}
	if c.Loader.Timeout < 0 {
		return fmt.Errorf("loader timeout %v must not be negative", c.Loader.Timeout.Std())
	}
	if c.Loader.MaxBytes < 0 {
		return fmt.Errorf("loader max_bytes %d must not be negative", c.Loader.MaxBytes)
	}
	if c.Watch.Enabled && c.Viewer.Model == "" {
		return fmt.Errorf("watch needs a model to watch")
	}
	return nil
}
