// Package config loads the wand YAML configuration and watches it for
// changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/medlink-research/wand/internal/app"
	"github.com/medlink-research/wand/internal/capture"
	"github.com/medlink-research/wand/internal/detector"
	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
	"github.com/medlink-research/wand/internal/logging"
)

// DefaultDirName is the data directory under the user's home.
const DefaultDirName = ".wand"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	// Viewport is reported to the engine until a cursor client sends its own.
	ViewportWidth  float64 `yaml:"viewport_width"`
	ViewportHeight float64 `yaml:"viewport_height"`
}

// RestrictedConfig configures the bottom-bar restricted zone.
type RestrictedConfig struct {
	Enabled   bool    `yaml:"enabled"`
	BarHeight float64 `yaml:"bar_height"`
}

// Config is the full wand configuration.
type Config struct {
	DataDir        string               `yaml:"data_dir"`
	PluginDir      string               `yaml:"plugin_dir"`
	LogLevel       string               `yaml:"log_level"`
	Development    bool                 `yaml:"development"`
	Tray           bool                 `yaml:"tray"`
	PreviewQuality int                  `yaml:"preview_quality"`
	Server         ServerConfig         `yaml:"server"`
	Camera         capture.Config       `yaml:"camera"`
	Detector       detector.Config      `yaml:"detector"`
	Gesture        gesture.Config       `yaml:"gesture"`
	Restricted     RestrictedConfig     `yaml:"restricted"`
	Navigation     app.NavigationConfig `yaml:"navigation"`

	// GestureSet reports that the file had a gesture section, which then
	// takes precedence over the active calibration profile.
	GestureSet bool `yaml:"-"`
}

// Default returns the built-in configuration. The camera is already
// mirrored so the mapper does not flip again.
func Default() Config {
	dataDir := DefaultDirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, DefaultDirName)
	}

	camera := capture.DefaultConfig()
	camera.Mirror = true
	g := gesture.DefaultConfig()
	g.MirrorX = false

	return Config{
		DataDir:        dataDir,
		PluginDir:      filepath.Join(dataDir, "plugins"),
		LogLevel:       "info",
		PreviewQuality: capture.DefaultPreviewQuality,
		Server: ServerConfig{
			Addr:           ":8080",
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Camera:   camera,
		Detector: detector.DefaultConfig(),
		Gesture:  g,
		Restricted: RestrictedConfig{
			BarHeight: engine.DefaultBarHeight,
		},
		Navigation: app.NavigationConfig{
			Plugin: "keyboard",
			Action: "back",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	var sections struct {
		Gesture *yaml.Node `yaml:"gesture"`
	}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.GestureSet = sections.Gesture != nil
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields the process cannot run without.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalid)
	}
	if c.Server.ViewportWidth <= 0 || c.Server.ViewportHeight <= 0 {
		return fmt.Errorf("%w: server viewport must be positive", ErrInvalid)
	}
	if c.Camera.FPS < 0 || c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("%w: camera settings must not be negative", ErrInvalid)
	}
	if c.Restricted.BarHeight < 0 {
		return fmt.Errorf("%w: restricted.bar_height must not be negative", ErrInvalid)
	}
	if c.PreviewQuality < 0 || c.PreviewQuality > 100 {
		return fmt.Errorf("%w: preview_quality must be within 0-100", ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Gesture.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Engine returns the engine settings derived from c.
func (c Config) Engine() engine.Config {
	return engine.Config{
		Gesture:    c.Gesture,
		Restricted: c.Restricted.Enabled,
		BarHeight:  c.Restricted.BarHeight,
	}
}

// DBPath is the sqlite database location.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "wand.db")
}

// YAML renders c as a YAML document.
func (c Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
