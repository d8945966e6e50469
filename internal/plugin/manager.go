package plugin

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"go.uber.org/zap"
)

const manifestFile = "plugin.json"

// Common errors.
var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrActionNotSupported is returned when a plugin does not declare an action.
	ErrActionNotSupported = errors.New("action not supported")
)

// Manager manages plugin discovery and access.
type Manager struct {
	pluginDir string
	logger    *zap.Logger
	goos      string
	plugins   map[string]*Plugin
	mu        sync.RWMutex
}

// NewManager creates a Manager for pluginDir. A nil logger discards output.
func NewManager(pluginDir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		pluginDir: pluginDir,
		logger:    logger,
		goos:      runtime.GOOS,
		plugins:   make(map[string]*Plugin),
	}
}

// Discover scans the plugin directory. Every subdirectory holding a
// plugin.json manifest is a plugin; invalid manifests are skipped with a
// warning. A missing directory yields no plugins.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.pluginDir)
	if errors.Is(err, fs.ErrNotExist) {
		m.replace(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading plugin dir: %w", err)
	}

	found := make(map[string]*Plugin)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.pluginDir, entry.Name())
		plugin, err := loadPlugin(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			m.logger.Warn("skipping plugin", zap.String("path", dir), zap.Error(err))
			continue
		}
		if !plugin.Manifest.Supports(m.goos) {
			m.logger.Info("plugin not built for this platform",
				zap.String("name", plugin.Manifest.Name),
				zap.Strings("platforms", plugin.Manifest.Platforms))
			continue
		}
		if prev, ok := found[plugin.Manifest.Name]; ok {
			m.logger.Warn("duplicate plugin name",
				zap.String("name", plugin.Manifest.Name),
				zap.String("kept", prev.Path),
				zap.String("skipped", dir))
			continue
		}
		found[plugin.Manifest.Name] = plugin
	}

	m.replace(found)
	m.logger.Info("plugins discovered", zap.Int("count", len(found)), zap.String("dir", m.pluginDir))
	return nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	if plugins == nil {
		plugins = make(map[string]*Plugin)
	}
	m.mu.Lock()
	m.plugins = plugins
	m.mu.Unlock()
}

// loadPlugin reads dir/plugin.json. The manifest name defaults to the
// directory name and the executable must not escape dir.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if manifest.Name == "" {
		manifest.Name = filepath.Base(dir)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}

	return plugin, nil
}

// Resolve returns the named plugin if it declares action.
func (m *Manager) Resolve(name, action string) (*Plugin, error) {
	plugin, err := m.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if !plugin.Manifest.HasAction(action) {
		return nil, fmt.Errorf("%s/%s: %w", name, action, ErrActionNotSupported)
	}
	return plugin, nil
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	slices.SortFunc(plugins, func(a, b *Plugin) int {
		return cmp.Compare(a.Manifest.Name, b.Manifest.Name)
	})

	return plugins
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
