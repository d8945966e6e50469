// Package plugin discovers and runs external action plugins. Plugins are
// executables that read one JSON Request on stdin and answer with one JSON
// Response on stdout.
package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

// Manifest is the plugin.json found in each plugin directory.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
	// Platforms limits the plugin to these GOOS values. Empty means any.
	Platforms []string `json:"platforms,omitempty"`
}

// Validate checks the fields discovery relies on.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return errors.New("manifest has no name")
	}
	if m.Executable == "" {
		return errors.New("manifest has no executable")
	}
	if !filepath.IsLocal(m.Executable) {
		return fmt.Errorf("executable %q is outside the plugin directory", m.Executable)
	}
	if len(m.Actions) == 0 {
		return errors.New("manifest declares no actions")
	}
	return nil
}

func (m Manifest) HasAction(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Supports reports whether the plugin runs on goos.
func (m Manifest) Supports(goos string) bool {
	return len(m.Platforms) == 0 || slices.Contains(m.Platforms, goos)
}

// Request is written to the plugin's stdin. Gesture names what triggered it
// and Config carries caller options for the action.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Err converts an unsuccessful response into an error.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return errors.New("plugin reported failure")
	}
	return fmt.Errorf("plugin reported failure: %s", r.Error)
}

// Plugin is a discovered plugin. Executable is the absolute command path.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
