// Package api provides the REST handlers of the wand HTTP server.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
)

// Controller is the part of the gesture engine the settings endpoints drive.
type Controller interface {
	Enable() error
	Disable()
	Toggle() (bool, error)
	SetRestricted(restricted bool)
	Enabled() bool
	Unavailable() bool
	Restricted() bool
	Mode() gesture.Mode
	Cursor() (engine.CursorState, bool)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// splitPath returns the path segments after prefix.
func splitPath(path, prefix string) []string {
	path = strings.TrimPrefix(path, prefix)
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
