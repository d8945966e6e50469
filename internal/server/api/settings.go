package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medlink-research/wand/internal/engine"
)

// SettingsHandler exposes the gesture control toggle and restricted mode.
//
//	GET  /api/settings         current state
//	PUT  /api/settings         {"enabled": bool, "restricted": bool}, both optional
//	POST /api/settings/toggle  flip gesture control
type SettingsHandler struct {
	ctl Controller
}

// NewSettingsHandler creates a SettingsHandler driving ctl.
func NewSettingsHandler(ctl Controller) *SettingsHandler {
	return &SettingsHandler{ctl: ctl}
}

type settingsResponse struct {
	Enabled       bool   `json:"enabled"`
	Unavailable   bool   `json:"unavailable"`
	Restricted    bool   `json:"restricted"`
	Mode          string `json:"mode"`
	Cursor        string `json:"cursor"`
	CursorVisible bool   `json:"cursor_visible"`
}

type updateSettingsRequest struct {
	Enabled    *bool `json:"enabled"`
	Restricted *bool `json:"restricted"`
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/settings")

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.state())
		case http.MethodPut:
			h.update(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 1 && parts[0] == "toggle":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, err := h.ctl.Toggle(); err != nil {
			h.writeEnableError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.state())
	default:
		http.NotFound(w, r)
	}
}

func (h *SettingsHandler) state() settingsResponse {
	cursor, visible := h.ctl.Cursor()
	return settingsResponse{
		Enabled:       h.ctl.Enabled(),
		Unavailable:   h.ctl.Unavailable(),
		Restricted:    h.ctl.Restricted(),
		Mode:          h.ctl.Mode().String(),
		Cursor:        cursor.String(),
		CursorVisible: visible,
	}
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Restricted != nil {
		h.ctl.SetRestricted(*req.Restricted)
	}
	if req.Enabled != nil {
		if *req.Enabled {
			if err := h.ctl.Enable(); err != nil {
				h.writeEnableError(w, err)
				return
			}
		} else {
			h.ctl.Disable()
		}
	}

	writeJSON(w, http.StatusOK, h.state())
}

func (h *SettingsHandler) writeEnableError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "Gesture control is unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to enable gesture control")
}
