package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medlink-research/wand/internal/gesture"
	"github.com/medlink-research/wand/internal/store"
)

// ProfileActivator applies calibration profiles to the running engine.
type ProfileActivator interface {
	ActivateProfile(id string) (*store.Profile, error)
	ApplyGestureConfig(cfg gesture.Config) error
}

// ProfileHandler handles HTTP requests for calibration profiles.
//
//	GET    /api/profiles
//	POST   /api/profiles                {"name": "...", "base": "fist-only", "config": {...}}
//	GET    /api/profiles/{id}
//	PUT    /api/profiles/{id}           {"name": "...", "config": {...}}
//	DELETE /api/profiles/{id}
//	POST   /api/profiles/{id}/activate
type ProfileHandler struct {
	store     *store.Store
	activator ProfileActivator
}

// NewProfileHandler creates a ProfileHandler. activator may be nil, in
// which case activation only updates the store.
func NewProfileHandler(s *store.Store, activator ProfileActivator) *ProfileHandler {
	return &ProfileHandler{store: s, activator: activator}
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/profiles")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 2:
		if parts[1] != "activate" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

type createProfileRequest struct {
	Name   string          `json:"name"`
	Base   string          `json:"base"`
	Config json.RawMessage `json:"config"`
}

type updateProfileRequest struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

type listProfilesResponse struct {
	Profiles []*store.Profile `json:"profiles"`
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}
	if profiles == nil {
		profiles = []*store.Profile{}
	}
	writeJSON(w, http.StatusOK, listProfilesResponse{Profiles: profiles})
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// create handles POST /api/profiles. The config overlays the base preset,
// "default" unless named.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if _, err := h.store.Profiles().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Profile name already exists")
		return
	}

	base := req.Base
	if base == "" {
		base = store.PresetDefault
	}
	preset, err := h.store.Profiles().GetByName(base)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Unknown base profile")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load base profile")
		return
	}

	cfg := preset.Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid config")
			return
		}
	}

	p := &store.Profile{Name: req.Name, Config: cfg}
	if err := h.store.Profiles().Create(p); err != nil {
		writeStoreError(w, err, "Failed to create profile")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// update handles PUT /api/profiles/{id}. Changes to the active profile take
// effect immediately.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &p.Config); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid config")
			return
		}
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeStoreError(w, err, "Failed to update profile")
		return
	}
	if p.Active && h.activator != nil {
		if err := h.activator.ApplyGestureConfig(p.Config); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply profile")
			return
		}
	}
	writeJSON(w, http.StatusOK, p)
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Failed to get profile")
		return
	}
	if err := h.store.Profiles().Delete(id); err != nil {
		writeStoreError(w, err, "Failed to delete profile")
		return
	}

	if p.Active && h.activator != nil {
		active, err := h.store.Profiles().Active()
		if err == nil {
			err = h.activator.ApplyGestureConfig(active.Config)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply default profile")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/profiles/{id}/activate.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	if h.activator == nil {
		if err := h.store.Profiles().Activate(id); err != nil {
			writeStoreError(w, err, "Failed to activate profile")
			return
		}
		h.get(w, r, id)
		return
	}

	p, err := h.activator.ActivateProfile(id)
	if err != nil {
		writeStoreError(w, err, "Failed to activate profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// writeStoreError maps store and validation errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Profile not found")
	case errors.Is(err, store.ErrBuiltin):
		writeError(w, http.StatusForbidden, "Preset profiles cannot be modified")
	case errors.Is(err, gesture.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
