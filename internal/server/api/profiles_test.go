package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/medlink-research/wand/internal/gesture"
	"github.com/medlink-research/wand/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

type fakeActivator struct {
	store   *store.Store
	applied []gesture.Config
}

func (a *fakeActivator) ActivateProfile(id string) (*store.Profile, error) {
	if err := a.store.Profiles().Activate(id); err != nil {
		return nil, err
	}
	p, err := a.store.Profiles().GetByID(id)
	if err != nil {
		return nil, err
	}
	a.applied = append(a.applied, p.Config)
	return p, nil
}

func (a *fakeActivator) ApplyGestureConfig(cfg gesture.Config) error {
	a.applied = append(a.applied, cfg)
	return nil
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProfileHandler_ListPresets(t *testing.T) {
	s := newTestStore(t)
	h := NewProfileHandler(s, nil)

	rec := serve(h, http.MethodGet, "/api/profiles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var resp listProfilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Profiles) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(resp.Profiles))
	}
	for _, p := range resp.Profiles {
		if !p.Builtin {
			t.Errorf("profile %s should be builtin", p.Name)
		}
	}
}

func TestProfileHandler_CreateOverlaysBase(t *testing.T) {
	s := newTestStore(t)
	h := NewProfileHandler(s, nil)

	rec := serve(h, http.MethodPost, "/api/profiles",
		`{"name": "tremor", "base": "fist-only", "config": {"smoothing_factor": 0.2}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body)
	}

	var p store.Profile
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := gesture.FistOnlyConfig()
	want.SmoothingFactor = 0.2
	if p.Config != want {
		t.Errorf("config = %+v, want %+v", p.Config, want)
	}
	if p.ID == "" || p.Builtin || p.Active {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestProfileHandler_CreateErrors(t *testing.T) {
	s := newTestStore(t)
	h := NewProfileHandler(s, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing name", `{}`, http.StatusBadRequest},
		{"duplicate name", `{"name": "default"}`, http.StatusConflict},
		{"unknown base", `{"name": "x", "base": "nope"}`, http.StatusBadRequest},
		{"invalid config", `{"name": "x", "config": {"smoothing_factor": 2}}`, http.StatusBadRequest},
		{"config wrong type", `{"name": "x", "config": {"smoothing_factor": "fast"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodPost, "/api/profiles", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body)
			}
		})
	}
}

func TestProfileHandler_GetUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	act := &fakeActivator{store: s}
	h := NewProfileHandler(s, act)

	p := &store.Profile{Name: "mine", Config: gesture.DefaultConfig()}
	if err := s.Profiles().Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := serve(h, http.MethodGet, "/api/profiles/"+p.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET expected 200, got %d", rec.Code)
	}

	rec = serve(h, http.MethodPut, "/api/profiles/"+p.ID, `{"config": {"scroll_sensitivity": 3}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if len(act.applied) != 0 {
		t.Errorf("inactive profile update must not touch the engine")
	}
	got, _ := s.Profiles().GetByID(p.ID)
	if got.Config.ScrollSensitivity != 3 || got.Name != "mine" {
		t.Errorf("unexpected stored profile %+v", got)
	}

	rec = serve(h, http.MethodPost, "/api/profiles/"+p.ID+"/activate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("activate expected 200, got %d", rec.Code)
	}

	rec = serve(h, http.MethodPut, "/api/profiles/"+p.ID, `{"config": {"scroll_sensitivity": 2}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT expected 200, got %d", rec.Code)
	}
	if n := len(act.applied); n != 2 || act.applied[1].ScrollSensitivity != 2 {
		t.Errorf("active profile update must be applied, got %+v", act.applied)
	}

	rec = serve(h, http.MethodDelete, "/api/profiles/"+p.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE expected 204, got %d", rec.Code)
	}
	if last := act.applied[len(act.applied)-1]; last != gesture.DefaultConfig() {
		t.Errorf("deleting the active profile must apply the default, got %+v", last)
	}

	rec = serve(h, http.MethodGet, "/api/profiles/"+p.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete expected 404, got %d", rec.Code)
	}
}

func TestProfileHandler_PresetsAreReadOnly(t *testing.T) {
	s := newTestStore(t)
	h := NewProfileHandler(s, nil)

	def, err := s.Profiles().GetByName(store.PresetDefault)
	if err != nil {
		t.Fatal(err)
	}

	if rec := serve(h, http.MethodPut, "/api/profiles/"+def.ID, `{"name": "x"}`); rec.Code != http.StatusForbidden {
		t.Errorf("PUT preset expected 403, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodDelete, "/api/profiles/"+def.ID, ""); rec.Code != http.StatusForbidden {
		t.Errorf("DELETE preset expected 403, got %d", rec.Code)
	}
}

func TestProfileHandler_ActivateWithoutActivator(t *testing.T) {
	s := newTestStore(t)
	h := NewProfileHandler(s, nil)

	fist, err := s.Profiles().GetByName(store.PresetFistOnly)
	if err != nil {
		t.Fatal(err)
	}

	rec := serve(h, http.MethodPost, "/api/profiles/"+fist.ID+"/activate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var p store.Profile
	json.NewDecoder(rec.Body).Decode(&p)
	if !p.Active {
		t.Error("expected activated profile in response")
	}

	if rec := serve(h, http.MethodPost, "/api/profiles/missing/activate", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/api/profiles/"+fist.ID+"/activate", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodPost, "/api/profiles/"+fist.ID+"/other", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
