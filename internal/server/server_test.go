package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlink-research/wand/internal/capture"
	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
)

type stubController struct {
	enabled bool
}

func (c *stubController) Enable() error {
	c.enabled = true
	return nil
}

func (c *stubController) Disable() { c.enabled = false }

func (c *stubController) Toggle() (bool, error) {
	c.enabled = !c.enabled
	return c.enabled, nil
}

func (c *stubController) SetRestricted(bool)                 {}
func (c *stubController) Enabled() bool                      { return c.enabled }
func (c *stubController) Unavailable() bool                  { return false }
func (c *stubController) Restricted() bool                   { return false }
func (c *stubController) Mode() gesture.Mode                 { return gesture.ModeIdle }
func (c *stubController) Cursor() (engine.CursorState, bool) { return engine.CursorIdle, false }

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	body := decodeHealth(t, serve(s, http.MethodGet, "/api/health"))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
	assert.NotContains(t, body, "enabled", "no controller, no engine state")
	assert.NotContains(t, body, "clients")

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		assert.Equal(t, http.StatusMethodNotAllowed, serve(s, method, "/api/health").Code, method)
	}
}

func TestServer_HealthReportsEngine(t *testing.T) {
	hub := NewHub(gesture.Size{Width: 1280, Height: 720}, nil)
	s := New(Config{Controller: &stubController{enabled: true}, Hub: hub})

	body := decodeHealth(t, serve(s, http.MethodGet, "/api/health"))
	assert.Equal(t, true, body["enabled"])
	assert.Equal(t, false, body["unavailable"])
	assert.Equal(t, float64(0), body["clients"])
}

func TestServer_SettingsRoute(t *testing.T) {
	ctl := &stubController{}
	s := New(Config{Controller: ctl})

	rec := serve(s, http.MethodPost, "/api/settings/toggle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ctl.enabled, "toggle enables the controller")
}

func TestServer_RoutesFollowComponents(t *testing.T) {
	bare := New(Config{})
	full := New(Config{
		Controller: &stubController{},
		Preview:    capture.NewPreview(0),
		Hub:        NewHub(gesture.Size{Width: 640, Height: 480}, nil),
	})

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/settings"},
		{http.MethodGet, "/api/stream?snapshot=1"},
		{http.MethodGet, "/api/cursor"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, http.StatusNotFound, serve(bare, tt.method, tt.target).Code)
			assert.NotEqual(t, http.StatusNotFound, serve(full, tt.method, tt.target).Code)
		})
	}
}

func TestServer_ListenAndServeShutsDown(t *testing.T) {
	s := New(Config{Hub: NewHub(gesture.Size{Width: 640, Height: 480}, nil)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>wand</body></html>"
	css := "body { color: red; }"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte(css), 0o644))

	s := New(Config{StaticDir: dir})

	tests := []struct {
		name   string
		target string
		code   int
		body   string
	}{
		{"index at root", "/", http.StatusOK, index},
		{"file by name", "/style.css", http.StatusOK, css},
		{"missing file", "/nonexistent.html", http.StatusNotFound, ""},
		{"unknown api", "/api/nonexistent", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, http.MethodGet, tt.target)
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/api/nonexistent").Code)
}
