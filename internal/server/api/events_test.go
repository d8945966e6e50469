package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/medlink-research/wand/internal/store"
)

func seedEvents(t *testing.T, s *store.Store) time.Time {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []store.Event{
		{SessionID: "a", Kind: "press", CreatedAt: base},
		{SessionID: "a", Kind: "click", CreatedAt: base.Add(time.Second)},
		{SessionID: "a", Kind: "wave", CreatedAt: base.Add(2 * time.Second)},
		{SessionID: "b", Kind: "click", CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range events {
		if err := s.Events().Record(&events[i]); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	return base
}

func TestEventHandler_List(t *testing.T) {
	s := newTestStore(t)
	base := seedEvents(t, s)
	h := NewEventHandler(s)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 4},
		{"by session", "?session=a", 3},
		{"by kind", "?kind=click", 2},
		{"since", "?since=" + url.QueryEscape(base.Add(2*time.Second).Format(time.RFC3339)), 2},
		{"limit", "?limit=1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, "/api/events"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var resp listEventsResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if len(resp.Events) != tt.want {
				t.Errorf("got %d events, want %d", len(resp.Events), tt.want)
			}
		})
	}
}

func TestEventHandler_BadQuery(t *testing.T) {
	h := NewEventHandler(newTestStore(t))

	for _, q := range []string{"?since=yesterday", "?limit=0", "?limit=x"} {
		if rec := serve(h, http.MethodGet, "/api/events"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestEventHandler_Summary(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)
	h := NewEventHandler(s)

	rec := serve(h, http.MethodGet, "/api/events/summary?session=a", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp summaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"press": 1, "click": 1, "wave": 1}
	if len(resp.Counts) != len(want) {
		t.Fatalf("counts = %v, want %v", resp.Counts, want)
	}
	for k, v := range want {
		if resp.Counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, resp.Counts[k], v)
		}
	}
}

func TestEventHandler_Prune(t *testing.T) {
	s := newTestStore(t)
	base := seedEvents(t, s)
	h := NewEventHandler(s)

	if rec := serve(h, http.MethodDelete, "/api/events", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing before: expected 400, got %d", rec.Code)
	}

	cutoff := url.QueryEscape(base.Add(2 * time.Second).Format(time.RFC3339))
	rec := serve(h, http.MethodDelete, "/api/events?before="+cutoff, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp deleteEventsResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", resp.Deleted)
	}
}
