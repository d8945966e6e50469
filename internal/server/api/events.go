package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/medlink-research/wand/internal/store"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// EventHandler serves the interaction log.
//
//	GET    /api/events?session=&kind=&since=RFC3339&limit=
//	GET    /api/events/summary?session=
//	DELETE /api/events?before=RFC3339
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type listEventsResponse struct {
	Events []*store.Event `json:"events"`
}

type summaryResponse struct {
	SessionID string         `json:"session_id,omitempty"`
	Counts    map[string]int `json:"counts"`
}

type deleteEventsResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/events")

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodDelete:
			h.prune(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 1 && parts[0] == "summary":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.summary(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EventFilter{
		SessionID: q.Get("session"),
		Kind:      q.Get("kind"),
		Limit:     defaultEventLimit,
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since, want RFC3339")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = min(limit, maxEventLimit)
	}

	events, err := h.store.Events().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, listEventsResponse{Events: events})
}

func (h *EventHandler) summary(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	counts, err := h.store.Events().CountByKind(session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize events")
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{SessionID: session, Counts: counts})
}

func (h *EventHandler) prune(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("before")
	if v == "" {
		writeError(w, http.StatusBadRequest, "before is required")
		return
	}
	before, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid before, want RFC3339")
		return
	}

	n, err := h.store.Events().DeleteBefore(before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete events")
		return
	}
	writeJSON(w, http.StatusOK, deleteEventsResponse{Deleted: n})
}
