package server

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/medlink-research/wand/internal/capture"
)

const streamBoundary = "frame"

// maxStreamFPS caps the ?fps= query parameter.
const maxStreamFPS = 60

// StreamHandler serves the camera preview. Frames come from the detection
// pipeline, so the stream only moves while gesture control runs.
//
//	GET /api/stream             multipart MJPEG until the client leaves
//	GET /api/stream?fps=5       same, at most 5 frames per second
//	GET /api/stream?snapshot=1  the latest frame as a single JPEG
type StreamHandler struct {
	preview *capture.Preview
}

// NewStreamHandler creates a new StreamHandler reading from preview.
func NewStreamHandler(preview *capture.Preview) *StreamHandler {
	return &StreamHandler{preview: preview}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if query.Has("snapshot") {
		h.snapshot(w)
		return
	}

	var interval time.Duration
	if v := query.Get("fps"); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil || fps <= 0 || fps > maxStreamFPS {
			http.Error(w, "fps must be between 1 and "+strconv.Itoa(maxStreamFPS), http.StatusBadRequest)
			return
		}
		interval = time.Second / time.Duration(fps)
	}

	mw := multipart.NewWriter(w)
	mw.SetBoundary(streamBoundary)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flush(w)

	var seq uint64
	var last time.Time
	for {
		jpeg, next, err := h.preview.Next(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		if interval > 0 {
			if wait := interval - time.Since(last); wait > 0 {
				select {
				case <-r.Context().Done():
					return
				case <-time.After(wait):
				}
				// send whatever is newest after the pause
				jpeg, seq = h.preview.Latest()
			}
			last = time.Now()
		}

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(jpeg))},
		})
		if err != nil {
			return
		}
		if _, err := part.Write(jpeg); err != nil {
			return
		}
		flush(w)
	}
}

func (h *StreamHandler) snapshot(w http.ResponseWriter) {
	jpeg, seq := h.preview.Latest()
	if seq == 0 {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(jpeg)))
	w.Write(jpeg)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
