package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/channelintel/backend/internal/apperr"
)

const sseKeepAlive = 15 * time.Second

// handleChannelProgress implements GET /channel-progress?requestId=,
// bridging the Progress Bus to an SSE stream per spec.md §4.2/§9: a
// `data: <json>\n\n` line per event, a `: ping\n\n` comment every 15s
// of inactivity, closing when the job reaches a terminal event or the
// client disconnects.
func (s *Server) handleChannelProgress(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("requestId")
	if requestID == "" {
		writeError(w, apperr.ErrValidation)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("%w: streaming unsupported", apperr.ErrStorage))
		return
	}

	events, unsubscribe := s.bus.Subscribe(requestID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}

			writeSSEEvent(w, flusher, event)
			ticker.Reset(sseKeepAlive)
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
