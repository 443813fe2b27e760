package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const eventBuffer = 64

// handleEvents streams controller events as server-sent events. The first
// event is a full "snapshot" of the view; comment heartbeats keep idle
// connections open.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response does not support streaming", nil)
		return
	}

	// Subscribe before the snapshot so no change is lost between the two.
	events, cancel := h.ctrl.Subscribe(eventBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	reqID := middleware.GetReqID(r.Context())
	h.log.Debug().Str("request_id", reqID).Msg("event stream opened")
	defer h.log.Debug().Str("request_id", reqID).Msg("event stream closed")

	if err := writeSSEEvent(w, flusher, "snapshot", 0, h.ctrl.Snapshot()); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, flusher, string(ev.Type), ev.Seq, ev); err != nil {
				h.log.Debug().Err(err).Str("request_id", reqID).Msg("event stream write failed")
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, id uint64, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if id > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
