package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"netexplorer/core-go/internal/graphs"
	"netexplorer/core-go/internal/nodestats"
	"netexplorer/core-go/internal/persist"
)

type graphSeries struct {
	Stat   nodestats.StatID `json:"stat"`
	Label  string           `json:"label"`
	Points []persist.Point  `json:"points"`
}

type graphResponse struct {
	NodeID   string          `json:"nodeId"`
	Interval graphs.Interval `json:"interval"`
	Since    *time.Time      `json:"since,omitempty"`
	Series   []graphSeries   `json:"series"`
}

// handleGetNodeStats reads the current stats of a node. A stat that could not
// be read is reported in place; the response is still 200.
func (h *Handler) handleGetNodeStats(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	if h.stats == nil {
		h.writeError(w, http.StatusServiceUnavailable, "stats_unavailable", "no stats source configured", nil)
		return
	}

	id := pathParam(r, "id")
	if _, ok := h.ctrl.Node(id); !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "node not found", map[string]any{"id": id})
		return
	}

	st, err := h.stats.Fetch(r.Context(), id)
	switch {
	case errors.Is(err, nodestats.ErrNoTarget):
		h.writeError(w, http.StatusNotFound, "no_stats_target", "no stats source covers this node", map[string]any{"id": id})
		return
	case err != nil:
		h.log.Warn().Err(err).Str("node_id", id).Msg("node stats fetch failed")
		h.writeLoadError(w, "stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// handleGetNodeGraph returns stored stat history for the graphs. The window
// is ?interval= or the active interval of the selector.
func (h *Handler) handleGetNodeGraph(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	if h.history == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "stat history requires a database", nil)
		return
	}

	id := pathParam(r, "id")
	if _, ok := h.ctrl.Node(id); !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "node not found", map[string]any{"id": id})
		return
	}

	q := r.URL.Query()
	interval := h.ctrl.Interval()
	if raw := strings.TrimSpace(q.Get("interval")); raw != "" {
		parsed, err := graphs.ParseInterval(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "unknown interval", map[string]any{"interval": raw})
			return
		}
		interval = parsed
	}

	stats := nodestats.AllStats
	if raw := strings.TrimSpace(q.Get("stat")); raw != "" {
		parsed, err := nodestats.ParseStatID(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "unknown stat", map[string]any{"stat": raw})
			return
		}
		stats = []nodestats.StatID{parsed}
	}

	since := interval.Window(h.now())
	resp := graphResponse{NodeID: id, Interval: interval, Series: make([]graphSeries, 0, len(stats))}
	if !since.IsZero() {
		resp.Since = &since
	}

	for _, stat := range stats {
		points, err := h.history.History(r.Context(), id, stat, since)
		if err != nil {
			h.log.Error().Err(err).Str("node_id", id).Str("stat", string(stat)).Msg("stat history query failed")
			h.writeError(w, http.StatusInternalServerError, "db_error", "failed to load stat history", nil)
			return
		}
		if points == nil {
			points = []persist.Point{}
		}
		resp.Series = append(resp.Series, graphSeries{Stat: stat, Label: stat.Label(), Points: points})
	}

	h.writeJSON(w, http.StatusOK, resp)
}
