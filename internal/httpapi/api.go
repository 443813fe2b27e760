package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"netexplorer/core-go/internal/graphs"
	"netexplorer/core-go/internal/route"
	"netexplorer/core-go/internal/topology"
)

type navigateRequest struct {
	Path string `json:"path"`
}

type searchRequest struct {
	Text string `json:"text"`
}

type intervalRequest struct {
	Interval string `json:"interval"`
}

type intervalState struct {
	Interval graphs.Interval `json:"interval"`
	Label    string          `json:"label"`
	Disabled bool            `json:"disabled"`
	Options  []graphs.Option `json:"options"`
	Changed  *bool           `json:"changed,omitempty"`
}

func (h *Handler) ensureController(w http.ResponseWriter) bool {
	if h.ctrl == nil {
		h.writeError(w, http.StatusServiceUnavailable, "not_loaded", "controller not configured", nil)
		return false
	}
	return true
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}

	var req navigateRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid JSON body", map[string]any{"error": err.Error()})
		return
	}

	// The route applies even when a load behind it fails; failures show up in
	// the view's error flags.
	rt, err := h.ctrl.Navigate(r.Context(), req.Path)
	if errors.Is(err, route.ErrNoRoute) {
		h.writeError(w, http.StatusNotFound, "route_not_found", "path does not match a dashboard route", map[string]any{"path": req.Path})
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Str("path", rt.Path()).Msg("navigate: load failed")
	}

	h.writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Handler) handleDebug(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.ctrl.Debug())
}

func (h *Handler) handleListNodes(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	nodes := h.ctrl.Nodes()
	if nodes == nil {
		nodes = []topology.Node{}
	}
	h.writeJSON(w, http.StatusOK, nodes)
}

func (h *Handler) handleGetNode(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	id := pathParam(r, "id")
	n, ok := h.ctrl.Node(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "node not found", map[string]any{"id": id})
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

func (h *Handler) handleGetStream(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	id := pathParam(r, "id")
	st, ok := h.ctrl.Stream(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "stream topology not loaded", map[string]any{"id": id})
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleLoadStream(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	id := pathParam(r, "id")
	if strings.TrimSpace(id) == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "stream id is required", nil)
		return
	}
	if err := h.ctrl.LoadTopology(r.Context(), id); err != nil {
		h.writeLoadError(w, "topology", err)
		return
	}
	st, _ := h.ctrl.Stream(id)
	h.writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleListTrackers(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	trackers := h.ctrl.Trackers()
	if trackers == nil {
		trackers = []topology.Tracker{}
	}
	h.writeJSON(w, http.StatusOK, trackers)
}

func (h *Handler) handleLoadTrackers(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	if err := h.ctrl.LoadTrackers(r.Context()); err != nil {
		h.writeLoadError(w, "trackers", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"trackers": len(h.ctrl.Trackers()),
		"nodes":    len(h.ctrl.Nodes()),
	})
}

func (h *Handler) handleUpdateSearch(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	var req searchRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid JSON body", map[string]any{"error": err.Error()})
		return
	}

	h.ctrl.UpdateSearch(req.Text)
	if err := h.ctrl.Search(r.Context()); err != nil {
		h.writeLoadError(w, "search", err)
		return
	}

	v := h.ctrl.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"searchText":    v.SearchText,
		"searchResults": v.SearchResults,
	})
}

func (h *Handler) handleResetSearchResults(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	h.ctrl.ResetSearchResults()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) intervalState() intervalState {
	active := h.ctrl.Interval()
	return intervalState{
		Interval: active,
		Label:    active.Label(),
		Disabled: h.ctrl.GraphsDisabled(),
		Options:  h.ctrl.IntervalOptions(),
	}
}

func (h *Handler) handleGetInterval(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.intervalState())
}

func (h *Handler) handleSelectInterval(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}
	var req intervalRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid JSON body", map[string]any{"error": err.Error()})
		return
	}

	i, err := graphs.ParseInterval(req.Interval)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "unknown interval", map[string]any{"interval": req.Interval})
		return
	}
	changed, err := h.ctrl.SelectInterval(i)
	switch {
	case errors.Is(err, graphs.ErrDisabled):
		h.writeError(w, http.StatusConflict, "interval_disabled", "interval selection is disabled", nil)
		return
	case errors.Is(err, graphs.ErrUnknownInterval):
		h.writeError(w, http.StatusBadRequest, "validation_failed", "interval is not an option", map[string]any{"interval": req.Interval})
		return
	case err != nil:
		h.log.Error().Err(err).Msg("select interval failed")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "failed to select interval", nil)
		return
	}

	st := h.intervalState()
	st.Changed = &changed
	h.writeJSON(w, http.StatusOK, st)
}
