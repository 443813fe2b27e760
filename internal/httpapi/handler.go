package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"netexplorer/core-go/internal/controller"
	"netexplorer/core-go/internal/db"
	"netexplorer/core-go/internal/metrics"
	"netexplorer/core-go/internal/nodestats"
	"netexplorer/core-go/internal/persist"
)

// HistoryReader serves stat history for graphs. *persist.Store satisfies this.
type HistoryReader interface {
	History(ctx context.Context, nodeID string, stat nodestats.StatID, since time.Time) ([]persist.Point, error)
}

type Options struct {
	Stats   nodestats.Source
	History HistoryReader
	Metrics *metrics.Metrics
	// Heartbeat is the keep-alive period of the event stream.
	Heartbeat time.Duration
}

type Handler struct {
	log       zerolog.Logger
	pool      *db.Pool
	ctrl      *controller.Controller
	stats     nodestats.Source
	history   HistoryReader
	metrics   *metrics.Metrics
	heartbeat time.Duration
	now       func() time.Time
}

func NewHandler(log zerolog.Logger, pool *db.Pool, ctrl *controller.Controller, opts Options) *Handler {
	hb := opts.Heartbeat
	if hb <= 0 {
		hb = 15 * time.Second
	}
	return &Handler{
		log:       log,
		pool:      pool,
		ctrl:      ctrl,
		stats:     opts.Stats,
		history:   opts.History,
		metrics:   opts.Metrics,
		heartbeat: hb,
		now:       time.Now,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.recoverBoundary)
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// The event stream is long-lived and stays outside the timeout.
			r.Get("/events", h.handleEvents)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Get("/state", h.handleGetState)
				r.Post("/navigate", h.handleNavigate)
				r.Get("/debug", h.handleDebug)

				r.Route("/nodes", func(r chi.Router) {
					r.Get("/", h.handleListNodes)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.handleGetNode)
						r.Get("/stats", h.handleGetNodeStats)
						r.Get("/graph", h.handleGetNodeGraph)
					})
				})

				r.Route("/streams/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetStream)
					r.Post("/load", h.handleLoadStream)
				})

				r.Get("/map", h.handleGetMap)

				r.Route("/trackers", func(r chi.Router) {
					r.Get("/", h.handleListTrackers)
					r.Post("/load", h.handleLoadTrackers)
				})

				r.Route("/search", func(r chi.Router) {
					r.Put("/", h.handleUpdateSearch)
					r.Delete("/results", h.handleResetSearchResults)
				})

				r.Route("/graphs", func(r chi.Router) {
					r.Get("/interval", h.handleGetInterval)
					r.Put("/interval", h.handleSelectInterval)
				})
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, pattern, status, time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

// recoverBoundary turns a handler panic into a render_failed response. The
// panic is logged; the server keeps serving.
func (h *Handler) recoverBoundary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.log.Error().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("panic", fmt.Sprint(rec)).
				Msg("handler panic recovered")
			h.writeError(w, http.StatusInternalServerError, "render_failed", "something went wrong rendering this view", nil)
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

// writeLoadError maps a controller load error onto the error envelope.
func (h *Handler) writeLoadError(w http.ResponseWriter, resource string, err error) {
	switch {
	case errors.Is(err, controller.ErrStale):
		h.writeError(w, http.StatusConflict, "load_superseded", "a newer load replaced this one", map[string]any{"resource": resource})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusGatewayTimeout, "load_timeout", "load did not finish in time", map[string]any{"resource": resource})
	default:
		h.writeError(w, http.StatusBadGateway, "load_failed", "failed to load "+resource, map[string]any{"resource": resource, "error": err.Error()})
	}
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

// pathParam returns an unescaped URL parameter; stream ids may carry an
// encoded "/".
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func parseLimitParam(value string, fallback, max int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("invalid value")
	}
	if parsed <= 0 {
		return 0, errors.New("must be positive")
	}
	if parsed > max {
		parsed = max
	}
	return parsed, nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleReadyZ reports ready once a node set is available and the database,
// when configured, answers.
func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
			return
		}
	}

	if h.ctrl == nil {
		h.writeError(w, http.StatusServiceUnavailable, "not_loaded", "controller not configured", nil)
		return
	}
	nodes := len(h.ctrl.Nodes())
	trackers := len(h.ctrl.Trackers())
	if nodes == 0 && trackers == 0 {
		h.writeError(w, http.StatusServiceUnavailable, "not_loaded", "no trackers or nodes loaded yet", h.errorDetails())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "nodes": nodes, "trackers": trackers})
}

func (h *Handler) errorDetails() map[string]any {
	errs := h.ctrl.Snapshot().Errors
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]any, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
