package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"netexplorer/core-go/internal/controller"
	"netexplorer/core-go/internal/graphs"
	"netexplorer/core-go/internal/nodestats"
	"netexplorer/core-go/internal/persist"
	"netexplorer/core-go/internal/topology"
	"netexplorer/core-go/internal/trackerapi"
)

type fakeTrackerSource struct {
	trackersFn func(ctx context.Context) ([]topology.Tracker, error)
	topologyFn func(ctx context.Context, tracker topology.Tracker, streamID string) (trackerapi.StreamTopology, error)
}

func (f *fakeTrackerSource) Trackers(ctx context.Context) ([]topology.Tracker, error) {
	if f.trackersFn == nil {
		return []topology.Tracker{{ID: "t1", HTTPURL: "http://t1"}}, nil
	}
	return f.trackersFn(ctx)
}

func (f *fakeTrackerSource) Locations(ctx context.Context, tracker topology.Tracker) (map[string]trackerapi.Location, error) {
	lat, lon := 60.16952, 24.93545
	return map[string]trackerapi.Location{
		"abc":      {Title: "Warm Fiery Octagon", City: "Helsinki", Latitude: &lat, Longitude: &lon},
		"0xdef123": {Title: "Curved Slick Diamond", Country: "Finland"},
		"0xfeed":   {Title: "Gold Green Fieldmouse", City: "Tampere"},
	}, nil
}

func (f *fakeTrackerSource) Topology(ctx context.Context, tracker topology.Tracker, streamID string) (trackerapi.StreamTopology, error) {
	if f.topologyFn == nil {
		rtt := 12.5
		return trackerapi.StreamTopology{
			"0": {
				"abc":      {{NeighborID: "0xdef123", RTT: &rtt}},
				"0xdef123": {{NeighborID: "abc"}},
			},
		}, nil
	}
	return f.topologyFn(ctx, tracker, streamID)
}

type fakeStats struct {
	fn func(ctx context.Context, nodeID string) (nodestats.Stats, error)
}

func (f fakeStats) Fetch(ctx context.Context, nodeID string) (nodestats.Stats, error) {
	return f.fn(ctx, nodeID)
}

type fakeHistory struct {
	calls []nodestats.StatID
	since time.Time
	err   error
}

func (f *fakeHistory) History(ctx context.Context, nodeID string, stat nodestats.StatID, since time.Time) ([]persist.Point, error) {
	f.calls = append(f.calls, stat)
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	return []persist.Point{{At: since.Add(time.Hour), Value: 3, Source: "snmp"}}, nil
}

func newTestHandler(t *testing.T, src controller.TrackerSource, opts Options) (*Handler, *controller.Controller) {
	t.Helper()
	if src == nil {
		src = &fakeTrackerSource{}
	}
	ctrl, err := controller.New(NewLogger("error"), src, controller.Options{Interval: graphs.Interval24Hours}, nil)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	return NewHandler(NewLogger("error"), nil, ctrl, opts), ctrl
}

func newLoadedHandler(t *testing.T, opts Options) (*Handler, *controller.Controller) {
	t.Helper()
	h, ctrl := newTestHandler(t, nil, opts)
	if err := ctrl.LoadTrackers(context.Background()); err != nil {
		t.Fatalf("LoadTrackers: %v", err)
	}
	return h, ctrl
}

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	h.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode body as json: %v\nbody=%s", err, rr.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rr)
	env, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := env["code"].(string)
	return code
}

func TestState_OK(t *testing.T) {
	h, _ := newTestHandler(t, nil, Options{})

	rr := serve(h, http.MethodGet, "/api/v1/state", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("expected json content-type, got %q", got)
	}
	// Request ID should be set in responses by middleware.
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	body := decodeBody(t, rr)
	if results, ok := body["searchResults"].([]any); !ok || len(results) != 0 {
		t.Fatalf("expected empty searchResults array, got %T %v", body["searchResults"], body["searchResults"])
	}
	if body["activeNode"] != nil {
		t.Fatalf("expected no active node, got %v", body["activeNode"])
	}
	if body["interval"] != "24hours" {
		t.Fatalf("expected 24hours interval, got %v", body["interval"])
	}
}

func TestState_NoController_Returns503(t *testing.T) {
	h := NewHandler(NewLogger("error"), nil, nil, Options{})
	rr := serve(h, http.MethodGet, "/api/v1/state", "")
	if rr.Code != http.StatusServiceUnavailable || errorCode(t, rr) != "not_loaded" {
		t.Fatalf("expected 503 not_loaded, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNavigate_NodeRoute_DerivesSearchText(t *testing.T) {
	h, _ := newLoadedHandler(t, Options{})

	rr := serve(h, http.MethodPost, "/api/v1/navigate", `{"path":"/nodes/abc"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["searchText"] != "Warm Fiery Octagon" {
		t.Fatalf("expected node title as search text, got %v", body["searchText"])
	}
	active, ok := body["activeNode"].(map[string]any)
	if !ok || active["id"] != "abc" {
		t.Fatalf("expected active node abc, got %v", body["activeNode"])
	}
	results, _ := body["searchResults"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected one search result, got %v", body["searchResults"])
	}
}

func TestNavigate_StreamRoute_LoadsTopology(t *testing.T) {
	h, ctrl := newLoadedHandler(t, Options{})

	rr := serve(h, http.MethodPost, "/api/v1/navigate", `{"path":"/streams/s%2F1/nodes/abc"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["searchText"] != "s/1" || body["streamId"] != "s/1" {
		t.Fatalf("expected stream id to win, got %v", body)
	}
	if _, ok := ctrl.Stream("s/1"); !ok {
		t.Fatalf("expected stream topology to be loaded")
	}
}

func TestNavigate_LoadFailure_StillApplies(t *testing.T) {
	src := &fakeTrackerSource{topologyFn: func(ctx context.Context, tracker topology.Tracker, streamID string) (trackerapi.StreamTopology, error) {
		return nil, errors.New("tracker unreachable")
	}}
	h, ctrl := newTestHandler(t, src, Options{})
	if err := ctrl.LoadTrackers(context.Background()); err != nil {
		t.Fatalf("LoadTrackers: %v", err)
	}

	rr := serve(h, http.MethodPost, "/api/v1/navigate", `{"path":"/streams/s1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	errs, _ := body["errors"].(map[string]any)
	if _, ok := errs["topology"]; !ok {
		t.Fatalf("expected topology error flag, got %v", body["errors"])
	}
	if body["streamId"] != "s1" {
		t.Fatalf("expected route applied, got %v", body["streamId"])
	}
}

func TestNavigate_UnknownPath_Returns404(t *testing.T) {
	h, _ := newTestHandler(t, nil, Options{})
	rr := serve(h, http.MethodPost, "/api/v1/navigate", `{"path":"/devices/abc"}`)
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "route_not_found" {
		t.Fatalf("expected 404 route_not_found, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNavigate_RejectsUnknownFields(t *testing.T) {
	h, _ := newTestHandler(t, nil, Options{})
	rr := serve(h, http.MethodPost, "/api/v1/navigate", `{"path":"/","extra":true}`)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "validation_failed" {
		t.Fatalf("expected 400 validation_failed, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNodes_ListAndGet(t *testing.T) {
	h, _ := newLoadedHandler(t, Options{})

	rr := serve(h, http.MethodGet, "/api/v1/nodes", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var nodes []topology.Node
	if err := json.Unmarshal(rr.Body.Bytes(), &nodes); err != nil {
		t.Fatalf("decode nodes: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %+v", nodes)
	}

	rr = serve(h, http.MethodGet, "/api/v1/nodes/abc", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["placeName"] != "Helsinki" {
		t.Fatalf("unexpected node %v", body)
	}

	rr = serve(h, http.MethodGet, "/api/v1/nodes/missing", "")
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "not_found" {
		t.Fatalf("expected 404 not_found, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestTrackers_Load_FailureKeepsStateAndFlags(t *testing.T) {
	fail := false
	src := &fakeTrackerSource{trackersFn: func(ctx context.Context) ([]topology.Tracker, error) {
		if fail {
			return nil, errors.New("registry down")
		}
		return []topology.Tracker{{ID: "t1", HTTPURL: "http://t1"}}, nil
	}}
	h, _ := newTestHandler(t, src, Options{})

	rr := serve(h, http.MethodPost, "/api/v1/trackers/load", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["nodes"] != float64(3) {
		t.Fatalf("expected 3 nodes, got %v", body)
	}

	fail = true
	rr = serve(h, http.MethodPost, "/api/v1/trackers/load", "")
	if rr.Code != http.StatusBadGateway || errorCode(t, rr) != "load_failed" {
		t.Fatalf("expected 502 load_failed, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = serve(h, http.MethodGet, "/api/v1/trackers", "")
	var trackers []topology.Tracker
	if err := json.Unmarshal(rr.Body.Bytes(), &trackers); err != nil || len(trackers) != 1 {
		t.Fatalf("expected previous trackers kept, got %s (%v)", rr.Body.String(), err)
	}

	body := decodeBody(t, serve(h, http.MethodGet, "/api/v1/state", ""))
	errs, _ := body["errors"].(map[string]any)
	if _, ok := errs["trackers"]; !ok {
		t.Fatalf("expected trackers error flag, got %v", body["errors"])
	}
}

func TestStreams_LoadAndGet(t *testing.T) {
	h, _ := newLoadedHandler(t, Options{})

	rr := serve(h, http.MethodGet, "/api/v1/streams/s1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before load, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = serve(h, http.MethodPost, "/api/v1/streams/s1/load", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var st topology.Stream
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stream: %v", err)
	}
	if st.ID != "s1" || len(st.NodeIDs) != 2 || len(st.Edges) != 2 {
		t.Fatalf("unexpected stream %+v", st)
	}
}

func TestStreams_Load_WithoutTrackers_Returns502(t *testing.T) {
	h, _ := newTestHandler(t, nil, Options{})
	rr := serve(h, http.MethodPost, "/api/v1/streams/s1/load", "")
	if rr.Code != http.StatusBadGateway || errorCode(t, rr) != "load_failed" {
		t.Fatalf("expected 502 load_failed, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSearch_UpdateAndReset(t *testing.T) {
	h, _ := newLoadedHandler(t, Options{})

	rr := serve(h, http.MethodPut, "/api/v1/search", `{"text":"0x"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if results, _ := body["searchResults"].([]any); len(results) != 2 {
		t.Fatalf("expected 2 results for id prefix, got %v", body["searchResults"])
	}

	rr = serve(h, http.MethodDelete, "/api/v1/search/results", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}

	state := decodeBody(t, serve(h, http.MethodGet, "/api/v1/state", ""))
	if state["searchText"] != "0x" {
		t.Fatalf("expected search text kept after reset, got %v", state["searchText"])
	}
	if results, _ := state["searchResults"].([]any); len(results) != 0 {
		t.Fatalf("expected results cleared, got %v", state["searchResults"])
	}
}

func TestSearch_EmptyTextHasNoResults(t *testing.T) {
	h, _ := newLoadedHandler(t, Options{})
	body := decodeBody(t, serve(h, http.MethodPut, "/api/v1/search", `{"text":""}`))
	if results, ok := body["searchResults"].([]any); !ok || len(results) != 0 {
		t.Fatalf("expected empty results, got %v", body["searchResults"])
	}
}

func TestInterval_Select(t *testing.T) {
	h, ctrl := newTestHandler(t, nil, Options{})

	rr := serve(h, http.MethodPut, "/api/v1/graphs/interval", `{"interval":"1month"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["interval"] != "1month" || body["changed"] != true || body["label"] != "1 Month" {
		t.Fatalf("unexpected interval state %v", body)
	}

	// Selecting the active option is a no-op.
	body = decodeBody(t, serve(h, http.MethodPut, "/api/v1/graphs/interval", `{"interval":"1month"}`))
	if body["changed"] != false {
		t.Fatalf("expected changed=false, got %v", body)
	}

	ctrl.SetGraphsDisabled(true)
	rr = serve(h, http.MethodPut, "/api/v1/graphs/interval", `{"interval":"all"}`)
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "interval_disabled" {
		t.Fatalf("expected 409 interval_disabled, got %d: %s", rr.Code, rr.Body.String())
	}
	if ctrl.Interval() != graphs.Interval1Month {
		t.Fatalf("disabled selector changed interval to %q", ctrl.Interval())
	}

	body = decodeBody(t, serve(h, http.MethodGet, "/api/v1/graphs/interval", ""))
	if body["disabled"] != true {
		t.Fatalf("expected disabled selector, got %v", body)
	}
}

func TestInterval_Unknown_Returns400(t *testing.T) {
	h, _ := newTestHandler(t, nil, Options{})
	rr := serve(h, http.MethodPut, "/api/v1/graphs/interval", `{"interval":"1week"}`)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != "validation_failed" {
		t.Fatalf("expected 400 validation_failed, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNodeStats(t *testing.T) {
	v := 41.0
	stats := fakeStats{fn: func(ctx context.Context, nodeID string) (nodestats.Stats, error) {
		return nodestats.Stats{
			NodeID: nodeID,
			Source: "tracker",
			Stats: []nodestats.Stat{
				{ID: nodestats.MessagesPerSecond, Label: "Msgs / sec", Value: &v},
				{ID: nodestats.Latency, Label: "Latency ms", Failure: nodestats.FailureMessage(nodestats.Latency)},
			},
		}, nil
	}}
	h, _ := newLoadedHandler(t, Options{Stats: stats})

	rr := serve(h, http.MethodGet, "/api/v1/nodes/abc/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got nodestats.Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if len(got.Stats) != 2 || got.Stats[1].Failure != "Failed to load latency" {
		t.Fatalf("expected a per-stat failure next to loaded values, got %+v", got)
	}

	rr = serve(h, http.MethodGet, "/api/v1/nodes/missing/stats", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNodeStats_Unavailable(t *testing.T) {
	h, _ := newLoadedHandler(t, Options{})
	rr := serve(h, http.MethodGet, "/api/v1/nodes/abc/stats", "")
	if rr.Code != http.StatusServiceUnavailable || errorCode(t, rr) != "stats_unavailable" {
		t.Fatalf("expected 503 stats_unavailable, got %d: %s", rr.Code, rr.Body.String())
	}

	noTarget := fakeStats{fn: func(ctx context.Context, nodeID string) (nodestats.Stats, error) {
		return nodestats.Stats{}, nodestats.ErrNoTarget
	}}
	h, _ = newLoadedHandler(t, Options{Stats: noTarget})
	rr = serve(h, http.MethodGet, "/api/v1/nodes/abc/stats", "")
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "no_stats_target" {
		t.Fatalf("expected 404 no_stats_target, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNodeGraph_UsesActiveInterval(t *testing.T) {
	hist := &fakeHistory{}
	h, _ := newLoadedHandler(t, Options{History: hist})
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	rr := serve(h, http.MethodGet, "/api/v1/nodes/abc/graph", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(hist.calls) != len(nodestats.AllStats) {
		t.Fatalf("expected one query per stat, got %v", hist.calls)
	}
	if !hist.since.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("expected 24h window, got %v", hist.since)
	}

	hist.calls = nil
	rr = serve(h, http.MethodGet, "/api/v1/nodes/abc/graph?stat=latency&interval=all", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if _, ok := body["since"]; ok {
		t.Fatalf("expected no lower bound for all, got %v", body["since"])
	}
	if len(hist.calls) != 1 || hist.calls[0] != nodestats.Latency {
		t.Fatalf("expected latency only, got %v", hist.calls)
	}

	rr = serve(h, http.MethodGet, "/api/v1/nodes/abc/graph?stat=jitter", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stat, got %d", rr.Code)
	}
}

func TestNodeGraph_NoHistory_Returns503(t *testing.T) {
	h, _ := newLoadedHandler(t, Options{})
	rr := serve(h, http.MethodGet, "/api/v1/nodes/abc/graph", "")
	if rr.Code != http.StatusServiceUnavailable || errorCode(t, rr) != "db_unavailable" {
		t.Fatalf("expected 503 db_unavailable, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	h, ctrl := newTestHandler(t, nil, Options{})

	rr := serve(h, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable || errorCode(t, rr) != "not_loaded" {
		t.Fatalf("expected 503 not_loaded, got %d: %s", rr.Code, rr.Body.String())
	}

	if err := ctrl.LoadTrackers(context.Background()); err != nil {
		t.Fatalf("LoadTrackers: %v", err)
	}
	rr = serve(h, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestMetrics_NotConfigured_Returns503(t *testing.T) {
	h, _ := newTestHandler(t, nil, Options{})
	rr := serve(h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRecoverBoundary_RendersFallback(t *testing.T) {
	h, _ := newTestHandler(t, nil, Options{})
	panicking := h.recoverBoundary(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil node in view")
	}))

	rr := httptest.NewRecorder()
	panicking.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rr.Code != http.StatusInternalServerError || errorCode(t, rr) != "render_failed" {
		t.Fatalf("expected 500 render_failed, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestEvents_StreamsSnapshotThenChanges(t *testing.T) {
	h, ctrl := newLoadedHandler(t, Options{Heartbeat: time.Hour})
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	nextEvent := func() string {
		for scanner.Scan() {
			line := scanner.Text()
			if name, ok := strings.CutPrefix(line, "event: "); ok {
				return name
			}
		}
		t.Fatalf("stream ended: %v", scanner.Err())
		return ""
	}

	if got := nextEvent(); got != "snapshot" {
		t.Fatalf("expected snapshot first, got %q", got)
	}

	ctrl.UpdateSearch("helsinki")
	if got := nextEvent(); got != string(controller.EventSearchUpdated) {
		t.Fatalf("expected search_updated, got %q", got)
	}
}
