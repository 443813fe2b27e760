package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"netexplorer/core-go/internal/graphs"
	"netexplorer/core-go/internal/metrics"
	"netexplorer/core-go/internal/naming"
	"netexplorer/core-go/internal/pending"
	"netexplorer/core-go/internal/route"
	"netexplorer/core-go/internal/search"
	"netexplorer/core-go/internal/topology"
	"netexplorer/core-go/internal/trackerapi"
)

var (
	// ErrStale is returned by a load whose result was discarded because a
	// newer load of the same resource started after it.
	ErrStale = errors.New("load superseded by a newer one")

	ErrNoStream         = errors.New("stream id is required")
	ErrNoTrackersLoaded = errors.New("no trackers loaded")
)

// Generation keys. Topology loads use topologyResource(streamID).
const (
	resTrackers = "trackers"
	resSearch   = "search"
	resRoute    = "route"
)

func topologyResource(streamID string) string { return "topology:" + streamID }

// TrackerSource is the remote data the controller loads from.
//
// *trackerapi.Client satisfies this.
type TrackerSource interface {
	Trackers(ctx context.Context) ([]topology.Tracker, error)
	Locations(ctx context.Context, tracker topology.Tracker) (map[string]trackerapi.Location, error)
	Topology(ctx context.Context, tracker topology.Tracker, streamID string) (trackerapi.StreamTopology, error)
}

// NodeSaver persists the node set after a successful tracker load.
type NodeSaver interface {
	SaveNodes(ctx context.Context, nodes []topology.Node) error
}

type Options struct {
	// Store and Pending default to fresh instances.
	Store   *topology.Store
	Pending *pending.Registry
	Saver   NodeSaver

	SearchLimit int
	Intervals   []graphs.Interval
	Interval    graphs.Interval
}

// Controller owns every state transition of the dashboard: loads, search
// and route changes. Readers take snapshots.
type Controller struct {
	log         zerolog.Logger
	src         TrackerSource
	store       *topology.Store
	pending     *pending.Registry
	saver       NodeSaver
	selector    *graphs.Selector
	events      *broker
	searchLimit int
	metrics     *metrics.Metrics

	match func(nodes []topology.Node, query string, limit int) []topology.Node
}

func New(log zerolog.Logger, src TrackerSource, opts Options, m *metrics.Metrics) (*Controller, error) {
	if src == nil {
		return nil, errors.New("controller: tracker source is required")
	}
	store := opts.Store
	if store == nil {
		store = topology.NewStore()
	}
	reg := opts.Pending
	if reg == nil {
		reg = pending.New()
	}
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	c := &Controller{
		log:         log,
		src:         src,
		store:       store,
		pending:     reg,
		saver:       opts.Saver,
		events:      newBroker(),
		searchLimit: limit,
		metrics:     m,
		match:       search.Match,
	}

	sel, err := graphs.NewSelector(opts.Intervals, opts.Interval, func(i graphs.Interval) {
		c.log.Info().Str("interval", string(i)).Msg("graph interval changed")
		c.events.publish(EventIntervalChanged, map[string]any{"interval": i, "label": i.Label()})
	})
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	c.selector = sel

	reg.Observe(func(name string, busy bool) {
		m.SetPending(name, busy)
		c.events.publish(EventPendingChanged, map[string]any{"resource": name, "pending": busy})
	})
	return c, nil
}

// LoadTrackers fetches the tracker list and the node set behind it. On
// failure the previous trackers and nodes stay in place and the trackers
// error flag is set.
func (c *Controller) LoadTrackers(ctx context.Context) error {
	gen := c.store.NextGeneration(resTrackers)
	tok := c.pending.Begin(pending.Trackers)
	defer c.pending.End(tok)
	start := time.Now()

	c.log.Debug().Uint64("generation", gen).Msg("loading trackers")

	trackers, err := c.src.Trackers(ctx)
	if err != nil {
		return c.loadFailed(resTrackers, pending.Trackers, gen, start, fmt.Errorf("load trackers: %w", err))
	}
	nodes, err := c.loadNodes(ctx, trackers)
	if err != nil {
		return c.loadFailed(resTrackers, pending.Trackers, gen, start, fmt.Errorf("load nodes: %w", err))
	}

	var (
		replaced    []topology.Node
		text        string
		textChanged bool
	)
	applied := c.store.Commit(resTrackers, gen, func(tx *topology.Tx) {
		r := routeOf(tx.Selection())
		before := DeriveSearchText(r, tx.Nodes())
		tx.ReplaceTrackers(trackers)
		tx.ReplaceNodes(nodes)
		tx.SetError(pending.Trackers, "")
		replaced = tx.Nodes()

		// The active node title can appear or change with a new node set.
		if after := DeriveSearchText(r, replaced); after != before {
			tx.SetSearchText(after)
			text, textChanged = after, true
		}
	})
	if !applied {
		return c.discard(resTrackers, gen, start)
	}

	c.metrics.ObserveLoad(resTrackers, "ok", time.Since(start))
	c.metrics.SetNodeCount(len(replaced))
	c.log.Info().
		Int("trackers", len(trackers)).
		Int("nodes", len(replaced)).
		Dur("duration", time.Since(start)).
		Msg("trackers loaded")
	c.events.publish(EventNodesReplaced, map[string]any{"trackers": len(trackers), "nodes": len(replaced)})

	if c.saver != nil {
		if err := c.saver.SaveNodes(ctx, replaced); err != nil {
			c.log.Warn().Err(err).Msg("persist node set failed")
		}
	}

	if textChanged {
		c.events.publish(EventSearchUpdated, map[string]any{"searchText": text})
		if text != "" {
			if err := c.Search(ctx); err != nil && !errors.Is(err, ErrStale) {
				c.log.Warn().Err(err).Msg("search after node reload failed")
			}
		}
	}
	return nil
}

// loadNodes fetches locations from every tracker and unions them by id.
// Trackers earlier in the list win on conflicts. The load only fails when
// every tracker fails.
func (c *Controller) loadNodes(ctx context.Context, trackers []topology.Tracker) ([]topology.Node, error) {
	tok := c.pending.Begin(pending.Nodes)
	defer c.pending.End(tok)

	results := make([]map[string]trackerapi.Location, len(trackers))
	errs := make([]error, len(trackers))
	var wg sync.WaitGroup
	for i, tr := range trackers {
		wg.Add(1)
		go func(i int, tr topology.Tracker) {
			defer wg.Done()
			results[i], errs[i] = c.src.Locations(ctx, tr)
		}(i, tr)
	}
	wg.Wait()

	var failed []error
	seen := make(map[string]struct{})
	nodes := make([]topology.Node, 0)
	for i, tr := range trackers {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			c.log.Warn().Err(errs[i]).Str("tracker", tr.ID).Msg("tracker locations failed")
			continue
		}
		ids := make([]string, 0, len(results[i]))
		for id := range results[i] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			nodes = append(nodes, nodeFromLocation(id, results[i][id]))
		}
	}
	if len(trackers) > 0 && len(failed) == len(trackers) {
		return nil, errors.Join(failed...)
	}
	return nodes, nil
}

func nodeFromLocation(id string, loc trackerapi.Location) topology.Node {
	n := topology.Node{
		ID:    id,
		Title: naming.ChooseTitle(id, []naming.Candidate{{Name: loc.Title, Source: "tracker"}}),
	}
	if loc.Latitude != nil {
		n.Latitude = *loc.Latitude
	}
	if loc.Longitude != nil {
		n.Longitude = *loc.Longitude
	}
	n.PlaceName = loc.City
	if n.PlaceName == "" {
		n.PlaceName = loc.Country
	}
	return n
}

// LoadTopology fetches the topology of streamID from every loaded tracker
// and replaces that stream. On failure the previous topology stays.
func (c *Controller) LoadTopology(ctx context.Context, streamID string) error {
	if streamID == "" {
		return ErrNoStream
	}
	res := topologyResource(streamID)
	gen := c.store.NextGeneration(res)
	tok := c.pending.Begin(pending.Topology)
	defer c.pending.End(tok)
	start := time.Now()

	c.log.Debug().Str("stream_id", streamID).Uint64("generation", gen).Msg("loading topology")

	trackers := c.store.Trackers()
	if len(trackers) == 0 {
		return c.loadFailed(res, pending.Topology, gen, start, fmt.Errorf("load topology of %q: %w", streamID, ErrNoTrackersLoaded))
	}

	parts := make([]trackerapi.StreamTopology, len(trackers))
	errs := make([]error, len(trackers))
	var wg sync.WaitGroup
	for i, tr := range trackers {
		wg.Add(1)
		go func(i int, tr topology.Tracker) {
			defer wg.Done()
			parts[i], errs[i] = c.src.Topology(ctx, tr, streamID)
		}(i, tr)
	}
	wg.Wait()

	var failed []error
	ok := make([]trackerapi.StreamTopology, 0, len(parts))
	for i, err := range errs {
		if err != nil {
			failed = append(failed, err)
			continue
		}
		ok = append(ok, parts[i])
	}
	if len(ok) == 0 {
		return c.loadFailed(res, pending.Topology, gen, start, fmt.Errorf("load topology of %q: %w", streamID, errors.Join(failed...)))
	}

	st := MergeTopology(streamID, ok)
	applied := c.store.Commit(res, gen, func(tx *topology.Tx) {
		tx.ReplaceStream(st)
		tx.SetError(pending.Topology, "")
	})
	if !applied {
		return c.discard(res, gen, start)
	}

	c.metrics.ObserveLoad(pending.Topology, "ok", time.Since(start))
	c.log.Info().
		Str("stream_id", streamID).
		Int("nodes", len(st.NodeIDs)).
		Int("edges", len(st.Edges)).
		Int("failed_trackers", len(failed)).
		Msg("topology loaded")
	c.events.publish(EventTopologyReplaced, map[string]any{"streamId": streamID, "nodes": len(st.NodeIDs), "edges": len(st.Edges)})
	return nil
}

// MergeTopology folds per-tracker stream topologies into one stream. Each
// directed edge is kept once; the first reported latency wins.
func MergeTopology(streamID string, parts []trackerapi.StreamTopology) topology.Stream {
	nodeSet := make(map[string]struct{})
	type edgeKey struct{ from, to string }
	edges := make(map[edgeKey]topology.Edge)

	for _, part := range parts {
		keys := make([]string, 0, len(part))
		for k := range part {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for from, neighbors := range part[k] {
				if from == "" {
					continue
				}
				nodeSet[from] = struct{}{}
				for _, nb := range neighbors {
					if nb.NeighborID == "" || nb.NeighborID == from {
						continue
					}
					nodeSet[nb.NeighborID] = struct{}{}
					key := edgeKey{from: from, to: nb.NeighborID}
					if prev, ok := edges[key]; ok && prev.Latency != nil {
						continue
					}
					e := topology.Edge{From: from, To: nb.NeighborID}
					if nb.RTT != nil {
						v := *nb.RTT
						e.Latency = &v
					}
					edges[key] = e
				}
			}
		}
	}

	st := topology.Stream{ID: streamID, NodeIDs: make([]string, 0, len(nodeSet)), Edges: make([]topology.Edge, 0, len(edges))}
	for id := range nodeSet {
		st.NodeIDs = append(st.NodeIDs, id)
	}
	sort.Strings(st.NodeIDs)
	for _, e := range edges {
		st.Edges = append(st.Edges, e)
	}
	sort.Slice(st.Edges, func(i, j int) bool {
		if st.Edges[i].From != st.Edges[j].From {
			return st.Edges[i].From < st.Edges[j].From
		}
		return st.Edges[i].To < st.Edges[j].To
	})
	return st
}

// UpdateSearch sets the search text. Results are left alone until the next
// Search or ResetSearchResults.
func (c *Controller) UpdateSearch(text string) {
	c.store.Update(func(tx *topology.Tx) {
		tx.SetSearchText(text)
		c.events.publish(EventSearchUpdated, map[string]any{"searchText": text})
	})
}

// ResetSearchResults clears the results and invalidates any search still
// running. Safe to call repeatedly.
func (c *Controller) ResetSearchResults() {
	c.store.Update(func(tx *topology.Tx) {
		tx.NextGeneration(resSearch)
		tx.ResetSearchResults()
		c.events.publish(EventSearchReset, nil)
	})
}

// Search computes results for the current search text over the current node
// set. Results are dropped if the text, the route or a newer search moved on
// while it ran.
func (c *Controller) Search(ctx context.Context) error {
	tok := c.pending.Begin(pending.Search)
	defer c.pending.End(tok)
	start := time.Now()

	var (
		gen, routeGen uint64
		text          string
		nodes         []topology.Node
	)
	c.store.Update(func(tx *topology.Tx) {
		gen = tx.NextGeneration(resSearch)
		routeGen = tx.Generation(resRoute)
		text = tx.SearchText()
		nodes = tx.Nodes()
	})

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	results := c.match(nodes, text, c.searchLimit)

	applied := false
	c.store.Update(func(tx *topology.Tx) {
		if tx.Generation(resSearch) != gen || tx.Generation(resRoute) != routeGen || tx.SearchText() != text {
			return
		}
		tx.SetSearchResults(results)
		applied = true
		c.events.publish(EventSearchUpdated, map[string]any{"searchText": text, "results": len(results)})
	})
	if !applied {
		return c.discard(resSearch, gen, start)
	}

	c.metrics.ObserveLoad(resSearch, "ok", time.Since(start))
	c.log.Debug().Str("query", text).Int("results", len(results)).Msg("search done")
	return nil
}

// Navigate applies a route change: the selection follows the path, search
// state is reset and then re-derived in one step, the stream topology is
// loaded when the stream changed and a search runs for non-empty text.
//
// Navigating to the current route changes nothing.
func (c *Controller) Navigate(ctx context.Context, path string) (route.Route, error) {
	r, err := route.Parse(path)
	if err != nil {
		return route.Route{}, err
	}

	var (
		prev    topology.Selection
		text    string
		changed bool
	)
	c.store.Update(func(tx *topology.Tx) {
		prev = tx.Selection()
		if prev.StreamID == r.StreamID && prev.NodeID == r.NodeID {
			return
		}
		changed = true
		tx.SetSelection(topology.Selection{StreamID: r.StreamID, NodeID: r.NodeID})
		routeGen := tx.NextGeneration(resRoute)

		tx.SetSearchText("")
		tx.ResetSearchResults()

		text = DeriveSearchText(r, tx.Nodes())
		tx.SetSearchText(text)

		// Published under the store lock so concurrent navigations reach
		// subscribers in the order the store applied them.
		c.events.publish(EventRouteChanged, map[string]any{"path": r.Path(), "streamId": r.StreamID, "nodeId": r.NodeID, "generation": routeGen})
		c.events.publish(EventSearchReset, nil)
		c.events.publish(EventSearchUpdated, map[string]any{"searchText": text})
	})
	if !changed {
		return r, nil
	}

	c.log.Debug().Str("path", r.Path()).Str("search_text", text).Msg("route changed")

	var errs []error
	if r.StreamID != "" && r.StreamID != prev.StreamID {
		if err := c.LoadTopology(ctx, r.StreamID); err != nil && !errors.Is(err, ErrStale) {
			errs = append(errs, err)
		}
	}
	if text != "" {
		if err := c.Search(ctx); err != nil && !errors.Is(err, ErrStale) {
			errs = append(errs, err)
		}
	}
	return r, errors.Join(errs...)
}

// Seed warms an empty store with a previously persisted node set. It does
// nothing once a tracker load has started.
func (c *Controller) Seed(nodes []topology.Node) bool {
	seeded := false
	c.store.Update(func(tx *topology.Tx) {
		if tx.Generation(resTrackers) != 0 || len(tx.Nodes()) != 0 {
			return
		}
		tx.ReplaceNodes(nodes)
		seeded = true
	})
	if seeded {
		c.metrics.SetNodeCount(c.store.NodeCount())
		c.log.Info().Int("nodes", len(nodes)).Msg("node set seeded from storage")
	}
	return seeded
}

// loadFailed records err on the error flag. A load that was already
// superseded leaves the flag alone and reports ErrStale instead.
func (c *Controller) loadFailed(res, flag string, gen uint64, start time.Time, err error) error {
	applied := c.store.Commit(res, gen, func(tx *topology.Tx) {
		tx.SetError(flag, err.Error())
	})
	if !applied {
		c.log.Debug().Err(err).Str("resource", res).Msg("superseded load failed")
		return c.discard(res, gen, start)
	}
	c.metrics.ObserveLoad(flag, "error", time.Since(start))
	c.log.Warn().Err(err).Str("resource", res).Uint64("generation", gen).Msg("load failed")
	c.events.publish(EventLoadFailed, map[string]any{"resource": flag, "error": err.Error()})
	return err
}

func (c *Controller) discard(res string, gen uint64, start time.Time) error {
	c.metrics.ObserveLoad(metricResource(res), "stale", time.Since(start))
	c.log.Debug().Str("resource", res).Uint64("generation", gen).Msg("stale result discarded")
	return fmt.Errorf("%s generation %d: %w", res, gen, ErrStale)
}

func metricResource(res string) string {
	if strings.HasPrefix(res, "topology:") {
		return pending.Topology
	}
	return res
}
