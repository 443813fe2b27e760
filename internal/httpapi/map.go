package httpapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"netexplorer/core-go/internal/route"
	"netexplorer/core-go/internal/topology"
)

const (
	mapMaxRegions = 64
	mapMaxNodes   = 2000
	mapMaxEdges   = 4000
)

type mapProjection struct {
	Focus      *mapFocus     `json:"focus,omitempty"`
	Guidance   *string       `json:"guidance,omitempty"`
	Regions    []mapRegion   `json:"regions"`
	Nodes      []mapNode     `json:"nodes"`
	Edges      []mapEdge     `json:"edges"`
	Inspector  *mapInspector `json:"inspector,omitempty"`
	Truncation mapTruncation `json:"truncation"`
}

type mapFocus struct {
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	Label *string `json:"label,omitempty"`
}

type mapTruncation struct {
	Regions mapTruncationMetric `json:"regions"`
	Nodes   mapTruncationMetric `json:"nodes"`
	Edges   mapTruncationMetric `json:"edges"`
}

type mapTruncationMetric struct {
	Returned  int     `json:"returned"`
	Limit     int     `json:"limit"`
	Truncated bool    `json:"truncated"`
	Total     *int    `json:"total,omitempty"`
	Warning   *string `json:"warning,omitempty"`
}

// mapRegion groups nodes that share a place name.
type mapRegion struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Nodes int    `json:"nodes"`
}

type mapNode struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	PrimaryRegionID *string `json:"primary_region_id,omitempty"`
	Active          bool    `json:"active,omitempty"`
}

type mapEdge struct {
	ID      string   `json:"id"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Latency *float64 `json:"latency,omitempty"`
}

type mapInspector struct {
	Title         string                 `json:"title"`
	Identity      []mapInspectorField    `json:"identity"`
	Status        []mapInspectorField    `json:"status"`
	Relationships []mapInspectorRelation `json:"relationships"`
}

type mapInspectorField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type mapInspectorRelation struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// handleGetMap projects the node set onto the map. With a stream (from
// ?stream= or the current selection) only that stream's nodes and edges are
// returned; otherwise all nodes without edges.
func (h *Handler) handleGetMap(w http.ResponseWriter, r *http.Request) {
	if !h.ensureController(w) {
		return
	}

	q := r.URL.Query()
	limitHint, err := parseLimitParam(q.Get("limit"), mapMaxNodes, mapMaxNodes)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid limit", map[string]any{"error": err.Error()})
		return
	}
	regionLimit := min(mapMaxRegions, limitHint)
	nodeLimit := limitHint
	edgeLimit := min(mapMaxEdges, 2*limitHint)

	sel := h.ctrl.Selection()
	streamID := strings.TrimSpace(q.Get("stream"))
	if streamID == "" {
		streamID = sel.StreamID
	}

	nodes := h.ctrl.Nodes()
	if len(nodes) == 0 {
		guidance := "No nodes loaded yet. Load trackers to populate the map."
		resp := emptyMapProjection(&guidance, regionLimit, nodeLimit, edgeLimit)
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	var edges []topology.Edge
	if streamID != "" {
		st, ok := h.ctrl.Stream(streamID)
		if !ok {
			h.writeError(w, http.StatusNotFound, "not_found", "stream topology not loaded", map[string]any{"id": streamID})
			return
		}
		nodes = streamNodes(nodes, st)
		edges = st.Edges
	}

	resp := emptyMapProjection(nil, regionLimit, nodeLimit, edgeLimit)
	if streamID != "" {
		resp.Focus = &mapFocus{Type: "stream", ID: streamID}
	}

	// Regions first so nodes can reference them.
	regionCounts := map[string]int{}
	for _, n := range nodes {
		if place := strings.TrimSpace(n.PlaceName); place != "" {
			regionCounts[place]++
		}
	}
	places := make([]string, 0, len(regionCounts))
	for p := range regionCounts {
		places = append(places, p)
	}
	sort.Strings(places)
	kept := map[string]string{}
	for _, p := range places {
		if len(resp.Regions) >= regionLimit {
			break
		}
		id := regionID(p)
		kept[p] = id
		resp.Regions = append(resp.Regions, mapRegion{ID: id, Label: p, Nodes: regionCounts[p]})
	}
	setTruncation(&resp.Truncation.Regions, len(resp.Regions), len(places), "regions")

	included := map[string]struct{}{}
	for _, n := range nodes {
		if len(resp.Nodes) >= nodeLimit {
			break
		}
		mn := mapNode{
			ID:        n.ID,
			Label:     n.Title,
			Latitude:  n.Latitude,
			Longitude: n.Longitude,
			Active:    n.ID == sel.NodeID,
		}
		if id, ok := kept[strings.TrimSpace(n.PlaceName)]; ok {
			mn.PrimaryRegionID = &id
		}
		resp.Nodes = append(resp.Nodes, mn)
		included[n.ID] = struct{}{}
	}
	setTruncation(&resp.Truncation.Nodes, len(resp.Nodes), len(nodes), "nodes")

	visibleEdges := 0
	for _, e := range edges {
		_, okFrom := included[e.From]
		_, okTo := included[e.To]
		if !okFrom || !okTo {
			continue
		}
		visibleEdges++
		if len(resp.Edges) >= edgeLimit {
			continue
		}
		resp.Edges = append(resp.Edges, mapEdge{ID: e.From + "|" + e.To, From: e.From, To: e.To, Latency: e.Latency})
	}
	setTruncation(&resp.Truncation.Edges, len(resp.Edges), visibleEdges, "edges")

	if n, ok := h.ctrl.Node(sel.NodeID); ok && sel.NodeID != "" {
		if resp.Focus == nil {
			label := n.Title
			resp.Focus = &mapFocus{Type: "node", ID: n.ID, Label: &label}
		}
		resp.Inspector = buildNodeInspector(n, sel.StreamID, edges)
	}

	sortMapProjection(&resp)
	h.writeJSON(w, http.StatusOK, resp)
}

func emptyMapProjection(guidance *string, regionLimit, nodeLimit, edgeLimit int) mapProjection {
	return mapProjection{
		Guidance: guidance,
		Regions:  []mapRegion{},
		Nodes:    []mapNode{},
		Edges:    []mapEdge{},
		Truncation: mapTruncation{
			Regions: mapTruncationMetric{Returned: 0, Limit: regionLimit, Truncated: false},
			Nodes:   mapTruncationMetric{Returned: 0, Limit: nodeLimit, Truncated: false},
			Edges:   mapTruncationMetric{Returned: 0, Limit: edgeLimit, Truncated: false},
		},
	}
}

func setTruncation(m *mapTruncationMetric, returned, total int, what string) {
	m.Returned = returned
	if total <= returned {
		return
	}
	t := total
	warning := fmt.Sprintf("showing %d of %d %s", returned, total, what)
	m.Truncated = true
	m.Total = &t
	m.Warning = &warning
}

// streamNodes keeps the nodes carrying st, in node-list order.
func streamNodes(nodes []topology.Node, st topology.Stream) []topology.Node {
	member := make(map[string]struct{}, len(st.NodeIDs))
	for _, id := range st.NodeIDs {
		member[id] = struct{}{}
	}
	out := make([]topology.Node, 0, len(st.NodeIDs))
	for _, n := range nodes {
		if _, ok := member[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

func regionID(place string) string {
	return "place:" + strings.ToLower(place)
}

func buildNodeInspector(n topology.Node, streamID string, edges []topology.Edge) *mapInspector {
	identity := []mapInspectorField{
		{Label: "ID", Value: n.ID},
		{Label: "Title", Value: n.Title},
	}
	if strings.TrimSpace(n.PlaceName) != "" {
		identity = append(identity, mapInspectorField{Label: "Place", Value: n.PlaceName})
	}
	identity = append(identity, mapInspectorField{
		Label: "Coordinates",
		Value: fmt.Sprintf("%.4f, %.4f", n.Latitude, n.Longitude),
	})

	var status []mapInspectorField
	rels := []mapInspectorRelation{{Label: "View node", Path: route.Route{NodeID: n.ID}.Path()}}
	if streamID != "" {
		neighbors := 0
		for _, e := range edges {
			if e.From == n.ID || e.To == n.ID {
				neighbors++
			}
		}
		status = append(status,
			mapInspectorField{Label: "Stream", Value: streamID},
			mapInspectorField{Label: "Neighbors", Value: fmt.Sprint(neighbors)},
		)
		rels = append(rels, mapInspectorRelation{Label: "View in stream", Path: route.Route{StreamID: streamID, NodeID: n.ID}.Path()})
	}
	if status == nil {
		status = []mapInspectorField{}
	}

	return &mapInspector{
		Title:         n.Title,
		Identity:      identity,
		Status:        status,
		Relationships: rels,
	}
}

func sortMapProjection(p *mapProjection) {
	sort.SliceStable(p.Regions, func(i, j int) bool { return p.Regions[i].ID < p.Regions[j].ID })
	sort.SliceStable(p.Nodes, func(i, j int) bool { return p.Nodes[i].ID < p.Nodes[j].ID })
	sort.SliceStable(p.Edges, func(i, j int) bool { return p.Edges[i].ID < p.Edges[j].ID })
}
