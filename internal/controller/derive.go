package controller

import (
	"netexplorer/core-go/internal/route"
	"netexplorer/core-go/internal/topology"
)

// DeriveSearchText returns the search text a route implies: the stream id
// when one is selected, else the title of the active node, else "".
func DeriveSearchText(r route.Route, nodes []topology.Node) string {
	if r.StreamID != "" {
		return r.StreamID
	}
	if r.NodeID == "" {
		return ""
	}
	for _, n := range nodes {
		if n.ID == r.NodeID {
			return n.Title
		}
	}
	return ""
}

func routeOf(sel topology.Selection) route.Route {
	return route.Route{StreamID: sel.StreamID, NodeID: sel.NodeID}
}
