package route

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNoRoute = errors.New("no route matches path")

// Route is the (stream, node) pair a dashboard path selects.
type Route struct {
	StreamID string `json:"streamId,omitempty"`
	NodeID   string `json:"nodeId,omitempty"`
}

// Parse maps a dashboard path onto a Route. Recognised patterns:
//
//	/streams/:streamId/nodes/:nodeId
//	/streams/:streamId
//	/nodes/:nodeId
//	/
//
// Segments are unescaped, so a stream id containing "/" must be sent as %2F.
func Parse(path string) (Route, error) {
	raw := strings.TrimSpace(path)
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" || raw == "/" {
		return Route{}, nil
	}
	if !strings.HasPrefix(raw, "/") {
		return Route{}, fmt.Errorf("%w: %q", ErrNoRoute, path)
	}
	raw = strings.TrimSuffix(raw[1:], "/")

	parts := strings.Split(raw, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		s, err := url.PathUnescape(p)
		if err != nil {
			return Route{}, fmt.Errorf("%w: %q: %v", ErrNoRoute, path, err)
		}
		if s == "" {
			return Route{}, fmt.Errorf("%w: %q", ErrNoRoute, path)
		}
		segs = append(segs, s)
	}

	switch {
	case len(segs) == 4 && parts[0] == "streams" && parts[2] == "nodes":
		return Route{StreamID: segs[1], NodeID: segs[3]}, nil
	case len(segs) == 2 && parts[0] == "streams":
		return Route{StreamID: segs[1]}, nil
	case len(segs) == 2 && parts[0] == "nodes":
		return Route{NodeID: segs[1]}, nil
	}
	return Route{}, fmt.Errorf("%w: %q", ErrNoRoute, path)
}

// Path renders the canonical path for r.
func (r Route) Path() string {
	switch {
	case r.StreamID != "" && r.NodeID != "":
		return "/streams/" + url.PathEscape(r.StreamID) + "/nodes/" + url.PathEscape(r.NodeID)
	case r.StreamID != "":
		return "/streams/" + url.PathEscape(r.StreamID)
	case r.NodeID != "":
		return "/nodes/" + url.PathEscape(r.NodeID)
	default:
		return "/"
	}
}
