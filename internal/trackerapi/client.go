package trackerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"netexplorer/core-go/internal/topology"
)

var ErrNoTrackers = errors.New("no tracker source configured")

// Discoverer finds trackers out of band (for example via DNS SRV records).
type Discoverer interface {
	Discover(ctx context.Context) ([]topology.Tracker, error)
}

type Options struct {
	// Static trackers win over every other source when non-empty.
	Static      []topology.Tracker
	RegistryURL string
	Discovery   Discoverer
	Timeout     time.Duration
}

// Client is a thin HTTP client for the tracker registry and tracker APIs.
type Client struct {
	static      []topology.Tracker
	registryURL string
	discovery   Discoverer
	http        *http.Client
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		static:      append([]topology.Tracker(nil), opts.Static...),
		registryURL: strings.TrimRight(strings.TrimSpace(opts.RegistryURL), "/"),
		discovery:   opts.Discovery,
		http:        &http.Client{Timeout: timeout},
	}
}

// Trackers returns the tracker list from the first configured source:
// static list, registry, then discovery.
func (c *Client) Trackers(ctx context.Context) ([]topology.Tracker, error) {
	switch {
	case len(c.static) > 0:
		return append([]topology.Tracker(nil), c.static...), nil
	case c.registryURL != "":
		var infos []TrackerInfo
		if err := c.getJSON(ctx, c.registryURL+"/trackers", &infos); err != nil {
			return nil, fmt.Errorf("fetch tracker registry: %w", err)
		}
		out := make([]topology.Tracker, 0, len(infos))
		for _, info := range infos {
			if strings.TrimSpace(info.HTTP) == "" {
				continue
			}
			id := info.ID
			if id == "" {
				id = info.HTTP
			}
			out = append(out, topology.Tracker{ID: id, HTTPURL: info.HTTP, WSURL: info.WS})
		}
		return out, nil
	case c.discovery != nil:
		trackers, err := c.discovery.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover trackers: %w", err)
		}
		return trackers, nil
	}
	return nil, ErrNoTrackers
}

// Locations fetches node locations known to tracker.
func (c *Client) Locations(ctx context.Context, tracker topology.Tracker) (map[string]Location, error) {
	var out map[string]Location
	if err := c.getJSON(ctx, trackerURL(tracker, "locations/"), &out); err != nil {
		return nil, fmt.Errorf("fetch locations from %s: %w", tracker.ID, err)
	}
	return out, nil
}

// Topology fetches the topology of streamID as seen by tracker.
func (c *Client) Topology(ctx context.Context, tracker topology.Tracker, streamID string) (StreamTopology, error) {
	var out StreamTopology
	if err := c.getJSON(ctx, trackerURL(tracker, "topology/"+url.PathEscape(streamID)+"/"), &out); err != nil {
		return nil, fmt.Errorf("fetch topology of %q from %s: %w", streamID, tracker.ID, err)
	}
	return out, nil
}

// NodeMetrics fetches live stats of nodeID from tracker.
func (c *Client) NodeMetrics(ctx context.Context, tracker topology.Tracker, nodeID string) (NodeMetrics, error) {
	var out NodeMetrics
	if err := c.getJSON(ctx, trackerURL(tracker, "nodes/"+url.PathEscape(nodeID)+"/metrics"), &out); err != nil {
		return NodeMetrics{}, fmt.Errorf("fetch metrics of %s from %s: %w", nodeID, tracker.ID, err)
	}
	return out, nil
}

func trackerURL(tracker topology.Tracker, path string) string {
	return strings.TrimRight(tracker.HTTPURL, "/") + "/" + path
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	return json.NewDecoder(res.Body).Decode(out)
}
