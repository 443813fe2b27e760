package controller

import (
	"netexplorer/core-go/internal/graphs"
	"netexplorer/core-go/internal/pending"
	"netexplorer/core-go/internal/topology"
)

// View is the read-only state a dashboard renders from.
type View struct {
	ActiveNode    *topology.Node    `json:"activeNode"`
	StreamID      string            `json:"streamId"`
	NodeID        string            `json:"nodeId"`
	SearchText    string            `json:"searchText"`
	SearchResults []topology.Node   `json:"searchResults"`
	Pending       map[string]bool   `json:"pending"`
	Loading       bool              `json:"loading"`
	Errors        map[string]string `json:"errors"`
	Interval      graphs.Interval   `json:"interval"`
	Intervals     []graphs.Option   `json:"intervals"`
}

func (c *Controller) Snapshot() View {
	var v View
	c.store.Read(func(tx *topology.Tx) {
		sel := tx.Selection()
		v.StreamID = sel.StreamID
		v.NodeID = sel.NodeID
		if n, ok := tx.Node(sel.NodeID); ok && sel.NodeID != "" {
			v.ActiveNode = &n
		}
		v.SearchText = tx.SearchText()
		v.SearchResults = tx.SearchResults()
		v.Errors = tx.Errors()
	})
	if v.SearchResults == nil {
		v.SearchResults = []topology.Node{}
	}
	v.Pending = c.pending.Snapshot()
	v.Loading = c.pending.Any(pending.Trackers, pending.Nodes, pending.Topology, pending.Search)
	v.Interval = c.selector.Active()
	v.Intervals = c.selector.Options()
	return v
}

func (c *Controller) Nodes() []topology.Node { return c.store.Nodes() }

func (c *Controller) Node(id string) (topology.Node, bool) { return c.store.Node(id) }

func (c *Controller) Trackers() []topology.Tracker { return c.store.Trackers() }

func (c *Controller) Stream(id string) (topology.Stream, bool) { return c.store.Stream(id) }

func (c *Controller) Selection() topology.Selection { return c.store.Selection() }

// SelectInterval changes the graph interval. See graphs.Selector.Select.
func (c *Controller) SelectInterval(i graphs.Interval) (bool, error) {
	return c.selector.Select(i)
}

func (c *Controller) SetGraphsDisabled(disabled bool) {
	c.selector.SetDisabled(disabled)
}

func (c *Controller) GraphsDisabled() bool { return c.selector.Disabled() }

func (c *Controller) Interval() graphs.Interval { return c.selector.Active() }

func (c *Controller) IntervalOptions() []graphs.Option { return c.selector.Options() }

// Subscribe returns a channel of controller events and a cancel func that
// closes it. Events are dropped for a subscriber whose buffer is full.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	return c.events.subscribe(buffer)
}

// Debug is a diagnostic dump of controller internals.
type Debug struct {
	Pending       map[string]bool   `json:"pending"`
	Outstanding   map[string]int    `json:"outstanding"`
	Generations   map[string]uint64 `json:"generations"`
	Nodes         int               `json:"nodes"`
	Trackers      int               `json:"trackers"`
	Streams       int               `json:"streams"`
	Subscribers   int               `json:"subscribers"`
	DroppedEvents uint64            `json:"droppedEvents"`
}

func (c *Controller) Debug() Debug {
	d := Debug{
		Pending:     c.pending.Snapshot(),
		Outstanding: make(map[string]int),
		Generations: c.store.Generations(),
		Nodes:       c.store.NodeCount(),
		Trackers:    len(c.store.Trackers()),
		Streams:     c.store.StreamCount(),
	}
	for _, name := range c.pending.Names() {
		d.Outstanding[name] = c.pending.Outstanding(name)
	}
	d.Subscribers, d.DroppedEvents = c.events.stats()
	return d
}
