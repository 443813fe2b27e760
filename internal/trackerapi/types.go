package trackerapi

// TrackerInfo is one entry of the tracker registry.
type TrackerInfo struct {
	ID   string `json:"id"`
	HTTP string `json:"http"`
	WS   string `json:"ws,omitempty"`
}

// Location is what a tracker knows about a node it serves.
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
	Title     string   `json:"title,omitempty"`
}

// Neighbor is one outgoing connection in a stream topology.
type Neighbor struct {
	NeighborID string   `json:"neighborId"`
	RTT        *float64 `json:"rtt,omitempty"`
}

// StreamTopology maps stream part key -> node id -> neighbors.
type StreamTopology map[string]map[string][]Neighbor

// NodeMetrics are the live stats a tracker reports for a node. Absent values
// are nil.
type NodeMetrics struct {
	MessagesPerSecond *float64 `json:"messagesPerSecond"`
	MBsPerSecond      *float64 `json:"mbsPerSecond"`
	Latency           *float64 `json:"latency"`
}
