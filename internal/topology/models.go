package topology

// Node is a network node as shown on the map and in the node list.
type Node struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceName string  `json:"placeName"`
}

// Tracker describes a data source nodes are loaded from.
type Tracker struct {
	ID      string `json:"id"`
	HTTPURL string `json:"http"`
	WSURL   string `json:"ws,omitempty"`
}

type Edge struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Latency *float64 `json:"latency,omitempty"`
}

// Stream is the topology of a single stream: the nodes carrying it and the
// neighbor connections between them.
type Stream struct {
	ID      string   `json:"id"`
	NodeIDs []string `json:"nodeIds"`
	Edges   []Edge   `json:"edges"`
}

// Selection is the route-derived active stream and node.
type Selection struct {
	StreamID string `json:"streamId,omitempty"`
	NodeID   string `json:"nodeId,omitempty"`
}
