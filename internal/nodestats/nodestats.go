package nodestats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netexplorer/core-go/internal/topology"
	"netexplorer/core-go/internal/trackerapi"
)

type StatID string

const (
	MessagesPerSecond StatID = "messagesPerSecond"
	MBsPerSecond      StatID = "mbsPerSecond"
	Latency           StatID = "latency"
)

// AllStats lists the stats in node list order.
var AllStats = []StatID{MessagesPerSecond, MBsPerSecond, Latency}

var statLabels = map[StatID]string{
	MessagesPerSecond: "Msgs/sec",
	MBsPerSecond:      "MB/S",
	Latency:           "Latency ms",
}

// ErrNoTarget means a source has nothing to ask about this node.
var ErrNoTarget = errors.New("no stats target for node")

func ParseStatID(s string) (StatID, error) {
	id := StatID(s)
	if _, ok := statLabels[id]; !ok {
		return "", fmt.Errorf("unknown stat %q", s)
	}
	return id, nil
}

func (id StatID) Label() string {
	if l, ok := statLabels[id]; ok {
		return l
	}
	return string(id)
}

// Stat is one value of a node. A stat that could not be read carries a
// Failure message instead of a Value; other stats of the node are unaffected.
type Stat struct {
	ID      StatID   `json:"id"`
	Label   string   `json:"label"`
	Value   *float64 `json:"value"`
	Failure string   `json:"failure,omitempty"`
}

type Stats struct {
	NodeID     string    `json:"nodeId"`
	Source     string    `json:"source"`
	ObservedAt time.Time `json:"observedAt"`
	Stats      []Stat    `json:"stats"`
}

// Value returns the value of id when it was loaded.
func (s Stats) Value(id StatID) (float64, bool) {
	for _, st := range s.Stats {
		if st.ID == id && st.Value != nil {
			return *st.Value, true
		}
	}
	return 0, false
}

// Source reads the current stats of a node.
type Source interface {
	Fetch(ctx context.Context, nodeID string) (Stats, error)
}

func FailureMessage(id StatID) string {
	return "Failed to load " + string(id)
}

// newStats builds a Stats with every stat present, using values where known
// and a failure message otherwise.
func newStats(nodeID, source string, observedAt time.Time, values map[StatID]*float64) Stats {
	out := Stats{NodeID: nodeID, Source: source, ObservedAt: observedAt, Stats: make([]Stat, 0, len(AllStats))}
	for _, id := range AllStats {
		st := Stat{ID: id, Label: id.Label()}
		if v := values[id]; v != nil {
			val := *v
			st.Value = &val
		} else {
			st.Failure = FailureMessage(id)
		}
		out.Stats = append(out.Stats, st)
	}
	return out
}

// TrackerMetrics is the part of the tracker client used for stats.
type TrackerMetrics interface {
	NodeMetrics(ctx context.Context, tracker topology.Tracker, nodeID string) (trackerapi.NodeMetrics, error)
}

// TrackerSource asks each known tracker in turn until one answers.
type TrackerSource struct {
	api      TrackerMetrics
	trackers func() []topology.Tracker
	now      func() time.Time
}

func NewTrackerSource(api TrackerMetrics, trackers func() []topology.Tracker) *TrackerSource {
	return &TrackerSource{api: api, trackers: trackers, now: time.Now}
}

func (s *TrackerSource) Fetch(ctx context.Context, nodeID string) (Stats, error) {
	trackers := s.trackers()
	if len(trackers) == 0 {
		return newStats(nodeID, "tracker", s.now().UTC(), nil), fmt.Errorf("%w: no trackers loaded", ErrNoTarget)
	}

	var errs []error
	for _, tr := range trackers {
		m, err := s.api.NodeMetrics(ctx, tr, nodeID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return newStats(nodeID, "tracker", s.now().UTC(), map[StatID]*float64{
			MessagesPerSecond: m.MessagesPerSecond,
			MBsPerSecond:      m.MBsPerSecond,
			Latency:           m.Latency,
		}), nil
	}
	return newStats(nodeID, "tracker", s.now().UTC(), nil), errors.Join(errs...)
}

// Fallback uses Primary and switches to Secondary for nodes Primary has no
// target for.
type Fallback struct {
	Primary   Source
	Secondary Source
}

func (f Fallback) Fetch(ctx context.Context, nodeID string) (Stats, error) {
	if f.Primary != nil {
		st, err := f.Primary.Fetch(ctx, nodeID)
		if !errors.Is(err, ErrNoTarget) {
			return st, err
		}
	}
	if f.Secondary == nil {
		return newStats(nodeID, "none", time.Now().UTC(), nil), ErrNoTarget
	}
	return f.Secondary.Fetch(ctx, nodeID)
}
