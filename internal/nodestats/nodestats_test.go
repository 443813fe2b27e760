package nodestats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"

	"netexplorer/core-go/internal/topology"
	"netexplorer/core-go/internal/trackerapi"
)

type fakeTrackerMetrics struct {
	fn func(ctx context.Context, tracker topology.Tracker, nodeID string) (trackerapi.NodeMetrics, error)
}

func (f fakeTrackerMetrics) NodeMetrics(ctx context.Context, tracker topology.Tracker, nodeID string) (trackerapi.NodeMetrics, error) {
	return f.fn(ctx, tracker, nodeID)
}

func ptr(v float64) *float64 { return &v }

func TestTrackerSource_PerStatFailure(t *testing.T) {
	src := NewTrackerSource(fakeTrackerMetrics{fn: func(ctx context.Context, tracker topology.Tracker, nodeID string) (trackerapi.NodeMetrics, error) {
		return trackerapi.NodeMetrics{MessagesPerSecond: ptr(42), MBsPerSecond: ptr(1.5)}, nil
	}}, func() []topology.Tracker { return []topology.Tracker{{ID: "t1"}} })

	st, err := src.Fetch(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(st.Stats) != 3 {
		t.Fatalf("expected 3 stats, got %+v", st.Stats)
	}
	if v, ok := st.Value(MessagesPerSecond); !ok || v != 42 {
		t.Fatalf("expected messagesPerSecond 42, got %v ok=%v", v, ok)
	}
	lat := st.Stats[2]
	if lat.ID != Latency || lat.Value != nil || lat.Failure != "Failed to load latency" {
		t.Fatalf("expected latency failure, got %+v", lat)
	}
	if lat.Label != "Latency ms" {
		t.Fatalf("expected label, got %q", lat.Label)
	}
}

func TestTrackerSource_FallsThroughTrackers(t *testing.T) {
	var asked []string
	src := NewTrackerSource(fakeTrackerMetrics{fn: func(ctx context.Context, tracker topology.Tracker, nodeID string) (trackerapi.NodeMetrics, error) {
		asked = append(asked, tracker.ID)
		if tracker.ID == "t1" {
			return trackerapi.NodeMetrics{}, errors.New("t1 down")
		}
		return trackerapi.NodeMetrics{Latency: ptr(12)}, nil
	}}, func() []topology.Tracker { return []topology.Tracker{{ID: "t1"}, {ID: "t2"}} })

	st, err := src.Fetch(context.Background(), "n")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(asked) != 2 {
		t.Fatalf("expected both trackers asked, got %v", asked)
	}
	if v, ok := st.Value(Latency); !ok || v != 12 {
		t.Fatalf("expected latency from t2, got %v", v)
	}
}

func TestTrackerSource_AllFail(t *testing.T) {
	src := NewTrackerSource(fakeTrackerMetrics{fn: func(ctx context.Context, tracker topology.Tracker, nodeID string) (trackerapi.NodeMetrics, error) {
		return trackerapi.NodeMetrics{}, errors.New("down")
	}}, func() []topology.Tracker { return []topology.Tracker{{ID: "t1"}} })

	st, err := src.Fetch(context.Background(), "n")
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, s := range st.Stats {
		if s.Failure == "" {
			t.Fatalf("expected every stat to carry a failure, got %+v", s)
		}
	}
}

func TestTrackerSource_NoTrackers(t *testing.T) {
	src := NewTrackerSource(fakeTrackerMetrics{}, func() []topology.Tracker { return nil })
	if _, err := src.Fetch(context.Background(), "n"); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
}

type staticSource struct {
	st  Stats
	err error
}

func (s staticSource) Fetch(ctx context.Context, nodeID string) (Stats, error) {
	return s.st, s.err
}

func TestFallback(t *testing.T) {
	f := Fallback{
		Primary:   staticSource{err: ErrNoTarget},
		Secondary: staticSource{st: Stats{Source: "tracker"}},
	}
	st, err := f.Fetch(context.Background(), "n")
	if err != nil || st.Source != "tracker" {
		t.Fatalf("expected secondary, got %+v err=%v", st, err)
	}

	boom := errors.New("boom")
	f.Primary = staticSource{st: Stats{Source: "snmp"}, err: boom}
	st, err = f.Fetch(context.Background(), "n")
	if !errors.Is(err, boom) || st.Source != "snmp" {
		t.Fatalf("expected primary failure to surface, got %+v err=%v", st, err)
	}
}

func TestSNMPSource_UnmappedNode(t *testing.T) {
	s := NewSNMPSource(SNMPConfig{Targets: map[string]string{"a": "10.0.0.1", "b": " "}})
	if !s.HasTarget("a") || s.HasTarget("b") {
		t.Fatalf("unexpected targets")
	}
	if _, err := s.Fetch(context.Background(), "c"); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
}

func TestCounterRate(t *testing.T) {
	a, b := uint64(1000), uint64(3000)
	if v, ok := counterRate(&a, &b, 2*time.Second); !ok || v != 1000 {
		t.Fatalf("expected 1000/s, got %v ok=%v", v, ok)
	}
	if _, ok := counterRate(&b, &a, time.Second); ok {
		t.Fatalf("expected counter reset to yield no rate")
	}
	if _, ok := counterRate(nil, &a, time.Second); ok {
		t.Fatalf("expected missing sample to yield no rate")
	}
}

func TestSumCounters(t *testing.T) {
	got := sumCounters([]gosnmp.SnmpPDU{
		{Name: ".1.3.6.1.2.1.31.1.1.1.6.1", Type: gosnmp.Counter64, Value: uint64(10)},
		{Name: ".1.3.6.1.2.1.31.1.1.1.6.2", Type: gosnmp.Counter64, Value: uint64(32)},
		{Name: ".1.3.6.1.2.1.31.1.1.1.6.3", Type: gosnmp.OctetString, Value: []byte("x")},
	})
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}
