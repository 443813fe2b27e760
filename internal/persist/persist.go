package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netexplorer/core-go/internal/nodestats"
	"netexplorer/core-go/internal/sqlcgen"
	"netexplorer/core-go/internal/topology"
)

// Queries is the minimal DB interface persistence needs.
//
// *sqlcgen.Queries satisfies this.
type Queries interface {
	DeleteAllNodes(ctx context.Context) error
	InsertNode(ctx context.Context, arg sqlcgen.InsertNodeParams) error
	ListNodes(ctx context.Context) ([]sqlcgen.Node, error)
	InsertStatSample(ctx context.Context, arg sqlcgen.InsertStatSampleParams) error
	ListStatSamples(ctx context.Context, arg sqlcgen.ListStatSamplesParams) ([]sqlcgen.NodeStatSample, error)
}

// TxRunner runs fn in a transaction. *db.Pool satisfies this through InTx.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q *sqlcgen.Queries) error) error
}

// MaxHistoryPoints caps one graph query. The newest points in the window are
// kept.
const MaxHistoryPoints = 5000

// Store keeps the node snapshot and stat history in Postgres.
type Store struct {
	q  Queries
	tx func(ctx context.Context, fn func(q Queries) error) error
}

func New(q Queries, runner TxRunner) *Store {
	s := &Store{q: q}
	if runner != nil {
		s.tx = func(ctx context.Context, fn func(q Queries) error) error {
			return runner.InTx(ctx, func(q *sqlcgen.Queries) error { return fn(q) })
		}
	} else {
		s.tx = func(ctx context.Context, fn func(q Queries) error) error { return fn(q) }
	}
	return s
}

// SaveNodes replaces the stored node set in one transaction.
func (s *Store) SaveNodes(ctx context.Context, nodes []topology.Node) error {
	return s.tx(ctx, func(q Queries) error {
		if err := q.DeleteAllNodes(ctx); err != nil {
			return fmt.Errorf("clear nodes: %w", err)
		}
		for _, n := range nodes {
			if err := q.InsertNode(ctx, sqlcgen.InsertNodeParams{
				ID:        n.ID,
				Title:     n.Title,
				Latitude:  n.Latitude,
				Longitude: n.Longitude,
				PlaceName: n.PlaceName,
			}); err != nil {
				return fmt.Errorf("insert node %s: %w", n.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) LoadNodes(ctx context.Context) ([]topology.Node, error) {
	rows, err := s.q.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]topology.Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, topology.Node{
			ID:        r.ID,
			Title:     r.Title,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			PlaceName: r.PlaceName,
		})
	}
	return out, nil
}

// RecordStats stores every loaded value of st. Failed stats are skipped.
func (s *Store) RecordStats(ctx context.Context, st nodestats.Stats) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, stat := range st.Stats {
		if stat.Value == nil {
			continue
		}
		err := s.q.InsertStatSample(ctx, sqlcgen.InsertStatSampleParams{
			NodeID:     st.NodeID,
			Stat:       string(stat.ID),
			Value:      *stat.Value,
			Source:     st.Source,
			ObservedAt: st.ObservedAt,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("insert %s sample: %w", stat.ID, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Point is one sample of a stat history.
type Point struct {
	At     time.Time `json:"at"`
	Value  float64   `json:"value"`
	Source string    `json:"source"`
}

// History returns the samples of stat for nodeID observed at or after since,
// oldest first. At most MaxHistoryPoints of the newest samples are returned.
func (s *Store) History(ctx context.Context, nodeID string, stat nodestats.StatID, since time.Time) ([]Point, error) {
	rows, err := s.q.ListStatSamples(ctx, sqlcgen.ListStatSamplesParams{
		NodeID: nodeID,
		Stat:   string(stat),
		Since:  since,
		Limit:  MaxHistoryPoints,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Point, 0, len(rows))
	for _, r := range rows {
		out = append(out, Point{At: r.ObservedAt, Value: r.Value, Source: r.Source})
	}
	return out, nil
}
