package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const deleteAllNodes = `-- name: DeleteAllNodes :exec
DELETE FROM nodes
`

func (q *Queries) DeleteAllNodes(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteAllNodes)
	return err
}

const insertNode = `-- name: InsertNode :exec
INSERT INTO nodes (id, title, latitude, longitude, place_name, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude,
    place_name = EXCLUDED.place_name,
    updated_at = now()
`

type InsertNodeParams struct {
	ID        string
	Title     string
	Latitude  float64
	Longitude float64
	PlaceName string
}

func (q *Queries) InsertNode(ctx context.Context, arg InsertNodeParams) error {
	_, err := q.db.Exec(ctx, insertNode, arg.ID, arg.Title, arg.Latitude, arg.Longitude, arg.PlaceName)
	return err
}

const listNodes = `-- name: ListNodes :many
SELECT id, title, latitude, longitude, place_name, updated_at
FROM nodes
ORDER BY id
`

func (q *Queries) ListNodes(ctx context.Context) ([]Node, error) {
	rows, err := q.db.Query(ctx, listNodes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Node
	for rows.Next() {
		var i Node
		if err := rows.Scan(&i.ID, &i.Title, &i.Latitude, &i.Longitude, &i.PlaceName, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertStatSample = `-- name: InsertStatSample :exec
INSERT INTO node_stat_samples (node_id, stat, value, source, observed_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (node_id, stat, observed_at) DO NOTHING
`

type InsertStatSampleParams struct {
	NodeID     string
	Stat       string
	Value      float64
	Source     string
	ObservedAt time.Time
}

func (q *Queries) InsertStatSample(ctx context.Context, arg InsertStatSampleParams) error {
	_, err := q.db.Exec(ctx, insertStatSample, arg.NodeID, arg.Stat, arg.Value, arg.Source, arg.ObservedAt)
	return err
}

const listStatSamples = `-- name: ListStatSamples :many
SELECT node_id, stat, value, source, observed_at
FROM (
  SELECT node_id, stat, value, source, observed_at
  FROM node_stat_samples
  WHERE node_id = $1
    AND stat = $2
    AND observed_at >= $3
  ORDER BY observed_at DESC
  LIMIT $4
) newest
ORDER BY observed_at ASC
`

type ListStatSamplesParams struct {
	NodeID string
	Stat   string
	Since  time.Time
	Limit  int32
}

func (q *Queries) ListStatSamples(ctx context.Context, arg ListStatSamplesParams) ([]NodeStatSample, error) {
	rows, err := q.db.Query(ctx, listStatSamples, arg.NodeID, arg.Stat, arg.Since, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NodeStatSample
	for rows.Next() {
		var i NodeStatSample
		if err := rows.Scan(&i.NodeID, &i.Stat, &i.Value, &i.Source, &i.ObservedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
