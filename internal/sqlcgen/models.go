package sqlcgen

import "time"

type Node struct {
	ID        string
	Title     string
	Latitude  float64
	Longitude float64
	PlaceName string
	UpdatedAt time.Time
}

type NodeStatSample struct {
	NodeID     string
	Stat       string
	Value      float64
	Source     string
	ObservedAt time.Time
}
