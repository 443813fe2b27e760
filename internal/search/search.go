package search

import (
	"sort"
	"strings"

	"netexplorer/core-go/internal/topology"
)

const DefaultLimit = 100

// Hit kinds, best first.
const (
	rankExactID = iota
	rankIDPrefix
	rankTitlePrefix
	rankTitleContains
)

// Match returns the nodes matching query, best matches first.
//
// A node matches when its id equals or starts with the query, or its title
// contains the query, all compared case-insensitively. An empty query
// matches nothing. limit <= 0 means DefaultLimit.
func Match(nodes []topology.Node, query string, limit int) []topology.Node {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []topology.Node{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	type hit struct {
		node  topology.Node
		rank  int
		title string
	}

	hits := make([]hit, 0)
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		rank, ok := rankNode(n, q)
		if !ok {
			continue
		}
		seen[n.ID] = struct{}{}
		hits = append(hits, hit{node: n, rank: rank, title: strings.ToLower(n.Title)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		if hits[i].title != hits[j].title {
			return hits[i].title < hits[j].title
		}
		return hits[i].node.ID < hits[j].node.ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]topology.Node, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.node)
	}
	return out
}

func rankNode(n topology.Node, q string) (int, bool) {
	id := strings.ToLower(n.ID)
	title := strings.ToLower(n.Title)
	switch {
	case id == q:
		return rankExactID, true
	case strings.HasPrefix(id, q):
		return rankIDPrefix, true
	case strings.HasPrefix(title, q):
		return rankTitlePrefix, true
	case strings.Contains(title, q):
		return rankTitleContains, true
	}
	return 0, false
}
