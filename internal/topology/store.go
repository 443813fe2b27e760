package topology

import (
	"sort"
	"sync"
)

// Store holds the loaded topology together with the route-derived selection
// and search state. Writes only go through Commit and Update; every getter
// returns a copy.
type Store struct {
	mu sync.RWMutex

	nodes     []Node
	nodeIndex map[string]int
	trackers  []Tracker
	streams   map[string]Stream

	selection     Selection
	searchText    string
	searchResults []Node

	errors      map[string]string
	generations map[string]uint64
}

func NewStore() *Store {
	return &Store{
		nodeIndex:   make(map[string]int),
		streams:     make(map[string]Stream),
		errors:      make(map[string]string),
		generations: make(map[string]uint64),
	}
}

func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Node(nil), s.nodes...)
}

func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *Store) Node(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

func (s *Store) Trackers() []Tracker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Tracker(nil), s.trackers...)
}

func (s *Store) Stream(id string) (Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streams[id]
	if !ok {
		return Stream{}, false
	}
	return copyStream(st), true
}

func (s *Store) StreamCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams)
}

func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

func (s *Store) SearchText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchText
}

func (s *Store) SearchResults() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Node(nil), s.searchResults...)
}

func (s *Store) Errors() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// NextGeneration starts a new load of resource and returns its generation.
func (s *Store) NextGeneration(resource string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[resource]++
	return s.generations[resource]
}

// Commit runs apply only if gen is still the newest load of resource. The
// check and apply happen under the write lock, so a newer load cannot slip
// in between. apply must not call back into the store.
func (s *Store) Commit(resource string, gen uint64, apply func(tx *Tx)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[resource] != gen {
		return false
	}
	apply(&Tx{s: s})
	return true
}

// Update runs apply under the write lock so a group of changes is observed
// atomically. apply must not call back into the store.
func (s *Store) Update(apply func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&Tx{s: s})
}

// Read runs fn under the read lock for a consistent multi-field view. fn must
// only use the Tx getters.
func (s *Store) Read(fn func(tx *Tx)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&Tx{s: s})
}

func (s *Store) Generations() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]uint64, len(s.generations))
	for k, v := range s.generations {
		out[k] = v
	}
	return out
}

func indexNodes(nodes []Node) ([]Node, map[string]int) {
	next := make([]Node, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		next = append(next, n)
	}
	sort.SliceStable(next, func(i, j int) bool { return next[i].ID < next[j].ID })
	index := make(map[string]int, len(next))
	for i, n := range next {
		index[n.ID] = i
	}
	return next, index
}

func copyStream(st Stream) Stream {
	return Stream{
		ID:      st.ID,
		NodeIDs: append([]string(nil), st.NodeIDs...),
		Edges:   append([]Edge(nil), st.Edges...),
	}
}
