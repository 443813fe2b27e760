package topology

// Tx mutates the store while Commit or Update holds its write lock.
type Tx struct {
	s *Store
}

// ReplaceNodes swaps in a new node set. Nodes are kept sorted by id; later
// duplicates of an id are dropped.
func (tx *Tx) ReplaceNodes(nodes []Node) {
	tx.s.nodes, tx.s.nodeIndex = indexNodes(nodes)
}

func (tx *Tx) ReplaceTrackers(trackers []Tracker) {
	tx.s.trackers = append([]Tracker(nil), trackers...)
}

func (tx *Tx) ReplaceStream(st Stream) {
	tx.s.streams[st.ID] = copyStream(st)
}

func (tx *Tx) SetSearchResults(results []Node) {
	tx.s.searchResults = append([]Node(nil), results...)
}

// SetError records a failure message for resource; an empty message clears it.
func (tx *Tx) SetError(resource, msg string) {
	if msg == "" {
		delete(tx.s.errors, resource)
		return
	}
	tx.s.errors[resource] = msg
}

func (tx *Tx) SetSelection(sel Selection) {
	tx.s.selection = sel
}

func (tx *Tx) SetSearchText(text string) {
	tx.s.searchText = text
}

func (tx *Tx) ResetSearchResults() {
	tx.s.searchResults = nil
}

// NextGeneration starts a new load of resource inside the transaction.
func (tx *Tx) NextGeneration(resource string) uint64 {
	tx.s.generations[resource]++
	return tx.s.generations[resource]
}

// Nodes returns the node set as seen by the transaction.
func (tx *Tx) Nodes() []Node {
	return append([]Node(nil), tx.s.nodes...)
}

// Node resolves id against the node set as seen by the transaction.
func (tx *Tx) Node(id string) (Node, bool) {
	i, ok := tx.s.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return tx.s.nodes[i], true
}

func (tx *Tx) Selection() Selection {
	return tx.s.selection
}

func (tx *Tx) SearchText() string {
	return tx.s.searchText
}

func (tx *Tx) SearchResults() []Node {
	return append([]Node(nil), tx.s.searchResults...)
}

// Generation returns the newest generation of resource.
func (tx *Tx) Generation(resource string) uint64 {
	return tx.s.generations[resource]
}

func (tx *Tx) Errors() map[string]string {
	out := make(map[string]string, len(tx.s.errors))
	for k, v := range tx.s.errors {
		out[k] = v
	}
	return out
}
