package pending

import (
	"sort"
	"sync"
)

// Well-known resource names used by the controller.
const (
	Trackers = "trackers"
	Nodes    = "nodes"
	Topology = "topology"
	Search   = "search"
)

// Token identifies one outstanding Begin call.
type Token struct {
	Name string
	seq  uint64
}

// Observer is notified whenever a resource flips between idle and busy.
// Observers may read the registry but must not call Begin or End.
type Observer func(name string, busy bool)

// Registry tracks in-flight operations per resource name.
//
// A resource is pending while at least one Begin has not been matched by an
// End, so overlapping loads of the same resource keep it busy until the last
// one finishes.
type Registry struct {
	mu        sync.Mutex
	seq       uint64
	flips     uint64
	open      map[string]map[uint64]struct{}
	known     map[string]struct{}
	observers []Observer

	// notifyMu serializes observer calls. delivered holds the last flip
	// handed to observers per name; an older flip arriving late is dropped.
	notifyMu  sync.Mutex
	delivered map[string]uint64
}

func New() *Registry {
	r := &Registry{
		open:      make(map[string]map[uint64]struct{}),
		known:     make(map[string]struct{}),
		delivered: make(map[string]uint64),
	}
	for _, name := range []string{Trackers, Nodes, Topology, Search} {
		r.known[name] = struct{}{}
	}
	return r
}

// Observe registers fn for busy-flag transitions.
func (r *Registry) Observe(fn Observer) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Begin marks name busy and returns the token that ends this occurrence.
func (r *Registry) Begin(name string) Token {
	r.mu.Lock()
	r.seq++
	tok := Token{Name: name, seq: r.seq}
	r.known[name] = struct{}{}
	set := r.open[name]
	if set == nil {
		set = make(map[uint64]struct{})
		r.open[name] = set
	}
	set[tok.seq] = struct{}{}
	became := len(set) == 1
	var flip uint64
	if became {
		r.flips++
		flip = r.flips
	}
	observers := r.observers
	r.mu.Unlock()

	if became {
		r.notify(observers, flip, name, true)
	}
	return tok
}

// End clears the occurrence identified by tok. Ending the same token twice
// is a no-op.
func (r *Registry) End(tok Token) {
	r.mu.Lock()
	set := r.open[tok.Name]
	if _, ok := set[tok.seq]; !ok {
		r.mu.Unlock()
		return
	}
	delete(set, tok.seq)
	cleared := len(set) == 0
	var flip uint64
	if cleared {
		delete(r.open, tok.Name)
		r.flips++
		flip = r.flips
	}
	observers := r.observers
	r.mu.Unlock()

	if cleared {
		r.notify(observers, flip, tok.Name, false)
	}
}

func (r *Registry) IsPending(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open[name]) > 0
}

// Outstanding returns how many Begin calls for name are still open.
func (r *Registry) Outstanding(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open[name])
}

// Any reports whether at least one of names is pending.
func (r *Registry) Any(names ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if len(r.open[name]) > 0 {
			return true
		}
	}
	return false
}

// Snapshot returns the busy flag of every resource the registry has seen.
func (r *Registry) Snapshot() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.known))
	for name := range r.known {
		out[name] = len(r.open[name]) > 0
	}
	return out
}

// Names returns the known resource names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.known))
	for name := range r.known {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// notify hands one flip to the observers. Flips of a name are numbered in
// the order they happened under mu, so the last value an observer sees
// always matches the registry.
func (r *Registry) notify(observers []Observer, flip uint64, name string, busy bool) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if flip <= r.delivered[name] {
		return
	}
	r.delivered[name] = flip
	for _, fn := range observers {
		fn(name, busy)
	}
}
