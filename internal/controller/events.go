package controller

import (
	"sync"
	"time"
)

type EventType string

const (
	EventRouteChanged     EventType = "route_changed"
	EventSearchReset      EventType = "search_reset"
	EventSearchUpdated    EventType = "search_updated"
	EventNodesReplaced    EventType = "nodes_replaced"
	EventTopologyReplaced EventType = "topology_replaced"
	EventPendingChanged   EventType = "pending_changed"
	EventLoadFailed       EventType = "load_failed"
	EventIntervalChanged  EventType = "interval_changed"
)

// Event is one state change published to subscribers.
type Event struct {
	Seq  uint64    `json:"seq"`
	Type EventType `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// broker fans events out to subscribers. A subscriber whose buffer is full
// misses the event; publishing never blocks.
type broker struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan Event
	dropped uint64
	now     func() time.Time
}

func newBroker() *broker {
	return &broker{subs: make(map[uint64]chan Event), now: time.Now}
}

func (b *broker) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// publish holds the lock while sending so sequence numbers reach every
// subscriber in order.
func (b *broker) publish(typ EventType, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	ev := Event{Seq: b.seq, Type: typ, At: b.now().UTC(), Data: data}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
		}
	}
}

func (b *broker) stats() (subscribers int, dropped uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs), b.dropped
}
