package graph

import (
	"context"
	"sync"

	"github.com/joeycumines/go-longpoll"
)

// Event is any graph-level notification (node/port/link lifecycle, driver
// changes) broadcast on an EventBus.
type Event struct {
	Kind   string
	NodeID uint32
	PortID uint32
	LinkID uint32
}

type busListener struct {
	dead bool
	ch   chan Event
}

// EventBus fans a stream of Events out to any number of subscribers. Each
// subscriber has its own buffered channel, and an event that does not fit
// is dropped for that subscriber. Every event is also sent to one shared
// backlog, backed by the example pack's generic channel long-poller, which
// DrainBacklog reads.
type EventBus struct {
	mu        sync.Mutex
	listeners []*busListener

	backlog *longpoll.Channel[Event]
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{backlog: longpoll.NewChannel[Event]()}
}

// Subscribe registers a new listener, returning the channel it will receive
// events on and a function to unsubscribe it.
func (b *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	l := &busListener{ch: make(chan Event, buffer)}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
	var once sync.Once
	return l.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			l.dead = true
			b.reap()
			b.mu.Unlock()
		})
	}
}

// Emit publishes ev to every live listener and the shared backlog. A
// listener whose channel is full has the event dropped for it (but not for
// the backlog), rather than blocking the realtime thread.
func (b *EventBus) Emit(ev Event) {
	b.backlog.Send(ev)
	b.mu.Lock()
	snapshot := make([]*busListener, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()
	for _, l := range snapshot {
		if l.dead {
			continue
		}
		select {
		case l.ch <- ev:
		default:
		}
	}
}

func (b *EventBus) reap() {
	dead := 0
	for _, l := range b.listeners {
		if l.dead {
			dead++
		}
	}
	if dead == 0 || dead*2 < len(b.listeners) {
		return
	}
	live := b.listeners[:0]
	for _, l := range b.listeners {
		if !l.dead {
			live = append(live, l)
		}
	}
	b.listeners = live
}

// DrainBacklog blocks until at least one event has been published since the
// bus was created or last drained, then returns everything currently
// buffered. Intended for a late-joining observer that wants to catch up
// rather than miss events published before it subscribed.
func (b *EventBus) DrainBacklog(ctx context.Context) ([]Event, error) {
	return b.backlog.Poll(ctx)
}
