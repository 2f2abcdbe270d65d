package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler reacts to a single event. Handlers must not block indefinitely —
// they should spawn background work or enqueue via the WorkerPool instead.
type Handler func(event Event)

// Bus is the in-process publish/subscribe hub. Events emitted by a
// single producer are observed by a single subscriber in emission order,
// while dispatch across distinct subscribers is independent: each
// subscription owns a FIFO queue drained by its own goroutine, so a slow
// subscriber never blocks another.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]*subscription
	recent      []Event
	recentMax   int
	log         zerolog.Logger
}

type subscription struct {
	id      string
	handler Handler
	queue   chan Event
	done    chan struct{}
}

// NewBus creates an empty bus. recentMax bounds GetRecentEvents' backlog.
func NewBus(log zerolog.Logger, recentMax int) *Bus {
	if recentMax <= 0 {
		recentMax = 500
	}
	return &Bus{
		subscribers: make(map[Type][]*subscription),
		recentMax:   recentMax,
		log:         log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler under handlerID for eventType. Re-registering
// the same handlerID for the same eventType is a no-op, matching the
// "duplicate subscriptions... are idempotent" design note.
func (b *Bus) Subscribe(eventType Type, handlerID string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers[eventType] {
		if sub.id == handlerID {
			return
		}
	}

	sub := &subscription{
		id:      handlerID,
		handler: handler,
		queue:   make(chan Event, 256),
		done:    make(chan struct{}),
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)

	go sub.run()
}

func (s *subscription) run() {
	defer close(s.done)
	for event := range s.queue {
		s.handler(event)
	}
}

// Unsubscribe removes handlerID's subscription for eventType, draining its
// queue first so in-flight events aren't lost mid-dispatch.
func (b *Bus) Unsubscribe(eventType Type, handlerID string) {
	b.mu.Lock()
	subs := b.subscribers[eventType]
	var remaining []*subscription
	var removed *subscription
	for _, sub := range subs {
		if sub.id == handlerID {
			removed = sub
			continue
		}
		remaining = append(remaining, sub)
	}
	b.subscribers[eventType] = remaining
	b.mu.Unlock()

	if removed != nil {
		close(removed.queue)
		<-removed.done
	}
}

// Publish delivers event to every subscriber of event.Type and records it
// in the recent-events ring for GetRecentEvents.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	subs := append([]*subscription(nil), b.subscribers[event.Type]...)
	b.recent = append(b.recent, event)
	if len(b.recent) > b.recentMax {
		b.recent = b.recent[len(b.recent)-b.recentMax:]
	}
	b.mu.Unlock()

	b.log.Debug().
		Str("event_type", string(event.Type)).
		Str("aggregate", event.Aggregate).
		Str("tenant_id", event.TenantID).
		Msg("event published")

	for _, sub := range subs {
		sub.queue <- event
	}
}

// GetRecentEvents returns up to limit of the most recently published
// events, newest last.
func (b *Bus) GetRecentEvents(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > len(b.recent) {
		limit = len(b.recent)
	}
	out := make([]Event, limit)
	copy(out, b.recent[len(b.recent)-limit:])
	return out
}
