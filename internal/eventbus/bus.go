package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcpportal/gateway/internal/api"
)

// inboxCapacity is the bounded size of each subscriber's pending queue, per
// SPEC_FULL.md §4.8.
const inboxCapacity = 256

// heartbeatInterval is how often Run emits a heartbeat event so idle SSE
// clients can detect a broken connection.
const heartbeatInterval = 15 * time.Second

// subscriber is one registered inbox: a bounded FIFO guarded by a mutex,
// with a buffered signal channel so Next can block without polling.
type subscriber struct {
	mu     sync.Mutex
	queue  []api.Event
	// markerDue is set the first time this subscriber overflows and stays
	// set until next() has delivered the single overflow marker for this
	// episode. While true, enqueue reserves one inbox slot for that marker
	// instead of for a real event, so a long run of overflowing publishes
	// still yields exactly one marker, not one per dropped event.
	markerDue bool
	signal    chan struct{}
}

func newSubscriber() *subscriber {
	return &subscriber{signal: make(chan struct{}, 1)}
}

// enqueue appends event, dropping the oldest pending event first if the
// inbox (plus its reserved marker slot, if a marker is already due) is at
// capacity. On the transition into overflow it flags a single marker to be
// delivered ahead of the surviving events; it never appends more than one
// marker per overflow episode.
func (s *subscriber) enqueue(event api.Event) {
	s.mu.Lock()
	if !s.markerDue && len(s.queue) >= inboxCapacity {
		s.markerDue = true
	}
	effectiveCap := inboxCapacity
	if s.markerDue {
		effectiveCap--
	}
	for len(s.queue) >= effectiveCap {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// next blocks until an event is available or ctx is done. A pending
// overflow marker is always delivered before any queued event.
func (s *subscriber) next(ctx context.Context) (api.Event, error) {
	for {
		s.mu.Lock()
		if s.markerDue {
			s.markerDue = false
			s.mu.Unlock()
			return api.Event{Kind: api.EventOverflow, Timestamp: time.Now()}, nil
		}
		if len(s.queue) > 0 {
			event := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return event, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return api.Event{}, ctx.Err()
		case <-s.signal:
		}
	}
}

// Subscription is a consumer's handle to its own bounded inbox.
type Subscription struct {
	id  string
	sub *subscriber
	bus *Bus
}

// ID returns the subscription's uuid, used as an SSE Last-Event-ID-style
// diagnostic handle (not used for replay; see DESIGN.md's Open Question
// decision).
func (s *Subscription) ID() string { return s.id }

// Next returns the next event for this subscriber, blocking until one
// arrives or ctx is canceled.
func (s *Subscription) Next(ctx context.Context) (api.Event, error) { return s.sub.next(ctx) }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() { s.bus.unsubscribe(s.id) }

// Bus is the Event Bus: a topic-less fan-out over bounded per-subscriber
// inboxes.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers a new bounded inbox and returns a handle to it.
func (b *Bus) Subscribe() *Subscription {
	sub := newSubscriber()
	id := uuid.New().String()

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	return &Subscription{id: id, sub: sub, bus: b}
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish fans event out to every current subscriber's inbox. Never blocks:
// a subscriber at capacity loses its oldest event instead.
func (b *Bus) Publish(event api.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.enqueue(event)
	}
}

// SubscriberCount reports how many inboxes are currently registered.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Run emits a heartbeat event every 15 seconds until ctx is done. Callers
// launch it as a background goroutine during app wiring.
func (b *Bus) Run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Publish(api.Event{Kind: api.EventHeartbeat, Timestamp: time.Now()})
		}
	}
}
