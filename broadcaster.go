package auth

import (
	"sync"
)

// DefaultSubscriptionBuffer is the per-subscription outbound queue size.
// Slow consumers drop events rather than block publishers.
const DefaultSubscriptionBuffer = 16

// Subscription is one listener attached to a Hub key. Events arrive on the
// channel returned by Events until Close is called or the Hub shuts down.
type Subscription struct {
	key string
	hub *Hub

	mu     sync.Mutex
	ch     chan ActivityEvent
	closed bool
}

// Key returns the routing key this subscription is attached to.
func (s *Subscription) Key() string {
	return s.key
}

// Events returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan ActivityEvent {
	return s.ch
}

// Close detaches the subscription from the hub and closes its channel.
// Safe to call multiple times and concurrently with publishes.
func (s *Subscription) Close() {
	if s.hub != nil {
		s.hub.remove(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// deliver attempts a non-blocking send, reporting false when the buffer is
// full or the subscription already closed.
func (s *Subscription) deliver(event ActivityEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

// HubOption customizes Hub construction.
type HubOption func(*Hub)

// WithHubLogger overrides the hub logger.
func WithHubLogger(logger Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHubBuffer sets the per-subscription channel buffer.
func WithHubBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// Hub routes activity events to subscribers. A key usually names a user ID,
// but pre-login verification waiters subscribe by email. Multiple
// subscriptions can share one key, each gets its own copy of every event.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
	buffer int
	logger Logger
}

// NewHub creates an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: DefaultSubscriptionBuffer,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// Subscribe attaches a new listener to key. On a closed hub the returned
// subscription's channel is already closed.
func (h *Hub) Subscribe(key string) *Subscription {
	sub := &Subscription{
		key: key,
		ch:  make(chan ActivityEvent, h.buffer),
		hub: h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.hub = nil
		sub.Close()
		return sub
	}

	listeners, ok := h.subs[key]
	if !ok {
		listeners = make(map[*Subscription]struct{})
		h.subs[key] = listeners
	}
	listeners[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers an event to every subscription registered under key.
// Subscriptions with a full buffer miss the event.
func (h *Hub) Publish(key string, event ActivityEvent) {
	h.mu.Lock()
	targets := h.collect(key)
	h.mu.Unlock()

	h.send(targets, event)
}

// Broadcast delivers an event to every subscription on the hub.
func (h *Hub) Broadcast(event ActivityEvent) {
	h.mu.Lock()
	var targets []*Subscription
	for key := range h.subs {
		targets = append(targets, h.collect(key)...)
	}
	h.mu.Unlock()

	h.send(targets, event)
}

// SubscriberCount reports how many subscriptions are attached to key.
func (h *Hub) SubscriberCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// Close shuts the hub down and closes every subscription channel.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true

	var all []*Subscription
	for _, listeners := range h.subs {
		for sub := range listeners {
			all = append(all, sub)
		}
	}
	h.subs = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, sub := range all {
		sub.hub = nil
		sub.Close()
	}
}

// collect must be called with the lock held.
func (h *Hub) collect(key string) []*Subscription {
	listeners := h.subs[key]
	if len(listeners) == 0 {
		return nil
	}

	targets := make([]*Subscription, 0, len(listeners))
	for sub := range listeners {
		targets = append(targets, sub)
	}
	return targets
}

func (h *Hub) send(targets []*Subscription, event ActivityEvent) {
	for _, sub := range targets {
		if !sub.deliver(event) {
			h.logger.Debug("hub dropped event: key=%s type=%s", sub.key, event.EventType)
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	listeners, ok := h.subs[sub.key]
	if !ok {
		return
	}

	delete(listeners, sub)
	if len(listeners) == 0 {
		delete(h.subs, sub.key)
	}
}
