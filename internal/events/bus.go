package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is an in-process domain event. The storefront keeps no durable event
// log; events exist so UI-facing state (badge counts, metrics, logs) reacts to
// explicit publishes instead of ambient global listeners.
type Event struct {
	ID         uuid.UUID
	Topic      string
	OccurredAt time.Time
	Payload    any
}

// Notifier reacts to emitted events (metrics, logs, cache invalidation).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus fans emitted events out to topic subscribers synchronously. Dispatch
// happens on the caller's goroutine; handlers must be fast and must not block.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Notifier
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Notifier)}
}

// Subscribe attaches a notifier to a topic. An empty topic subscribes to all
// events.
func (b *Bus) Subscribe(topic string, n Notifier) {
	if b == nil || n == nil {
		return
	}
	topic = strings.TrimSpace(topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers == nil {
		b.subscribers = make(map[string][]Notifier)
	}
	b.subscribers[topic] = append(b.subscribers[topic], n)
}

// Emit dispatches the event to every subscriber of its topic plus wildcard
// subscribers. Subscriber errors are joined and returned but do not stop the
// fan-out.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	ev := Event{
		ID:         uuid.New(),
		Topic:      topic,
		OccurredAt: time.Now(),
		Payload:    payload,
	}

	b.mu.RLock()
	targets := make([]Notifier, 0, len(b.subscribers[topic])+len(b.subscribers[""]))
	targets = append(targets, b.subscribers[topic]...)
	targets = append(targets, b.subscribers[""]...)
	b.mu.RUnlock()

	var joined error
	for _, notifier := range targets {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return ev, joined
}
