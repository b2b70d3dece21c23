// Package memory provides a Publisher that keeps audit completion events in
// process, for dev deployments without Pub/Sub and for tests that assert on
// what the recorder emitted.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher records every published completion event in publish order.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// Event is one recorded publish. Payload is whatever the recorder handed
// over, typically a recorder.CompletedEvent.
type Event struct {
	Topic   string
	Payload any
}

// New returns an empty in-process Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish appends the event and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("mem-%d", len(p.events)), nil
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventsFor returns the events published on topic, in publish order.
func (p *Publisher) EventsFor(topic string) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
