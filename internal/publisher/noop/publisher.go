// Package noop provides a publisher that discards all events.
package noop

import "context"

// Publisher discards every publish call. It is the default when no event
// transport is configured.
type Publisher struct{}

// New returns a noop Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish discards the payload.
func (p *Publisher) Publish(_ context.Context, _ string, _ any) (string, error) {
	return "", nil
}
