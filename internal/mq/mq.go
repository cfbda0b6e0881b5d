// Package mq abstracts the message broker that carries session lifecycle
// events. RabbitMQ and Google Pub/Sub backends are provided; the rest of
// the app only sees the Backend interface.
package mq

import "context"

// Message is one broker-agnostic event as delivered to subscribers.
// Attributes carry routing metadata (event type, session id) so consumers
// can filter without unmarshaling the payload.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes one message. Returning an error nacks the message so
// the broker redelivers it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented per broker.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends an event to the named topic and returns the broker's
// message id.
func (m *MQ) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, topic, data, attrs)
}

// Subscribe consumes events from the named topic until ctx is cancelled.
func (m *MQ) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return m.backend.Subscribe(ctx, topic, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
