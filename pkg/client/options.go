package client

import (
	"time"

	"github.com/releva-ai/releva-go/pkg/connectivity"
	"github.com/releva-ai/releva-go/pkg/events"
	"github.com/releva-ai/releva-go/pkg/storage"
	"github.com/releva-ai/releva-go/pkg/transport"
)

// Option customizes the collaborators of a Client
type Option func(*options)

type options struct {
	backend   storage.Backend
	transport transport.Transport
	checker   connectivity.Checker
	broker    *events.Broker
	now       func() time.Time
	newID     func() string
}

// WithBackend shares an already open backend. The client uses its realm as
// namespace and does not close the backend.
func WithBackend(b storage.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithTransport replaces the HTTP transport
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithChecker replaces the connectivity check used by engagement flushes
func WithChecker(c connectivity.Checker) Option {
	return func(o *options) {
		o.checker = c
	}
}

// WithBroker publishes client events on an existing broker. The caller owns it.
func WithBroker(b *events.Broker) Option {
	return func(o *options) {
		o.broker = b
	}
}

// WithClock sets the time source for sessions
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSessionIDGenerator sets how new session ids are minted
func WithSessionIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}
