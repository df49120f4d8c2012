// Package push delivers notification messages to the push provider.
//
// The dispatch layer only sees the Sender interface; the FCM HTTP v1 client,
// the degraded-mode Deferred sender and test fakes all implement it.
package push

import (
	"context"
	"errors"
)

// Message is one delivery attempt: a destination topic, a visible notification
// and a flat string-valued data payload.
type Message struct {
	Topic string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a Message and returns the provider's message identifier.
// Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, m Message) (string, error)

func (f SenderFunc) Send(ctx context.Context, m Message) (string, error) { return f(ctx, m) }

// ErrUnavailable is returned while no provider client could be initialized.
var ErrUnavailable = errors.New("push sender unavailable")

// ConfigurationError reports that a sender could not be built from its
// configuration (missing credentials, no project id). The process keeps
// running with a degraded sender when it sees one at startup.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "push configuration: " + e.Err.Error() }

func (e *ConfigurationError) Unwrap() error { return e.Err }
