// Package stream connects to post providers. A Provider performs the
// handshake and filter registration; the Stream it returns yields raw
// payloads and flow-control notices in arrival order.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTransport is wrapped by every connection-level failure.
var ErrTransport = errors.New("transport error")

// Kind says what a Message carries.
type Kind int

const (
	// Data carries one raw payload.
	Data Kind = iota
	// RateLimited means the provider asked the client to back off.
	RateLimited
	// Resumed means delivery continues after a RateLimited notice.
	Resumed
)

func (k Kind) String() string {
	switch k {
	case Data:
		return "data"
	case RateLimited:
		return "rate_limited"
	case Resumed:
		return "resumed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Message is one item read from a Stream.
type Message struct {
	Kind    Kind
	Payload []byte
	// Until is set on RateLimited messages when the provider said how long
	// to back off.
	Until time.Time
}

// Provider opens subscriptions.
type Provider interface {
	Name() string
	// Connect performs the handshake and registers the track terms. Terms
	// are OR-ed: a post is delivered if it carries any of them.
	Connect(ctx context.Context, track []string) (Stream, error)
}

// Stream delivers messages from one subscription.
type Stream interface {
	// Next blocks until a message arrives. It returns io.EOF when the
	// provider ends the stream normally and a *TransportError when the
	// connection fails.
	Next(ctx context.Context) (Message, error)
	Close() error
}

// TransportError describes a failed handshake or read.
type TransportError struct {
	Provider string
	Op       string
	// Status is the HTTP status code, when there was one.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s %s", ErrTransport, e.Provider, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

func transportErr(provider, op string, err error) *TransportError {
	return &TransportError{Provider: provider, Op: op, Err: err}
}
