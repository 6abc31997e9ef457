// Package transport provides the low-level message conduits that carry
// framed DevTools protocol traffic to and from the browser.
package transport

import "fmt"

// Channel is a bidirectional message conduit. Exactly one concrete
// variant (websocket or pipe) is active per session.
type Channel interface {
	// Send writes one protocol message to the browser.
	Send(msg []byte) error

	// Messages returns the channel of inbound protocol messages.
	// It is closed when the conduit shuts down.
	Messages() <-chan []byte

	// Errors returns the channel of transport-level errors.
	Errors() <-chan error

	// Close tears the conduit down. Safe to call more than once.
	Close() error
}

// ChannelError indicates transport establishment or traffic failed.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
