// ABOUTME: Error taxonomy for the event stream: configuration, transport, status, and terminal errors
// ABOUTME: Transient errors drive reconnection; ErrMaxReconnects marks the terminal stop

package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means there is no credential and bypass mode is off.
	ErrNotAuthenticated = errors.New("not authenticated: no credential and bypass mode is off")
	// ErrIdleTimeout means the connection went silent for the watchdog window.
	ErrIdleTimeout = errors.New("no data received within the idle timeout")
	// ErrStreamClosed means the server ended the response cleanly.
	ErrStreamClosed = errors.New("server closed the stream")
	// ErrMaxReconnects is the terminal error once the reconnect budget is spent.
	ErrMaxReconnects = errors.New("maximum reconnection attempts reached")
	// ErrEmptyEntityID is returned by Register for a blank entity ID.
	ErrEmptyEntityID = errors.New("entity id is empty")

	errStopped = errors.New("stream stopped")
)

// ConfigError reports a missing or invalid setting that aborted an attempt.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("stream config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StatusError is a non-200 response to the stream request.
type StatusError struct {
	Code    int
	TraceID string
	Body    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("stream request failed: HTTP %d", e.Code)
	if e.TraceID != "" {
		msg += " (trace " + e.TraceID + ")"
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// TransportError wraps a network failure while connecting or reading.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "stream transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
