// ABOUTME: Error taxonomy for the device authorization flow
// ABOUTME: InitError and PollError carry HTTP status, trace ID, and a bounded response body

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthTimeout means the device session expired before a valid key arrived.
	ErrAuthTimeout = errors.New("authentication timed out")
	// ErrDenied is returned by a Prompter when the user declines.
	ErrDenied = errors.New("user denied authentication")
	// ErrInProgress means Authenticate is already running on this client.
	ErrInProgress = errors.New("authentication already in progress")
	// ErrMissingClientID is returned by New without a client ID.
	ErrMissingClientID = errors.New("client id is required")
)

// InitError means the device flow could not be started: the server rejected
// the client identity or could not be reached.
type InitError struct {
	Code    int // 0 when no response arrived
	TraceID string
	Body    string
	Err     error
}

func (e *InitError) Error() string {
	return "failed to start device authorization: " + describe(e.Code, e.TraceID, e.Body, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// PollError is a terminal answer from the token endpoint.
type PollError struct {
	Code    int
	TraceID string
	Body    string
	Err     error
}

func (e *PollError) Error() string {
	return "authentication failed: " + describe(e.Code, e.TraceID, e.Body, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

func describe(code int, traceID, body string, err error) string {
	var msg string
	switch {
	case err != nil && code == 0:
		msg = err.Error()
	case err != nil:
		msg = fmt.Sprintf("HTTP %d: %v", code, err)
	default:
		msg = fmt.Sprintf("HTTP %d", code)
	}
	if body != "" {
		msg += " - response: " + body
	}
	if traceID != "" {
		msg += " (X-Player2-Trace-Id: " + traceID + ")"
	}
	return msg
}
