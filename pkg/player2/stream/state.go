// ABOUTME: Connection lifecycle states and the transition record published to observers
// ABOUTME: Idle, Connecting, Streaming, Reconnecting, and the terminal Stopped state

package stream

import "fmt"

// State is the connection lifecycle state.
type State int32

const (
	Idle State = iota
	Connecting
	Streaming
	Reconnecting
	// Stopped is terminal until Start is called again.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Reconnecting:
		return "reconnecting"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Active reports whether the client is trying to hold a connection.
func (s State) Active() bool {
	return s == Connecting || s == Streaming || s == Reconnecting
}

// StateChange describes one transition. Err is set on entering Stopped and
// on entering Reconnecting, where it carries the attempt's failure.
type StateChange struct {
	From State
	To   State
	Err  error
}

// Resumption is the bookkeeping carried across reconnects.
type Resumption struct {
	LastEventID string
	TraceID     string
}
