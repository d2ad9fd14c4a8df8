// ABOUTME: Authentication states, observer payloads, and the device session value
// ABOUTME: Session is immutable once issued and discarded when the flow ends

package auth

import (
	"context"
	"time"
)

// State is a step of the authentication flow.
type State int

const (
	Idle State = iota
	Checking
	LocalLogin
	StartingDeviceFlow
	RequiresAuth
	WaitingForUser
	Success
	Error
)

var stateNames = [...]string{
	Idle:               "idle",
	Checking:           "checking",
	LocalLogin:         "local_login",
	StartingDeviceFlow: "starting_device_flow",
	RequiresAuth:       "requires_auth",
	WaitingForUser:     "waiting_for_user",
	Success:            "success",
	Error:              "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the flow has finished.
func (s State) Terminal() bool {
	return s == Success || s == Error
}

// StateChange is published on every transition. Err is set for Error.
type StateChange struct {
	From, To State
	Err      error
}

// Method records how a credential was obtained.
type Method string

const (
	MethodBypass Method = "bypass"
	MethodLocal  Method = "local"
	MethodDevice Method = "device"
)

// Result is the outcome of a successful flow. Credential is empty for
// MethodBypass: the hosting edge authenticates with ambient cookies.
type Result struct {
	Credential string
	Method     Method
}

// PollEvent describes one token poll.
type PollEvent struct {
	Attempt  int
	Status   int // HTTP status, 0 on transport failure
	Result   string
	Interval time.Duration // interval in effect for the next poll
}

// Session is an issued device code.
type Session struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	Interval                time.Duration
	ExpiresIn               time.Duration
	IssuedAt                time.Time
}

// Deadline is when the device code stops being redeemable.
func (s Session) Deadline() time.Time {
	return s.IssuedAt.Add(s.ExpiresIn)
}

// Prompter presents the verification URI to the user. Prompt returns nil
// once the user has been sent to the URI, ErrDenied if they decline, or the
// context error if the flow ended first.
type Prompter interface {
	Prompt(ctx context.Context, s Session) error
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, s Session) error

func (f PrompterFunc) Prompt(ctx context.Context, s Session) error { return f(ctx, s) }
