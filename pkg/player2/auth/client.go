// ABOUTME: DeviceAuthClient: bypass check, local companion login, then the remote device flow
// ABOUTME: Prompting and polling run side by side; observers see states, polls, and the outcome

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/player2-go/internal/eventbus"
	"github.com/mauromedda/player2-go/internal/log"
	"github.com/mauromedda/player2-go/pkg/player2/internal/httputil"
)

// Client obtains a validated credential with as little user friction as
// the environment allows.
type Client struct {
	opts   Options
	api    *httputil.Client
	local  *httputil.Client
	logger log.Logger

	states      *eventbus.Bus[StateChange]
	credentials *eventbus.Bus[Result]
	failures    *eventbus.Bus[error]
	polls       *eventbus.Bus[PollEvent]

	mu      sync.Mutex
	state   State
	running bool
}

// New validates opts and returns an idle client.
func New(opts Options) (*Client, error) {
	opts = opts.withDefaults()
	if opts.ClientID == "" {
		return nil, ErrMissingClientID
	}
	base, err := httputil.NormalizeBaseURL(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("auth base url: %w", err)
	}
	local, err := httputil.NormalizeBaseURL(opts.LocalLoginURL)
	if err != nil {
		return nil, fmt.Errorf("local login url: %w", err)
	}

	c := &Client{
		opts:        opts,
		api:         httputil.NewClient(base, map[string]string{"Accept": "application/json"}, opts.HTTPClient),
		local:       httputil.NewClient(local, map[string]string{"Accept": "application/json"}, opts.HTTPClient),
		logger:      log.WithComponent("auth"),
		states:      eventbus.New[StateChange](),
		credentials: eventbus.New[Result](),
		failures:    eventbus.New[error](),
		polls:       eventbus.New[PollEvent](),
	}
	onPanic := func(r any) { c.logger.Error("auth observer: %v", eventbus.PanicError(r)) }
	c.states.OnPanic(onPanic)
	c.credentials.OnPanic(onPanic)
	c.failures.OnPanic(onPanic)
	c.polls.OnPanic(onPanic)
	return c, nil
}

// State returns the current flow state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange subscribes to transitions.
func (c *Client) OnStateChange(fn func(StateChange)) func() { return c.states.Subscribe(fn) }

// OnCredential subscribes to "credential acquired". It fires once per
// successful Authenticate, with an empty credential in bypass mode.
func (c *Client) OnCredential(fn func(Result)) func() { return c.credentials.Subscribe(fn) }

// OnFailure subscribes to "auth failed".
func (c *Client) OnFailure(fn func(error)) func() { return c.failures.Subscribe(fn) }

// OnPoll subscribes to individual token polls.
func (c *Client) OnPoll(fn func(PollEvent)) func() { return c.polls.Subscribe(fn) }

func (c *Client) setState(to State, err error) {
	c.mu.Lock()
	change := StateChange{From: c.state, To: to, Err: err}
	c.state = to
	c.mu.Unlock()

	if change.From != change.To || err != nil {
		c.logger.Debug("state %s -> %s", change.From, change.To)
		c.states.Publish(change)
	}
}

// advance moves from one specific state to another; it is a no-op if the
// flow has already moved on.
func (c *Client) advance(from, to State) {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()
	c.states.Publish(StateChange{From: from, To: to})
}

// Authenticate runs the whole flow. p is consulted once a device code is
// issued; a nil p treats the user as already prompted. Only one call may
// run at a time.
func (c *Client) Authenticate(ctx context.Context, p Prompter) (Result, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Result{}, ErrInProgress
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.setState(Checking, nil)

	if c.opts.Bypass() {
		c.logger.Info("hosted origin detected; skipping authentication")
		return c.succeed(Result{Method: MethodBypass}), nil
	}

	if !c.opts.DisableLocalLogin {
		c.setState(LocalLogin, nil)
		if key := c.localLogin(ctx); key != "" {
			if c.validate(ctx, key) {
				c.logger.Info("authenticated through the local companion app")
				return c.succeed(Result{Credential: key, Method: MethodLocal}), nil
			}
			c.logger.Warn("local companion key failed validation; falling back to device flow")
		}
		if err := ctx.Err(); err != nil {
			return Result{}, c.fail(err, "cancelled")
		}
	}

	c.setState(StartingDeviceFlow, nil)
	session, err := c.startDeviceFlow(ctx)
	if err != nil {
		return Result{}, c.fail(err, "init_error")
	}
	c.setState(RequiresAuth, nil)
	c.logger.Info("device code issued; verification at %s (expires %s)",
		session.VerificationURIComplete, session.Deadline().Format("15:04:05"))

	key, err := c.awaitUser(ctx, session, p)
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, ErrDenied):
			outcome = "denied"
		case errors.Is(err, ErrAuthTimeout):
			outcome = "timeout"
		case errors.Is(err, context.Canceled):
			outcome = "cancelled"
		}
		return Result{}, c.fail(err, outcome)
	}
	return c.succeed(Result{Credential: key, Method: MethodDevice}), nil
}

// awaitUser prompts and polls concurrently. A key arriving first cancels an
// outstanding prompt; a denial or terminal poll error ends both.
func (c *Client) awaitUser(ctx context.Context, session Session, p Prompter) (string, error) {
	g, gctx := errgroup.WithContext(ctx)
	promptCtx, cancelPrompt := context.WithCancel(gctx)
	defer cancelPrompt()

	g.Go(func() error {
		if p == nil {
			c.advance(RequiresAuth, WaitingForUser)
			return nil
		}
		err := p.Prompt(promptCtx, session)
		switch {
		case err == nil:
			c.advance(RequiresAuth, WaitingForUser)
			return nil
		case promptCtx.Err() != nil && errors.Is(err, promptCtx.Err()):
			// The poll side or the caller finished the flow.
			return nil
		default:
			return err
		}
	})

	var key string
	g.Go(func() error {
		k, err := c.poll(gctx, session)
		if err != nil {
			return err
		}
		key = k
		cancelPrompt()
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	if key == "" {
		// Prompt returned after the caller cancelled; poll saw the same ctx.
		return "", ctx.Err()
	}
	return key, nil
}

func (c *Client) succeed(r Result) Result {
	c.opts.Metrics.Outcome(string(r.Method))
	c.setState(Success, nil)
	c.credentials.Publish(r)
	return r
}

func (c *Client) fail(err error, outcome string) error {
	c.opts.Metrics.Outcome(outcome)
	c.logger.Error("%v", err)
	c.setState(Error, err)
	c.failures.Publish(err)
	return err
}
