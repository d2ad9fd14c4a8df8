// ABOUTME: EventStreamClient: one resumable SSE connection with reconnect, watchdog, and routing
// ABOUTME: Start/Stop are idempotent; a single background loop owns each connection attempt

package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/mauromedda/player2-go/internal/eventbus"
	"github.com/mauromedda/player2-go/internal/log"
	"github.com/mauromedda/player2-go/pkg/player2/audio"
	"github.com/mauromedda/player2-go/pkg/player2/internal/httputil"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
	"github.com/mauromedda/player2-go/pkg/player2/wire"
)

// CredentialSource supplies what a connection attempt needs.
type CredentialSource interface {
	// Credential returns the current bearer token; "" means none.
	Credential() string
	// Bypass reports whether auth is handled ambiently and no bearer
	// token should be sent.
	Bypass() bool
	// BaseURL is the API root for this session.
	BaseURL() string
}

// Handler receives chat responses for one entity. It runs on the read
// loop, so it should hand off slow work.
type Handler func(wire.ChatResponse)

// Client maintains the event stream and routes decoded messages.
type Client struct {
	src        CredentialSource
	httpClient *http.Client
	router     *audio.Router
	metrics    *metrics.Collector
	logger     log.Logger
	states     *eventbus.Bus[StateChange]

	regMu    sync.RWMutex
	handlers map[string]Handler

	mu            sync.Mutex
	opts          Options
	state         State
	gen           uint64
	runCtx        context.Context
	cancel        context.CancelCauseFunc
	done          chan struct{}
	credential    string
	autoStart     bool
	resume        Resumption
	lastProcessed string
	failures      int
	err           error
}

// New creates an idle client. It does not connect until Start is called
// or a credential arrives through CredentialChanged.
func New(src CredentialSource, opts Options) *Client {
	opts = opts.withDefaults()
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httputil.NewStreamingClient()
	}

	c := &Client{
		src:        src,
		httpClient: httpClient,
		router:     audio.NewRouter(opts.AudioTargets, opts.AudioConfig),
		metrics:    opts.Metrics,
		logger:     log.WithComponent("stream"),
		states:     eventbus.New[StateChange](),
		handlers:   make(map[string]Handler),
		opts:       opts,
		credential: src.Credential(),
		autoStart:  true,
	}
	c.states.OnPanic(func(r any) {
		c.logger.Error("state observer: %v", eventbus.PanicError(r))
	})
	return c
}

// normalizeID folds entity IDs to NFC so visually identical IDs match.
func normalizeID(id string) string {
	return norm.NFC.String(id)
}

// Register installs or replaces the handler for an entity.
func (c *Client) Register(entityID string, h Handler) error {
	if entityID == "" {
		return ErrEmptyEntityID
	}
	if h == nil {
		return fmt.Errorf("register %s: nil handler", entityID)
	}
	id := normalizeID(entityID)

	c.regMu.Lock()
	_, replaced := c.handlers[id]
	c.handlers[id] = h
	total := len(c.handlers)
	c.regMu.Unlock()

	if replaced {
		c.logger.Info("updated response handler for %s", id)
	} else {
		c.logger.Info("registered response handler for %s (total %d)", id, total)
	}
	return nil
}

// Unregister removes the entity's handler and any open audio substream.
func (c *Client) Unregister(entityID string) {
	id := normalizeID(entityID)

	c.regMu.Lock()
	_, ok := c.handlers[id]
	delete(c.handlers, id)
	remaining := len(c.handlers)
	c.regMu.Unlock()

	if !ok {
		c.logger.Warn("unregister of unknown entity %s", id)
		return
	}
	c.router.Forget(id)
	c.logger.Info("unregistered response handler for %s (remaining %d)", id, remaining)
}

func (c *Client) handler(entityID string) (Handler, bool) {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	h, ok := c.handlers[normalizeID(entityID)]
	return h, ok
}

// SubscribeState registers an observer for lifecycle transitions and
// returns its unsubscribe function. Observers run synchronously on the
// goroutine that caused the transition.
func (c *Client) SubscribeState(fn func(StateChange)) func() {
	return c.states.Subscribe(fn)
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resumption returns the last seen event ID and trace ID.
func (c *Client) Resumption() Resumption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resume
}

// Err returns the error that put the client into Stopped, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SetReconnectionSettings changes the retry budget and delay. It applies
// from the next failure onwards.
func (c *Client) SetReconnectionSettings(maxAttempts int, delay time.Duration) {
	c.mu.Lock()
	if maxAttempts > 0 {
		c.opts.MaxReconnectAttempts = maxAttempts
	}
	if delay > 0 {
		c.opts.ReconnectDelay = delay
	}
	maxAttempts, delay = c.opts.MaxReconnectAttempts, c.opts.ReconnectDelay
	c.mu.Unlock()
	c.logger.Info("reconnection settings: %d attempts, %s delay", maxAttempts, delay)
}

// ReconnectionSettings returns the retry budget and delay.
func (c *Client) ReconnectionSettings() (int, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.MaxReconnectAttempts, c.opts.ReconnectDelay
}

// CredentialChanged hands the client a new credential. An idle client that
// was never explicitly stopped starts connecting; a running connection is
// left alone and picks the credential up on its next attempt.
func (c *Client) CredentialChanged(credential string) {
	c.mu.Lock()
	c.credential = credential
	start := c.autoStart && c.state == Idle
	c.mu.Unlock()

	if !start {
		return
	}
	if credential == "" && !c.src.Bypass() {
		return
	}
	if err := c.Start(); err != nil {
		c.logger.Warn("auto-start after new credential: %v", err)
	}
}

// Start begins listening. It is a no-op while a connection is active and
// restarts from Idle or Stopped with a fresh reconnect budget. The last
// seen event ID is kept so the new connection resumes.
func (c *Client) Start() error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return nil
	}
	if c.credential == "" && !c.src.Bypass() {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	prev := c.done
	done := make(chan struct{})
	c.gen++
	gen := c.gen
	c.runCtx = ctx
	c.cancel = cancel
	c.done = done
	c.failures = 0
	c.err = nil
	c.autoStart = true
	change := c.setStateLocked(Connecting, nil)
	lastID := c.resume.LastEventID
	c.mu.Unlock()

	c.publish(change)
	c.logger.Info("starting response stream (last event id %q)", lastID)

	go c.run(ctx, gen, prev, done)
	return nil
}

// Stop tears down the connection and returns to Idle immediately. The
// in-progress event is discarded; resumption state is kept. Safe to call
// from any goroutine, including handlers.
func (c *Client) Stop() {
	c.mu.Lock()
	c.autoStart = false
	if c.state == Idle {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel(errStopped)
		c.cancel = nil
	}
	c.gen++
	change := c.setStateLocked(Idle, nil)
	lastID := c.resume.LastEventID
	c.mu.Unlock()

	c.publish(change)
	c.router.StopAll()
	c.logger.Info("stopped response stream (last event id %q)", lastID)
}

// Done returns a channel closed when the most recent run loop has exited.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// setStateLocked records a transition and returns it for publishing once
// the lock is released. Must be called with mu held.
func (c *Client) setStateLocked(to State, err error) StateChange {
	change := StateChange{From: c.state, To: to, Err: err}
	c.state = to
	c.metrics.StreamState.Set(float64(to))
	return change
}

func (c *Client) publish(change StateChange) {
	if change.From == change.To {
		return
	}
	c.states.Publish(change)
}

// transition moves the state only if the run loop identified by gen is
// still current.
func (c *Client) transition(gen uint64, to State, err error) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	change := c.setStateLocked(to, err)
	c.mu.Unlock()
	c.publish(change)
	return true
}

// run drives attempts until stopped or the reconnect budget is spent.
func (c *Client) run(ctx context.Context, gen uint64, prev <-chan struct{}, done chan struct{}) {
	defer close(done)

	// At most one attempt in flight: wait for a previous loop to unwind.
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}

	for {
		err := c.attempt(ctx, gen)
		if ctx.Err() != nil {
			return
		}

		failures, maxAttempts, delay, ok := c.recordFailure(gen)
		if !ok {
			return
		}

		if failures >= maxAttempts {
			terminal := fmt.Errorf("%w (%d): %w", ErrMaxReconnects, maxAttempts, err)
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.err = terminal
			c.cancel(terminal)
			c.cancel = nil
			change := c.setStateLocked(Stopped, terminal)
			c.mu.Unlock()

			c.publish(change)
			c.router.StopAll()
			c.logger.Error("%v; listener stopped", terminal)
			return
		}

		resume := c.Resumption()
		c.logger.Warn("attempt failed: %v; reconnect %d/%d in %s (last event id %q, trace %q)",
			err, failures, maxAttempts, delay, resume.LastEventID, resume.TraceID)
		if !c.transition(gen, Reconnecting, err) {
			return
		}
		c.metrics.Reconnects.Inc()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if !c.transition(gen, Connecting, nil) {
			return
		}
	}
}

// recordFailure bumps the consecutive-failure counter.
func (c *Client) recordFailure(gen uint64) (failures, maxAttempts int, delay time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return 0, 0, 0, false
	}
	c.failures++
	return c.failures, c.opts.MaxReconnectAttempts, c.opts.ReconnectDelay, true
}

// snapshot returns what one attempt needs from shared state.
func (c *Client) snapshot() (credential string, resume Resumption, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential, c.resume, c.opts
}
