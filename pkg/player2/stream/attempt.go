// ABOUTME: One connection attempt: request construction, idle watchdog, and the read/parse loop
// ABOUTME: Bytes are pushed into an incremental parser; completed events go to dispatch

package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mauromedda/player2-go/pkg/player2/internal/httputil"
	"github.com/mauromedda/player2-go/pkg/player2/internal/sse"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
)

const readBufferSize = 32 * 1024

// streamURL builds the request URL for the current session.
func (c *Client) streamURL(opts Options) (string, error) {
	base, err := httputil.NormalizeBaseURL(c.src.BaseURL())
	if err != nil {
		return "", &ConfigError{Field: "base_url", Err: err}
	}
	u := httputil.JoinPath(base, opts.StreamPath)
	if opts.TTSStreaming {
		u += "?tts-streaming=true"
	}
	return u, nil
}

// attempt runs one connection until it fails, closes, or ctx is cancelled.
// The returned error is never nil unless ctx was cancelled.
func (c *Client) attempt(ctx context.Context, gen uint64) error {
	credential, resume, opts := c.snapshot()
	bypass := c.src.Bypass()

	url, err := c.streamURL(opts)
	if err != nil {
		c.logger.Error("cannot connect: %v", err)
		c.metrics.Connected(false, 0)
		return err
	}
	if credential == "" && !bypass {
		err := &ConfigError{Field: "credential", Err: ErrNotAuthenticated}
		c.logger.Error("cannot connect: %v", err)
		c.metrics.Connected(false, 0)
		return err
	}

	attemptCtx, cancelAttempt := context.WithCancelCause(ctx)
	defer cancelAttempt(nil)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return &ConfigError{Field: "base_url", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if !bypass {
		httputil.WithBearer(credential)(req)
	}
	httputil.WithHeader("Last-Event-Id", resume.LastEventID)(req)
	httputil.WithHeader(httputil.TraceHeader, resume.TraceID)(req)

	if resume.LastEventID != "" || resume.TraceID != "" {
		c.logger.Info("connecting to %s (resuming after %q, trace %q)", url, resume.LastEventID, resume.TraceID)
	} else {
		c.logger.Info("connecting to %s (fresh connection)", url)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.metrics.Connected(false, 0)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	traceID := c.captureTrace(resp)

	if resp.StatusCode != http.StatusOK {
		c.metrics.Connected(false, 0)
		return &StatusError{Code: resp.StatusCode, TraceID: traceID, Body: httputil.ReadErrorBody(resp)}
	}
	c.metrics.Connected(true, time.Since(started))

	if !c.transition(gen, Streaming, nil) {
		return errStopped
	}
	c.logger.Info("stream established")

	// Silent-death detection: any byte, keep-alives included, re-arms it.
	watchdog := time.AfterFunc(opts.IdleTimeout, func() {
		cancelAttempt(ErrIdleTimeout)
	})
	defer watchdog.Stop()

	parser := sse.NewParser(opts.MaxEventSize)
	parser.OnOverflow(func(size int) {
		c.metrics.Dropped(metrics.DropOversized)
		c.logger.Error("event exceeds %d bytes (reached %d); discarding", opts.MaxEventSize, size)
	})
	emit := func(ev sse.Event) {
		if attemptCtx.Err() != nil {
			return
		}
		c.dispatch(gen, opts, ev)
	}

	buf := make([]byte, readBufferSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			watchdog.Reset(opts.IdleTimeout)
			c.metrics.BytesReceived.Add(float64(n))
			parser.Feed(buf[:n], emit)
		}
		if rerr == nil {
			continue
		}

		if attemptCtx.Err() != nil {
			cause := context.Cause(attemptCtx)
			if errors.Is(cause, ErrIdleTimeout) {
				return ErrIdleTimeout
			}
			return cause
		}

		// Teardown: deliver what the server managed to send.
		parser.Flush(emit)
		if errors.Is(rerr, io.EOF) {
			return ErrStreamClosed
		}
		return &TransportError{Err: rerr}
	}
}

// captureTrace records the trace header from any response, success or error.
func (c *Client) captureTrace(resp *http.Response) string {
	id := resp.Header.Get(httputil.TraceHeader)
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != "" && id != c.resume.TraceID {
		c.resume.TraceID = id
		c.logger.Debug("captured trace id %s", id)
	}
	return c.resume.TraceID
}
