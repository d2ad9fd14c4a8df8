// ABOUTME: Shared HTTP plumbing: JSON client with retry/backoff plus a long-lived streaming client
// ABOUTME: All transports are OpenTelemetry-instrumented and respect HTTP_PROXY/HTTPS_PROXY

package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TraceHeader correlates client attempts with server-side logs.
const TraceHeader = "X-Player2-Trace-Id"

const (
	maxRetries    = 3
	baseBackoffMs = 500
	maxBackoffMs  = 10000

	// maxErrorBody bounds how much of an error response is kept for messages.
	maxErrorBody = 4096
)

// RequestOption mutates an outgoing request.
type RequestOption func(*http.Request)

// WithBearer sets Authorization: Bearer <token>. An empty token leaves the
// header unset.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHeader sets a single header when value is non-empty.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		if value != "" {
			r.Header.Set(key, value)
		}
	}
}

// Client wraps an http.Client with retry logic and default headers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// NewClient creates a client for baseURL. A nil httpClient selects a
// default with a five minute overall timeout.
func NewClient(baseURL string, headers map[string]string, httpClient *http.Client) *Client {
	if headers == nil {
		headers = make(map[string]string)
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   5 * time.Minute,
			Transport: NewTransport(30 * time.Second),
		}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		headers:    headers,
	}
}

// NewTransport returns an instrumented transport. responseHeaderTimeout
// bounds the wait for response headers only, never the body.
func NewTransport(responseHeaderTimeout time.Duration) http.RoundTripper {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	return otelhttp.NewTransport(base)
}

// NewStreamingClient returns a client with no overall timeout, for
// text/event-stream responses that stay open indefinitely. Liveness is the
// caller's concern.
func NewStreamingClient() *http.Client {
	return &http.Client{Transport: NewTransport(30 * time.Second)}
}

// BaseURL returns the base URL configured on this client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a request, retrying on 429 and 5xx with exponential backoff. A
// Retry-After header in seconds overrides the computed delay. The response
// of the final attempt is returned unread. If body implements io.Seeker it
// is rewound before each retry; otherwise only one attempt is made.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, opts ...RequestOption) (*http.Response, error) {
	seeker, _ := body.(io.Seeker)
	attempts := maxRetries
	if body != nil && seeker == nil {
		attempts = 1
	}

	for attempt := range attempts {
		if err := rewindBody(seeker, attempt); err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}

		resp, err := c.DoOnce(ctx, method, path, body, opts...)
		if err != nil {
			return nil, err
		}

		if !isRetryable(resp.StatusCode) || attempt == attempts-1 {
			return resp, nil
		}

		wait := retryAfter(resp.Header.Get("Retry-After"), backoff(attempt))
		DrainAndClose(resp)

		if err := sleepWithContext(ctx, wait); err != nil {
			return nil, fmt.Errorf("context cancelled during retry backoff: %w", err)
		}
	}

	// Unreachable: the loop always returns on its last attempt.
	return nil, fmt.Errorf("%s %s: no attempts made", method, path)
}

// DoOnce sends a single request with no retry. Used where the status code
// itself drives the caller's state machine.
func (c *Client) DoOnce(ctx context.Context, method, path string, body io.Reader, opts ...RequestOption) (*http.Response, error) {
	req, err := c.buildRequest(ctx, method, path, body, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	return resp, nil
}

// buildRequest creates an http.Request with default headers applied.
func (c *Client) buildRequest(ctx context.Context, method, path string, body io.Reader, opts []RequestOption) (*http.Request, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s %s: %w", method, path, err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	return req, nil
}

// ReadErrorBody returns up to 4 KiB of the response body and closes it.
func ReadErrorBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return string(b)
}

// DrainAndClose discards the rest of the body so the connection can be
// reused, then closes it.
func DrainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// rewindBody resets a seekable body to the beginning for retry attempts.
// It is a no-op on the first attempt (attempt == 0) or if seeker is nil.
func rewindBody(seeker io.Seeker, attempt int) error {
	if seeker == nil || attempt == 0 {
		return nil
	}
	_, err := seeker.Seek(0, io.SeekStart)
	return err
}

// isRetryable returns true for status codes that warrant a retry.
func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// backoff returns the backoff duration for the given attempt using exponential backoff.
func backoff(attempt int) time.Duration {
	ms := float64(baseBackoffMs) * math.Pow(2, float64(attempt))
	if ms > maxBackoffMs {
		ms = maxBackoffMs
	}
	return time.Duration(ms) * time.Millisecond
}

// retryAfter parses a delay-seconds Retry-After value, capped at the
// maximum backoff. Anything unparseable falls back to def.
func retryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return def
	}
	return min(time.Duration(secs)*time.Second, maxBackoffMs*time.Millisecond)
}

// sleepWithContext waits for the given duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
