// ABOUTME: HTTP exchanges of the flow: local companion login, device code issue, token polling, health probe
// ABOUTME: Poll cadence is a rate limiter; HTTP 429 widens it by a fixed step

package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mailru/easyjson"
	"golang.org/x/time/rate"

	"github.com/mauromedda/player2-go/pkg/player2/internal/httputil"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
	"github.com/mauromedda/player2-go/pkg/player2/wire"
)

const maxTokenBody = 64 * 1024

// localLogin asks the companion app for a key. Any failure returns "".
func (c *Client) localLogin(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, c.opts.LocalLoginTimeout)
	defer cancel()

	resp, err := c.local.DoOnce(ctx, http.MethodPost, "/login/web/"+url.PathEscape(c.opts.ClientID), nil)
	if err != nil {
		c.logger.Debug("local companion login unavailable: %v", err)
		return ""
	}
	if resp.StatusCode/100 != 2 {
		c.logger.Debug("local companion login: HTTP %d", resp.StatusCode)
		httputil.DrainAndClose(resp)
		return ""
	}

	tok, err := decodeToken(resp)
	if err != nil {
		c.logger.Warn("failed to parse local companion login response: %v", err)
		return ""
	}
	return tok.P2Key
}

// startDeviceFlow requests a device code.
func (c *Client) startDeviceFlow(ctx context.Context) (Session, error) {
	body, err := easyjson.Marshal(wire.DeviceAuthRequest{ClientID: c.opts.ClientID})
	if err != nil {
		return Session{}, &InitError{Err: err}
	}

	issued := time.Now()
	resp, err := c.api.DoOnce(ctx, http.MethodPost, "/login/device/new", bytes.NewReader(body))
	if err != nil {
		return Session{}, &InitError{Err: err}
	}
	trace := resp.Header.Get(httputil.TraceHeader)
	if resp.StatusCode/100 != 2 {
		return Session{}, &InitError{Code: resp.StatusCode, TraceID: trace, Body: httputil.ReadErrorBody(resp)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return Session{}, &InitError{Code: resp.StatusCode, TraceID: trace, Err: err}
	}
	var dr wire.DeviceAuthResponse
	if err := easyjson.Unmarshal(raw, &dr); err != nil {
		return Session{}, &InitError{Code: resp.StatusCode, TraceID: trace, Err: fmt.Errorf("decode response: %w", err)}
	}
	if dr.DeviceCode == "" || dr.VerificationURIComplete == "" {
		return Session{}, &InitError{Code: resp.StatusCode, TraceID: trace, Body: string(raw),
			Err: errors.New("response is missing device_code or verification_uri_complete")}
	}

	return Session{
		DeviceCode:              dr.DeviceCode,
		UserCode:                dr.UserCode,
		VerificationURI:         dr.VerificationURI,
		VerificationURIComplete: dr.VerificationURIComplete,
		Interval:                time.Duration(dr.Interval) * time.Second,
		ExpiresIn:               time.Duration(dr.ExpiresIn) * time.Second,
		IssuedAt:                issued,
	}, nil
}

// poll redeems the device code until a validated key arrives, a terminal
// status is returned, or the session expires.
func (c *Client) poll(ctx context.Context, s Session) (string, error) {
	interval := max(s.Interval, c.opts.MinPollInterval)
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	pollCtx, cancel := context.WithDeadline(ctx, s.Deadline())
	defer cancel()

	body, err := easyjson.Marshal(wire.TokenRequest{ClientID: c.opts.ClientID, DeviceCode: s.DeviceCode})
	if err != nil {
		return "", &PollError{Err: err}
	}

	expired := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrAuthTimeout
	}

	for attempt := 1; ; attempt++ {
		// Wait fails early when the next slot lies beyond the deadline.
		if err := limiter.Wait(pollCtx); err != nil {
			return "", expired()
		}

		resp, err := c.api.DoOnce(pollCtx, http.MethodPost, "/login/device/token", bytes.NewReader(body))
		if err != nil {
			if pollCtx.Err() != nil {
				return "", expired()
			}
			c.report(attempt, 0, metrics.PollFailed, interval)
			return "", &PollError{Err: err}
		}

		switch code := resp.StatusCode; {
		case code/100 == 2:
			tok, derr := decodeToken(resp)
			if derr != nil || tok.P2Key == "" {
				c.logger.Warn("token response without a key (%v); polling again", derr)
				c.report(attempt, code, metrics.PollInvalid, interval)
				continue
			}
			if !c.validate(pollCtx, tok.P2Key) {
				c.logger.Warn("issued key not yet accepted by the service; polling again")
				c.report(attempt, code, metrics.PollInvalid, interval)
				continue
			}
			c.report(attempt, code, metrics.PollGranted, interval)
			return tok.P2Key, nil

		case code == http.StatusBadRequest:
			httputil.DrainAndClose(resp)
			c.report(attempt, code, metrics.PollPending, interval)

		case code == http.StatusTooManyRequests:
			httputil.DrainAndClose(resp)
			interval += c.opts.SlowDownStep
			limiter.SetLimit(rate.Every(interval))
			c.logger.Info("token endpoint asked to slow down; polling every %s", interval)
			c.report(attempt, code, metrics.PollSlowDown, interval)

		default:
			trace := resp.Header.Get(httputil.TraceHeader)
			c.report(attempt, code, metrics.PollFailed, interval)
			return "", &PollError{Code: code, TraceID: trace, Body: httputil.ReadErrorBody(resp)}
		}
	}
}

func (c *Client) report(attempt, status int, result string, interval time.Duration) {
	c.opts.Metrics.Poll(result)
	c.polls.Publish(PollEvent{Attempt: attempt, Status: status, Result: result, Interval: interval})
}

// validate probes the health endpoint with key. A failure means the key
// is not valid yet, which the caller treats as "keep going".
func (c *Client) validate(ctx context.Context, key string) bool {
	if c.opts.SkipValidation {
		return true
	}
	resp, err := c.api.Do(ctx, http.MethodGet, c.opts.HealthPath, nil, httputil.WithBearer(key))
	if err != nil {
		c.logger.Debug("health probe: %v", err)
		return false
	}
	defer httputil.DrainAndClose(resp)
	if resp.StatusCode/100 != 2 {
		c.logger.Debug("health probe: HTTP %d (trace %q)", resp.StatusCode, resp.Header.Get(httputil.TraceHeader))
		return false
	}
	return true
}

func decodeToken(resp *http.Response) (wire.TokenResponse, error) {
	defer resp.Body.Close()
	var tok wire.TokenResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return tok, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return tok, errors.New("empty body")
	}
	err = easyjson.Unmarshal(raw, &tok)
	return tok, err
}
