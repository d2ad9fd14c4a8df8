// ABOUTME: Device authorization options and defaults
// ABOUTME: Poll pacing, local companion login, validation probe, and metrics

package auth

import (
	"net/http"
	"time"

	"github.com/mauromedda/player2-go/pkg/player2/metrics"
)

// Defaults.
const (
	DefaultLocalLoginURL     = "http://localhost:4315/v1"
	DefaultLocalLoginTimeout = 5 * time.Second
	DefaultMinPollInterval   = time.Second
	DefaultSlowDownStep      = 5 * time.Second
	DefaultHealthPath        = "/health"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://api.player2.game/v1.
	BaseURL  string
	ClientID string

	// LocalLoginURL is the companion app root. DisableLocalLogin skips the
	// fast path entirely.
	LocalLoginURL     string
	LocalLoginTimeout time.Duration
	DisableLocalLogin bool

	// Bypass reports the trusted-hosted scenario. It is queried once per
	// Authenticate call and must not do I/O.
	Bypass func() bool

	MinPollInterval time.Duration
	SlowDownStep    time.Duration

	// HealthPath is probed with the candidate key. SkipValidation accepts
	// keys without probing.
	HealthPath     string
	SkipValidation bool

	HTTPClient *http.Client
	Metrics    *metrics.Collector
}

func (o Options) withDefaults() Options {
	if o.LocalLoginURL == "" {
		o.LocalLoginURL = DefaultLocalLoginURL
	}
	if o.LocalLoginTimeout <= 0 {
		o.LocalLoginTimeout = DefaultLocalLoginTimeout
	}
	if o.Bypass == nil {
		o.Bypass = func() bool { return false }
	}
	if o.MinPollInterval <= 0 {
		o.MinPollInterval = DefaultMinPollInterval
	}
	if o.SlowDownStep <= 0 {
		o.SlowDownStep = DefaultSlowDownStep
	}
	if o.HealthPath == "" {
		o.HealthPath = DefaultHealthPath
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
	return o
}
