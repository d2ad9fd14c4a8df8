// ABOUTME: Stream client options and their defaults
// ABOUTME: Reconnect budget, watchdog window, event size cap, TTS, and debug payload dumps

package stream

import (
	"net/http"
	"time"

	"github.com/mauromedda/player2-go/pkg/player2/audio"
	"github.com/mauromedda/player2-go/pkg/player2/internal/sse"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
)

// Defaults.
const (
	DefaultStreamPath           = "/npcs/responses"
	DefaultReconnectDelay       = 2 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultIdleTimeout          = 300 * time.Second
	DefaultMaxEventSize         = sse.DefaultMaxEventSize
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	// StreamPath is appended to the session base URL.
	StreamPath string

	// TTSStreaming requests audio chunks (?tts-streaming=true) and routes
	// them to AudioTargets. When false, audio chunks are ignored.
	TTSStreaming bool

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// IdleTimeout is the watchdog window: no bytes for this long after the
	// response headers arrive fails the attempt.
	IdleTimeout time.Duration

	MaxEventSize int

	// HTTPClient must not set an overall Timeout. Defaults to a streaming
	// client with an instrumented transport.
	HTTPClient *http.Client

	AudioTargets audio.Targets
	AudioConfig  audio.Config

	Metrics *metrics.Collector

	// PayloadDumpDir, when set, receives a JSON file per decoded or failed
	// payload for offline inspection.
	PayloadDumpDir string
}

func (o Options) withDefaults() Options {
	if o.StreamPath == "" {
		o.StreamPath = DefaultStreamPath
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.MaxEventSize <= 0 {
		o.MaxEventSize = DefaultMaxEventSize
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New(nil)
	}
	return o
}
