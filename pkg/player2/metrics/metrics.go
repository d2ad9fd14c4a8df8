// ABOUTME: Prometheus collectors for stream connection and device-auth activity
// ABOUTME: Registered against a caller-supplied registry; a nil registry leaves them unregistered

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "player2"

// Drop reasons for EventsDropped.
const (
	DropDuplicate     = "duplicate"
	DropUnknownEntity = "unknown_entity"
	DropDecodeError   = "decode_error"
	DropOversized     = "oversized"
	DropTTSDisabled   = "tts_disabled"
	DropAudioError    = "audio_error"
	DropEmpty         = "empty"
	DropHandlerPanic  = "handler_panic"
)

// Poll results for AuthPolls.
const (
	PollPending  = "pending"
	PollSlowDown = "slow_down"
	PollGranted  = "granted"
	PollInvalid  = "invalid"
	PollFailed   = "failed"
)

// Collector groups every metric the SDK exports.
type Collector struct {
	EventsReceived   *prometheus.CounterVec
	EventsDispatched *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	BytesReceived    prometheus.Counter
	ConnectAttempts  *prometheus.CounterVec
	ConnectLatency   prometheus.Histogram
	Reconnects       prometheus.Counter
	StreamState      prometheus.Gauge

	AuthPolls    *prometheus.CounterVec
	AuthOutcomes *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg is
// valid and yields working but unexported collectors.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		EventsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_received_total",
			Help:      "SSE events parsed off the wire, by event type",
		}, []string{"type"}),
		EventsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_dispatched_total",
			Help:      "Decoded messages delivered to a sink, by kind",
		}, []string{"kind"}),
		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_dropped_total",
			Help:      "Events discarded before delivery, by reason",
		}, []string{"reason"}),
		BytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "bytes_received_total",
			Help:      "Raw bytes read from the event stream",
		}),
		ConnectAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connect_attempts_total",
			Help:      "Connection attempts by result",
		}, []string{"result"}),
		ConnectLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connect_latency_seconds",
			Help:      "Time from request to response headers",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts scheduled after a failed or closed connection",
		}),
		StreamState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "state",
			Help:      "Current connection state (0 idle, 1 connecting, 2 streaming, 3 reconnecting, 4 stopped)",
		}),
		AuthPolls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "polls_total",
			Help:      "Device-token poll responses by result",
		}, []string{"result"}),
		AuthOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "outcomes_total",
			Help:      "Authentication flow outcomes by path",
		}, []string{"result"}),
	}
}

// Dropped counts one discarded event.
func (c *Collector) Dropped(reason string) {
	c.EventsDropped.WithLabelValues(reason).Inc()
}

// Received counts one parsed event. Untyped events are labelled "message".
func (c *Collector) Received(eventType string) {
	if eventType == "" {
		eventType = "message"
	}
	c.EventsReceived.WithLabelValues(eventType).Inc()
}

// Dispatched counts one delivered message.
func (c *Collector) Dispatched(kind string) {
	c.EventsDispatched.WithLabelValues(kind).Inc()
}

// Connected records a connection attempt outcome and its header latency.
func (c *Collector) Connected(success bool, latency time.Duration) {
	result := "failure"
	if success {
		result = "success"
		c.ConnectLatency.Observe(latency.Seconds())
	}
	c.ConnectAttempts.WithLabelValues(result).Inc()
}

// Poll counts one device-token poll.
func (c *Collector) Poll(result string) {
	c.AuthPolls.WithLabelValues(result).Inc()
}

// Outcome counts one finished authentication flow.
func (c *Collector) Outcome(result string) {
	c.AuthOutcomes.WithLabelValues(result).Inc()
}
