// ABOUTME: Tests for collector registration and helper label handling
// ABOUTME: Uses prometheus/testutil against a private registry per test

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistersCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)
	c.Received("")
	c.Dispatched("chat")
	c.Dropped(DropDuplicate)
	c.Poll(PollPending)
	c.Outcome("device")
	c.Connected(true, 120*time.Millisecond)
	c.Reconnects.Inc()
	c.StreamState.Set(2)
	c.BytesReceived.Add(10)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 10 {
		t.Errorf("gathered %d families, want 10", len(families))
	}
}

func TestNilRegistryIsUsable(t *testing.T) {
	t.Parallel()

	c := New(nil)
	c.Dropped(DropOversized)
	if got := testutil.ToFloat64(c.EventsDropped.WithLabelValues(DropOversized)); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}

func TestReceivedLabelsUntypedAsMessage(t *testing.T) {
	t.Parallel()

	c := New(nil)
	c.Received("")
	c.Received("ping")
	c.Received("ping")

	if got := testutil.ToFloat64(c.EventsReceived.WithLabelValues("message")); got != 1 {
		t.Errorf("message = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.EventsReceived.WithLabelValues("ping")); got != 2 {
		t.Errorf("ping = %v, want 2", got)
	}
}

func TestConnectedObservesLatencyOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	c := New(nil)
	c.Connected(false, time.Second)
	c.Connected(true, time.Second)

	var m dto.Metric
	if err := c.ConnectLatency.Write(&m); err != nil {
		t.Fatal(err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("latency samples = %d, want 1", got)
	}
	if got := testutil.ToFloat64(c.ConnectAttempts.WithLabelValues("failure")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ConnectAttempts.WithLabelValues("success")); got != 1 {
		t.Errorf("successes = %v, want 1", got)
	}
}
