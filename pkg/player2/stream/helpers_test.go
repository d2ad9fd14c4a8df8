// ABOUTME: Shared fixtures for stream tests: credential source, SSE test server, and waiters
// ABOUTME: Servers count connections and can block until the client disconnects

package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mauromedda/player2-go/pkg/player2/wire"
)

type source struct {
	mu     sync.Mutex
	cred   string
	bypass bool
	base   string
}

func (s *source) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

func (s *source) Bypass() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bypass
}

func (s *source) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// sseServer serves one handler call per connection. conn is 1-based.
type sseServer struct {
	*httptest.Server
	conns atomic.Int32
}

func newSSEServer(t *testing.T, fn func(w http.ResponseWriter, r *http.Request, conn int)) *sseServer {
	t.Helper()
	s := &sseServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.conns.Add(1))
		fn(w, r, n)
	}))
	t.Cleanup(s.Close)
	return s
}

// open writes the event-stream response headers.
func open(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	w.(http.Flusher).Flush()
}

// send writes raw SSE text and flushes it.
func send(w http.ResponseWriter, s string) {
	_, _ = fmt.Fprint(w, s)
	w.(http.Flusher).Flush()
}

// hold blocks until the client goes away.
func hold(r *http.Request) {
	<-r.Context().Done()
}

func chat(id, npc, message string) string {
	out := ""
	if id != "" {
		out += "id: " + id + "\n"
	}
	return out + fmt.Sprintf("data: {\"npc_id\":%q,\"message\":%q}\n\n", npc, message)
}

// newTestClient builds a client against srv and stops it at cleanup.
func newTestClient(t *testing.T, src *source, opts Options) *Client {
	t.Helper()
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = 10 * time.Millisecond
	}
	c := New(src, opts)
	t.Cleanup(func() {
		c.Stop()
		select {
		case <-c.Done():
		case <-time.After(5 * time.Second):
			t.Error("run loop did not exit after Stop")
		}
	})
	return c
}

// recorder collects chat responses delivered to a handler.
type recorder struct {
	mu   sync.Mutex
	got  []wire.ChatResponse
	recv chan wire.ChatResponse
}

func newRecorder() *recorder {
	return &recorder{recv: make(chan wire.ChatResponse, 64)}
}

func (r *recorder) handle(resp wire.ChatResponse) {
	r.mu.Lock()
	r.got = append(r.got, resp)
	r.mu.Unlock()
	r.recv <- resp
}

func (r *recorder) all() []wire.ChatResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wire.ChatResponse(nil), r.got...)
}

func (r *recorder) next(t *testing.T) wire.ChatResponse {
	t.Helper()
	select {
	case resp := <-r.recv:
		return resp
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a dispatched response")
		return wire.ChatResponse{}
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
