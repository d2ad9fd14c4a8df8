// ABOUTME: End-to-end tests for the player2 command tree against httptest fakes
// ABOUTME: PLAYER2_HOME points at a temp dir so no real credentials are touched

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mauromedda/player2-go/internal/config"
	"github.com/mauromedda/player2-go/pkg/player2/audio"
	"github.com/mauromedda/player2-go/pkg/player2/stream"
	"github.com/mauromedda/player2-go/pkg/player2/wire"
)

const testKey = "p2_abcdefghijkl"

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// env isolates config and credentials for one test and returns the project dir.
func env(t *testing.T, projectYAML string) string {
	t.Helper()
	t.Setenv(config.HomeEnv, t.TempDir())
	for _, k := range []string{config.EnvAPIKey, config.EnvBaseURL, config.EnvClientID, config.EnvHostedOrigin, config.EnvLogLevel, config.EnvTTS} {
		t.Setenv(k, "")
	}
	project := t.TempDir()
	if projectYAML != "" {
		dir := filepath.Join(project, ".player2")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(projectYAML), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return project
}

func run(ctx context.Context, in io.Reader, out io.Writer, args ...string) error {
	root := newRootCmd(in, out, io.Discard)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func storedKey(t *testing.T, clientID string) string {
	t.Helper()
	store, err := config.LoadAuth()
	if err != nil {
		t.Fatal(err)
	}
	return store.Keys[clientID]
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), strings.NewReader(""), &out, "version"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "player2 dev") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRequiresClientID(t *testing.T) {
	project := env(t, "")
	err := run(context.Background(), strings.NewReader(""), io.Discard, "login", "--project", project)
	if err == nil || !strings.Contains(err.Error(), "no client ID") {
		t.Errorf("err = %v", err)
	}
}

func deviceServer(t *testing.T) *httptest.Server {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/login/device/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"device_code":"dc","user_code":"WXYZ","verification_uri_complete":"https://player2.game/device?code=WXYZ","interval":0,"expires_in":30}`)
	})
	mux.HandleFunc("POST /v1/login/device/token", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"p2_key":%q}`, testKey)
	})
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testKey {
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

const fastAuth = `
auth:
  disable_local_login: true
  min_poll_interval: 10ms
`

func TestLoginStoresKeyAndLogoutRemovesIt(t *testing.T) {
	project := env(t, fastAuth)
	srv := deviceServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := run(ctx, strings.NewReader("\n"), &out,
		"login", "--project", project, "--client-id", "game-1", "--base-url", srv.URL+"/v1", "--no-browser")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "https://player2.game/device?code=WXYZ") {
		t.Errorf("verification URL not shown:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Signed in via device") {
		t.Errorf("missing success line:\n%s", out.String())
	}
	if strings.Contains(out.String(), testKey) {
		t.Error("full key printed")
	}
	if got := storedKey(t, "game-1"); got != testKey {
		t.Fatalf("stored key = %q", got)
	}

	out.Reset()
	if err := run(ctx, strings.NewReader(""), &out, "logout", "--project", project, "--client-id", "game-1"); err != nil {
		t.Fatal(err)
	}
	if got := storedKey(t, "game-1"); got != "" {
		t.Errorf("key survived logout: %q", got)
	}

	out.Reset()
	if err := run(ctx, strings.NewReader(""), &out, "logout", "--project", project, "--client-id", "game-1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No stored key") {
		t.Errorf("second logout output = %q", out.String())
	}
}

func TestLoginDenied(t *testing.T) {
	project := env(t, fastAuth)
	srv := deviceServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx, strings.NewReader("n\n"), io.Discard,
		"login", "--project", project, "--client-id", "game-1", "--base-url", srv.URL+"/v1", "--no-browser")
	if err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("err = %v", err)
	}
	if got := storedKey(t, "game-1"); got != "" {
		t.Errorf("key stored after denial: %q", got)
	}
}

func TestLoginHostedOrigin(t *testing.T) {
	project := env(t, "hosted_origin: https://mygame.player2.game\n")
	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(""), &out,
		"login", "--project", project, "--client-id", "game-1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Hosted origin") {
		t.Errorf("hosted session not reported:\n%s", out.String())
	}
	if got := storedKey(t, "game-1"); got != "" {
		t.Errorf("hosted login stored %q", got)
	}
}

func TestStatus(t *testing.T) {
	project := env(t, "client_id: game-1\n")
	t.Setenv(config.EnvAPIKey, testKey)

	var out bytes.Buffer
	if err := run(context.Background(), strings.NewReader(""), &out, "status", "--project", project); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"ClientID:", "game-1", "=== Credential ===", config.EnvAPIKey, "https://api.player2.game/v1"} {
		if !strings.Contains(got, want) {
			t.Errorf("status lacks %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, testKey) {
		t.Error("status printed the full key")
	}
}

func TestStatusHosted(t *testing.T) {
	project := env(t, "hosted_origin: https://mygame.player2.game\n")
	var out bytes.Buffer
	if err := run(context.Background(), strings.NewReader(""), &out, "status", "--project", project); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "bypass") || !strings.Contains(out.String(), "games.player2.game") {
		t.Errorf("status output:\n%s", out.String())
	}
}

func TestListenPrintsResponses(t *testing.T) {
	project := env(t, "")
	t.Setenv(config.EnvAPIKey, testKey)

	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/npcs/responses" {
			http.NotFound(w, r)
			return
		}
		auth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "id: 1\ndata: {\"npc_id\":\"guard\",\"message\":\"Halt!\",\"command\":[{\"name\":\"wave\",\"arguments\":\"{}\"}]}\n\n")
		fmt.Fprint(w, "id: 2\ndata: {\"npc_id\":\"merchant\",\"message\":\"ignored\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	errc := make(chan error, 1)
	go func() {
		errc <- run(ctx, strings.NewReader(""), out,
			"listen", "--project", project, "--client-id", "game-1", "--base-url", srv.URL+"/v1", "--npc", "guard", "--no-login")
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "guard -> wave({})") {
		if time.Now().After(deadline) {
			t.Fatalf("no response printed:\n%s", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("listen returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not exit after cancellation")
	}

	got := out.String()
	if !strings.Contains(got, "guard: Halt!") {
		t.Errorf("missing chat line:\n%s", got)
	}
	if strings.Contains(got, "ignored") {
		t.Errorf("unregistered NPC printed:\n%s", got)
	}
	if v, _ := auth.Load().(string); v != "Bearer "+testKey {
		t.Errorf("Authorization = %q", v)
	}
}

func TestListenRejectedKey(t *testing.T) {
	project := env(t, "stream:\n  reconnect_delay: 10ms\n  max_reconnect_attempts: 1\n")
	t.Setenv(config.EnvAPIKey, "p2_revoked_key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := run(ctx, strings.NewReader(""), io.Discard,
		"listen", "--project", project, "--client-id", "game-1", "--base-url", srv.URL+"/v1", "--npc", "guard", "--no-login")
	if !errors.Is(err, stream.ErrMaxReconnects) {
		t.Fatalf("err = %v, want ErrMaxReconnects", err)
	}
	if !strings.Contains(err.Error(), "run player2 login") {
		t.Errorf("missing login hint: %v", err)
	}
}

func TestListenWithoutKey(t *testing.T) {
	project := env(t, "")
	err := run(context.Background(), strings.NewReader(""), io.Discard,
		"listen", "--project", project, "--client-id", "game-1", "--npc", "guard", "--no-login")
	if err == nil || !strings.Contains(err.Error(), "player2 login") {
		t.Errorf("err = %v", err)
	}
}

func TestPrinter(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := &printer{out: &out}
	p.handle(wire.ChatResponse{
		NPCID:    "guard",
		Message:  "hi\x1b[31m there",
		Commands: []wire.FunctionCall{{Name: "open_door", Arguments: `{"id":3}`}},
		Audio:    &wire.SpeechAudio{Data: "data:audio/mp3;base64,AAAA"},
	})
	want := "guard: hi there\nguard -> open_door({\"id\":3})\nguard: [speech audio/mp3]\n"
	if out.String() != want {
		t.Errorf("got %q\nwant %q", out.String(), want)
	}
}

func TestDrainPlayerConsumesUtterance(t *testing.T) {
	t.Parallel()

	s := audio.NewStream("guard", 8000, audio.Config{PrebufferMs: 1})
	s.Enqueue(make([]byte, 2*800)) // 100ms
	s.MarkFinal()

	p := newDrainPlayer("guard")
	if err := p.Play(s); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for !s.Drained() {
		if time.Now().After(deadline) {
			t.Fatalf("stream not drained, %d samples left", s.Buffered())
		}
		time.Sleep(10 * time.Millisecond)
	}
	p.Stop()
}

func TestDrainPlayerStop(t *testing.T) {
	t.Parallel()

	s := audio.NewStream("guard", 8000, audio.Config{PrebufferMs: 1})
	p := newDrainPlayer("guard")
	if err := p.Play(s); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
