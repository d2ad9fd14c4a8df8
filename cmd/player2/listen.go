// ABOUTME: listen command: keeps the NPC response stream open and prints replies per entity
// ABOUTME: Optionally serves Prometheus metrics; exits on signal or when the stream gives up

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	ihttp "github.com/mauromedda/player2-go/internal/http"
	"github.com/mauromedda/player2-go/internal/log"
	"github.com/mauromedda/player2-go/internal/textutil"
	"github.com/mauromedda/player2-go/pkg/player2/audio"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
	"github.com/mauromedda/player2-go/pkg/player2/stream"
	"github.com/mauromedda/player2-go/pkg/player2/wire"
)

type listenFlags struct {
	npcs        []string
	tts         bool
	metricsAddr string
	noLogin     bool
	login       loginFlags
}

func newListenCmd(a *app) *cobra.Command {
	var f listenFlags
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream NPC responses and print them as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("tts") {
				a.settings.Stream.TTSStreaming = &f.tts
			}
			if f.metricsAddr == "" {
				f.metricsAddr = a.settings.MetricsAddr
			}
			return a.listen(cmd.Context(), f)
		},
	}
	cmd.Flags().StringSliceVar(&f.npcs, "npc", nil, "NPC ID to listen for (repeatable)")
	cmd.Flags().BoolVar(&f.tts, "tts", false, "Request streamed speech and play it through a headless output")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	cmd.Flags().BoolVar(&f.noLogin, "no-login", false, "Fail instead of signing in when no key is stored")
	cmd.Flags().BoolVar(&f.login.plain, "plain", false, "Use the line-based sign-in prompt even on a terminal")
	_ = cmd.MarkFlagRequired("npc")
	return cmd
}

func (a *app) listen(ctx context.Context, f listenFlags) error {
	logger := log.WithComponent("listen")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := a.authStore()
	if err != nil {
		return err
	}
	sess := newSession(a.settings, store)
	if !sess.Bypass() && sess.Credential() == "" {
		if f.noLogin {
			return fmt.Errorf("no stored key for %q; run player2 login", a.settings.ClientID)
		}
		if err := a.requireClientID(); err != nil {
			return err
		}
		if _, err := a.login(ctx, sess, store, m, f.login); err != nil {
			return fmt.Errorf("signing in: %w", err)
		}
	}

	players := newPlayers(f.npcs)
	client := stream.New(sess, streamOptions(a.settings, players, m))
	printer := &printer{out: a.out}
	for _, id := range f.npcs {
		if err := client.Register(id, printer.handle); err != nil {
			return fmt.Errorf("registering %q: %w", id, err)
		}
	}

	stopped := make(chan error, 1)
	defer client.SubscribeState(func(ch stream.StateChange) {
		logger.Info("stream %s -> %s", ch.From, ch.To)
		if ch.To == stream.Stopped {
			select {
			case stopped <- ch.Err:
			default:
			}
		}
	})()

	defer sess.AttachStream(client)()
	defer func() {
		client.Stop()
		<-client.Done()
	}()

	g, gctx := errgroup.WithContext(ctx)
	if f.metricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, f.metricsAddr, reg) })
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-stopped:
			return explainStop(err)
		}
	})
	return g.Wait()
}

// explainStop adds a hint when the server rejected the key.
func explainStop(err error) error {
	var status *stream.StatusError
	if errors.As(err, &status) && status.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w; the stored key was rejected, run player2 login", err)
	}
	return err
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	log.Info("serving metrics on %s/metrics", addr)
	if err := ihttp.Serve(ctx, ihttp.NewServer(addr, mux), nil); err != nil {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// newPlayers gives each listened-for NPC its own headless output.
func newPlayers(npcs []string) audio.Targets {
	players := make(map[string]*drainPlayer, len(npcs))
	for _, id := range npcs {
		players[id] = newDrainPlayer(id)
	}
	return audio.TargetsFunc(func(entityID string) (audio.Player, bool) {
		p, ok := players[entityID]
		return p, ok
	})
}

// printer writes chat responses as plain lines.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) handle(resp wire.ChatResponse) {
	var b strings.Builder
	if resp.Message != "" {
		fmt.Fprintf(&b, "%s: %s\n", resp.NPCID, textutil.Sanitize(resp.Message))
	}
	for _, call := range resp.Commands {
		fmt.Fprintf(&b, "%s -> %s(%s)\n", resp.NPCID, textutil.Sanitize(call.Name), textutil.Sanitize(call.Arguments))
	}
	if resp.Audio != nil && resp.Audio.Data != "" {
		fmt.Fprintf(&b, "%s: [speech %s]\n", resp.NPCID, resp.Audio.MimeType())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.out, b.String())
}
