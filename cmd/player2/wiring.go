// ABOUTME: Builds the session, auth client, and stream client from merged settings
// ABOUTME: One metrics collector is shared so a single registry exports both flows

package main

import (
	"github.com/mauromedda/player2-go/internal/config"
	"github.com/mauromedda/player2-go/internal/log"
	"github.com/mauromedda/player2-go/pkg/player2"
	"github.com/mauromedda/player2-go/pkg/player2/audio"
	"github.com/mauromedda/player2-go/pkg/player2/auth"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
	"github.com/mauromedda/player2-go/pkg/player2/stream"
)

// newSession builds a session seeded with the stored key for the client ID.
func newSession(s *config.Settings, store *config.AuthStore) *player2.Session {
	var key string
	if store != nil {
		key = store.GetKey(s.ClientID)
	}
	return player2.NewSession(player2.SessionConfig{
		BaseURL:      s.BaseURL,
		HostedOrigin: s.HostedOrigin,
		Credential:   key,
	})
}

func authOptions(s *config.Settings, sess *player2.Session, m *metrics.Collector) auth.Options {
	opts := sess.AuthOptions(s.ClientID)
	opts.LocalLoginURL = s.LocalLoginURL
	opts.DisableLocalLogin = s.Auth.DisableLocalLogin
	opts.MinPollInterval = s.Auth.MinPollInterval.Std()
	opts.SlowDownStep = s.Auth.SlowDownStep.Std()
	opts.SkipValidation = !s.Auth.ShouldValidate()
	opts.Metrics = m
	return opts
}

func streamOptions(s *config.Settings, targets audio.Targets, m *metrics.Collector) stream.Options {
	return stream.Options{
		StreamPath:           s.Stream.Path,
		TTSStreaming:         s.Stream.TTS(),
		ReconnectDelay:       s.Stream.ReconnectDelay.Std(),
		MaxReconnectAttempts: s.Stream.MaxReconnectAttempts,
		IdleTimeout:          s.Stream.IdleTimeout.Std(),
		MaxEventSize:         s.Stream.MaxEventSize,
		AudioTargets:         targets,
		Metrics:              m,
		PayloadDumpDir:       s.Stream.DumpPayloadsDir,
	}
}

// persistCredentials saves every key the auth flow acquires. Bypass results
// carry no key and are not stored.
func persistCredentials(a *auth.Client, store *config.AuthStore, clientID string) func() {
	return a.OnCredential(func(r auth.Result) {
		if r.Credential == "" {
			return
		}
		store.SetKey(clientID, r.Credential)
		if err := store.Save(); err != nil {
			log.Error("saving credential: %v", err)
		}
	})
}
