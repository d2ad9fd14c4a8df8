// ABOUTME: Session: the credential supplier shared by the auth flow and the event stream
// ABOUTME: Chooses the API root from the hosting origin and fans credential changes out to subscribers

package player2

import (
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/mauromedda/player2-go/internal/eventbus"
	"github.com/mauromedda/player2-go/internal/log"
	"github.com/mauromedda/player2-go/pkg/player2/auth"
	"github.com/mauromedda/player2-go/pkg/player2/stream"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.player2.game/v1"
	// HostedBaseURL is the API root behind the hosting edge, where session
	// cookies authenticate requests.
	HostedBaseURL = "https://games.player2.game/_api/v1"
	// HostedDomain is the registrable domain of the hosting edge.
	HostedDomain = "player2.game"
)

// IsHostedOrigin reports whether origin (a URL or bare host) belongs to the
// hosting edge. Lookalikes such as player2.game.example.com do not match.
func IsHostedOrigin(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	host := origin
	if strings.Contains(origin, "://") {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host = u.Hostname()
	} else if h, _, ok := strings.Cut(origin, ":"); ok {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == HostedDomain {
		return true
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	return err == nil && etld1 == HostedDomain
}

// SessionConfig selects the API root and initial credential.
type SessionConfig struct {
	// BaseURL overrides the API root. Empty picks DefaultBaseURL, or
	// HostedBaseURL when HostedOrigin is on the hosting edge.
	BaseURL string
	// HostedOrigin is the origin the host application is served from, if
	// any. A hosted origin enables bypass mode.
	HostedOrigin string
	Credential   string
}

// Session supplies credentials to the stream client and records the
// credential the auth flow produces. It satisfies stream.CredentialSource.
type Session struct {
	logger  log.Logger
	baseURL string
	hosted  bool
	changes *eventbus.Bus[string]

	mu         sync.RWMutex
	credential string
}

var _ stream.CredentialSource = (*Session)(nil)

// NewSession builds a session from cfg.
func NewSession(cfg SessionConfig) *Session {
	hosted := IsHostedOrigin(cfg.HostedOrigin)
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
		if hosted {
			base = HostedBaseURL
		}
	}

	s := &Session{
		logger:     log.WithComponent("session"),
		baseURL:    base,
		hosted:     hosted,
		changes:    eventbus.New[string](),
		credential: cfg.Credential,
	}
	s.changes.OnPanic(func(r any) {
		s.logger.Error("credential subscriber: %v", eventbus.PanicError(r))
	})
	return s
}

// Credential returns the current key. In bypass mode it is always empty so
// no bearer header is ever sent.
func (s *Session) Credential() string {
	if s.hosted {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// Bypass reports whether the hosting edge authenticates requests.
func (s *Session) Bypass() bool { return s.hosted }

// BaseURL returns the API root.
func (s *Session) BaseURL() string { return s.baseURL }

// SetCredential stores key and notifies subscribers, even when the key is
// unchanged, so a re-authentication can restart a stopped consumer.
func (s *Session) SetCredential(key string) {
	s.mu.Lock()
	s.credential = key
	s.mu.Unlock()

	s.logger.Info("credential updated: %s", Redact(key))
	s.changes.Publish(s.Credential())
}

// OnCredentialChanged subscribes to SetCredential.
func (s *Session) OnCredentialChanged(fn func(string)) func() {
	return s.changes.Subscribe(fn)
}

// AttachStream forwards credential changes to c. If a credential (or bypass)
// is already available, c is notified immediately.
func (s *Session) AttachStream(c *stream.Client) func() {
	unsubscribe := s.changes.Subscribe(c.CredentialChanged)
	if cred := s.Credential(); cred != "" || s.hosted {
		c.CredentialChanged(cred)
	}
	return unsubscribe
}

// AttachAuth stores every credential the auth flow acquires.
func (s *Session) AttachAuth(a *auth.Client) func() {
	return a.OnCredential(func(r auth.Result) {
		s.SetCredential(r.Credential)
	})
}

// AuthOptions returns auth options targeting this session's API root with
// bypass tied to the hosting origin.
func (s *Session) AuthOptions(clientID string) auth.Options {
	return auth.Options{
		BaseURL:  s.baseURL,
		ClientID: clientID,
		Bypass:   s.Bypass,
	}
}

// Redact shortens a key for logs.
func Redact(key string) string {
	switch {
	case key == "":
		return "(none)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "…" + key[len(key)-2:]
	}
}
