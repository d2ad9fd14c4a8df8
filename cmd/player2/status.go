// ABOUTME: status and version commands
// ABOUTME: status shows the effective settings and where the credential comes from, never the key itself

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mauromedda/player2-go/internal/config"
	"github.com/mauromedda/player2-go/pkg/player2"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show effective settings and credential state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.authStore()
			if err != nil {
				return err
			}
			sess := newSession(a.settings, store)

			fmt.Fprint(a.out, config.Explain(a.settings))
			fmt.Fprintln(a.out, "\n=== Credential ===")
			fmt.Fprintf(a.out, "  %-22s %s\n", "APIRoot:", sess.BaseURL())
			fmt.Fprintf(a.out, "  %-22s %s\n", "Source:", credentialSource(sess, store, a.settings.ClientID))
			fmt.Fprintf(a.out, "  %-22s %s\n", "Key:", player2.Redact(sess.Credential()))
			return nil
		},
	}
}

func credentialSource(sess *player2.Session, store *config.AuthStore, clientID string) string {
	switch {
	case sess.Bypass():
		return "hosted origin (bypass)"
	case os.Getenv(config.EnvAPIKey) != "":
		return config.EnvAPIKey
	case store.GetKey(clientID) != "":
		return store.Path()
	default:
		return "none; run player2 login"
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Version needs no settings.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.out, "player2 %s (%s) built %s\n", version, commit, date)
		},
	}
}
