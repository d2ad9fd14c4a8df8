// ABOUTME: login and logout commands: run the device authorization flow and manage stored keys
// ABOUTME: A TTY gets the Bubble Tea overlay; anything else gets the line-based prompt

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/mauromedda/player2-go/internal/authui"
	"github.com/mauromedda/player2-go/internal/browser"
	"github.com/mauromedda/player2-go/internal/config"
	"github.com/mauromedda/player2-go/pkg/player2"
	"github.com/mauromedda/player2-go/pkg/player2/auth"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
)

type loginFlags struct {
	plain     bool
	noBrowser bool
}

func newLoginCmd(a *app) *cobra.Command {
	var f loginFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store an API key for this client ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireClientID(); err != nil {
				return err
			}
			store, err := a.authStore()
			if err != nil {
				return err
			}
			sess := newSession(a.settings, store)
			if sess.Bypass() {
				fmt.Fprintln(a.out, "Hosted origin: requests are authenticated by the hosting edge; nothing to store.")
				return nil
			}

			res, err := a.login(cmd.Context(), sess, store, metrics.New(nil), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in via %s; key %s saved to %s\n",
				res.Method, player2.Redact(res.Credential), store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Use the line-based prompt even on a terminal")
	cmd.Flags().BoolVar(&f.noBrowser, "no-browser", false, "Print the verification URL without opening a browser")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API key for this client ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireClientID(); err != nil {
				return err
			}
			store, err := a.authStore()
			if err != nil {
				return err
			}
			if !store.DeleteKey(a.settings.ClientID) {
				fmt.Fprintf(a.out, "No stored key for %s\n", a.settings.ClientID)
				return nil
			}
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed key for %s\n", a.settings.ClientID)
			return nil
		},
	}
}

// login runs one Authenticate with the prompter that suits the terminal.
// Acquired keys land in the session and in store.
func (a *app) login(ctx context.Context, sess *player2.Session, store *config.AuthStore, m *metrics.Collector, f loginFlags) (auth.Result, error) {
	client, err := auth.New(authOptions(a.settings, sess, m))
	if err != nil {
		return auth.Result{}, err
	}
	defer sess.AttachAuth(client)()
	defer persistCredentials(client, store, a.settings.ClientID)()

	open := browser.Open
	if f.noBrowser {
		open = nil
	}

	if f.plain || !a.interactive() {
		return client.Authenticate(ctx, authui.Plain{In: a.in, Out: a.out, Open: open})
	}
	if open == nil {
		open = func(string) error { return nil }
	}
	return runOverlay(ctx, client, authui.New(authui.Options{Input: a.in, Output: a.out, Open: open}))
}

// runOverlay drives the overlay and the flow together. The overlay closes
// itself on Success or Error; closing it early cancels the flow, and a
// cancelled flow closes it at once.
func runOverlay(ctx context.Context, client *auth.Client, overlay *authui.Overlay) (auth.Result, error) {
	defer overlay.Attach(client)()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var res auth.Result
	g := new(errgroup.Group)
	g.Go(func() error {
		defer cancel()
		return overlay.Run()
	})
	g.Go(func() error {
		var err error
		res, err = client.Authenticate(ctx, overlay)
		if ctx.Err() != nil {
			overlay.Quit()
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return auth.Result{}, err
	}
	return res, nil
}

// interactive reports whether both ends of the session are terminals.
func (a *app) interactive() bool {
	in, ok := a.in.(*os.File)
	return ok && term.IsTerminal(int(in.Fd())) && isTerminal(a.out)
}
