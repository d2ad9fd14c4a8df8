// ABOUTME: Root command, persistent flags, and the settings/logging bootstrap shared by subcommands
// ABOUTME: Config is loaded once in PersistentPreRunE; flags override file and environment values

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mauromedda/player2-go/internal/config"
	"github.com/mauromedda/player2-go/internal/log"
)

// app carries state shared by every subcommand.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	projectDir string
	clientID   string
	baseURL    string
	verbose    bool

	settings *config.Settings
	authPath string
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "player2",
		Short: "Authenticate with Player2 and stream NPC responses",
		Long: `player2 signs in to the Player2 API with the device authorization flow
and listens on the NPC response stream, printing chat replies and
optionally playing streamed speech.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load() },
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.projectDir, "project", "", "Project root holding .player2/config.yaml (default: working directory)")
	flags.StringVar(&a.clientID, "client-id", "", "Game client ID (overrides config and "+config.EnvClientID+")")
	flags.StringVar(&a.baseURL, "base-url", "", "API root (overrides config and "+config.EnvBaseURL+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newListenCmd(a),
		newStatusCmd(a),
		newVersionCmd(a),
	)
	return root
}

// load merges configuration and configures logging.
func (a *app) load() error {
	if a.settings != nil {
		return nil
	}
	root := a.projectDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}

	s, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.clientID != "" {
		s.ClientID = a.clientID
	}
	if a.baseURL != "" {
		s.BaseURL = a.baseURL
	}
	if a.verbose {
		s.LogLevel = "debug"
	}

	log.Configure(log.Config{Level: s.LogLevel, Output: a.errOut, JSON: s.LogJSON || !isTerminal(a.errOut)})
	a.settings = s
	return nil
}

// authStore opens the credential file. authPath is only set by tests.
func (a *app) authStore() (*config.AuthStore, error) {
	if a.authPath != "" {
		return config.LoadAuthFrom(a.authPath)
	}
	return config.LoadAuth()
}

// isTerminal reports whether w is a terminal. Anything else gets JSON logs.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) requireClientID() error {
	if a.settings.ClientID == "" {
		return fmt.Errorf("no client ID: pass --client-id, set %s, or add client_id to config.yaml", config.EnvClientID)
	}
	return nil
}
