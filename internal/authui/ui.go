// ABOUTME: Overlay runs the Bubble Tea program and acts as the auth flow's Prompter
// ABOUTME: Flow events are forwarded into the program; Approve opens the verification URL

package authui

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mauromedda/player2-go/internal/browser"
	"github.com/mauromedda/player2-go/pkg/player2/auth"
)

// DefaultLinger keeps the success panel on screen before the overlay closes.
const DefaultLinger = 1500 * time.Millisecond

// Options configures an Overlay.
type Options struct {
	Input  io.Reader
	Output io.Writer
	Linger time.Duration
	// Open launches the verification URL; defaults to browser.Open.
	Open func(url string) error
}

// Overlay is a terminal rendition of the authentication flow.
type Overlay struct {
	prog      *tea.Program
	decisions chan Decision
	open      func(string) error
}

// New builds an overlay. Call Attach before Authenticate and Run alongside it.
func New(opts Options) *Overlay {
	if opts.Linger == 0 {
		opts.Linger = DefaultLinger
	}
	if opts.Open == nil {
		opts.Open = browser.Open
	}

	decisions := make(chan Decision, 1)
	var progOpts []tea.ProgramOption
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	return &Overlay{
		prog:      tea.NewProgram(NewModel(decisions, opts.Linger), progOpts...),
		decisions: decisions,
		open:      opts.Open,
	}
}

// Attach forwards c's state changes and polls into the program.
func (o *Overlay) Attach(c *auth.Client) func() {
	unState := c.OnStateChange(func(ch auth.StateChange) { o.prog.Send(StateMsg(ch)) })
	unPoll := c.OnPoll(func(p auth.PollEvent) { o.prog.Send(PollMsg(p)) })
	return func() {
		unState()
		unPoll()
	}
}

// Run blocks until the overlay closes.
func (o *Overlay) Run() error {
	_, err := o.prog.Run()
	return err
}

// Quit closes the overlay early.
func (o *Overlay) Quit() {
	o.prog.Quit()
}

// Prompt implements auth.Prompter.
func (o *Overlay) Prompt(ctx context.Context, s auth.Session) error {
	o.prog.Send(SessionMsg(s))
	select {
	case d := <-o.decisions:
		return resolve(d, s, o.open)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolve turns a decision into the Prompter result.
func resolve(d Decision, s auth.Session, open func(string) error) error {
	if d != Approve {
		return auth.ErrDenied
	}
	if err := open(s.VerificationURIComplete); err != nil {
		// The URL is on screen; the user can still open it by hand.
		return fmt.Errorf("%w; open %s manually", err, s.VerificationURIComplete)
	}
	return nil
}
