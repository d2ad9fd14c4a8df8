// ABOUTME: Line-based Prompter for terminals without a TTY-capable UI
// ABOUTME: Prints the verification URL and reads a single approve/deny answer

package authui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mauromedda/player2-go/pkg/player2/auth"
)

// Plain prompts on a line-oriented stream.
type Plain struct {
	In   io.Reader
	Out  io.Writer
	Open func(url string) error
}

// Prompt implements auth.Prompter. An empty answer or "y" approves;
// "n" denies. End of input approves without opening a browser.
func (p Plain) Prompt(ctx context.Context, s auth.Session) error {
	fmt.Fprintf(p.Out, "Sign in to Player2 at:\n  %s\n", s.VerificationURIComplete)
	if s.UserCode != "" {
		fmt.Fprintf(p.Out, "Code: %s\n", s.UserCode)
	}
	fmt.Fprint(p.Out, "Open it in your browser now? [Y/n] ")

	answers := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && line == "" {
			close(answers)
			return
		}
		answers <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case answer, ok := <-answers:
		switch {
		case !ok:
			fmt.Fprintln(p.Out)
			return nil
		case answer == "n" || answer == "no":
			return auth.ErrDenied
		}
	}

	if p.Open == nil {
		return nil
	}
	if err := resolve(Approve, s, p.Open); err != nil {
		fmt.Fprintf(p.Out, "Could not open a browser (%v).\n", err)
	}
	fmt.Fprintln(p.Out, "Waiting for confirmation…")
	return nil
}
