// ABOUTME: Tests for URL validation and per-platform opener selection
// ABOUTME: Replaces the launcher so no real browser starts

package browser

import (
	"errors"
	"slices"
	"testing"
)

func TestCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos     string
		wantName string
		wantArgs []string
		wantErr  bool
	}{
		{"darwin", "open", []string{"https://x"}, false},
		{"linux", "xdg-open", []string{"https://x"}, false},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", "https://x"}, false},
		{"plan9", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()
			name, args, err := command(tt.goos, "https://x")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if name != tt.wantName || !slices.Equal(args, tt.wantArgs) {
				t.Errorf("command = %s %v", name, args)
			}
		})
	}
}

// Not parallel: swaps the package-level launcher.
func TestOpen(t *testing.T) {
	orig := launch
	defer func() { launch = orig }()

	var got []string
	launch = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	if err := Open("https://player2.game/device?code=ABCD"); err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 || got[len(got)-1] != "https://player2.game/device?code=ABCD" {
		t.Errorf("launched %v", got)
	}

	for _, bad := range []string{"file:///etc/passwd", "javascript:alert(1)", "https://", "::"} {
		got = nil
		if err := Open(bad); err == nil {
			t.Errorf("Open(%q) succeeded", bad)
		}
		if got != nil {
			t.Errorf("Open(%q) launched %v", bad, got)
		}
	}

	launch = func(string, ...string) error { return errors.New("no display") }
	if err := Open("https://player2.game"); err == nil {
		t.Error("launcher failure not reported")
	}
}
