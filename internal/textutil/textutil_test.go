// ABOUTME: Tests for sanitizing, measuring, and truncating remote text
// ABOUTME: Covers escape sequences, wide graphemes, and emoji clusters

package textutil

import "testing"

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"keeps newline and tab", "a\nb\tc", "a\nb\tc"},
		{"strips CSI", "\x1b[31mred\x1b[0m", "red"},
		{"strips OSC with BEL", "\x1b]0;title\x07text", "text"},
		{"strips OSC with ST", "\x1b]8;;http://x\x1b\\link", "link"},
		{"strips bare controls", "a\x00b\x07c\x7f", "abc"},
		{"strips carriage return", "line\r\n", "line\n"},
		{"trailing lone ESC", "abc\x1b", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"日本", 4},
		{"👍🏽", 2},
		{"é", 1},
	}
	for _, tt := range tests {
		if got := Width(tt.in); got != tt.want {
			t.Errorf("Width(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		cols int
		want string
	}{
		{"fits", "hello", 5, "hello"},
		{"cut ascii", "hello world", 6, "hello…"},
		{"wide chars not split", "日本語", 4, "日…"},
		{"emoji cluster kept whole", "ab👍🏽cd", 4, "ab…"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Truncate(tt.in, tt.cols); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.cols, got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	t.Parallel()

	got := Preview("Hello\n  \x1b[1mtraveller\x1b[0m,\twelcome to the tavern", 20)
	if want := "Hello traveller, we…"; got != want {
		t.Errorf("Preview() = %q, want %q", got, want)
	}
}
