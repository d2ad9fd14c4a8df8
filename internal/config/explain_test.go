// ABOUTME: Tests for human-readable config explanation rendering
// ABOUTME: Covers empty, full, and nil settings

package config

import (
	"strings"
	"testing"
	"time"
)

func TestExplain_EmptySettings(t *testing.T) {
	t.Parallel()

	result := Explain(&Settings{})
	for _, section := range []string{"General", "Stream", "Auth"} {
		if !strings.Contains(result, "=== "+section+" ===") {
			t.Errorf("missing %s section:\n%s", section, result)
		}
	}
	if strings.Contains(result, "BaseURL") {
		t.Error("empty BaseURL should be omitted")
	}
	if !strings.Contains(result, "Validate:") || !strings.Contains(result, "true") {
		t.Error("validation default should be shown as true")
	}
}

func TestExplain_FullSettings(t *testing.T) {
	t.Parallel()

	tts := true
	s := &Settings{
		BaseURL:  "https://api.example.com/v1",
		ClientID: "game-1",
		Stream: StreamSettings{
			TTSStreaming:         &tts,
			ReconnectDelay:       Duration(3 * time.Second),
			MaxReconnectAttempts: 7,
			MaxEventSize:         1024,
		},
		Auth: AuthSettings{DisableLocalLogin: true},
	}
	result := Explain(s)

	for _, want := range []string{
		"https://api.example.com/v1",
		"game-1",
		"3s",
		"MaxReconnectAttempts:",
		"1024 bytes",
		"disabled",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in:\n%s", want, result)
		}
	}
}

func TestExplain_Nil(t *testing.T) {
	t.Parallel()

	if Explain(nil) == "" {
		t.Error("Explain(nil) should render defaults")
	}
}
