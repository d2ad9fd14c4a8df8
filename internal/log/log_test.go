// ABOUTME: Tests for the logging package
// ABOUTME: Validates level filtering, component tagging, and always-on errors

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// capture routes output into a buffer for the duration of the test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := GetLevel()
	Configure(Config{Output: &buf, JSON: true})
	t.Cleanup(func() {
		Configure(Config{Output: os.Stderr})
		SetLevel(saved)
	})
	return &buf
}

func TestSetLevel(t *testing.T) {
	saved := GetLevel()
	defer SetLevel(saved)

	SetLevel(LevelDebug)
	if GetLevel() != LevelDebug {
		t.Errorf("expected LevelDebug, got %v", GetLevel())
	}

	SetLevel(LevelError)
	if GetLevel() != LevelError {
		t.Errorf("expected LevelError, got %v", GetLevel())
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelInfo)

	Debug("this should be suppressed: %s", "test")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestErrorAlwaysEmitted(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelError + 1)

	Error("boom: %d", 42)

	if !strings.Contains(buf.String(), "boom: 42") {
		t.Errorf("expected error line, got %q", buf.String())
	}
}

func TestComponentField(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelDebug)

	WithComponent("stream").Warn("reconnecting in %s", "2s")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["component"] != "stream" {
		t.Errorf("component = %v, want stream", line["component"])
	}
	if line["level"] != "warn" {
		t.Errorf("level = %v, want warn", line["level"])
	}
	if line["message"] != "reconnecting in 2s" {
		t.Errorf("message = %v", line["message"])
	}
}

func TestConfigureParsesLevel(t *testing.T) {
	capture(t)

	Configure(Config{Level: "warn", Output: &bytes.Buffer{}})
	if GetLevel() != LevelWarn {
		t.Errorf("level = %v, want warn", GetLevel())
	}
}
