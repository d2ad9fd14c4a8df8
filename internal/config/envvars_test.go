// ABOUTME: Tests for environment variable expansion in config
// ABOUTME: Validates ${VAR} replacement for set, unset, and mixed patterns

package config

import (
	"testing"
)

func TestExpandEnv_Set(t *testing.T) {
	t.Setenv("TEST_CLIENT", "game-42")
	result := expandEnv("${TEST_CLIENT}")
	if result != "game-42" {
		t.Errorf("expandEnv = %q; want %q", result, "game-42")
	}
}

func TestExpandEnv_Unset(t *testing.T) {
	result := expandEnv("${DEFINITELY_NOT_SET_12345}")
	if result != "" {
		t.Errorf("expandEnv = %q; want empty for unset var", result)
	}
}

func TestExpandEnv_Mixed(t *testing.T) {
	t.Setenv("MY_HOST", "localhost")
	result := expandEnv("https://${MY_HOST}:8080/v1")
	if result != "https://localhost:8080/v1" {
		t.Errorf("expandEnv = %q; want %q", result, "https://localhost:8080/v1")
	}
}

func TestExpandEnv_NoPattern(t *testing.T) {
	result := expandEnv("plain string")
	if result != "plain string" {
		t.Errorf("expandEnv = %q; want %q", result, "plain string")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("DUMP_ROOT", "/tmp/p2")
	s := &Settings{
		ClientID: "${MISSING_VAR_FOR_TEST}",
		Stream:   StreamSettings{DumpPayloadsDir: "${DUMP_ROOT}/payloads"},
	}
	ResolveEnvVars(s)
	if s.ClientID != "" || s.Stream.DumpPayloadsDir != "/tmp/p2/payloads" {
		t.Errorf("resolved = %q, %q", s.ClientID, s.Stream.DumpPayloadsDir)
	}
}
