// ABOUTME: Environment handling for settings: ${VAR} expansion and PLAYER2_* overrides
// ABOUTME: Unset vars expand to empty; overrides are applied after file merge

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Environment overrides.
const (
	EnvBaseURL      = "PLAYER2_BASE_URL"
	EnvClientID     = "PLAYER2_CLIENT_ID"
	EnvHostedOrigin = "PLAYER2_HOSTED_ORIGIN"
	EnvLogLevel     = "PLAYER2_LOG_LEVEL"
	EnvTTS          = "PLAYER2_TTS_STREAMING"
	EnvAPIKey       = "PLAYER2_API_KEY"
)

// ResolveEnvVars expands ${VAR} patterns in string fields of Settings.
func ResolveEnvVars(s *Settings) {
	s.BaseURL = expandEnv(s.BaseURL)
	s.ClientID = expandEnv(s.ClientID)
	s.LocalLoginURL = expandEnv(s.LocalLoginURL)
	s.HostedOrigin = expandEnv(s.HostedOrigin)
	s.MetricsAddr = expandEnv(s.MetricsAddr)
	s.Stream.Path = expandEnv(s.Stream.Path)
	s.Stream.DumpPayloadsDir = expandEnv(s.Stream.DumpPayloadsDir)
}

// ApplyEnv overrides settings from PLAYER2_* variables. lookup is
// os.LookupEnv outside tests.
func ApplyEnv(s *Settings, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvBaseURL, &s.BaseURL)
	str(EnvClientID, &s.ClientID)
	str(EnvHostedOrigin, &s.HostedOrigin)
	str(EnvLogLevel, &s.LogLevel)

	if v, ok := lookup(EnvTTS); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTTS, err)
		}
		s.Stream.TTSStreaming = &b
	}
	return nil
}

// expandEnv replaces ${VAR} with os.Getenv(VAR). Unset vars become "".
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
