// ABOUTME: Human-readable rendering of effective configuration
// ABOUTME: Used by the "status" CLI command to show merged settings

package config

import (
	"fmt"
	"strings"
)

// Explain renders a human-readable summary of the effective settings.
// Shows non-zero values grouped by section.
func Explain(s *Settings) string {
	if s == nil {
		s = &Settings{}
	}

	var b strings.Builder

	b.WriteString("=== General ===\n")
	field(&b, "BaseURL", s.BaseURL)
	field(&b, "ClientID", s.ClientID)
	field(&b, "LocalLoginURL", s.LocalLoginURL)
	field(&b, "HostedOrigin", s.HostedOrigin)
	field(&b, "LogLevel", s.LogLevel)
	field(&b, "MetricsAddr", s.MetricsAddr)
	b.WriteString("\n")

	b.WriteString("=== Stream ===\n")
	st := s.Stream
	field(&b, "Path", st.Path)
	fmt.Fprintf(&b, "  %-22s %v\n", "TTSStreaming:", st.TTS())
	if st.ReconnectDelay != 0 {
		field(&b, "ReconnectDelay", st.ReconnectDelay.Std().String())
	}
	if st.MaxReconnectAttempts != 0 {
		field(&b, "MaxReconnectAttempts", fmt.Sprint(st.MaxReconnectAttempts))
	}
	if st.IdleTimeout != 0 {
		field(&b, "IdleTimeout", st.IdleTimeout.Std().String())
	}
	if st.MaxEventSize != 0 {
		field(&b, "MaxEventSize", fmt.Sprintf("%d bytes", st.MaxEventSize))
	}
	field(&b, "DumpPayloadsDir", st.DumpPayloadsDir)
	b.WriteString("\n")

	b.WriteString("=== Auth ===\n")
	a := s.Auth
	if a.MinPollInterval != 0 {
		field(&b, "MinPollInterval", a.MinPollInterval.Std().String())
	}
	if a.SlowDownStep != 0 {
		field(&b, "SlowDownStep", a.SlowDownStep.Std().String())
	}
	fmt.Fprintf(&b, "  %-22s %v\n", "Validate:", a.ShouldValidate())
	if a.DisableLocalLogin {
		field(&b, "LocalLogin", "disabled")
	}

	return b.String()
}

func field(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %-22s %s\n", name+":", value)
}
