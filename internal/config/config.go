// ABOUTME: Settings loading with global + project YAML merge and environment overrides
// ABOUTME: Durations accept Go syntax ("2s") or plain seconds; project values win over global

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the merged configuration.
type Settings struct {
	BaseURL       string `yaml:"base_url,omitempty"`
	ClientID      string `yaml:"client_id,omitempty"`
	LocalLoginURL string `yaml:"local_login_url,omitempty"`
	HostedOrigin  string `yaml:"hosted_origin,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
	LogJSON       bool   `yaml:"log_json,omitempty"`
	MetricsAddr   string `yaml:"metrics_addr,omitempty"`

	Stream StreamSettings `yaml:"stream,omitempty"`
	Auth   AuthSettings   `yaml:"auth,omitempty"`
}

// StreamSettings tunes the event stream client.
type StreamSettings struct {
	Path                 string   `yaml:"path,omitempty"`
	TTSStreaming         *bool    `yaml:"tts_streaming,omitempty"`
	ReconnectDelay       Duration `yaml:"reconnect_delay,omitempty"`
	MaxReconnectAttempts int      `yaml:"max_reconnect_attempts,omitempty"`
	IdleTimeout          Duration `yaml:"idle_timeout,omitempty"`
	MaxEventSize         int      `yaml:"max_event_size,omitempty"`
	DumpPayloadsDir      string   `yaml:"dump_payloads_dir,omitempty"`
}

// AuthSettings tunes the device authorization flow.
type AuthSettings struct {
	MinPollInterval   Duration `yaml:"min_poll_interval,omitempty"`
	SlowDownStep      Duration `yaml:"slow_down_step,omitempty"`
	Validate          *bool    `yaml:"validate,omitempty"`
	DisableLocalLogin bool     `yaml:"disable_local_login,omitempty"`
}

// TTS reports whether audio streaming is requested. Default false.
func (s StreamSettings) TTS() bool {
	return s.TTSStreaming != nil && *s.TTSStreaming
}

// ShouldValidate reports whether acquired keys are probed. Default true.
func (a AuthSettings) ShouldValidate() bool {
	return a.Validate == nil || *a.Validate
}

// Duration is a time.Duration that reads "1m30s" or a bare number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration accepts Go duration syntax or a plain number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// Load reads and merges global and project-local settings, expands ${VAR}
// references, and applies PLAYER2_* environment overrides.
func Load(projectRoot string) (*Settings, error) {
	return LoadFrom(GlobalConfigFile(), ProjectConfigFile(projectRoot))
}

// LoadFrom is Load with explicit file paths. Missing files are skipped.
func LoadFrom(globalPath, projectPath string) (*Settings, error) {
	global, err := loadFile(globalPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	project, err := loadFile(projectPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	merged := merge(global, project)
	ResolveEnvVars(merged)
	if err := ApplyEnv(merged, os.LookupEnv); err != nil {
		return nil, err
	}
	return merged, nil
}

// loadFile reads Settings from a YAML file. Returns zero Settings if the
// file does not exist.
func loadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

// merge overlays project settings onto global settings.
// Non-zero project values override global values.
func merge(global, project *Settings) *Settings {
	if global == nil {
		global = &Settings{}
	}
	if project == nil {
		return global
	}

	result := *global

	setString(&result.BaseURL, project.BaseURL)
	setString(&result.ClientID, project.ClientID)
	setString(&result.LocalLoginURL, project.LocalLoginURL)
	setString(&result.HostedOrigin, project.HostedOrigin)
	setString(&result.LogLevel, project.LogLevel)
	setString(&result.MetricsAddr, project.MetricsAddr)
	if project.LogJSON {
		result.LogJSON = true
	}

	ps := project.Stream
	setString(&result.Stream.Path, ps.Path)
	if ps.TTSStreaming != nil {
		result.Stream.TTSStreaming = ps.TTSStreaming
	}
	if ps.ReconnectDelay != 0 {
		result.Stream.ReconnectDelay = ps.ReconnectDelay
	}
	if ps.MaxReconnectAttempts != 0 {
		result.Stream.MaxReconnectAttempts = ps.MaxReconnectAttempts
	}
	if ps.IdleTimeout != 0 {
		result.Stream.IdleTimeout = ps.IdleTimeout
	}
	if ps.MaxEventSize != 0 {
		result.Stream.MaxEventSize = ps.MaxEventSize
	}
	setString(&result.Stream.DumpPayloadsDir, ps.DumpPayloadsDir)

	pa := project.Auth
	if pa.MinPollInterval != 0 {
		result.Auth.MinPollInterval = pa.MinPollInterval
	}
	if pa.SlowDownStep != 0 {
		result.Auth.SlowDownStep = pa.SlowDownStep
	}
	if pa.Validate != nil {
		result.Auth.Validate = pa.Validate
	}
	if pa.DisableLocalLogin {
		result.Auth.DisableLocalLogin = true
	}

	return &result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
