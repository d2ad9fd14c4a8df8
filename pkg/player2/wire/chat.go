// ABOUTME: Chat response payload: text, optional speech audio, and function calls
// ABOUTME: Speech audio arrives as a data URL; function-call arguments as a JSON string

package wire

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ChatResponse is the default (untyped) event payload.
type ChatResponse struct {
	NPCID    string         `json:"npc_id"`
	Message  string         `json:"message,omitempty"`
	Audio    *SpeechAudio   `json:"audio,omitempty"`
	Commands []FunctionCall `json:"command,omitempty"`
}

// SpeechAudio is a complete synthesized utterance attached to a chat response.
type SpeechAudio struct {
	Data string `json:"data"`
}

// ErrNotDataURL is returned when speech audio is not a data: URL.
var ErrNotDataURL = errors.New("audio data is not a data: URL")

// MimeType returns the media type of a data URL, e.g. "audio/mp3".
func (a SpeechAudio) MimeType() string {
	header, _, ok := a.split()
	if !ok {
		return ""
	}
	header = strings.TrimPrefix(header, "data:")
	mime, _, _ := strings.Cut(header, ";")
	return mime
}

// Bytes decodes the audio payload. Data URLs with a ";base64" marker are
// base64-decoded; anything else is rejected.
func (a SpeechAudio) Bytes() ([]byte, error) {
	header, payload, ok := a.split()
	if !ok {
		return nil, ErrNotDataURL
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URL encoding %q", header)
	}
	return DecodeBase64(payload)
}

func (a SpeechAudio) split() (header, payload string, ok bool) {
	if !strings.HasPrefix(a.Data, "data:") {
		return "", "", false
	}
	header, payload, ok = strings.Cut(a.Data, ",")
	return header, payload, ok
}

// FunctionCall is a structured command the model asked the game to run.
// Arguments holds JSON text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DecodeArguments parses Arguments into a map. Empty arguments yield an
// empty map.
func (f FunctionCall) DecodeArguments() (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(f.Arguments) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(f.Arguments), &args); err != nil {
		return nil, fmt.Errorf("function %s: decode arguments: %w", f.Name, err)
	}
	return args, nil
}

// DecodeBase64 decodes standard base64, repairing missing '=' padding.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if mod := len(s) % 4; mod != 0 {
		s += strings.Repeat("=", 4-mod)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}
