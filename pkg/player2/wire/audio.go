// ABOUTME: Streaming TTS audio chunk payload
// ABOUTME: Carries base64 PCM16LE samples plus initial/final framing flags

package wire

// AudioChunk is one slice of a streamed utterance.
type AudioChunk struct {
	NPCID      string `json:"npc_id"`
	Initial    bool   `json:"initial"`
	Final      bool   `json:"final"`
	SampleRate int    `json:"sample_rate"`
	Data       string `json:"data"`
}

// PCM returns the raw little-endian 16-bit samples.
func (c AudioChunk) PCM() ([]byte, error) {
	return DecodeBase64(c.Data)
}

func (c AudioChunk) validate() error {
	if c.NPCID == "" {
		return ErrMissingEntityID
	}
	if c.Initial && c.SampleRate <= 0 {
		return ErrMissingSampleRate
	}
	return nil
}
