// ABOUTME: Decoded stream message union: chat responses, audio chunks, and pings
// ABOUTME: Decode maps an SSE event type and payload onto the matching message kind

package wire

import (
	"errors"
	"fmt"

	"github.com/mailru/easyjson"
)

// Event types carried on the response stream.
const (
	EventPing            = "ping"
	EventAudioChunk      = "npc-audio-chunk"
	EventAudioChunkAlias = "npc_audio_chunk"
)

var (
	// ErrMissingEntityID is returned when a payload has no npc_id.
	ErrMissingEntityID = errors.New("payload has no npc_id")
	// ErrMissingSampleRate is returned for an initial audio chunk without a sample rate.
	ErrMissingSampleRate = errors.New("initial audio chunk has no sample_rate")
)

// DecodeError wraps a payload that could not be decoded.
type DecodeError struct {
	EventType string
	EventID   string
	Err       error
}

func (e *DecodeError) Error() string {
	kind := e.EventType
	if kind == "" {
		kind = "message"
	}
	if e.EventID != "" {
		return fmt.Sprintf("decode %s event %s: %v", kind, e.EventID, e.Err)
	}
	return fmt.Sprintf("decode %s event: %v", kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind discriminates the Message union.
type Kind int

const (
	KindChat Kind = iota
	KindAudio
	KindPing
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindAudio:
		return "audio"
	case KindPing:
		return "ping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one decoded stream event. Exactly one of Chat or Audio is set
// for the chat and audio kinds; pings carry neither.
type Message struct {
	Kind    Kind
	EventID string
	Chat    *ChatResponse
	Audio   *AudioChunk
}

// IsAudioChunkType reports whether eventType names the audio chunk event.
func IsAudioChunkType(eventType string) bool {
	return eventType == EventAudioChunk || eventType == EventAudioChunkAlias
}

// Decode turns an event into a Message. Untyped and unknown event types are
// decoded as chat responses.
func Decode(eventType, eventID, data string) (Message, error) {
	if eventType == EventPing {
		return Message{Kind: KindPing, EventID: eventID}, nil
	}

	if IsAudioChunkType(eventType) {
		var chunk AudioChunk
		if err := easyjson.Unmarshal([]byte(data), &chunk); err != nil {
			return Message{}, &DecodeError{EventType: eventType, EventID: eventID, Err: err}
		}
		if err := chunk.validate(); err != nil {
			return Message{}, &DecodeError{EventType: eventType, EventID: eventID, Err: err}
		}
		return Message{Kind: KindAudio, EventID: eventID, Audio: &chunk}, nil
	}

	var chat ChatResponse
	if err := easyjson.Unmarshal([]byte(data), &chat); err != nil {
		return Message{}, &DecodeError{EventType: eventType, EventID: eventID, Err: err}
	}
	if chat.NPCID == "" {
		return Message{}, &DecodeError{EventType: eventType, EventID: eventID, Err: ErrMissingEntityID}
	}
	return Message{Kind: KindChat, EventID: eventID, Chat: &chat}, nil
}
