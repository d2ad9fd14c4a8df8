// ABOUTME: easyjson lexer/writer codecs for every wire type
// ABOUTME: Keeps stream decoding reflection-free; also satisfies encoding/json

package wire

import (
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

var (
	_ easyjson.Unmarshaler = (*ChatResponse)(nil)
	_ easyjson.Unmarshaler = (*AudioChunk)(nil)
	_ easyjson.Unmarshaler = (*DeviceAuthResponse)(nil)
	_ easyjson.Unmarshaler = (*TokenResponse)(nil)
	_ easyjson.Marshaler   = DeviceAuthRequest{}
	_ easyjson.Marshaler   = TokenRequest{}
)

// decodeObject walks a JSON object, handing each non-null field to fn.
// Unknown keys must be skipped by fn via in.SkipRecursive.
func decodeObject(in *jlexer.Lexer, fn func(key string)) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		fn(key)
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// seconds accepts integers, floats, and quoted numbers.
func seconds(in *jlexer.Lexer) int {
	n := in.JsonNumber()
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		in.AddError(err)
		return 0
	}
	return int(f)
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (out *ChatResponse) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, func(key string) {
		switch key {
		case "npc_id":
			out.NPCID = in.String()
		case "message":
			out.Message = in.String()
		case "audio":
			out.Audio = new(SpeechAudio)
			out.Audio.UnmarshalEasyJSON(in)
		case "command":
			in.Delim('[')
			if out.Commands == nil {
				if !in.IsDelim(']') {
					out.Commands = make([]FunctionCall, 0, 2)
				}
			} else {
				out.Commands = out.Commands[:0]
			}
			for !in.IsDelim(']') {
				var v FunctionCall
				v.UnmarshalEasyJSON(in)
				out.Commands = append(out.Commands, v)
				in.WantComma()
			}
			in.Delim(']')
		default:
			in.SkipRecursive()
		}
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (out *ChatResponse) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	out.UnmarshalEasyJSON(&r)
	return r.Error()
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (out *SpeechAudio) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, func(key string) {
		switch key {
		case "data":
			out.Data = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler. Arguments sent as an
// object instead of a string are kept as raw JSON text.
func (out *FunctionCall) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, func(key string) {
		switch key {
		case "name":
			out.Name = in.String()
		case "arguments":
			if in.IsDelim('{') || in.IsDelim('[') {
				out.Arguments = string(in.Raw())
				return
			}
			out.Arguments = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (out *AudioChunk) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, func(key string) {
		switch key {
		case "npc_id":
			out.NPCID = in.String()
		case "initial":
			out.Initial = in.Bool()
		case "final":
			out.Final = in.Bool()
		case "sample_rate":
			out.SampleRate = in.Int()
		case "data":
			out.Data = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (out *AudioChunk) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	out.UnmarshalEasyJSON(&r)
	return r.Error()
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (out *DeviceAuthResponse) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, func(key string) {
		switch key {
		case "device_code":
			out.DeviceCode = in.String()
		case "user_code":
			out.UserCode = in.String()
		case "verification_uri":
			out.VerificationURI = in.String()
		case "verification_uri_complete":
			out.VerificationURIComplete = in.String()
		case "interval":
			out.Interval = seconds(in)
		case "expires_in":
			out.ExpiresIn = seconds(in)
		default:
			in.SkipRecursive()
		}
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (out *DeviceAuthResponse) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	out.UnmarshalEasyJSON(&r)
	return r.Error()
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (out *TokenResponse) UnmarshalEasyJSON(in *jlexer.Lexer) {
	decodeObject(in, func(key string) {
		switch key {
		case "p2_key":
			out.P2Key = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (out *TokenResponse) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	out.UnmarshalEasyJSON(&r)
	return r.Error()
}

// MarshalEasyJSON implements easyjson.Marshaler.
func (v DeviceAuthRequest) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	w.RawString(`"client_id":`)
	w.String(v.ClientID)
	w.RawByte('}')
}

// MarshalJSON implements json.Marshaler.
func (v DeviceAuthRequest) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	v.MarshalEasyJSON(&w)
	return w.BuildBytes()
}

// MarshalEasyJSON implements easyjson.Marshaler.
func (v TokenRequest) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	w.RawString(`"client_id":`)
	w.String(v.ClientID)
	w.RawString(`,"device_code":`)
	w.String(v.DeviceCode)
	w.RawByte('}')
}

// MarshalJSON implements json.Marshaler.
func (v TokenRequest) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	v.MarshalEasyJSON(&w)
	return w.BuildBytes()
}
