// ABOUTME: Event finalization: resumption bookkeeping, ping filtering, dedup, decode, and routing
// ABOUTME: Payload errors are logged and dropped; they never affect the connection

package stream

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/mauromedda/player2-go/internal/eventbus"
	"github.com/mauromedda/player2-go/internal/textutil"
	"github.com/mauromedda/player2-go/pkg/player2/audio"
	"github.com/mauromedda/player2-go/pkg/player2/internal/sse"
	"github.com/mauromedda/player2-go/pkg/player2/metrics"
	"github.com/mauromedda/player2-go/pkg/player2/wire"
)

const previewCols = 120

// dispatch finalizes one parsed event. It runs on the read loop only.
func (c *Client) dispatch(gen uint64, opts Options, ev sse.Event) {
	c.metrics.Received(ev.Type)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if ev.ID != "" {
		c.resume.LastEventID = ev.ID
	}
	lastProcessed := c.lastProcessed
	c.mu.Unlock()

	if ev.Type == wire.EventPing {
		if ev.ID != "" {
			c.logger.Debug("ping advanced last event id to %s", ev.ID)
		}
		return
	}
	if ev.Data == "" {
		c.metrics.Dropped(metrics.DropEmpty)
		c.logger.Debug("event %q (id %q) has no data", ev.Type, ev.ID)
		return
	}
	if ev.ID != "" && ev.ID == lastProcessed {
		c.metrics.Dropped(metrics.DropDuplicate)
		c.logger.Debug("duplicate event %s dropped", ev.ID)
		return
	}

	msg, err := wire.Decode(ev.Type, ev.ID, ev.Data)
	if err != nil {
		c.metrics.Dropped(metrics.DropDecodeError)
		if path := c.dump(opts, "decode_error", ev.Data); path != "" {
			c.logger.Error("%v (payload written to %s)", err, path)
		} else {
			c.logger.Error("%v", err)
		}
		return
	}

	var delivered bool
	switch msg.Kind {
	case wire.KindAudio:
		delivered = c.deliverAudio(opts, ev, msg.Audio)
	case wire.KindChat:
		delivered = c.deliverChat(opts, ev, msg.Chat)
	}
	if !delivered {
		return
	}

	c.mu.Lock()
	if c.gen == gen {
		if ev.ID != "" {
			c.lastProcessed = ev.ID
		}
		c.failures = 0
	}
	c.mu.Unlock()
	c.metrics.Dispatched(msg.Kind.String())
}

func (c *Client) deliverAudio(opts Options, ev sse.Event, chunk *wire.AudioChunk) bool {
	if !opts.TTSStreaming {
		c.metrics.Dropped(metrics.DropTTSDisabled)
		c.logger.Debug("audio chunk for %s ignored: tts streaming disabled", chunk.NPCID)
		return false
	}
	if path := c.dump(opts, "npc_audio_chunk", ev.Data); path != "" {
		c.logger.Debug("audio chunk payload (event %q) written to %s", ev.ID, path)
	}

	if err := c.router.Handle(chunk); err != nil {
		c.metrics.Dropped(metrics.DropAudioError)
		if errors.Is(err, audio.ErrNoPlaybackTarget) || errors.Is(err, audio.ErrNoSampleRate) {
			c.logger.Warn("%v", err)
		} else {
			c.logger.Error("%v", err)
		}
		return false
	}
	return true
}

func (c *Client) deliverChat(opts Options, ev sse.Event, resp *wire.ChatResponse) bool {
	if path := c.dump(opts, "npc_message_payload", ev.Data); path != "" {
		c.logger.Debug("message payload (event %q) written to %s", ev.ID, path)
	}

	h, ok := c.handler(resp.NPCID)
	if !ok {
		c.metrics.Dropped(metrics.DropUnknownEntity)
		c.logger.Warn("response for unregistered entity %s dropped", resp.NPCID)
		return false
	}

	c.logger.Info("response from %s (event %q): %s", resp.NPCID, ev.ID, textutil.Preview(resp.Message, previewCols))
	if err := invoke(h, *resp); err != nil {
		c.metrics.Dropped(metrics.DropHandlerPanic)
		c.logger.Error("handler for %s: %v", resp.NPCID, err)
		return false
	}
	return true
}

// invoke calls a handler, converting a panic into an error.
func invoke(h Handler, resp wire.ChatResponse) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eventbus.PanicError(r)
		}
	}()
	h(resp)
	return nil
}

// dump writes a payload to the debug directory and returns its path, or ""
// when dumping is off or fails.
func (c *Client) dump(opts Options, kind, data string) string {
	if opts.PayloadDumpDir == "" {
		return ""
	}
	if err := os.MkdirAll(opts.PayloadDumpDir, 0o755); err != nil {
		c.logger.Warn("payload dump dir: %v", err)
		return ""
	}
	name := fmt.Sprintf("%s_%s_%s.json", kind, time.Now().Format("2006-01-02_15-04-05.000"), uuid.NewString())
	path := filepath.Join(opts.PayloadDumpDir, name)
	if err := renameio.WriteFile(path, []byte(data), 0o644); err != nil {
		c.logger.Warn("payload dump: %v", err)
		return ""
	}
	return path
}
