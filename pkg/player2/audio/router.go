// ABOUTME: Routes streamed TTS chunks to per-entity playback buffers
// ABOUTME: Owns at most one substream per entity plus a sample-rate cache for lazy init

package audio

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/mauromedda/player2-go/internal/log"
	"github.com/mauromedda/player2-go/pkg/player2/wire"
)

var (
	// ErrNoPlaybackTarget means the host has no output for the entity.
	ErrNoPlaybackTarget = errors.New("no playback target for entity")
	// ErrNoSampleRate means a chunk arrived with no open substream and no
	// known sample rate to open one.
	ErrNoSampleRate = errors.New("no substream and no sample rate for entity")
)

// Player is a host audio output. Play is called once the prebuffer is
// satisfied; the player then pulls samples with Stream.Read. Stop halts
// output when the substream is replaced or the router shuts down.
type Player interface {
	Play(s *Stream) error
	Stop()
}

// Targets looks up the playback output for an entity.
type Targets interface {
	PlaybackTarget(entityID string) (Player, bool)
}

// TargetsFunc adapts a function to Targets.
type TargetsFunc func(entityID string) (Player, bool)

// PlaybackTarget implements Targets.
func (f TargetsFunc) PlaybackTarget(entityID string) (Player, bool) { return f(entityID) }

type substream struct {
	stream *Stream
	player Player
}

// Router applies the chunk framing rules. It is safe for concurrent use.
type Router struct {
	cfg     Config
	targets Targets
	logger  log.Logger

	mu      sync.Mutex
	streams map[string]*substream
	rates   map[string]int
}

// NewRouter creates a router that resolves outputs through targets.
func NewRouter(targets Targets, cfg Config) *Router {
	return &Router{
		cfg:     cfg.withDefaults(),
		targets: targets,
		logger:  log.WithComponent("audio"),
		streams: make(map[string]*substream),
		rates:   make(map[string]int),
	}
}

// Handle applies one chunk. An initial chunk replaces any prior substream
// for the entity; other chunks append to the open substream, opening one
// lazily when a sample rate is known.
func (r *Router) Handle(chunk *wire.AudioChunk) error {
	pcm, err := chunk.PCM()
	if err != nil {
		return fmt.Errorf("audio chunk for %s: %w", chunk.NPCID, err)
	}

	id := entityKey(chunk.NPCID)

	r.mu.Lock()
	if chunk.SampleRate > 0 {
		r.rates[id] = chunk.SampleRate
	}

	if chunk.Initial {
		if prev, ok := r.streams[id]; ok {
			delete(r.streams, id)
			r.release(prev)
		}
	}

	sub, ok := r.streams[id]
	if !ok {
		rate := r.rates[id]
		if rate <= 0 {
			r.mu.Unlock()
			return fmt.Errorf("audio chunk for %s: %w", id, ErrNoSampleRate)
		}
		player, found := r.lookup(id)
		if !found {
			r.mu.Unlock()
			return fmt.Errorf("audio chunk for %s: %w", id, ErrNoPlaybackTarget)
		}
		r.logger.Info("starting streaming playback for %s at %d Hz", id, rate)
		sub = &substream{stream: NewStream(id, rate, r.cfg), player: player}
		r.streams[id] = sub
	}
	r.mu.Unlock()

	start := sub.stream.Enqueue(pcm)
	if chunk.Final {
		sub.stream.MarkFinal()
	}
	if start {
		if err := sub.player.Play(sub.stream); err != nil {
			return fmt.Errorf("start playback for %s: %w", id, err)
		}
	}
	return nil
}

// entityKey folds an entity ID to NFC; all router maps and target lookups
// use the folded form.
func entityKey(id string) string {
	return norm.NFC.String(id)
}

func (r *Router) lookup(entityID string) (Player, bool) {
	if r.targets == nil {
		return nil, false
	}
	p, ok := r.targets.PlaybackTarget(entityID)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

func (r *Router) release(sub *substream) {
	sub.stream.Stop()
	sub.player.Stop()
}

// Stream returns the open substream for an entity, if any.
func (r *Router) Stream(entityID string) (*Stream, bool) {
	entityID = entityKey(entityID)
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.streams[entityID]
	if !ok {
		return nil, false
	}
	return sub.stream, true
}

// Forget stops and removes the entity's substream and cached sample rate.
func (r *Router) Forget(entityID string) {
	entityID = entityKey(entityID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.streams[entityID]; ok {
		delete(r.streams, entityID)
		r.release(sub)
	}
	delete(r.rates, entityID)
}

// StopAll stops every substream. Cached sample rates are kept.
func (r *Router) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sub := range r.streams {
		delete(r.streams, id)
		r.release(sub)
	}
}
