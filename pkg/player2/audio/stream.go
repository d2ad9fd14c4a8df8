// ABOUTME: Per-entity PCM16LE playback buffer backed by a mutex-guarded float32 ring
// ABOUTME: Network side enqueues bytes, audio side pulls samples; prebuffer gates playback

package audio

import (
	"math"
	"sync"
)

// Config tunes buffering for a Stream.
type Config struct {
	// PrebufferMs is how much audio must be queued before playback starts.
	// Default: 50ms.
	PrebufferMs int

	// MaxBufferSeconds caps ring growth. Once full, the oldest samples are
	// overwritten. Default: 30s.
	MaxBufferSeconds int

	// Channels is the interleaved channel count. Default: 1.
	Channels int
}

// DefaultConfig returns the default buffering configuration.
func DefaultConfig() Config {
	return Config{
		PrebufferMs:      50,
		MaxBufferSeconds: 30,
		Channels:         1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PrebufferMs <= 0 {
		c.PrebufferMs = d.PrebufferMs
	}
	if c.MaxBufferSeconds <= 0 {
		c.MaxBufferSeconds = d.MaxBufferSeconds
	}
	if c.Channels <= 0 {
		c.Channels = d.Channels
	}
	return c
}

const minRingCapacity = 8192

// Stream buffers one utterance for one entity. Enqueue and Read may be
// called from different goroutines.
type Stream struct {
	entityID   string
	sampleRate int
	channels   int
	prebuffer  int
	maxCap     int

	mu       sync.Mutex
	ring     []float32
	readPos  int
	writePos int
	count    int
	started  bool
	final    bool
	stopped  bool
	dropped  int
}

// NewStream creates a buffer sized for at least two seconds of audio.
func NewStream(entityID string, sampleRate int, cfg Config) *Stream {
	cfg = cfg.withDefaults()
	if sampleRate <= 0 {
		sampleRate = 1
	}

	prebuffer := int(math.Ceil(float64(sampleRate) * float64(cfg.PrebufferMs) / 1000))
	initial := max(sampleRate*cfg.Channels*2, minRingCapacity)
	maxCap := max(sampleRate*cfg.Channels*cfg.MaxBufferSeconds, initial)

	return &Stream{
		entityID:   entityID,
		sampleRate: sampleRate,
		channels:   cfg.Channels,
		prebuffer:  max(1, prebuffer),
		maxCap:     maxCap,
		ring:       make([]float32, initial),
	}
}

// EntityID returns the owning entity.
func (s *Stream) EntityID() string { return s.entityID }

// SampleRate returns the playback rate in Hz.
func (s *Stream) SampleRate() int { return s.sampleRate }

// Channels returns the interleaved channel count.
func (s *Stream) Channels() int { return s.channels }

// Enqueue converts little-endian 16-bit samples to [-1, 1) floats and
// appends them. It returns true exactly once: when the prebuffer threshold
// is first reached and playback should begin. A trailing odd byte is ignored.
func (s *Stream) Enqueue(pcm []byte) bool {
	n := len(pcm) / 2
	if n == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	s.grow(s.count + n)
	capacity := len(s.ring)
	for i := range n {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		s.ring[s.writePos] = float32(v) / 32768
		s.writePos++
		if s.writePos == capacity {
			s.writePos = 0
		}
	}
	s.count += n
	if s.count > capacity {
		// Writer lapped the reader; the oldest samples are gone.
		s.dropped += s.count - capacity
		s.count = capacity
		s.readPos = s.writePos
	}

	if !s.started && s.count >= s.prebuffer {
		s.started = true
		return true
	}
	return false
}

// grow doubles the ring until it holds required samples or hits the cap.
// Must be called with mu held.
func (s *Stream) grow(required int) {
	capacity := len(s.ring)
	if capacity >= required || capacity >= s.maxCap {
		return
	}

	newCap := capacity
	for newCap < required && newCap < s.maxCap {
		newCap *= 2
	}
	newCap = min(newCap, s.maxCap)

	buf := make([]float32, newCap)
	if s.count > 0 {
		first := min(s.count, capacity-s.readPos)
		copy(buf, s.ring[s.readPos:s.readPos+first])
		copy(buf[first:], s.ring[:s.count-first])
	}
	s.ring = buf
	s.readPos = 0
	s.writePos = s.count % newCap
}

// Read fills dst with queued samples and zero-fills the remainder. It
// returns the number of real samples copied.
func (s *Stream) Read(dst []float32) int {
	s.mu.Lock()
	n := min(s.count, len(dst))
	if n > 0 {
		capacity := len(s.ring)
		first := min(n, capacity-s.readPos)
		copy(dst, s.ring[s.readPos:s.readPos+first])
		if rest := n - first; rest > 0 {
			copy(dst[first:], s.ring[:rest])
			s.readPos = rest
		} else {
			s.readPos += first
			if s.readPos == capacity {
				s.readPos = 0
			}
		}
		s.count -= n
	}
	s.mu.Unlock()

	clear(dst[n:])
	return n
}

// MarkFinal records that no more chunks will arrive for this utterance.
func (s *Stream) MarkFinal() {
	s.mu.Lock()
	s.final = true
	s.mu.Unlock()
}

// Final reports whether the end-of-utterance chunk has been seen.
func (s *Stream) Final() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.final
}

// Drained reports whether the utterance is complete and fully consumed.
func (s *Stream) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.final && s.count == 0
}

// Buffered returns the number of queued samples.
func (s *Stream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Dropped returns how many samples were overwritten because the ring was full.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Started reports whether the prebuffer threshold has been reached.
func (s *Stream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stop discards queued audio; later Enqueue calls are ignored.
func (s *Stream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.count = 0
	s.readPos = 0
	s.writePos = 0
	s.mu.Unlock()
}

// Stopped reports whether Stop has been called.
func (s *Stream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
