// ABOUTME: Headless audio output that consumes streamed speech at real-time pace
// ABOUTME: Stands in for a sound device so TTS streaming can be exercised from a terminal

package main

import (
	"sync"
	"time"

	"github.com/mauromedda/player2-go/internal/log"
	"github.com/mauromedda/player2-go/pkg/player2/audio"
)

const pullInterval = 20 * time.Millisecond

// drainPlayer pulls samples off a stream as a sound card would, discarding
// them. One player serves one entity; Play replaces any running drain.
type drainPlayer struct {
	logger log.Logger

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func newDrainPlayer(entityID string) *drainPlayer {
	return &drainPlayer{logger: log.WithComponent("audio:" + entityID)}
}

// Play implements audio.Player.
func (p *drainPlayer) Play(s *audio.Stream) error {
	p.Stop()

	stop := make(chan struct{})
	p.mu.Lock()
	p.stop = stop
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.drain(s, stop)
	}()
	return nil
}

// Stop implements audio.Player and waits for the drain to exit.
func (p *drainPlayer) Stop() {
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *drainPlayer) drain(s *audio.Stream, stop <-chan struct{}) {
	if s.SampleRate() <= 0 {
		return
	}
	per := s.SampleRate() * s.Channels() * int(pullInterval) / int(time.Second)
	buf := make([]float32, max(per, 1))
	ticker := time.NewTicker(pullInterval)
	defer ticker.Stop()

	var played int
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		played += s.Read(buf)
		if s.Stopped() || (s.Final() && s.Drained()) {
			break
		}
	}
	secs := float64(played) / float64(s.SampleRate()*s.Channels())
	p.logger.Debug("played %.2fs of speech (%d samples dropped)", secs, s.Dropped())
}
