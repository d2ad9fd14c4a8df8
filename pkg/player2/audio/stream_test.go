// ABOUTME: Tests for the PCM ring buffer: conversion, prebuffer gating, growth, overwrite
// ABOUTME: Includes a concurrent producer/consumer run for the race detector

package audio

import (
	"encoding/binary"
	"sync"
	"testing"
)

func pcm16(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

func TestStreamConvertsPCM16LE(t *testing.T) {
	t.Parallel()

	s := NewStream("a", 1000, Config{})
	s.Enqueue(pcm16(0, 16384, -32768, 32767))

	dst := make([]float32, 6)
	n := s.Read(dst)
	if n != 4 {
		t.Fatalf("Read() = %d, want 4", n)
	}
	want := []float32{0, 0.5, -1, 32767.0 / 32768}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("sample %d = %v, want %v", i, dst[i], w)
		}
	}
	if dst[4] != 0 || dst[5] != 0 {
		t.Errorf("tail not zero-filled: %v", dst[4:])
	}
}

func TestStreamOddByteIgnored(t *testing.T) {
	t.Parallel()

	s := NewStream("a", 1000, Config{})
	s.Enqueue([]byte{0x00, 0x40, 0x7f})
	if got := s.Buffered(); got != 1 {
		t.Errorf("Buffered() = %d, want 1", got)
	}
	if s.Enqueue([]byte{0x01}) {
		t.Error("single byte should not start playback")
	}
}

func TestStreamPrebufferGatesPlayback(t *testing.T) {
	t.Parallel()

	// 50ms at 1kHz = 50 samples.
	s := NewStream("a", 1000, Config{})
	if s.Enqueue(make([]byte, 2*49)) {
		t.Fatal("started before prebuffer threshold")
	}
	if s.Started() {
		t.Fatal("Started() true before threshold")
	}
	if !s.Enqueue(make([]byte, 2)) {
		t.Fatal("did not start at threshold")
	}
	if s.Enqueue(make([]byte, 2)) {
		t.Fatal("start signalled twice")
	}
}

func TestStreamGrowsAndPreservesOrder(t *testing.T) {
	t.Parallel()

	s := NewStream("a", 100, Config{MaxBufferSeconds: 1000})
	if got := len(s.ring); got != minRingCapacity {
		t.Fatalf("initial capacity = %d, want %d", got, minRingCapacity)
	}

	// Advance the read cursor so the data wraps before growth.
	s.Enqueue(pcm16(make([]int16, 8000)...))
	s.Read(make([]float32, 7000))

	samples := make([]int16, 10000)
	for i := range samples {
		samples[i] = int16(i)
	}
	s.Enqueue(pcm16(samples...))

	if got := len(s.ring); got != 2*minRingCapacity {
		t.Fatalf("capacity = %d, want %d", got, 2*minRingCapacity)
	}

	dst := make([]float32, 1000)
	s.Read(dst)
	got := make([]float32, 10000)
	if n := s.Read(got); n != 10000 {
		t.Fatalf("Read() = %d, want 10000", n)
	}
	for i, v := range got {
		if want := float32(i) / 32768; v != want {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestStreamOverwritesOldestAtCap(t *testing.T) {
	t.Parallel()

	// Cap is max(rate*seconds, initial) = 8192 samples.
	s := NewStream("a", 100, Config{MaxBufferSeconds: 1})
	samples := make([]int16, minRingCapacity+10)
	for i := range samples {
		samples[i] = int16(i)
	}
	s.Enqueue(pcm16(samples...))

	if got := s.Buffered(); got != minRingCapacity {
		t.Fatalf("Buffered() = %d, want %d", got, minRingCapacity)
	}
	if got := s.Dropped(); got != 10 {
		t.Fatalf("Dropped() = %d, want 10", got)
	}

	first := make([]float32, 1)
	s.Read(first)
	if want := float32(10) / 32768; first[0] != want {
		t.Errorf("oldest surviving sample = %v, want %v", first[0], want)
	}
}

func TestStreamFinalAndDrained(t *testing.T) {
	t.Parallel()

	s := NewStream("a", 1000, Config{})
	s.Enqueue(pcm16(1, 2, 3))
	s.MarkFinal()
	if !s.Final() {
		t.Fatal("Final() = false")
	}
	if s.Drained() {
		t.Fatal("Drained() true with samples queued")
	}
	s.Read(make([]float32, 8))
	if !s.Drained() {
		t.Fatal("Drained() false after consuming final utterance")
	}
}

func TestStreamStop(t *testing.T) {
	t.Parallel()

	s := NewStream("a", 1000, Config{})
	s.Enqueue(pcm16(1, 2, 3))
	s.Stop()
	if s.Buffered() != 0 || !s.Stopped() {
		t.Fatal("Stop did not clear the buffer")
	}
	if s.Enqueue(make([]byte, 400)) {
		t.Fatal("stopped stream signalled playback")
	}
	if s.Buffered() != 0 {
		t.Fatal("stopped stream accepted samples")
	}
}

func TestStreamConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const total = 50000
	s := NewStream("a", 16000, Config{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := pcm16(make([]int16, 500)...)
		for range total / 500 {
			s.Enqueue(chunk)
		}
		s.MarkFinal()
	}()

	read := 0
	buf := make([]float32, 256)
	for !s.Drained() {
		read += s.Read(buf)
	}
	wg.Wait()

	if read != total {
		t.Errorf("read %d samples, want %d", read, total)
	}
}
