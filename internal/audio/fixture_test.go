package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// makeWAV encodes a mono sine of the given length as 16-bit WAV
func makeWAV(t *testing.T, rate int, d time.Duration) []byte {
	t.Helper()
	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 1, Precision: 2}
	total := format.SampleRate.N(d)
	i := 0
	tone := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for k := range samples {
			v := 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
			samples[k] = [2]float64{v, v}
			i++
		}
		return len(samples), true
	})

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create fixture: %v", err)
	}
	if err := wav.Encode(f, beep.Take(total, tone), format); err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	return data
}

type memFetcher struct {
	files map[string][]byte
	gate  chan struct{} // when set, Open waits for it to close
}

func (f *memFetcher) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// memSink is a Sink that accepts audio instantly
type memSink struct {
	mu      sync.Mutex
	written int
	paused  bool
	stops   int
	volume  float64
	closed  bool
}

func (s *memSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrOutputClosed
	}
	s.written += len(p)
	return len(p), nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *memSink) SampleRate() int         { return 8000 }
func (s *memSink) Channels() int           { return 2 }
func (s *memSink) Buffered() time.Duration { return 0 }
func (s *memSink) SetVolume(v float64)     { s.mu.Lock(); s.volume = v; s.mu.Unlock() }
func (s *memSink) Volume() float64         { s.mu.Lock(); defer s.mu.Unlock(); return s.volume }
func (s *memSink) Pause()                  { s.mu.Lock(); s.paused = true; s.mu.Unlock() }
func (s *memSink) Resume()                 { s.mu.Lock(); s.paused = false; s.mu.Unlock() }
func (s *memSink) Stop()                   { s.mu.Lock(); s.stops++; s.paused = false; s.mu.Unlock() }
func (s *memSink) bytesWritten() int       { s.mu.Lock(); defer s.mu.Unlock(); return s.written }
