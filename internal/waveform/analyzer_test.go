package waveform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

type mapFetcher map[string][]byte

func (f mapFetcher) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := f[path]
	if !ok {
		return nil, errors.New("404")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// encodeWAV writes fn(i) for n mono samples as 16-bit WAV
func encodeWAV(t *testing.T, n int, fn func(i int) float64) []byte {
	t.Helper()
	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	i := 0
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for k := range samples {
			v := fn(i)
			samples[k] = [2]float64{v, v}
			i++
		}
		return len(samples), true
	})

	path := filepath.Join(t.TempDir(), "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := wav.Encode(f, beep.Take(n, src), format); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}

func TestAnalyzeWAV(t *testing.T) {
	// Ramp up in amplitude so the last block is the loudest
	data := encodeWAV(t, 8000, func(i int) float64 {
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		return sign * float64(i) / 8000 * 0.9
	})
	a := NewAnalyzer(mapFetcher{"/t.wav": data}, nil, Options{})

	env := a.Analyze(context.Background(), "/t.wav")
	if len(env) != DefaultSamples {
		t.Fatalf("Expected %d samples, got %d", DefaultSamples, len(env))
	}
	if math.Abs(env[len(env)-1]-1) > 1e-9 {
		t.Errorf("Expected last bar normalised to 1, got %f", env[len(env)-1])
	}
	if env[0] >= env[100] || env[100] >= env[199] {
		t.Errorf("Expected increasing envelope, got %f %f %f", env[0], env[100], env[199])
	}
}

func TestAnalyzeSilentWAV(t *testing.T) {
	data := encodeWAV(t, 4000, func(int) float64 { return 0 })
	a := NewAnalyzer(mapFetcher{"/s.wav": data}, nil, Options{})

	for i, v := range a.Analyze(context.Background(), "/s.wav") {
		if v != 0 {
			t.Fatalf("bar %d = %f, want 0", i, v)
		}
	}
}

func TestAnalyzeFallback(t *testing.T) {
	a := NewAnalyzer(mapFetcher{"/junk": []byte("not audio")}, nil, Options{})

	for _, path := range []string{"/missing.mp3", "/junk"} {
		env := a.Analyze(context.Background(), path)
		if len(env) != DefaultSamples {
			t.Fatalf("%s: expected %d samples, got %d", path, DefaultSamples, len(env))
		}
		for i, v := range env {
			if v != DefaultFallback {
				t.Fatalf("%s: bar %d = %f, want %f", path, i, v, DefaultFallback)
			}
		}
	}
}

func TestAnalyzeCustomOptions(t *testing.T) {
	a := NewAnalyzer(mapFetcher{}, nil, Options{Samples: 50, Fallback: 0.3})
	if a.Samples() != 50 {
		t.Errorf("Expected 50 samples, got %d", a.Samples())
	}
	env := a.Analyze(context.Background(), "/nothing")
	if len(env) != 50 || env[0] != 0.3 {
		t.Errorf("Unexpected fallback %v", env)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	data := encodeWAV(t, 8000, func(i int) float64 { return 0.5 })
	a := NewAnalyzer(mapFetcher{"/t.wav": data}, nil, Options{})
	if env := a.Analyze(ctx, "/t.wav"); len(env) != DefaultSamples {
		t.Errorf("Expected full length result even when cancelled, got %d", len(env))
	}
}
