package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

const (
	defaultSampleRate = 44100
	defaultChannels   = 2
	bytesPerSample    = 2 // 16-bit

	// Keep roughly 100ms queued so pause and seek take effect quickly
	maxBufferMs = 100
)

// ErrOutputClosed is returned by Write after Close.
var ErrOutputClosed = errors.New("audio output closed")

// Output is a PCM sink (signed 16-bit little-endian, interleaved).
type Output interface {
	io.WriteCloser
	SampleRate() int
	Channels() int
}

// Sink is the live output driven by an Engine.
type Sink interface {
	Output
	Pause()
	Resume()
	Stop()
	SetVolume(v float64)
	Volume() float64
	Buffered() time.Duration
}

// OtoOutput is the process-wide audio output using the Oto library
type OtoOutput struct {
	context    *oto.Context
	player     oto.Player
	sampleRate int
	channels   int
	maxBuffer  int
	mu         sync.Mutex
	cond       *sync.Cond // Signals Read when paused state or closed state changes
	buffer     *bytes.Buffer
	volume     float64 // 0.0 - 1.0
	paused     bool    // Explicitly paused, Write must not auto-start the player
	closed     bool
}

// NewOtoOutput creates an Oto output. Oto allows a single context per
// process, so callers create one and share it.
func NewOtoOutput(sampleRate, channels int) (*OtoOutput, error) {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	if channels <= 0 {
		channels = defaultChannels
	}

	ctx, ready, err := oto.NewContext(sampleRate, channels, bytesPerSample)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	output := newOutput(sampleRate, channels)
	output.context = ctx
	output.player = ctx.NewPlayer(output)
	return output, nil
}

func newOutput(sampleRate, channels int) *OtoOutput {
	o := &OtoOutput{
		sampleRate: sampleRate,
		channels:   channels,
		maxBuffer:  sampleRate * channels * bytesPerSample * maxBufferMs / 1000,
		buffer:     &bytes.Buffer{},
		volume:     1.0,
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Read implements io.Reader for the oto player
func (o *OtoOutput) Read(p []byte) (n int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for o.paused && !o.closed {
		o.cond.Wait()
	}
	if o.closed {
		return 0, io.EOF
	}

	// Silence keeps the device stream alive between tracks
	if o.buffer.Len() == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n, err = o.buffer.Read(p)
	if err != nil {
		return n, err
	}
	if o.volume < 1.0 && n > 0 {
		o.applyVolume(p[:n])
	}
	return n, nil
}

// applyVolume scales 16-bit PCM samples by the current volume
func (o *OtoOutput) applyVolume(data []byte) {
	vol := o.volume
	if vol >= 1.0 {
		return
	}
	for i := 0; i < len(data)-1; i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		scaled := int16(float64(sample) * vol)
		data[i] = byte(scaled)
		data[i+1] = byte(scaled >> 8)
	}
}

// SetVolume sets the playback volume (0.0 - 1.0)
func (o *OtoOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = clampVolume(v)
}

// Volume returns the current volume
func (o *OtoOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Write queues PCM data. It blocks while the buffer is full, which throttles
// decoding to playback speed.
func (o *OtoOutput) Write(data []byte) (int, error) {
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return 0, ErrOutputClosed
		}
		if o.buffer.Len() < o.maxBuffer {
			break
		}
		o.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	defer o.mu.Unlock()

	n, err := o.buffer.Write(data)
	if err != nil {
		return n, err
	}
	if o.player != nil && !o.player.IsPlaying() && !o.paused {
		o.player.Play()
	}
	return n, nil
}

// Pause pauses audio playback
func (o *OtoOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = true
	if o.player != nil && o.player.IsPlaying() {
		o.player.Pause()
	}
}

// Resume resumes audio playback
func (o *OtoOutput) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = false
	o.cond.Broadcast()
	if o.player != nil && !o.player.IsPlaying() {
		o.player.Play()
	}
}

// Stop drops queued audio so nothing from the previous resource is heard
func (o *OtoOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.paused = false
	o.cond.Broadcast()
	if o.player != nil {
		o.player.Pause()
	}
	o.buffer.Reset()
}

// Buffered returns how much audio is queued but not yet handed to the device
func (o *OtoOutput) Buffered() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	frame := o.channels * bytesPerSample
	if frame == 0 || o.sampleRate == 0 {
		return 0
	}
	frames := o.buffer.Len() / frame
	return time.Duration(frames) * time.Second / time.Duration(o.sampleRate)
}

// Close releases the audio output resources
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
	o.cond.Broadcast()
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			return err
		}
	}
	return nil
}

// SampleRate returns the sample rate
func (o *OtoOutput) SampleRate() int {
	return o.sampleRate
}

// Channels returns the number of channels
func (o *OtoOutput) Channels() int {
	return o.channels
}

var (
	_ io.Reader = (*OtoOutput)(nil)
	_ Sink      = (*OtoOutput)(nil)
)
