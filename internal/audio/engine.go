// Package audio provides the audio resource primitive: fetch, decode and a
// single live output.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/austinkregel/local-media/playerd/internal/logging"
	"github.com/austinkregel/local-media/playerd/internal/types"
)

const (
	defaultTickInterval = 250 * time.Millisecond
	chunkSize           = 4096
)

// Fetcher retrieves encoded audio by path or URL
type Fetcher interface {
	Open(ctx context.Context, audioPath string) (io.ReadCloser, error)
}

// Events are resource notifications. They arrive on resource goroutines and
// never after Close.
type Events struct {
	OnMetadata   func(duration time.Duration)
	OnTimeUpdate func(position time.Duration)
	OnEnded      func()
	OnError      func(err error)
}

// Resource is a loaded (or loading) track bound to the output
type Resource interface {
	Play()
	Pause()
	Seek(position time.Duration)
	Close() error
}

// Engine creates resources. Opening a resource supersedes the previous one.
type Engine interface {
	Open(track types.Track, events Events) Resource
}

// OutputEngine plays resources through a single Sink
type OutputEngine struct {
	fetcher Fetcher
	sink    Sink
	ffmpeg  *FFmpegDecoder
	tick    time.Duration
	log     zerolog.Logger

	mu        sync.Mutex
	sessionID uint64
	current   *resource
}

// NewEngine creates an engine. ffmpeg may be nil.
func NewEngine(fetcher Fetcher, sink Sink, ffmpeg *FFmpegDecoder) *OutputEngine {
	return &OutputEngine{
		fetcher: fetcher,
		sink:    sink,
		ffmpeg:  ffmpeg,
		tick:    defaultTickInterval,
		log:     logging.For("audio"),
	}
}

// Open starts loading track and returns its handle. Any previous resource is
// closed first so only one produces audio.
func (e *OutputEngine) Open(track types.Track, events Events) Resource {
	e.mu.Lock()
	prev := e.current
	e.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.sessionID++
	r := &resource{
		engine: e,
		id:     e.sessionID,
		track:  track,
		events: events,
		ctx:    ctx,
		cancel: cancel,
	}
	r.cond = sync.NewCond(&r.mu)
	e.current = r
	e.mu.Unlock()

	e.log.Debug().Uint64("session", r.id).Str("track", track.ID).Msg("opening resource")
	go r.run()
	return r
}

// SetVolume sets the output volume (0.0 - 1.0)
func (e *OutputEngine) SetVolume(v float64) {
	e.sink.SetVolume(v)
}

// Volume returns the output volume
func (e *OutputEngine) Volume() float64 {
	return e.sink.Volume()
}

// Close stops the live resource and releases the output
func (e *OutputEngine) Close() error {
	e.mu.Lock()
	cur := e.current
	e.mu.Unlock()
	if cur != nil {
		cur.Close()
	}
	return e.sink.Close()
}

func (e *OutputEngine) active(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.current.id == id
}

// release drops r as the live resource; it reports whether r was live
func (e *OutputEngine) release(r *resource) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != r {
		return false
	}
	e.current = nil
	return true
}

type resource struct {
	engine *OutputEngine
	id     uint64
	track  types.Track
	events Events
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	cond        *sync.Cond
	stream      Stream
	playing     bool
	atEnd       bool
	closed      bool
	pendingSeek *time.Duration
}

func (r *resource) Play() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.atEnd && r.stream != nil {
		if err := r.stream.Seek(0); err != nil {
			r.engine.log.Warn().Err(err).Str("track", r.track.ID).Msg("restart failed")
		}
		r.atEnd = false
	}
	r.playing = true
	r.cond.Broadcast()
	r.mu.Unlock()

	if r.engine.active(r.id) {
		r.engine.sink.Resume()
	}
}

func (r *resource) Pause() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.playing = false
	r.mu.Unlock()

	if r.engine.active(r.id) {
		r.engine.sink.Pause()
	}
}

func (r *resource) Seek(position time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.stream == nil {
		r.pendingSeek = &position
		return
	}
	if err := r.stream.Seek(position); err != nil {
		r.engine.log.Warn().Err(err).Str("track", r.track.ID).Msg("seek failed")
		return
	}
	r.atEnd = false
	r.cond.Broadcast()
	if r.engine.active(r.id) {
		r.engine.sink.Stop()
		if !r.playing {
			r.engine.sink.Pause()
		}
	}
}

func (r *resource) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.playing = false
	r.cancel()
	var err error
	if r.stream != nil {
		err = r.stream.Close()
		r.stream = nil
	}
	r.cond.Broadcast()
	r.mu.Unlock()

	if r.engine.release(r) {
		r.engine.sink.Stop()
	}
	return err
}

// emit runs fn unless the resource has been closed or superseded
func (r *resource) emit(fn func()) {
	if fn == nil || r.ctx.Err() != nil || !r.engine.active(r.id) {
		return
	}
	fn()
}

func (r *resource) fail(err error) {
	if r.ctx.Err() != nil {
		return
	}
	r.engine.log.Error().Err(err).Str("track", r.track.ID).Msg("playback failed")
	if r.events.OnError != nil {
		r.emit(func() { r.events.OnError(err) })
	}
}

func (r *resource) run() {
	data, err := r.fetch()
	if err != nil {
		r.fail(err)
		return
	}

	stream, err := OpenStream(r.ctx, data, r.engine.sink.SampleRate(), r.engine.sink.Channels(), r.engine.ffmpeg)
	if err != nil {
		r.fail(fmt.Errorf("failed to decode %s: %w", r.track.AudioPath, err))
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		stream.Close()
		return
	}
	r.stream = stream
	if r.pendingSeek != nil {
		if err := stream.Seek(*r.pendingSeek); err != nil {
			r.engine.log.Warn().Err(err).Msg("deferred seek failed")
		}
		r.pendingSeek = nil
	}
	duration := stream.Duration()
	r.mu.Unlock()

	if r.events.OnMetadata != nil {
		r.emit(func() { r.events.OnMetadata(duration) })
	}

	go r.reportPosition()

	// A finished resource stays loaded; Seek or Play starts it again
	for r.pump() {
		r.drain()

		r.mu.Lock()
		r.playing = false
		r.atEnd = true
		r.mu.Unlock()

		if r.events.OnTimeUpdate != nil {
			r.emit(func() { r.events.OnTimeUpdate(duration) })
		}
		if r.events.OnEnded != nil {
			r.emit(r.events.OnEnded)
		}
	}
}

func (r *resource) fetch() ([]byte, error) {
	body, err := r.engine.fetcher.Open(r.ctx, r.track.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", r.track.AudioPath, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.track.AudioPath, err)
	}
	return data, nil
}

// pump feeds the sink while playing. It returns true when the stream ended
// naturally and false when the resource was closed or superseded.
func (r *resource) pump() bool {
	buf := make([]byte, chunkSize)
	for {
		r.mu.Lock()
		for (!r.playing || r.atEnd) && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			r.mu.Unlock()
			return false
		}
		n, err := r.stream.Read(buf)
		r.mu.Unlock()

		if !r.engine.active(r.id) {
			return false
		}
		if n > 0 {
			if _, werr := r.engine.sink.Write(buf[:n]); werr != nil {
				if !errors.Is(werr, ErrOutputClosed) {
					r.fail(werr)
				}
				return false
			}
		}
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			r.fail(fmt.Errorf("failed to decode %s: %w", r.track.AudioPath, err))
			return false
		}
	}
}

// drain waits for queued audio to reach the device
func (r *resource) drain() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for r.engine.sink.Buffered() > 0 {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *resource) reportPosition() {
	if r.events.OnTimeUpdate == nil {
		return
	}
	ticker := time.NewTicker(r.engine.tick)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			if !r.playing || r.atEnd || r.stream == nil {
				r.mu.Unlock()
				continue
			}
			pos := r.stream.Position()
			r.mu.Unlock()

			pos -= r.engine.sink.Buffered()
			if pos < 0 {
				pos = 0
			}
			r.emit(func() { r.events.OnTimeUpdate(pos) })
		}
	}
}
