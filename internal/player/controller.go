// Package player owns the playback session: what is playing, the queue
// around it, repeat and shuffle modes, progress and the waveform of the
// current track.
package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/austinkregel/local-media/playerd/internal/audio"
	"github.com/austinkregel/local-media/playerd/internal/logging"
	"github.com/austinkregel/local-media/playerd/internal/media"
	"github.com/austinkregel/local-media/playerd/internal/queue"
	"github.com/austinkregel/local-media/playerd/internal/types"
)

// DefaultRestartThreshold is how far into a track "previous" restarts it
// instead of moving back
const DefaultRestartThreshold = 3 * time.Second

var (
	ErrNoTrack          = errors.New("no track")
	ErrRadioUnavailable = errors.New("radio unavailable")
	ErrClosed           = errors.New("player closed")
)

// Notifier receives best-effort play notifications. TrackPlayed must not block.
type Notifier interface {
	TrackPlayed(track types.Track)
}

// RadioSource returns the tracks that follow a seed track
type RadioSource interface {
	RadioQueue(ctx context.Context, id string) ([]types.Track, error)
}

// Analyzer produces a waveform envelope. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, audioPath string) []float64
}

// VolumeControl is implemented by engines with an adjustable output
type VolumeControl interface {
	SetVolume(v float64)
	Volume() float64
}

// Options wires a Controller to its collaborators. Only Engine is required.
type Options struct {
	Engine           audio.Engine
	Notifier         Notifier
	Radio            RadioSource
	Analyzer         Analyzer
	Session          media.Session
	Rand             *rand.Rand
	RestartThreshold time.Duration
}

// Snapshot is a copy of the session state
type Snapshot struct {
	Track    *types.Track     `json:"track,omitempty"`
	Playing  bool             `json:"playing"`
	Loading  bool             `json:"loading"`
	Progress float64          `json:"progress"` // seconds
	Duration float64          `json:"duration"` // seconds
	Repeat   types.RepeatMode `json:"repeat"`
	Shuffle  bool             `json:"shuffle"`
	Index    int              `json:"index"`
	Queue    []types.Track    `json:"queue"`
	CanSkip  bool             `json:"canSkip"`
	Volume   float64          `json:"volume"`
	Waveform []float64        `json:"waveform"`
}

// Observer is called with a fresh snapshot after every state change
type Observer func(Snapshot)

// Controller is the playback session. It owns the single live audio
// resource; all mutation goes through its methods.
type Controller struct {
	mu sync.Mutex
	// notifyMu orders deliveries so observers never see an older snapshot
	// after a newer one
	notifyMu  sync.Mutex
	engine    audio.Engine
	notifier  Notifier
	radio     RadioSource
	analyzer  Analyzer
	session   media.Session
	queue     *queue.Manager
	threshold time.Duration
	log       zerolog.Logger

	current  *types.Track
	playing  bool
	loading  bool
	ended    bool
	failed   bool // the current resource errored; cleared by the next load
	progress time.Duration
	duration time.Duration
	repeat   types.RepeatMode
	volume   float64
	waveform []float64

	// generation increases on every track load; events and analysis results
	// carrying an older generation are stale
	generation     uint64
	resource       audio.Resource
	cancelAnalysis context.CancelFunc

	observers    map[int]Observer
	nextObserver int
	closed       bool
}

// New creates a controller
func New(opts Options) *Controller {
	q := queue.NewManager()
	if opts.Rand != nil {
		q = queue.NewManagerWithRand(opts.Rand)
	}
	threshold := opts.RestartThreshold
	if threshold <= 0 {
		threshold = DefaultRestartThreshold
	}
	session := opts.Session
	if session == nil {
		session = media.NewNoOpSession()
	}

	c := &Controller{
		engine:    opts.Engine,
		notifier:  opts.Notifier,
		radio:     opts.Radio,
		analyzer:  opts.Analyzer,
		session:   session,
		queue:     q,
		threshold: threshold,
		log:       logging.For("player"),
		volume:    1,
		waveform:  []float64{},
		observers: make(map[int]Observer),
	}
	if vc, ok := opts.Engine.(VolumeControl); ok {
		c.volume = vc.Volume()
	}
	session.SetCommandHandler(c)
	return c
}

// PlayTrack makes track current with queue as the new natural ordering. An
// empty queue means the track alone. The play is reported to the notifier
// in the background.
func (c *Controller) PlayTrack(track types.Track, q []types.Track) error {
	if track.IsZero() {
		return ErrNoTrack
	}
	items := q
	if len(items) == 0 {
		items = []types.Track{track}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	idx := c.queue.Load(items, track)
	c.log.Info().Str("track", track.ID).Int("index", idx).Int("queue", len(items)).Msg("play track")
	c.loadLocked(track)
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.TrackPlayed(track)
	}
	c.notify()
	return nil
}

// PlayOrToggle toggles playback when track is already current, otherwise
// plays it with queue
func (c *Controller) PlayOrToggle(track types.Track, q []types.Track) error {
	c.mu.Lock()
	same := c.current != nil && c.current.ID == track.ID
	c.mu.Unlock()

	if same {
		c.TogglePlayPause()
		return nil
	}
	return c.PlayTrack(track, q)
}

// TogglePlayPause flips between playing and paused. It does nothing while
// loading, when no track is current or when the current track failed.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	if c.closed || c.loading || c.failed || c.current == nil {
		c.mu.Unlock()
		return
	}
	c.playing = !c.playing
	if c.playing {
		if c.ended {
			c.ended = false
			c.progress = 0
		}
		c.resource.Play()
	} else {
		c.resource.Pause()
	}
	c.mu.Unlock()

	c.notify()
}

// PlayNext advances through the active ordering. Repeat one restarts the
// current track; past the end it wraps with repeat all and otherwise stops
// on the last track.
func (c *Controller) PlayNext() {
	c.mu.Lock()
	if c.closed || c.queue.Len() == 0 {
		c.mu.Unlock()
		return
	}

	if c.repeat == types.RepeatOne {
		c.restartLocked(true)
		c.mu.Unlock()
		c.notify()
		return
	}

	track, ok := c.queue.Step(1, c.repeat == types.RepeatAll)
	if !ok {
		c.log.Debug().Msg("end of queue")
		c.playing = false
		if c.resource != nil {
			c.resource.Pause()
		}
	} else {
		c.loadLocked(track)
	}
	c.mu.Unlock()

	c.notify()
}

// PlayPrev restarts the current track when it has played past the restart
// threshold, otherwise moves back. Before the first track it wraps with
// repeat all and otherwise does nothing.
func (c *Controller) PlayPrev() {
	c.mu.Lock()
	if c.closed || c.queue.Len() == 0 {
		c.mu.Unlock()
		return
	}

	if c.current != nil && c.progress > c.threshold {
		c.restartLocked(false)
		c.mu.Unlock()
		c.notify()
		return
	}

	track, ok := c.queue.Step(-1, c.repeat == types.RepeatAll)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.loadLocked(track)
	c.mu.Unlock()

	c.notify()
}

// JumpTo plays the entry at index of the active ordering, with the active
// ordering as the queue
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	active := c.queue.Active()
	c.mu.Unlock()

	if index < 0 || index >= len(active) {
		return fmt.Errorf("queue index %d out of range [0, %d)", index, len(active))
	}
	return c.PlayTrack(active[index], active)
}

// StartRadio plays track followed by the radio queue seeded from it. On
// failure the session is left untouched and the error is returned.
func (c *Controller) StartRadio(ctx context.Context, track types.Track) error {
	if track.IsZero() {
		return ErrNoTrack
	}
	if c.radio == nil {
		return ErrRadioUnavailable
	}

	tracks, err := c.radio.RadioQueue(ctx, track.ID)
	if err != nil {
		c.log.Error().Err(err).Str("track", track.ID).Msg("radio start failed")
		return fmt.Errorf("%w: %v", ErrRadioUnavailable, err)
	}

	q := make([]types.Track, 0, len(tracks)+1)
	q = append(q, track)
	q = append(q, tracks...)
	return c.PlayTrack(track, q)
}

// Seek moves the playback position, clamped to [0, duration]. Progress is
// updated immediately. Without a current track it does nothing.
func (c *Controller) Seek(position time.Duration) {
	c.mu.Lock()
	if c.closed || c.failed || c.current == nil {
		c.mu.Unlock()
		return
	}
	if position < 0 {
		position = 0
	}
	if c.duration > 0 && position > c.duration {
		position = c.duration
	}
	c.progress = position
	c.ended = false
	c.resource.Seek(position)
	c.mu.Unlock()

	c.notify()
}

// SeekRatio seeks to ratio * duration
func (c *Controller) SeekRatio(ratio float64) {
	c.mu.Lock()
	d := c.duration
	c.mu.Unlock()
	c.Seek(time.Duration(ratio * float64(d)))
}

// CycleRepeat advances off -> all -> one -> off and returns the new mode
func (c *Controller) CycleRepeat() types.RepeatMode {
	c.mu.Lock()
	c.repeat = c.repeat.Next()
	mode := c.repeat
	c.mu.Unlock()

	c.session.UpdateLoopStatus(media.LoopStatusFor(mode))
	c.notify()
	return mode
}

// SetRepeat sets the repeat mode
func (c *Controller) SetRepeat(mode types.RepeatMode) {
	c.mu.Lock()
	c.repeat = mode
	c.mu.Unlock()

	c.session.UpdateLoopStatus(media.LoopStatusFor(mode))
	c.notify()
}

// ToggleShuffle switches between the natural and a freshly shuffled
// ordering. The current track does not change.
func (c *Controller) ToggleShuffle() bool {
	c.mu.Lock()
	enabled := !c.queue.Shuffle()
	c.queue.SetShuffle(enabled, c.current)
	c.mu.Unlock()

	c.session.UpdateShuffle(enabled)
	c.notify()
	return enabled
}

// SetShuffle turns shuffle on or off
func (c *Controller) SetShuffle(enabled bool) {
	c.mu.Lock()
	if c.queue.Shuffle() == enabled {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.ToggleShuffle()
}

// SetVolume sets the output volume (0.0 - 1.0)
func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.volume = v
	c.mu.Unlock()

	if vc, ok := c.engine.(VolumeControl); ok {
		vc.SetVolume(v)
	}
	c.notify()
}

// CanSkip reports whether next/previous have anywhere to go
func (c *Controller) CanSkip() bool {
	return c.queue.Len() > 1
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers an observer and returns a function that removes it
func (c *Controller) Subscribe(fn Observer) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close tears the session down: the live resource is stopped and released
// and pending analysis is cancelled
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.generation++
	c.playing = false
	if c.cancelAnalysis != nil {
		c.cancelAnalysis()
		c.cancelAnalysis = nil
	}
	res := c.resource
	c.resource = nil
	c.mu.Unlock()

	c.session.UpdatePlaybackState(media.StateStopped, 0)
	if res != nil {
		return res.Close()
	}
	return nil
}

// loadLocked swaps in a new resource for track. The previous resource is
// closed first so only one is ever live.
func (c *Controller) loadLocked(track types.Track) {
	c.generation++
	gen := c.generation

	if c.resource != nil {
		c.resource.Close()
		c.resource = nil
	}
	if c.cancelAnalysis != nil {
		c.cancelAnalysis()
		c.cancelAnalysis = nil
	}

	t := track
	c.current = &t
	c.loading = true
	c.playing = false
	c.ended = false
	c.failed = false
	c.progress = 0
	c.duration = 0
	c.waveform = []float64{}

	c.resource = c.engine.Open(track, audio.Events{
		OnMetadata:   func(d time.Duration) { c.onMetadata(gen, d) },
		OnTimeUpdate: func(pos time.Duration) { c.onTimeUpdate(gen, pos) },
		OnEnded:      func() { c.onEnded(gen) },
		OnError:      func(err error) { c.onError(gen, err) },
	})

	if c.analyzer != nil {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancelAnalysis = cancel
		path := track.AudioPath
		go func() {
			samples := c.analyzer.Analyze(ctx, path)
			c.applyWaveform(gen, samples)
		}()
	}

	c.session.UpdateMetadata(media.MetadataFor(track, 0))
}

// restartLocked seeks the current resource back to 0. With play set it also
// starts playback.
func (c *Controller) restartLocked(play bool) {
	if c.current == nil || c.resource == nil || c.failed {
		return
	}
	c.progress = 0
	c.ended = false
	c.resource.Seek(0)
	if play && !c.loading {
		c.playing = true
		c.resource.Play()
	}
}

func (c *Controller) onMetadata(gen uint64, d time.Duration) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.duration = d
	c.loading = false
	c.playing = true
	if c.progress > d {
		c.progress = d
	}
	c.resource.Play()
	md := media.MetadataFor(*c.current, d)
	c.mu.Unlock()

	c.session.UpdateMetadata(md)
	c.notify()
}

// onTimeUpdate only moves progress forward; seeks and restarts set it
// directly
func (c *Controller) onTimeUpdate(gen uint64, pos time.Duration) {
	c.mu.Lock()
	if gen != c.generation || pos < c.progress {
		c.mu.Unlock()
		return
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	c.progress = pos
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) onEnded(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.ended = true
	c.mu.Unlock()

	c.PlayNext()
}

func (c *Controller) onError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.log.Error().Err(err).Str("track", c.current.ID).Msg("track failed to play")
	c.loading = false
	c.playing = false
	c.failed = true
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) applyWaveform(gen uint64, samples []float64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.waveform = samples
	c.cancelAnalysis = nil
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Playing:  c.playing,
		Loading:  c.loading,
		Progress: c.progress.Seconds(),
		Duration: c.duration.Seconds(),
		Repeat:   c.repeat,
		Shuffle:  c.queue.Shuffle(),
		Index:    c.queue.Index(),
		Queue:    c.queue.Active(),
		CanSkip:  c.queue.Len() > 1,
		Volume:   c.volume,
		Waveform: append([]float64(nil), c.waveform...),
	}
	if s.Waveform == nil {
		s.Waveform = []float64{}
	}
	if c.current != nil {
		t := *c.current
		s.Track = &t
	}
	return s
}

// notify publishes the current state to observers and the OS media session.
// It must be called without c.mu held, and observers must not call back into
// the controller.
func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	snap := c.snapshotLocked()
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	state := media.StateFor(snap.Track != nil, snap.Playing)
	c.session.UpdatePlaybackState(state, time.Duration(snap.Progress*float64(time.Second)))

	for _, fn := range observers {
		fn(snap)
	}
}
