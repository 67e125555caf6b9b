// Package queue manages the playback queue.
//
// A queue holds two orderings of the same tracks: the natural order in which
// they were enqueued and a shuffled permutation. Exactly one of them is active
// at a time and the current index always refers to the active ordering.
package queue

import (
	"math/rand"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/austinkregel/local-media/playerd/internal/types"
)

// Manager manages the playback queue
type Manager struct {
	mu       sync.RWMutex
	items    []types.Track // Natural order
	shuffled []types.Track // Permutation of items, only meaningful while shuffle is on
	index    int           // Position in the active ordering, -1 when nothing is selected
	shuffle  bool
	rng      *rand.Rand
}

// NewManager creates a new queue manager
func NewManager() *Manager {
	return NewManagerWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewManagerWithRand creates a queue manager that shuffles with the given source
func NewManagerWithRand(rng *rand.Rand) *Manager {
	return &Manager{
		items: make([]types.Track, 0),
		index: -1,
		rng:   rng,
	}
}

// Locate returns the position of track in ordering, or -1 if it is absent.
// Tracks are matched by ID.
func Locate(track types.Track, ordering []types.Track) int {
	_, idx, ok := lo.FindIndexOf(ordering, func(t types.Track) bool {
		return t.ID == track.ID
	})
	if !ok {
		return -1
	}
	return idx
}

// Shuffled returns a uniformly shuffled copy of items (Fisher-Yates)
func Shuffled(items []types.Track, rng *rand.Rand) []types.Track {
	out := make([]types.Track, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Load replaces the queue and selects current inside the active ordering.
// It returns the new index, -1 if current is not part of items.
func (m *Manager) Load(items []types.Track, current types.Track) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make([]types.Track, len(items))
	copy(m.items, items)
	m.shuffled = nil
	if m.shuffle {
		m.shuffled = Shuffled(m.items, m.rng)
	}
	m.index = Locate(current, m.activeLocked())
	return m.index
}

// SetShuffle switches the active ordering and relocates current inside it.
// Turning shuffle on always draws a fresh permutation.
func (m *Manager) SetShuffle(enabled bool, current *types.Track) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shuffle = enabled
	if enabled {
		m.shuffled = Shuffled(m.items, m.rng)
	} else {
		m.shuffled = nil
	}

	if current == nil {
		m.index = -1
	} else {
		m.index = Locate(*current, m.activeLocked())
	}
	return m.index
}

// Step moves delta positions through the active ordering. When the target is
// out of range it wraps to the opposite end if wrap is set, otherwise the
// index is left untouched and ok is false.
func (m *Manager) Step(delta int, wrap bool) (types.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.activeLocked()
	if len(active) == 0 {
		return types.Track{}, false
	}

	target := m.index + delta
	if target < 0 || target >= len(active) {
		if !wrap {
			return types.Track{}, false
		}
		if target < 0 {
			target = len(active) - 1
		} else {
			target = 0
		}
	}

	m.index = target
	return active[target], true
}

// Jump selects the entry at index in the active ordering
func (m *Manager) Jump(index int) (types.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.activeLocked()
	if index < 0 || index >= len(active) {
		return types.Track{}, false
	}
	m.index = index
	return active[index], true
}

// Current returns the track at the current index
func (m *Manager) Current() (types.Track, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := m.activeLocked()
	if m.index < 0 || m.index >= len(active) {
		return types.Track{}, false
	}
	return active[m.index], true
}

// Index returns the current position in the active ordering
func (m *Manager) Index() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// Len returns the number of queued tracks
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Shuffle returns whether the shuffled ordering is active
func (m *Manager) Shuffle() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shuffle
}

// Active returns a copy of the active ordering
func (m *Manager) Active() []types.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneTracks(m.activeLocked())
}

// Natural returns a copy of the queue in insertion order
func (m *Manager) Natural() []types.Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneTracks(m.items)
}

// IDs returns the track ids of the active ordering
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Map(m.activeLocked(), func(t types.Track, _ int) string {
		return t.ID
	})
}

// Clear empties the queue
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make([]types.Track, 0)
	m.shuffled = nil
	m.index = -1
}

func (m *Manager) activeLocked() []types.Track {
	if m.shuffle {
		return m.shuffled
	}
	return m.items
}

func cloneTracks(tracks []types.Track) []types.Track {
	out := make([]types.Track, len(tracks))
	copy(out, tracks)
	return out
}
