// Package media publishes the playback session to the OS (media keys,
// now-playing widgets) and relays the commands it sends back.
package media

import (
	"time"

	"github.com/austinkregel/local-media/playerd/internal/types"
)

// PlaybackState is the coarse state shown by OS widgets
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

// StateFor maps a session to its OS state: stopped without a track,
// otherwise playing or paused
func StateFor(hasTrack, playing bool) PlaybackState {
	switch {
	case !hasTrack:
		return StateStopped
	case playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

// Metadata describes the current track. ArtURL is an http(s) URL or a local path.
type Metadata struct {
	TrackID  string
	Title    string
	Artist   string
	Duration time.Duration
	ArtURL   string
}

// MetadataFor builds the metadata of track; d is zero until it is known
func MetadataFor(track types.Track, d time.Duration) Metadata {
	return Metadata{
		TrackID:  track.ID,
		Title:    track.Title,
		Artist:   track.Artist,
		Duration: d,
		ArtURL:   track.Artwork,
	}
}

// LoopStatus is the MPRIS name of a repeat mode
type LoopStatus string

const (
	LoopNone     LoopStatus = "None"
	LoopTrack    LoopStatus = "Track"
	LoopPlaylist LoopStatus = "Playlist"
)

// LoopStatusFor maps a repeat mode to its loop status
func LoopStatusFor(mode types.RepeatMode) LoopStatus {
	switch mode {
	case types.RepeatOne:
		return LoopTrack
	case types.RepeatAll:
		return LoopPlaylist
	default:
		return LoopNone
	}
}

// RepeatMode maps the loop status back; unknown values turn repeat off
func (l LoopStatus) RepeatMode() types.RepeatMode {
	switch l {
	case LoopTrack:
		return types.RepeatOne
	case LoopPlaylist:
		return types.RepeatAll
	default:
		return types.RepeatOff
	}
}

// Session mirrors the playback session into the OS
type Session interface {
	UpdateMetadata(metadata Metadata) error
	// UpdatePlaybackState is called after every session change; position
	// is the current progress
	UpdatePlaybackState(state PlaybackState, position time.Duration) error
	UpdateShuffle(enabled bool) error
	UpdateLoopStatus(status LoopStatus) error
	SetCommandHandler(handler CommandHandler)
	Close() error
}

// Command is a request from the OS, named as MPRIS names it
type Command string

const (
	CmdPlay          Command = "Play"
	CmdPause         Command = "Pause"
	CmdPlayPause     Command = "PlayPause"
	CmdStop          Command = "Stop"
	CmdNext          Command = "Next"
	CmdPrevious      Command = "Previous"
	CmdSeek          Command = "Seek"          // data: absolute time.Duration
	CmdSetShuffle    Command = "SetShuffle"    // data: bool
	CmdSetLoopStatus Command = "SetLoopStatus" // data: LoopStatus
)

// CommandHandler receives commands from the OS
type CommandHandler interface {
	OnCommand(cmd Command, data interface{}) error
}

// NoOpSession is used when no OS integration is available or it is disabled
type NoOpSession struct{}

func NewNoOpSession() *NoOpSession { return &NoOpSession{} }

func (*NoOpSession) UpdateMetadata(Metadata) error                          { return nil }
func (*NoOpSession) UpdatePlaybackState(PlaybackState, time.Duration) error { return nil }
func (*NoOpSession) UpdateShuffle(bool) error                               { return nil }
func (*NoOpSession) UpdateLoopStatus(LoopStatus) error                      { return nil }
func (*NoOpSession) SetCommandHandler(CommandHandler)                       {}
func (*NoOpSession) Close() error                                           { return nil }
