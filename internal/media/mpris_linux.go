//go:build linux

package media

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisInterface       = "org.mpris.MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	mprisBusPrefix       = "org.mpris.MediaPlayer2."
	mprisObjectPath      = "/org/mpris/MediaPlayer2"
	propertiesInterface  = "org.freedesktop.DBus.Properties"
)

var supportedMimeTypes = []string{"audio/mpeg", "audio/wav", "audio/flac", "audio/ogg"}

// MPRISSession implements MPRIS media session for Linux
type MPRISSession struct {
	conn *dbus.Conn
	name string

	mu         sync.Mutex
	handler    CommandHandler
	metadata   Metadata
	state      PlaybackState
	position   time.Duration
	shuffle    bool
	loopStatus LoopStatus
}

// NewSession claims org.mpris.MediaPlayer2.<name> on the session bus
func NewSession(name string) (Session, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	busName := mprisBusPrefix + name
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", busName)
	}

	session := newMPRISSession(conn, name)
	for _, iface := range []string{mprisInterface, mprisPlayerInterface, propertiesInterface} {
		if err := conn.Export(session, dbus.ObjectPath(mprisObjectPath), iface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to export %s: %w", iface, err)
		}
	}

	return session, nil
}

func newMPRISSession(conn *dbus.Conn, name string) *MPRISSession {
	return &MPRISSession{
		conn:       conn,
		name:       name,
		state:      StateStopped,
		loopStatus: LoopNone,
	}
}

// UpdateMetadata updates the track metadata
func (s *MPRISSession) UpdateMetadata(metadata Metadata) error {
	s.mu.Lock()
	s.metadata = metadata
	m := metadataMap(s.name, metadata)
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(m),
	})
}

// UpdatePlaybackState updates the playback state. Clients extrapolate the
// position from Rate, so only transitions and jumps are signalled.
func (s *MPRISSession) UpdatePlaybackState(state PlaybackState, position time.Duration) error {
	s.mu.Lock()
	old := s.state
	oldPos := s.position
	s.state = state
	s.position = position
	s.mu.Unlock()

	if state == StatePlaying && (old != state || position < oldPos) {
		s.emitSeeked(position)
	}
	if old == state {
		return nil
	}
	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(playbackStatus(state)),
	})
}

// UpdateShuffle updates the shuffle state
func (s *MPRISSession) UpdateShuffle(enabled bool) error {
	s.mu.Lock()
	s.shuffle = enabled
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"Shuffle": dbus.MakeVariant(enabled),
	})
}

// UpdateLoopStatus updates the loop/repeat mode
func (s *MPRISSession) UpdateLoopStatus(status LoopStatus) error {
	s.mu.Lock()
	s.loopStatus = status
	s.mu.Unlock()

	return s.emitPropertiesChanged(map[string]dbus.Variant{
		"LoopStatus": dbus.MakeVariant(string(status)),
	})
}

// SetCommandHandler sets the handler for media commands
func (s *MPRISSession) SetCommandHandler(handler CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Close releases the bus connection
func (s *MPRISSession) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *MPRISSession) dispatch(cmd Command, data interface{}) *dbus.Error {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		return nil
	}
	if err := h.OnCommand(cmd, data); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// org.mpris.MediaPlayer2

func (s *MPRISSession) Raise() *dbus.Error { return nil }
func (s *MPRISSession) Quit() *dbus.Error  { return nil }

// org.mpris.MediaPlayer2.Player

func (s *MPRISSession) Play() *dbus.Error      { return s.dispatch(CmdPlay, nil) }
func (s *MPRISSession) Pause() *dbus.Error     { return s.dispatch(CmdPause, nil) }
func (s *MPRISSession) PlayPause() *dbus.Error { return s.dispatch(CmdPlayPause, nil) }
func (s *MPRISSession) Stop() *dbus.Error      { return s.dispatch(CmdStop, nil) }
func (s *MPRISSession) Next() *dbus.Error      { return s.dispatch(CmdNext, nil) }
func (s *MPRISSession) Previous() *dbus.Error  { return s.dispatch(CmdPrevious, nil) }

// Seek moves relative to the current position (offset in microseconds)
func (s *MPRISSession) Seek(offset int64) *dbus.Error {
	s.mu.Lock()
	pos := s.position + time.Duration(offset)*time.Microsecond
	s.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	return s.dispatch(CmdSeek, pos)
}

// SetPosition seeks to an absolute position. Requests for a track other
// than the current one are ignored.
func (s *MPRISSession) SetPosition(trackID dbus.ObjectPath, position int64) *dbus.Error {
	s.mu.Lock()
	current := trackObjectPath(s.name, s.metadata.TrackID)
	s.mu.Unlock()
	if trackID != current || position < 0 {
		return nil
	}
	return s.dispatch(CmdSeek, time.Duration(position)*time.Microsecond)
}

// org.freedesktop.DBus.Properties

func (s *MPRISSession) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	all, err := s.GetAll(iface)
	if err != nil {
		return dbus.Variant{}, err
	}
	v, ok := all[prop]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
	}
	return v, nil
}

func (s *MPRISSession) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisInterface:
		return rootProperties(s.name), nil
	case mprisPlayerInterface:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.playerPropertiesLocked(), nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
}

func (s *MPRISSession) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	if iface != mprisPlayerInterface {
		return nil
	}

	switch prop {
	case "Shuffle":
		enabled, ok := value.Value().(bool)
		if !ok {
			return dbus.MakeFailedError(fmt.Errorf("invalid type for Shuffle"))
		}
		return s.dispatch(CmdSetShuffle, enabled)
	case "LoopStatus":
		status, ok := value.Value().(string)
		if !ok {
			return dbus.MakeFailedError(fmt.Errorf("invalid type for LoopStatus"))
		}
		return s.dispatch(CmdSetLoopStatus, LoopStatus(status))
	}
	return nil
}

func (s *MPRISSession) playerPropertiesLocked() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(playbackStatus(s.state)),
		"Metadata":       dbus.MakeVariant(metadataMap(s.name, s.metadata)),
		"Position":       dbus.MakeVariant(s.position.Microseconds()),
		"Rate":           dbus.MakeVariant(1.0),
		"MinimumRate":    dbus.MakeVariant(1.0),
		"MaximumRate":    dbus.MakeVariant(1.0),
		"CanGoNext":      dbus.MakeVariant(true),
		"CanGoPrevious":  dbus.MakeVariant(true),
		"CanPlay":        dbus.MakeVariant(s.metadata.TrackID != ""),
		"CanPause":       dbus.MakeVariant(s.metadata.TrackID != ""),
		"CanSeek":        dbus.MakeVariant(s.metadata.Duration > 0),
		"CanControl":     dbus.MakeVariant(true),
		"Volume":         dbus.MakeVariant(1.0),
		"Shuffle":        dbus.MakeVariant(s.shuffle),
		"LoopStatus":     dbus.MakeVariant(string(s.loopStatus)),
	}
}

func rootProperties(name string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"CanQuit":             dbus.MakeVariant(false),
		"CanRaise":            dbus.MakeVariant(false),
		"HasTrackList":        dbus.MakeVariant(false),
		"Identity":            dbus.MakeVariant(name),
		"DesktopEntry":        dbus.MakeVariant(name),
		"SupportedUriSchemes": dbus.MakeVariant([]string{"http", "https", "file"}),
		"SupportedMimeTypes":  dbus.MakeVariant(supportedMimeTypes),
	}
}

func playbackStatus(state PlaybackState) string {
	switch state {
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

// trackObjectPath maps a track id onto a D-Bus object path. Characters
// outside [A-Za-z0-9_] are not allowed in path elements.
func trackObjectPath(name, trackID string) dbus.ObjectPath {
	if trackID == "" {
		return dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	}
	var b strings.Builder
	for _, r := range trackID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return dbus.ObjectPath("/org/" + name + "/track/t" + b.String())
}

func artURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + path
}

func metadataMap(name string, md Metadata) map[string]dbus.Variant {
	m := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackObjectPath(name, md.TrackID)),
	}
	if md.Title != "" {
		m["xesam:title"] = dbus.MakeVariant(md.Title)
	}
	if md.Artist != "" {
		m["xesam:artist"] = dbus.MakeVariant([]string{md.Artist})
	}
	if md.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(md.Duration.Microseconds())
	}
	if md.ArtURL != "" {
		m["mpris:artUrl"] = dbus.MakeVariant(artURL(md.ArtURL))
	}
	return m
}

func (s *MPRISSession) emitSeeked(position time.Duration) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Emit(dbus.ObjectPath(mprisObjectPath), mprisPlayerInterface+".Seeked", position.Microseconds())
}

func (s *MPRISSession) emitPropertiesChanged(props map[string]dbus.Variant) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		propertiesInterface+".PropertiesChanged",
		mprisPlayerInterface,
		props,
		[]string{},
	)
}
