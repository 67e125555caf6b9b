// Package tui is a terminal front end for a running playerd daemon.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/austinkregel/local-media/playerd/internal/ipc"
	"github.com/austinkregel/local-media/playerd/internal/player"
	"github.com/austinkregel/local-media/playerd/internal/types"
	"github.com/austinkregel/local-media/playerd/internal/waveform"
)

const (
	commandTimeout = 5 * time.Second
	seekStep       = 5.0  // seconds
	volumeStep     = 0.05 // of full scale
	errorLifetime  = 5 * time.Second

	// screen row the waveform strip is drawn on, used for mouse seeks
	waveformRow = 4

	defaultWidth = 60
	minQueueRows = 3
)

// Conn is the part of the IPC client the model needs
type Conn interface {
	Call(ctx context.Context, cmd ipc.CommandType, data, result interface{}) error
	Subscribe(ctx context.Context) (ipc.StatusResponse, error)
	Pushes() <-chan ipc.PushMessage
}

// Model is the bubbletea model for the player screen
type Model struct {
	conn  Conn
	style waveform.Style

	width  int
	height int

	status       ipc.StatusResponse
	samples      []float64
	samplesTrack string
	synced       bool // cursor has been placed on the current track

	cursor int

	lastError   error
	errorExpiry time.Time

	disconnected bool
	quitting     bool
}

// NewModel creates a model that drives the daemon behind conn
func NewModel(conn Conn, style waveform.Style) Model {
	return Model{
		conn:  conn,
		style: style,
	}
}

// Messages
type statusMsg ipc.StatusResponse
type waveformMsg ipc.WaveformResponse
type errMsg struct{ err error }
type disconnectedMsg struct{}

// pushMsg wraps a message read from the push channel
type pushMsg struct{ msg tea.Msg }

// Init subscribes to daemon pushes
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.subscribe(), m.waitForPush())
}

func (m Model) subscribe() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		status, err := m.conn.Subscribe(ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg(status)
	}
}

// waitForPush blocks on the next push; Update re-arms it after each one
func (m Model) waitForPush() tea.Cmd {
	pushes := m.conn.Pushes()
	return func() tea.Msg {
		push, ok := <-pushes
		if !ok {
			return disconnectedMsg{}
		}
		return pushMsg{decodePush(push)}
	}
}

func decodePush(push ipc.PushMessage) tea.Msg {
	switch push.Type {
	case ipc.PushState:
		var status ipc.StatusResponse
		if err := json.Unmarshal(push.Data, &status); err != nil {
			return errMsg{fmt.Errorf("invalid state push: %w", err)}
		}
		return statusMsg(status)
	case ipc.PushWaveform:
		var wf ipc.WaveformResponse
		if err := json.Unmarshal(push.Data, &wf); err != nil {
			return errMsg{fmt.Errorf("invalid waveform push: %w", err)}
		}
		return waveformMsg(wf)
	}
	return nil
}

// call runs a command whose response is the session status
func (m Model) call(cmd ipc.CommandType, data interface{}) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var status ipc.StatusResponse
		if err := m.conn.Call(ctx, cmd, data, &status); err != nil {
			return errMsg{err}
		}
		return statusMsg(status)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case pushMsg:
		// exactly one push reader runs at a time
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, m.waitForPush())

	case statusMsg:
		m.applyStatus(ipc.StatusResponse(msg))
		return m, nil

	case waveformMsg:
		// the subscribe push can beat the first status
		if m.status.Track == nil || msg.TrackID == m.status.Track.ID {
			m.samples = msg.Samples
			m.samplesTrack = msg.TrackID
		}
		return m, nil

	case errMsg:
		m.lastError = msg.err
		m.errorExpiry = time.Now().Add(errorLifetime)
		return m, nil

	case disconnectedMsg:
		m.disconnected = true
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyStatus(status ipc.StatusResponse) {
	if time.Now().After(m.errorExpiry) {
		m.lastError = nil
	}

	oldTrack := ""
	if m.status.Track != nil {
		oldTrack = m.status.Track.ID
	}
	m.status = status

	newTrack := ""
	if status.Track != nil {
		newTrack = status.Track.ID
	}
	if newTrack != oldTrack {
		if m.samplesTrack != newTrack {
			m.samples = nil
			m.samplesTrack = ""
		}
		if status.Index >= 0 {
			m.cursor = status.Index
		}
	}
	if !m.synced && status.Index >= 0 {
		m.cursor = status.Index
		m.synced = true
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.status.Queue) {
		m.cursor = len(m.status.Queue) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case " ":
		return m, m.call(ipc.CmdToggle, nil)
	case "n":
		return m, m.call(ipc.CmdNext, nil)
	case "p":
		return m, m.call(ipc.CmdPrev, nil)
	case "r":
		return m, m.call(ipc.CmdCycleRepeat, nil)
	case "s":
		return m, m.call(ipc.CmdToggleShuffle, nil)
	case "R":
		if m.status.Track == nil {
			return m, nil
		}
		return m, m.call(ipc.CmdRadio, ipc.RadioRequest{Track: *m.status.Track})

	case "left", "h":
		return m, m.seekBy(-seekStep)
	case "right", "l":
		return m, m.seekBy(seekStep)

	case "+", "=":
		return m, m.volumeBy(volumeStep)
	case "-":
		return m, m.volumeBy(-volumeStep)

	case "up", "k":
		m.cursor--
		m.clampCursor()
		return m, nil
	case "down", "j":
		m.cursor++
		m.clampCursor()
		return m, nil
	case "enter":
		if len(m.status.Queue) == 0 {
			return m, nil
		}
		return m, m.call(ipc.CmdJump, ipc.JumpRequest{Index: m.cursor})
	}

	return m, nil
}

func (m Model) seekBy(delta float64) tea.Cmd {
	if m.status.Track == nil || m.status.Duration <= 0 {
		return nil
	}
	target := m.status.Progress + delta
	if target < 0 {
		target = 0
	}
	return m.call(ipc.CmdSeek, ipc.SeekRequest{Seconds: target})
}

func (m Model) volumeBy(delta float64) tea.Cmd {
	level := m.status.Volume + delta
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return m.call(ipc.CmdVolume, ipc.VolumeRequest{Level: level})
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if msg.Y != waveformRow || m.status.Track == nil || m.status.Duration <= 0 {
		return m, nil
	}
	ratio := waveform.SeekRatio(float64(msg.X), float64(m.stripWidth()))
	return m, m.call(ipc.CmdSeekRatio, ipc.SeekRatioRequest{Ratio: ratio})
}

func (m Model) stripWidth() int {
	if m.width > 0 {
		return m.width
	}
	return defaultWidth
}

// View renders the screen. Rows above the queue are fixed so mouse clicks
// can be mapped back to the waveform strip.
func (m Model) View() string {
	if m.quitting {
		if m.disconnected {
			return "Daemon connection closed.\n"
		}
		return ""
	}

	width := m.stripWidth()
	var b strings.Builder

	// 0: header
	b.WriteString(headerStyle.Render("playerd") + "  " + m.renderState())
	b.WriteString("\n\n")

	// 2-3: now playing
	if m.status.Track != nil {
		b.WriteString(titleStyle.Render(truncate(m.status.Track.Title, width)))
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render(truncate(m.status.Track.Artist, width)))
	} else {
		b.WriteString(dimStyle.Render("Nothing playing"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// 4: waveform
	progress := 0.0
	if m.status.Duration > 0 {
		progress = m.status.Progress / m.status.Duration
	}
	b.WriteString(waveform.RenderTerminal(m.samples, progress, width, m.style))
	b.WriteString("\n")

	// 5: time and modes
	b.WriteString(m.renderTimeline())
	b.WriteString("\n\n")

	b.WriteString(m.renderQueue(width))
	b.WriteString("\n")

	if m.lastError != nil {
		b.WriteString(errorStyle.Render("Error: " + m.lastError.Error()))
	} else {
		b.WriteString(dimStyle.Render("space play/pause  n/p next/prev  ←/→ seek  r repeat  s shuffle  R radio  enter jump  q quit"))
	}
	return b.String()
}

func (m Model) renderState() string {
	switch m.status.State {
	case ipc.StatePlaying:
		return playingStyle.Render("▶ playing")
	case ipc.StatePaused:
		return pausedStyle.Render("⏸ paused")
	case ipc.StateLoading:
		return dimStyle.Render("… loading")
	default:
		return dimStyle.Render("■ idle")
	}
}

func (m Model) renderTimeline() string {
	shuffle := "off"
	if m.status.Shuffle {
		shuffle = "on"
	}
	return fmt.Sprintf("%s / %s   %s   %s   %s",
		player.FormatTime(m.status.Progress),
		player.FormatTime(m.status.Duration),
		dimStyle.Render("repeat:"+m.status.Repeat.String()),
		dimStyle.Render("shuffle:"+shuffle),
		dimStyle.Render(fmt.Sprintf("vol %d%%", int(m.status.Volume*100+0.5))),
	)
}

func (m Model) renderQueue(width int) string {
	queue := m.status.Queue
	if len(queue) == 0 {
		return queueBorder.Render(dimStyle.Render("Queue is empty"))
	}

	rows := minQueueRows
	// header(1) blank(1) title(1) artist(1) waveform(1) timeline(1) blank(1) border(2) footer(1)
	if avail := m.height - 10; avail > rows {
		rows = avail
	}
	start, end := window(m.cursor, len(queue), rows)

	inner := width - 4
	if inner < 10 {
		inner = 10
	}
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderQueueRow(i, queue[i], inner))
	}
	return queueBorder.Width(inner).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderQueueRow(i int, track types.Track, width int) string {
	marker := "  "
	if i == m.status.Index {
		marker = "▶ "
	}
	label := track.Title
	if label == "" {
		label = track.ID
	}
	if track.Artist != "" {
		label += " - " + track.Artist
	}
	line := marker + truncate(label, width-2)

	switch {
	case i == m.cursor:
		return cursorStyle.Render(line)
	case i == m.status.Index:
		return currentStyle.Render(line)
	default:
		return line
	}
}

// window returns the [start, end) slice of n rows that keeps cursor visible
func window(cursor, n, rows int) (int, int) {
	if n <= rows {
		return 0, n
	}
	start := cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
