package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/austinkregel/local-media/playerd/internal/ipc"
	"github.com/austinkregel/local-media/playerd/internal/types"
	"github.com/austinkregel/local-media/playerd/internal/waveform"
)

type call struct {
	cmd  ipc.CommandType
	data interface{}
}

type fakeConn struct {
	mu     sync.Mutex
	calls  []call
	status ipc.StatusResponse
	err    error
	pushes chan ipc.PushMessage
}

func newFakeConn(status ipc.StatusResponse) *fakeConn {
	return &fakeConn{status: status, pushes: make(chan ipc.PushMessage, 4)}
}

func (f *fakeConn) Call(ctx context.Context, cmd ipc.CommandType, data, result interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{cmd, data})
	if f.err != nil {
		return f.err
	}
	if s, ok := result.(*ipc.StatusResponse); ok {
		*s = f.status
	}
	return nil
}

func (f *fakeConn) Subscribe(ctx context.Context) (ipc.StatusResponse, error) {
	return f.status, f.err
}

func (f *fakeConn) Pushes() <-chan ipc.PushMessage {
	return f.pushes
}

func (f *fakeConn) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func playingStatus() ipc.StatusResponse {
	q := []types.Track{
		{ID: "a", Title: "Alpha", Artist: "One"},
		{ID: "b", Title: "Bravo"},
		{ID: "c", Title: "Charlie"},
	}
	return ipc.StatusResponse{
		State:    ipc.StatePlaying,
		Track:    &q[1],
		Progress: 30,
		Duration: 120,
		Volume:   0.5,
		Index:    1,
		Queue:    q,
		CanSkip:  true,
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// ready returns a model that has seen one status from the daemon
func ready(t *testing.T, conn *fakeConn) Model {
	t.Helper()
	m := NewModel(conn, waveform.DefaultStyle())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	next, _ = next.Update(statusMsg(conn.status))
	return next.(Model)
}

// press sends a key and runs the resulting command
func press(t *testing.T, m Model, k string) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(key(k))
	if cmd == nil {
		return next.(Model), nil
	}
	return next.(Model), cmd()
}

func TestKeyBindingsSendCommands(t *testing.T) {
	tests := []struct {
		key  string
		want ipc.CommandType
	}{
		{" ", ipc.CmdToggle},
		{"n", ipc.CmdNext},
		{"p", ipc.CmdPrev},
		{"r", ipc.CmdCycleRepeat},
		{"s", ipc.CmdToggleShuffle},
		{"R", ipc.CmdRadio},
		{"enter", ipc.CmdJump},
		{"+", ipc.CmdVolume},
	}
	for _, tt := range tests {
		conn := newFakeConn(playingStatus())
		m := ready(t, conn)

		_, msg := press(t, m, tt.key)
		if _, ok := msg.(statusMsg); !ok {
			t.Errorf("%q: expected statusMsg, got %T", tt.key, msg)
		}
		if got := conn.last().cmd; got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.key, tt.want, got)
		}
	}
}

func TestSeekKeys(t *testing.T) {
	conn := newFakeConn(playingStatus())
	m := ready(t, conn)

	press(t, m, "right")
	if req, ok := conn.last().data.(ipc.SeekRequest); !ok || req.Seconds != 35 {
		t.Errorf("Expected seek to 35, got %+v", conn.last().data)
	}

	press(t, m, "left")
	if req, ok := conn.last().data.(ipc.SeekRequest); !ok || req.Seconds != 25 {
		t.Errorf("Expected seek to 25, got %+v", conn.last().data)
	}

	// near the start the target clamps to zero
	m.status.Progress = 2
	press(t, m, "left")
	if req := conn.last().data.(ipc.SeekRequest); req.Seconds != 0 {
		t.Errorf("Expected seek to 0, got %v", req.Seconds)
	}
}

func TestSeekIgnoredWithoutDuration(t *testing.T) {
	status := playingStatus()
	status.Duration = 0
	conn := newFakeConn(status)
	m := ready(t, conn)

	if _, msg := press(t, m, "right"); msg != nil {
		t.Errorf("Expected no command, got %T", msg)
	}
	if len(conn.calls) != 0 {
		t.Errorf("Expected no calls, got %d", len(conn.calls))
	}
}

func TestQueueCursor(t *testing.T) {
	conn := newFakeConn(playingStatus())
	m := ready(t, conn)

	if m.cursor != 1 {
		t.Fatalf("Expected cursor on current track, got %d", m.cursor)
	}

	m, _ = press(t, m, "down")
	m, _ = press(t, m, "down")
	if m.cursor != 2 {
		t.Errorf("Expected cursor clamped to 2, got %d", m.cursor)
	}

	m, _ = press(t, m, "up")
	press(t, m, "enter")
	if req := conn.last().data.(ipc.JumpRequest); req.Index != 1 {
		t.Errorf("Expected jump to 1, got %d", req.Index)
	}
}

func TestCursorFollowsTrackChange(t *testing.T) {
	conn := newFakeConn(playingStatus())
	m := ready(t, conn)
	m, _ = press(t, m, "up")

	next := playingStatus()
	next.Track = &next.Queue[2]
	next.Index = 2
	updated, _ := m.Update(statusMsg(next))
	if got := updated.(Model).cursor; got != 2 {
		t.Errorf("Expected cursor to follow to 2, got %d", got)
	}
}

func TestMouseClickOnWaveformSeeks(t *testing.T) {
	conn := newFakeConn(playingStatus())
	m := ready(t, conn)

	_, cmd := m.Update(tea.MouseMsg{X: 10, Y: waveformRow, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if cmd == nil {
		t.Fatal("Expected a seek command")
	}
	cmd()

	req, ok := conn.last().data.(ipc.SeekRatioRequest)
	if !ok || req.Ratio != 0.25 {
		t.Errorf("Expected ratio 0.25, got %+v", conn.last().data)
	}

	// clicks elsewhere do nothing
	if _, cmd := m.Update(tea.MouseMsg{X: 10, Y: waveformRow + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}); cmd != nil {
		t.Error("Expected click off the waveform to be ignored")
	}
	if _, cmd := m.Update(tea.MouseMsg{X: 10, Y: waveformRow, Action: tea.MouseActionMotion}); cmd != nil {
		t.Error("Expected motion to be ignored")
	}
}

func TestPushesUpdateModel(t *testing.T) {
	conn := newFakeConn(ipc.StatusResponse{State: ipc.StateIdle})
	m := NewModel(conn, waveform.DefaultStyle())

	wf, _ := json.Marshal(ipc.WaveformResponse{TrackID: "b", Samples: []float64{0.5, 1}})
	conn.pushes <- ipc.PushMessage{Type: ipc.PushWaveform, Data: wf}
	state, _ := json.Marshal(playingStatus())
	conn.pushes <- ipc.PushMessage{Type: ipc.PushState, Data: state}

	var model tea.Model = m
	for i := 0; i < 2; i++ {
		msg := m.waitForPush()()
		var cmd tea.Cmd
		model, cmd = model.Update(msg)
		if cmd == nil {
			t.Fatalf("push %d: expected the push reader to be re-armed", i)
		}
	}

	got := model.(Model)
	if got.status.Track == nil || got.status.Track.ID != "b" {
		t.Fatalf("Expected track b, got %+v", got.status.Track)
	}
	if len(got.samples) != 2 {
		t.Errorf("Expected waveform to survive the first status, got %v", got.samples)
	}
}

func TestStaleWaveformIgnored(t *testing.T) {
	conn := newFakeConn(playingStatus())
	m := ready(t, conn)

	next, _ := m.Update(waveformMsg{TrackID: "a", Samples: []float64{1}})
	if len(next.(Model).samples) != 0 {
		t.Error("Expected waveform for another track to be ignored")
	}
}

func TestDisconnectQuits(t *testing.T) {
	conn := newFakeConn(ipc.StatusResponse{})
	close(conn.pushes)
	m := NewModel(conn, waveform.DefaultStyle())

	next, cmd := m.Update(m.waitForPush()())
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if !next.(Model).disconnected {
		t.Error("Expected model to be marked disconnected")
	}
}

func TestErrorShownInView(t *testing.T) {
	conn := newFakeConn(playingStatus())
	conn.err = errors.New("next failed: boom")
	m := ready(t, conn)

	m2, msg := press(t, m, "n")
	next, _ := m2.Update(msg)
	if view := next.(Model).View(); !strings.Contains(view, "boom") {
		t.Errorf("Expected error in view, got:\n%s", view)
	}
}

func TestView(t *testing.T) {
	conn := newFakeConn(playingStatus())
	m := ready(t, conn)

	view := m.View()
	for _, want := range []string{"Bravo", "0:30 / 2:00", "Alpha - One", "Charlie", "repeat:off", "vol 50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}

	lines := strings.Split(view, "\n")
	if len(lines) <= waveformRow {
		t.Fatalf("View too short: %d lines", len(lines))
	}
	if !strings.Contains(lines[waveformRow-2], "Bravo") {
		t.Errorf("Expected title two rows above the waveform, got %q", lines[waveformRow-2])
	}

	idle := NewModel(newFakeConn(ipc.StatusResponse{}), waveform.DefaultStyle()).View()
	if !strings.Contains(idle, "Nothing playing") || !strings.Contains(idle, "Queue is empty") {
		t.Errorf("Unexpected idle view:\n%s", idle)
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		cursor, n, rows int
		start, end      int
	}{
		{0, 3, 5, 0, 3},
		{0, 10, 4, 0, 4},
		{5, 10, 4, 3, 7},
		{9, 10, 4, 6, 10},
	}
	for _, tt := range tests {
		start, end := window(tt.cursor, tt.n, tt.rows)
		if start != tt.start || end != tt.end {
			t.Errorf("window(%d, %d, %d) = %d, %d; expected %d, %d", tt.cursor, tt.n, tt.rows, start, end, tt.start, tt.end)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Errorf("Expected abc…, got %s", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("Expected abc, got %s", got)
	}
}
