package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/austinkregel/local-media/playerd/internal/api"
	"github.com/austinkregel/local-media/playerd/internal/audio"
	"github.com/austinkregel/local-media/playerd/internal/config"
	"github.com/austinkregel/local-media/playerd/internal/ipc"
	"github.com/austinkregel/local-media/playerd/internal/player"
	"github.com/austinkregel/local-media/playerd/internal/types"
)

func TestSuggestion(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"daemon down", fmt.Errorf("failed to connect to /tmp/x.sock: dial unix: connect: connection refused"), "playerd serve"},
		{"no socket", fmt.Errorf("failed to connect to /tmp/x.sock: dial unix /tmp/x.sock: connect: no such file or directory"), "playerd serve"},
		{"closed", ipc.ErrClientClosed, "playerd serve"},
		{"unknown track", fmt.Errorf("failed to look up track 9: %w", &api.APIError{Status: 404, Path: "/track/9"}), "track id"},
		{"server error", &api.APIError{Status: 503, Path: "/radio/start/1"}, "having issues"},
		{"radio", &ipc.RemoteError{Cmd: ipc.CmdRadio, Message: "radio unavailable: api /radio/start/1: status 400"}, "api.base_url"},
		{"local radio", fmt.Errorf("%w: boom", player.ErrRadioUnavailable), "api.base_url"},
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"config", errors.New("failed to load config: invalid config"), "config file"},
		{"other", errors.New("something else"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		got := Suggestion(tt.err)
		if tt.want == "" && got != "" {
			t.Errorf("%s: expected no suggestion, got %q", tt.name, got)
		}
		if tt.want != "" && !strings.Contains(got, tt.want) {
			t.Errorf("%s: expected suggestion containing %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestFormatError(t *testing.T) {
	if got := FormatError(errors.New("boom")); got != "Error: boom" {
		t.Errorf("Expected plain error, got %q", got)
	}
	got := FormatError(ipc.ErrClientClosed)
	if !strings.HasPrefix(got, "Error: ipc client closed\n\nSuggestion: ") {
		t.Errorf("Expected error with suggestion, got %q", got)
	}
	if FormatError(nil) != "" {
		t.Error("Expected empty string for nil")
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"90", 90, true},
		{"12.5", 12.5, true},
		{"1:30", 90, true},
		{"0:05", 5, true},
		{"10:00", 600, true},
		{" 2:15 ", 135, true},
		{"1:60", 0, false},
		{"-3", 0, false},
		{"a:10", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParsePosition(%q) = %v, %v; expected %v", tt.in, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParsePosition(%q) expected error, got %v", tt.in, got)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	track := types.Track{ID: "1", Title: "Song", Artist: "Band"}
	out := FormatStatus(ipc.StatusResponse{
		State:    ipc.StatePlaying,
		Track:    &track,
		Progress: 65,
		Duration: 200,
		Volume:   0.8,
		Repeat:   types.RepeatAll,
		Shuffle:  true,
		Index:    1,
		Queue:    []types.Track{{ID: "0"}, track},
	})
	for _, want := range []string{"▶ Song - Band", "1:05 / 3:20", "repeat: all", "shuffle: on", "volume: 80%", "queue: 2 of 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}

	idle := FormatStatus(ipc.StatusResponse{State: ipc.StateIdle, Index: -1, Queue: []types.Track{}})
	if !strings.Contains(idle, "Nothing playing") || strings.Contains(idle, "queue:") {
		t.Errorf("Unexpected idle status:\n%s", idle)
	}
}

type failingFetcher struct{}

func (failingFetcher) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("remote %s", path)
}

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	f := fileFetcher{next: failingFetcher{}}

	body, err := f.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Expected local file to open, got %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "RIFF" {
		t.Errorf("Expected file contents, got %q", data)
	}

	if _, err := f.Open(context.Background(), "/audio/missing.mp3"); err == nil || !strings.Contains(err.Error(), "remote") {
		t.Errorf("Expected fallback to the remote fetcher, got %v", err)
	}
	if _, err := f.Open(context.Background(), "http://host/a.mp3"); err == nil || !strings.Contains(err.Error(), "remote") {
		t.Errorf("Expected URLs to go to the remote fetcher, got %v", err)
	}
}

type nopResource struct{}

func (nopResource) Play()              {}
func (nopResource) Pause()             {}
func (nopResource) Seek(time.Duration) {}
func (nopResource) Close() error       { return nil }

type volumeEngine struct {
	volume float64
}

func (e *volumeEngine) Open(types.Track, audio.Events) audio.Resource { return nopResource{} }
func (e *volumeEngine) SetVolume(v float64)                           { e.volume = v }
func (e *volumeEngine) Volume() float64                               { return e.volume }

func TestReloaderAppliesChangedVolumeOnly(t *testing.T) {
	engine := &volumeEngine{volume: 1}
	ctrl := player.New(player.Options{Engine: engine})
	defer ctrl.Close()

	initial := config.Default()
	reload := reloader(ctrl, initial)

	ctrl.SetVolume(0.4)
	reload(config.Default())
	if engine.volume != 0.4 {
		t.Errorf("Unrelated reload reset volume to %v", engine.volume)
	}

	changed := config.Default()
	changed.Audio.DefaultVolume = 0.7
	reload(changed)
	if engine.volume != 0.7 {
		t.Errorf("Expected volume 0.7 after reload, got %v", engine.volume)
	}
}

func TestCommandTree(t *testing.T) {
	want := []string{"serve", "ui", "waveform", "play", "toggle", "next", "prev", "repeat",
		"shuffle", "status", "radio", "seek", "jump", "volume"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected command %q, got %v (%v)", name, cmd.Name(), err)
		}
	}
}
