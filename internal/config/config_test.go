package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"PLAYERD_API_BASE_URL", "PLAYERD_API_TIMEOUT_MS", "PLAYERD_SOCKET", "PLAYERD_LOG_LEVEL", "PLAYERD_LOG_FILE"} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Waveform.Samples != 200 || cfg.Waveform.Fallback != 0.1 {
		t.Errorf("Unexpected waveform defaults %+v", cfg.Waveform)
	}
	if cfg.RestartThreshold() != 3*time.Second {
		t.Errorf("Expected 3s restart threshold, got %v", cfg.RestartThreshold())
	}
}

func TestLoadCreatesDefaults(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "playerd")
	m := NewManager(dir)

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(m.Path()); err != nil {
		t.Fatalf("Expected config file to be created: %v", err)
	}

	// The written file must load back to the same values
	cfg, err := LoadFrom(m.Path())
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL || !cfg.Media.Enabled || cfg.Audio.DefaultVolume != 1 {
		t.Errorf("Round trip lost defaults: %+v", cfg)
	}
}

func TestReadDoesNotWrite(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLAYERD_SOCKET", "/tmp/other.sock")
	m := NewManager(filepath.Join(t.TempDir(), "playerd"))

	if err := m.Read(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, err := os.Stat(m.Path()); !os.IsNotExist(err) {
		t.Error("Expected Read to leave the config file absent")
	}
	if got := m.Get().IPC.Socket; got != "/tmp/other.sock" {
		t.Errorf("Expected env socket override, got %s", got)
	}
}

func TestLoadPartialFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, `
[api]
base_url = "https://music.example.com/api"

[audio]
default_volume = 0.0

[media]
enabled = false

[waveform]
played_color = "#ff0000"
`)

	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()

	if cfg.API.BaseURL != "https://music.example.com/api" {
		t.Errorf("Expected base_url from file, got %s", cfg.API.BaseURL)
	}
	if cfg.Audio.DefaultVolume != 0 {
		t.Errorf("Expected explicit zero volume kept, got %v", cfg.Audio.DefaultVolume)
	}
	if cfg.Media.Enabled {
		t.Error("Expected media disabled")
	}
	if !cfg.Audio.FFmpeg {
		t.Error("Expected ffmpeg default to stay on")
	}
	if cfg.Waveform.PlayedColor != "#ff0000" || cfg.Waveform.UnplayedColor != Default().Waveform.UnplayedColor {
		t.Errorf("Unexpected colors %s / %s", cfg.Waveform.PlayedColor, cfg.Waveform.UnplayedColor)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "[log]\nlevel = \"info\"\n")

	t.Setenv("PLAYERD_API_BASE_URL", "http://10.0.0.2:9000/api")
	t.Setenv("PLAYERD_LOG_LEVEL", "debug")
	t.Setenv("PLAYERD_SOCKET", "/tmp/custom.sock")

	cfg, err := LoadFrom(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.2:9000/api" || cfg.Log.Level != "debug" || cfg.IPC.Socket != "/tmp/custom.sock" {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "base_url"},
		{"volume", func(c *Config) { c.Audio.DefaultVolume = 1.5 }, "default_volume"},
		{"channels", func(c *Config) { c.Audio.Channels = 6 }, "channels"},
		{"samples", func(c *Config) { c.Waveform.Samples = -1 }, "samples"},
		{"color", func(c *Config) { c.Waveform.PlayedColor = "green" }, "played_color"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "log level"},
		{"workers", func(c *Config) { c.Player.NotifyWorkers = 0 }, "notify_workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "[waveform]\nsamples = -4\n")

	m := NewManager(dir)
	if err := m.Load(); err == nil {
		t.Error("Expected Load to fail on invalid config")
	}

	writeConfig(t, dir, "not = [valid")
	if err := m.Load(); err == nil {
		t.Error("Expected Load to fail on malformed TOML")
	}
}

func TestUpdateSaves(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	cfg.Audio.DefaultVolume = 0.4
	if err := m.Update(cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reloaded, err := LoadFrom(m.Path())
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if reloaded.Audio.DefaultVolume != 0.4 {
		t.Errorf("Expected saved volume 0.4, got %v", reloaded.Audio.DefaultVolume)
	}

	cfg.Audio.DefaultVolume = 7
	if err := m.Update(cfg); err == nil {
		t.Error("Expected Update to reject invalid config")
	}
	if m.Get().Audio.DefaultVolume != 0.4 {
		t.Error("Rejected update must not replace the config")
	}
}

func TestWatchReloads(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfig(t, dir, "[audio]\ndefault_volume = 0.5\n")

	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()

	// Give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "[audio]\ndefault_volume = 0.25\n")

	select {
	case cfg := <-reloaded:
		if cfg.Audio.DefaultVolume != 0.25 {
			t.Errorf("Expected reloaded volume 0.25, got %v", cfg.Audio.DefaultVolume)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
	if m.Get().Audio.DefaultVolume != 0.25 {
		t.Error("Expected manager to hold the reloaded config")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Watch did not stop on cancel")
	}
}
