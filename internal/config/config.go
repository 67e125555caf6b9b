// Package config handles daemon configuration file management.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the config file inside the config directory
const FileName = "config.toml"

// Config is the root configuration structure
type Config struct {
	API      APIConfig      `toml:"api"`
	Audio    AudioConfig    `toml:"audio"`
	Waveform WaveformConfig `toml:"waveform"`
	Player   PlayerConfig   `toml:"player"`
	IPC      IPCConfig      `toml:"ipc"`
	Media    MediaConfig    `toml:"media"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig holds the REST collaborator settings
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutMs      int    `toml:"timeout_ms"`
	MaxRetries     int    `toml:"max_retries"`
	RetryBackoffMs int    `toml:"retry_backoff_ms"`
}

// AudioConfig contains audio output settings
type AudioConfig struct {
	SampleRate    int     `toml:"sample_rate"`
	Channels      int     `toml:"channels"`
	DefaultVolume float64 `toml:"default_volume"`
	// FFmpeg enables the ffmpeg fallback decoder when it is found in PATH
	FFmpeg bool `toml:"ffmpeg"`
}

// WaveformConfig controls analysis and rendering of the waveform
type WaveformConfig struct {
	Samples       int     `toml:"samples"`
	Fallback      float64 `toml:"fallback"`
	BarWidth      float64 `toml:"bar_width"`
	BarGap        float64 `toml:"bar_gap"`
	PlayedColor   string  `toml:"played_color"`
	UnplayedColor string  `toml:"unplayed_color"`
}

// PlayerConfig contains playback session behaviour
type PlayerConfig struct {
	RestartThresholdMs int `toml:"restart_threshold_ms"`
	NotifyWorkers      int `toml:"notify_workers"`
	NotifyQueue        int `toml:"notify_queue"`
}

// IPCConfig holds the local socket settings
type IPCConfig struct {
	Socket string `toml:"socket"`
}

// MediaConfig controls the OS media session
type MediaConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// APITimeout returns the request timeout
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutMs) * time.Millisecond
}

// RetryBackoff returns the base retry backoff
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.API.RetryBackoffMs) * time.Millisecond
}

// RestartThreshold returns how far into a track "previous" restarts it
func (c *Config) RestartThreshold() time.Duration {
	return time.Duration(c.Player.RestartThresholdMs) * time.Millisecond
}

// DefaultDir returns $XDG_CONFIG_HOME/playerd, falling back to ~/.config/playerd
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "playerd"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "playerd"), nil
}

// DefaultSocketPath returns the per-user socket path
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "playerd.sock")
	}
	return fmt.Sprintf("/tmp/playerd-%d.sock", os.Getuid())
}

// Manager handles loading and saving configuration
type Manager struct {
	configDir  string
	configPath string

	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, FileName),
		config:     Default(),
	}
}

// Load reads the configuration from disk, writing the defaults on first
// run. Environment overrides are applied on top of the file.
func (m *Manager) Load() error {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.set(Default())
		if err := m.Save(); err != nil {
			return err
		}
		cfg := Default()
		applyEnvOverrides(cfg)
		m.set(cfg)
		return nil
	}

	cfg, err := LoadFrom(m.configPath)
	if err != nil {
		return err
	}
	m.set(cfg)
	return nil
}

// Read is Load without the first-run write, for short-lived clients
func (m *Manager) Read() error {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		cfg := Default()
		applyEnvOverrides(cfg)
		m.set(cfg)
		return nil
	}

	cfg, err := LoadFrom(m.configPath)
	if err != nil {
		return err
	}
	m.set(cfg)
	return nil
}

// LoadFrom reads, defaults, overrides and validates a config file
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	// Bools cannot be told apart from their zero value after decoding
	if !md.IsDefined("media", "enabled") {
		cfg.Media.Enabled = true
	}
	if !md.IsDefined("audio", "ffmpeg") {
		cfg.Audio.FFmpeg = true
	}
	if !md.IsDefined("audio", "default_volume") {
		cfg.Audio.DefaultVolume = 1.0
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.Get()); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// Path returns the config file path
func (m *Manager) Path() string {
	return m.configPath
}

// Update validates, replaces and saves the configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.set(cfg)
	return m.Save()
}

func (m *Manager) set(cfg *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLAYERD_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PLAYERD_API_TIMEOUT_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.API.TimeoutMs = i
		}
	}
	if v := os.Getenv("PLAYERD_SOCKET"); v != "" {
		cfg.IPC.Socket = v
	}
	if v := os.Getenv("PLAYERD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PLAYERD_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
