package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/austinkregel/local-media/playerd/internal/logging"
	"github.com/austinkregel/local-media/playerd/internal/waveform"
)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []error

	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("api: %w", err))
	}
	if err := c.Audio.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}
	if err := c.Waveform.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("waveform: %w", err))
	}
	if err := c.Player.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}
	if c.IPC.Socket == "" {
		errs = append(errs, errors.New("ipc: socket must be set"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks APIConfig for errors
func (c *APIConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must be http or https, got %q", c.BaseURL)
	}
	if c.TimeoutMs < 0 {
		return errors.New("timeout_ms must be non-negative")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must be non-negative")
	}
	if c.RetryBackoffMs < 0 {
		return errors.New("retry_backoff_ms must be non-negative")
	}
	return nil
}

// Validate checks AudioConfig for errors
func (c *AudioConfig) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample_rate must be positive")
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		return errors.New("default_volume must be between 0 and 1")
	}
	return nil
}

// Validate checks WaveformConfig for errors
func (c *WaveformConfig) Validate() error {
	if c.Samples <= 0 {
		return errors.New("samples must be positive")
	}
	if c.Fallback < 0 || c.Fallback > 1 {
		return errors.New("fallback must be between 0 and 1")
	}
	if c.BarWidth <= 0 || c.BarGap < 0 {
		return errors.New("bar_width must be positive and bar_gap non-negative")
	}
	if !waveform.ValidColor(c.PlayedColor) {
		return fmt.Errorf("invalid played_color: %s", c.PlayedColor)
	}
	if !waveform.ValidColor(c.UnplayedColor) {
		return fmt.Errorf("invalid unplayed_color: %s", c.UnplayedColor)
	}
	return nil
}

// Validate checks PlayerConfig for errors
func (c *PlayerConfig) Validate() error {
	if c.RestartThresholdMs < 0 {
		return errors.New("restart_threshold_ms must be non-negative")
	}
	if c.NotifyWorkers <= 0 || c.NotifyQueue <= 0 {
		return errors.New("notify_workers and notify_queue must be positive")
	}
	return nil
}
