package config

import (
	"github.com/austinkregel/local-media/playerd/internal/api"
	"github.com/austinkregel/local-media/playerd/internal/waveform"
)

// Default returns a Config populated with the defaults
func Default() *Config {
	style := waveform.DefaultStyle()
	return &Config{
		API: APIConfig{
			BaseURL:        api.DefaultBaseURL,
			TimeoutMs:      10000,
			MaxRetries:     3,
			RetryBackoffMs: 500,
		},
		Audio: AudioConfig{
			SampleRate:    44100,
			Channels:      2,
			DefaultVolume: 1.0,
			FFmpeg:        true,
		},
		Waveform: WaveformConfig{
			Samples:       waveform.DefaultSamples,
			Fallback:      waveform.DefaultFallback,
			BarWidth:      style.BarWidth,
			BarGap:        style.BarGap,
			PlayedColor:   style.Played,
			UnplayedColor: style.Unplayed,
		},
		Player: PlayerConfig{
			RestartThresholdMs: 3000,
			NotifyWorkers:      2,
			NotifyQueue:        32,
		},
		IPC: IPCConfig{
			Socket: DefaultSocketPath(),
		},
		Media: MediaConfig{
			Enabled: true,
			Name:    "playerd",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills in zero values with the defaults
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.TimeoutMs == 0 {
		c.API.TimeoutMs = d.API.TimeoutMs
	}
	if c.API.RetryBackoffMs == 0 {
		c.API.RetryBackoffMs = d.API.RetryBackoffMs
	}

	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = d.Audio.Channels
	}

	if c.Waveform.Samples == 0 {
		c.Waveform.Samples = d.Waveform.Samples
	}
	if c.Waveform.Fallback == 0 {
		c.Waveform.Fallback = d.Waveform.Fallback
	}
	if c.Waveform.BarWidth == 0 {
		c.Waveform.BarWidth = d.Waveform.BarWidth
	}
	if c.Waveform.BarGap == 0 {
		c.Waveform.BarGap = d.Waveform.BarGap
	}
	if c.Waveform.PlayedColor == "" {
		c.Waveform.PlayedColor = d.Waveform.PlayedColor
	}
	if c.Waveform.UnplayedColor == "" {
		c.Waveform.UnplayedColor = d.Waveform.UnplayedColor
	}

	if c.Player.RestartThresholdMs == 0 {
		c.Player.RestartThresholdMs = d.Player.RestartThresholdMs
	}
	if c.Player.NotifyWorkers == 0 {
		c.Player.NotifyWorkers = d.Player.NotifyWorkers
	}
	if c.Player.NotifyQueue == 0 {
		c.Player.NotifyQueue = d.Player.NotifyQueue
	}

	if c.IPC.Socket == "" {
		c.IPC.Socket = d.IPC.Socket
	}
	if c.Media.Name == "" {
		c.Media.Name = d.Media.Name
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Style returns the renderer style described by the waveform section
func (c *Config) Style() waveform.Style {
	return waveform.Style{
		BarWidth: c.Waveform.BarWidth,
		BarGap:   c.Waveform.BarGap,
		Played:   c.Waveform.PlayedColor,
		Unplayed: c.Waveform.UnplayedColor,
	}
}
