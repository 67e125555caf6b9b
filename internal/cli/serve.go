package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/playerd/internal/api"
	"github.com/austinkregel/local-media/playerd/internal/audio"
	"github.com/austinkregel/local-media/playerd/internal/config"
	"github.com/austinkregel/local-media/playerd/internal/ipc"
	"github.com/austinkregel/local-media/playerd/internal/logging"
	"github.com/austinkregel/local-media/playerd/internal/media"
	"github.com/austinkregel/local-media/playerd/internal/player"
	"github.com/austinkregel/local-media/playerd/internal/waveform"
	"github.com/austinkregel/local-media/playerd/internal/worker"
)

// Version is set at build time via ldflags
var Version = "dev"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback daemon",
	Long: `Run the playback daemon in the foreground.

The daemon opens the audio output, registers an MPRIS media session on Linux
and listens for clients on the unix socket until interrupted. Edits to the
config file are picked up live for the log level and default volume.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := manager.Get()

	closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	log := logging.For("serve")
	log.Info().Str("version", Version).Str("config", manager.Path()).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := api.New(api.Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.APITimeout(),
		MaxRetries:  cfg.API.MaxRetries,
		BaseBackoff: cfg.RetryBackoff(),
	})
	if err != nil {
		return err
	}

	pool := worker.NewPool(cfg.Player.NotifyWorkers, cfg.Player.NotifyQueue)
	defer pool.Stop()

	var ffmpeg *audio.FFmpegDecoder
	if cfg.Audio.FFmpeg {
		if ffmpeg, err = audio.NewFFmpegDecoder(); err != nil {
			log.Warn().Err(err).Msg("ffmpeg fallback disabled")
			ffmpeg = nil
		}
	}

	output, err := audio.NewOtoOutput(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer output.Close()
	output.SetVolume(cfg.Audio.DefaultVolume)

	engine := audio.NewEngine(client, output, ffmpeg)
	defer engine.Close()

	analyzer := waveform.NewAnalyzer(client, ffmpeg, waveform.Options{
		Samples:  cfg.Waveform.Samples,
		Fallback: cfg.Waveform.Fallback,
	})

	session := newMediaSession(cfg)
	defer session.Close()

	ctrl := player.New(player.Options{
		Engine:           engine,
		Notifier:         api.NewPlayCountNotifier(client, pool),
		Radio:            client,
		Analyzer:         analyzer,
		Session:          session,
		RestartThreshold: cfg.RestartThreshold(),
	})
	defer ctrl.Close()

	go func() {
		if err := manager.Watch(ctx, reloader(ctrl, cfg)); err != nil {
			log.Warn().Err(err).Msg("config watch disabled")
		}
	}()

	srv := ipc.NewServer(socketPath(), ctrl)
	return srv.Start(ctx)
}

func newMediaSession(cfg *config.Config) media.Session {
	if !cfg.Media.Enabled {
		return media.NewNoOpSession()
	}
	session, err := media.NewSession(cfg.Media.Name)
	if err != nil {
		logging.For("serve").Warn().Err(err).Msg("media session unavailable, media keys disabled")
		return media.NewNoOpSession()
	}
	return session
}

// reloader applies live-reloadable settings. The volume is only reset when
// default_volume itself changed, so unrelated edits keep the user's level.
func reloader(ctrl *player.Controller, initial *config.Config) func(*config.Config) {
	log := logging.For("serve")
	lastVolume := initial.Audio.DefaultVolume
	return func(cfg *config.Config) {
		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			log.Warn().Err(err).Msg("ignoring log level")
		}
		if cfg.Audio.DefaultVolume != lastVolume {
			lastVolume = cfg.Audio.DefaultVolume
			ctrl.SetVolume(lastVolume)
		}
		log.Info().Str("level", cfg.Log.Level).Float64("volume", lastVolume).Msg("config reloaded")
	}
}
