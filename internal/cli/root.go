// Package cli implements the playerd command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/playerd/internal/config"
	"github.com/austinkregel/local-media/playerd/internal/logging"
)

var (
	configDir  string
	socketFlag string
	jsonOut    bool

	manager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "playerd",
	Short: "Headless music playback session daemon",
	Long: `playerd owns a single playback session: a queue with shuffle and repeat,
a waveform of the current track, and the live audio output. UI clients drive
it over a local unix socket.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "", "config directory (default: $XDG_CONFIG_HOME/playerd)")
	rootCmd.PersistentFlags().StringVarP(&socketFlag, "socket", "s", "", "daemon socket path")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
}

func initConfig(cmd *cobra.Command) error {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return err
		}
	}
	manager = config.NewManager(dir)

	// Only the daemon writes a first-run config file
	load := manager.Read
	if cmd == serveCmd {
		load = manager.Load
	}
	if err := load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// serve sets up its own sink; clients always log to the console
	if cmd != serveCmd {
		if _, err := logging.Setup(manager.Get().Log.Level, ""); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, FormatError(err))
		os.Exit(1)
	}
}

// socketPath returns the --socket flag, else the configured socket
func socketPath() string {
	if socketFlag != "" {
		return socketFlag
	}
	return manager.Get().IPC.Socket
}
