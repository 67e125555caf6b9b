package cli

import (
	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/playerd/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:     "ui",
	Aliases: []string{"tui"},
	Short:   "Launch the terminal player",
	Long: `Launch the terminal player for a running daemon.

Keyboard shortcuts:
  q, Ctrl+C    Quit
  Space        Play/Pause
  n / p        Next / previous
  ← / →        Seek 5s
  + / -        Volume
  r            Cycle repeat
  s            Toggle shuffle
  R            Radio from the current track
  ↑ / ↓        Move in the queue
  Enter        Play the selected queue entry

Click the waveform to seek.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cmd.Context(), socketPath(), manager.Get().Style())
}
