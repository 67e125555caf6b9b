package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/playerd/internal/api"
	"github.com/austinkregel/local-media/playerd/internal/ipc"
	"github.com/austinkregel/local-media/playerd/internal/player"
	"github.com/austinkregel/local-media/playerd/internal/types"
)

const requestTimeout = 10 * time.Second

var playCmd = &cobra.Command{
	Use:   "play <track-id> [queue-id...]",
	Short: "Play a track",
	Long: `Look up tracks in the catalogue service and play the first one.

The queue is the given ids in order, starting with the track itself. With a
single id the queue holds just that track. If the track is already current,
play toggles play/pause instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

var toggleCmd = &cobra.Command{
	Use:     "toggle",
	Aliases: []string{"pause", "resume"},
	Short:   "Toggle play/pause",
	Args:    cobra.NoArgs,
	RunE:    simpleCommand(ipc.CmdToggle),
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to the next track",
	Args:  cobra.NoArgs,
	RunE:  simpleCommand(ipc.CmdNext),
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Restart the track, or go to the previous one",
	Long: `Restart the current track when more than the restart threshold has played,
otherwise go to the previous track in the queue.`,
	Args: cobra.NoArgs,
	RunE: simpleCommand(ipc.CmdPrev),
}

var repeatCmd = &cobra.Command{
	Use:   "repeat",
	Short: "Cycle repeat mode (off, all, one)",
	Args:  cobra.NoArgs,
	RunE:  simpleCommand(ipc.CmdCycleRepeat),
}

var shuffleCmd = &cobra.Command{
	Use:   "shuffle",
	Short: "Toggle shuffle",
	Args:  cobra.NoArgs,
	RunE:  simpleCommand(ipc.CmdToggleShuffle),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the playback session",
	Args:  cobra.NoArgs,
	RunE:  simpleCommand(ipc.CmdStatus),
}

var radioID string

var radioCmd = &cobra.Command{
	Use:   "radio",
	Short: "Start radio from the current track",
	Long: `Replace the queue with the current track followed by the catalogue's radio
picks for it. Use --id to seed from another track.`,
	Args: cobra.NoArgs,
	RunE: runRadio,
}

var seekCmd = &cobra.Command{
	Use:   "seek <position>",
	Short: "Seek within the current track",
	Long: `Seek to an absolute position, given as seconds (90) or m:ss (1:30).

A position past the end is clamped to the track duration.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeek,
}

var jumpCmd = &cobra.Command{
	Use:   "jump <index>",
	Short: "Play the queue entry at index (0-based, in play order)",
	Args:  cobra.ExactArgs(1),
	RunE:  runJump,
}

var volumeCmd = &cobra.Command{
	Use:   "volume <level>",
	Short: "Set the output volume (0-100)",
	Args:  cobra.ExactArgs(1),
	RunE:  runVolume,
}

func init() {
	radioCmd.Flags().StringVar(&radioID, "id", "", "seed track id")

	rootCmd.AddCommand(playCmd, toggleCmd, nextCmd, prevCmd, repeatCmd, shuffleCmd,
		statusCmd, radioCmd, seekCmd, jumpCmd, volumeCmd)
}

// call dials the daemon, sends one command and prints the resulting status
func call(cmd ipc.CommandType, data interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	client, err := ipc.Dial(ctx, socketPath())
	if err != nil {
		return err
	}
	defer client.Close()

	var status ipc.StatusResponse
	if err := client.Call(ctx, cmd, data, &status); err != nil {
		return err
	}
	return printStatus(status)
}

func simpleCommand(cmd ipc.CommandType) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error {
		return call(cmd, nil)
	}
}

func newAPIClient() (*api.Client, error) {
	cfg := manager.Get()
	return api.New(api.Options{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.APITimeout(),
		MaxRetries:  cfg.API.MaxRetries,
		BaseBackoff: cfg.RetryBackoff(),
	})
}

// lookupTracks resolves ids in order against the catalogue service
func lookupTracks(ctx context.Context, ids []string) ([]types.Track, error) {
	client, err := newAPIClient()
	if err != nil {
		return nil, err
	}
	tracks := make([]types.Track, 0, len(ids))
	for _, id := range ids {
		track, err := client.Track(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up track %s: %w", id, err)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	tracks, err := lookupTracks(ctx, args)
	if err != nil {
		return err
	}
	return call(ipc.CmdPlayOrToggle, ipc.PlayTrackRequest{Track: tracks[0], Queue: tracks})
}

func runRadio(cmd *cobra.Command, args []string) error {
	var seed types.Track
	if radioID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tracks, err := lookupTracks(ctx, []string{radioID})
		if err != nil {
			return err
		}
		seed = tracks[0]
	} else {
		status, err := fetchStatus()
		if err != nil {
			return err
		}
		if status.Track == nil {
			return fmt.Errorf("nothing is playing; pass --id to pick a seed track")
		}
		seed = *status.Track
	}
	return call(ipc.CmdRadio, ipc.RadioRequest{Track: seed})
}

func fetchStatus() (ipc.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	client, err := ipc.Dial(ctx, socketPath())
	if err != nil {
		return ipc.StatusResponse{}, err
	}
	defer client.Close()
	return client.Status(ctx)
}

func runSeek(cmd *cobra.Command, args []string) error {
	seconds, err := ParsePosition(args[0])
	if err != nil {
		return err
	}
	return call(ipc.CmdSeek, ipc.SeekRequest{Seconds: seconds})
}

func runJump(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		return fmt.Errorf("invalid index %q: must be a non-negative integer", args[0])
	}
	return call(ipc.CmdJump, ipc.JumpRequest{Index: index})
}

func runVolume(cmd *cobra.Command, args []string) error {
	level, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil || level < 0 || level > 100 {
		return fmt.Errorf("invalid volume %q: must be 0-100", args[0])
	}
	return call(ipc.CmdVolume, ipc.VolumeRequest{Level: float64(level) / 100})
}

// ParsePosition parses "90", "90.5" or "1:30" into seconds
func ParsePosition(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if mins, sec, ok := strings.Cut(s, ":"); ok {
		m, err := strconv.Atoi(mins)
		if err != nil || m < 0 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		secs, err := strconv.ParseFloat(sec, 64)
		if err != nil || secs < 0 || secs >= 60 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		return float64(m)*60 + secs, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return secs, nil
}

func printStatus(status ipc.StatusResponse) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Print(FormatStatus(status))
	return nil
}

// FormatStatus renders a status for the terminal
func FormatStatus(status ipc.StatusResponse) string {
	var b strings.Builder
	if status.Track == nil {
		b.WriteString("■ Nothing playing\n")
	} else {
		icon := "⏸"
		switch status.State {
		case ipc.StatePlaying:
			icon = "▶"
		case ipc.StateLoading:
			icon = "…"
		}
		title := status.Track.Title
		if title == "" {
			title = status.Track.ID
		}
		if status.Track.Artist != "" {
			title += " - " + status.Track.Artist
		}
		fmt.Fprintf(&b, "%s %s\n", icon, title)
		fmt.Fprintf(&b, "  %s / %s\n", player.FormatTime(status.Progress), player.FormatTime(status.Duration))
	}

	shuffle := "off"
	if status.Shuffle {
		shuffle = "on"
	}
	fmt.Fprintf(&b, "  repeat: %s  shuffle: %s  volume: %d%%\n",
		status.Repeat, shuffle, int(status.Volume*100+0.5))
	if len(status.Queue) > 0 && status.Index >= 0 {
		fmt.Fprintf(&b, "  queue: %d of %d\n", status.Index+1, len(status.Queue))
	}
	return b.String()
}
