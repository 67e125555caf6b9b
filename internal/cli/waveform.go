package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/playerd/internal/audio"
	"github.com/austinkregel/local-media/playerd/internal/waveform"
)

var (
	waveformOut      string
	waveformWidth    float64
	waveformHeight   float64
	waveformRatio    float64
	waveformProgress float64
	waveformTerminal bool
)

var waveformCmd = &cobra.Command{
	Use:   "waveform <file|url>",
	Short: "Render the waveform of an audio file",
	Long: `Analyze an audio file and render its waveform as a PNG, or as a one-line
strip in the terminal with --terminal.

Local files are read directly; anything else is fetched through the catalogue
service like a track's audio path.

Examples:
  playerd waveform song.mp3 -o song.png
  playerd waveform /audio/42.mp3 --progress 0.3 --dpr 2
  playerd waveform song.wav --terminal`,
	Args: cobra.ExactArgs(1),
	RunE: runWaveform,
}

func init() {
	waveformCmd.Flags().StringVarP(&waveformOut, "output", "o", "waveform.png", "PNG output path")
	waveformCmd.Flags().Float64Var(&waveformWidth, "width", 600, "width in layout units")
	waveformCmd.Flags().Float64Var(&waveformHeight, "height", 80, "height in layout units")
	waveformCmd.Flags().Float64Var(&waveformRatio, "dpr", 1, "device pixel ratio")
	waveformCmd.Flags().Float64Var(&waveformProgress, "progress", 0, "played fraction (0-1)")
	waveformCmd.Flags().BoolVarP(&waveformTerminal, "terminal", "t", false, "print a terminal strip instead of writing a PNG")
	rootCmd.AddCommand(waveformCmd)
}

// fileFetcher reads local files and hands everything else to next
type fileFetcher struct {
	next audio.Fetcher
}

func (f fileFetcher) Open(ctx context.Context, audioPath string) (io.ReadCloser, error) {
	if !strings.Contains(audioPath, "://") {
		if _, err := os.Stat(audioPath); err == nil {
			return os.Open(audioPath)
		}
	}
	return f.next.Open(ctx, audioPath)
}

func runWaveform(cmd *cobra.Command, args []string) error {
	if waveformProgress < 0 || waveformProgress > 1 {
		return fmt.Errorf("invalid progress %v: must be between 0 and 1", waveformProgress)
	}
	cfg := manager.Get()

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var ffmpeg *audio.FFmpegDecoder
	if cfg.Audio.FFmpeg {
		// optional; the pure-Go decoders cover MP3 and WAV
		ffmpeg, _ = audio.NewFFmpegDecoder()
	}

	analyzer := waveform.NewAnalyzer(fileFetcher{next: client}, ffmpeg, waveform.Options{
		Samples:  cfg.Waveform.Samples,
		Fallback: cfg.Waveform.Fallback,
	})
	samples := analyzer.Analyze(cmd.Context(), args[0])
	style := cfg.Style()

	if waveformTerminal {
		fmt.Println(waveform.RenderTerminal(samples, waveformProgress, int(waveformWidth/(style.BarWidth+style.BarGap)), style))
		return nil
	}

	canvas := waveform.NewCanvas(waveform.Dimensions{
		Width:      waveformWidth,
		Height:     waveformHeight,
		PixelRatio: waveformRatio,
	}, style)
	canvas.Paint(samples, waveformProgress)

	f, err := os.Create(waveformOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", waveformOut, err)
	}
	if err := canvas.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", waveformOut, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", waveformOut, err)
	}

	fmt.Printf("Wrote %s (%d samples)\n", waveformOut, len(samples))
	return nil
}
