package waveform

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/austinkregel/local-media/playerd/internal/audio"
	"github.com/austinkregel/local-media/playerd/internal/logging"
)

// Options configures an Analyzer
type Options struct {
	Samples  int
	Fallback float64
}

// Analyzer downloads and decodes audio into an envelope
type Analyzer struct {
	fetcher  audio.Fetcher
	ffmpeg   *audio.FFmpegDecoder
	samples  int
	fallback float64
	log      zerolog.Logger
}

// NewAnalyzer creates an analyzer. ffmpeg may be nil.
func NewAnalyzer(fetcher audio.Fetcher, ffmpeg *audio.FFmpegDecoder, opts Options) *Analyzer {
	if opts.Samples <= 0 {
		opts.Samples = DefaultSamples
	}
	if opts.Fallback <= 0 {
		opts.Fallback = DefaultFallback
	}
	return &Analyzer{
		fetcher:  fetcher,
		ffmpeg:   ffmpeg,
		samples:  opts.Samples,
		fallback: opts.Fallback,
		log:      logging.For("waveform"),
	}
}

// Samples returns the envelope length
func (a *Analyzer) Samples() int {
	return a.samples
}

// Analyze returns the envelope of the resource at audioPath. It never fails:
// fetch or decode errors produce a flat fallback envelope.
func (a *Analyzer) Analyze(ctx context.Context, audioPath string) []float64 {
	samples, err := a.analyze(ctx, audioPath)
	if err != nil {
		if ctx.Err() == nil {
			a.log.Warn().Err(err).Str("path", audioPath).Msg("analysis failed, using flat envelope")
		}
		return Flat(a.samples, a.fallback)
	}
	return samples
}

func (a *Analyzer) analyze(ctx context.Context, audioPath string) ([]float64, error) {
	body, err := a.fetcher.Open(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	pcm, err := audio.DecodePCM(ctx, data, a.ffmpeg)
	if err != nil {
		return nil, err
	}
	return Envelope(pcm, a.samples), nil
}
