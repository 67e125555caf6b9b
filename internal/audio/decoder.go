package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// FFmpegDecoder decodes formats the built-in decoders do not handle
// (FLAC, AAC, OGG). It is optional and only used when ffmpeg is on PATH.
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates a new FFmpeg-based decoder
func NewFFmpegDecoder() (*FFmpegDecoder, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}, nil
}

// Decode converts encoded audio to signed 16-bit PCM in the output's format
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte, output Output) error {
	args := []string{
		"-v", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprintf("%d", output.Channels()),
		"-ar", fmt.Sprintf("%d", output.SampleRate()),
		"-",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// stop and reap ffmpeg on early returns
	abort := func(err error) error {
		cmd.Process.Kill()
		cmd.Wait()
		return err
	}

	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}

		n, err := stdout.Read(buf)
		if n > 0 {
			if _, writeErr := output.Write(buf[:n]); writeErr != nil {
				return abort(fmt.Errorf("failed to write to output: %w", writeErr))
			}
		}
		if err != nil {
			break
		}
	}

	return cmd.Wait()
}

// pcmBuffer collects decoder output in memory
type pcmBuffer struct {
	bytes.Buffer
	sampleRate int
	channels   int
}

func (b *pcmBuffer) SampleRate() int { return b.sampleRate }
func (b *pcmBuffer) Channels() int   { return b.channels }
func (b *pcmBuffer) Close() error    { return nil }

// decodeWithFFmpeg runs the fallback decoder and returns 16-bit PCM
func decodeWithFFmpeg(ctx context.Context, d *FFmpegDecoder, data []byte, sampleRate, channels int) ([]byte, error) {
	if d == nil {
		return nil, ErrUnsupportedFormat
	}
	buf := &pcmBuffer{sampleRate: sampleRate, channels: channels}
	if err := d.Decode(ctx, data, buf); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// pcmDuration returns the play time of n bytes of 16-bit PCM
func pcmDuration(n int64, sampleRate, channels int) time.Duration {
	frame := int64(channels * bytesPerSample)
	if frame == 0 || sampleRate == 0 {
		return 0
	}
	return time.Duration(n/frame) * time.Second / time.Duration(sampleRate)
}
