package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned when no decoder recognises the data.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format identifies an encoded audio container
type Format int

const (
	FormatUnknown Format = iota
	FormatMP3
	FormatWAV
)

func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatWAV:
		return "wav"
	default:
		return "unknown"
	}
}

// DetectFormat sniffs the container from the leading bytes
func DetectFormat(data []byte) Format {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return FormatWAV
	}
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return FormatMP3
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}
	return FormatUnknown
}

// Stream is decoded audio as interleaved signed 16-bit PCM in the output format
type Stream interface {
	io.Reader
	Duration() time.Duration
	Position() time.Duration
	Seek(d time.Duration) error
	Close() error
}

// readSeekCloser keeps Seek visible to decoders that need it
type readSeekCloser struct {
	*bytes.Reader
}

func (readSeekCloser) Close() error { return nil }

// OpenStream decodes data for playback at the given output format. MP3 at the
// output rate is read straight from go-mp3; other rates and WAV go through beep
// with resampling; anything else needs ffmpeg.
func OpenStream(ctx context.Context, data []byte, sampleRate, channels int, ffmpeg *FFmpegDecoder) (Stream, error) {
	switch DetectFormat(data) {
	case FormatMP3:
		if channels == 2 {
			dec, err := gomp3.NewDecoder(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("mp3 decode failed: %w", err)
			}
			if dec.SampleRate() == sampleRate {
				return &mp3Stream{dec: dec, length: dec.Length(), sampleRate: sampleRate}, nil
			}
		}
		src, format, err := mp3.Decode(readSeekCloser{bytes.NewReader(data)})
		if err != nil {
			return nil, fmt.Errorf("mp3 decode failed: %w", err)
		}
		return newBeepStream(src, format, sampleRate, channels), nil
	case FormatWAV:
		src, format, err := wav.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("wav decode failed: %w", err)
		}
		return newBeepStream(src, format, sampleRate, channels), nil
	default:
		pcm, err := decodeWithFFmpeg(ctx, ffmpeg, data, sampleRate, channels)
		if err != nil {
			return nil, err
		}
		return newPCMStream(pcm, sampleRate, channels), nil
	}
}

// DecodePCM decodes data to float samples of the first channel in [-1, 1]
func DecodePCM(ctx context.Context, data []byte, ffmpeg *FFmpegDecoder) ([]float64, error) {
	var (
		src beep.StreamSeekCloser
		err error
	)
	switch DetectFormat(data) {
	case FormatMP3:
		src, _, err = mp3.Decode(readSeekCloser{bytes.NewReader(data)})
	case FormatWAV:
		src, _, err = wav.Decode(bytes.NewReader(data))
	default:
		return decodePCMWithFFmpeg(ctx, ffmpeg, data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	defer src.Close()

	out := make([]float64, 0, max(src.Len(), 0))
	buf := make([][2]float64, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, ok := src.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, buf[i][0])
		}
		if !ok {
			break
		}
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	return out, nil
}

func decodePCMWithFFmpeg(ctx context.Context, ffmpeg *FFmpegDecoder, data []byte) ([]float64, error) {
	pcm, err := decodeWithFFmpeg(ctx, ffmpeg, data, defaultSampleRate, 1)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(pcm)/bytesPerSample)
	for i := range out {
		sample := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		out[i] = float64(sample) / 32768
	}
	return out, nil
}

// pcmStream serves already decoded PCM from memory
type pcmStream struct {
	data       []byte
	pos        int
	sampleRate int
	channels   int
}

func newPCMStream(data []byte, sampleRate, channels int) *pcmStream {
	return &pcmStream{data: data, sampleRate: sampleRate, channels: channels}
}

func (s *pcmStream) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func (s *pcmStream) Duration() time.Duration {
	return pcmDuration(int64(len(s.data)), s.sampleRate, s.channels)
}

func (s *pcmStream) Position() time.Duration {
	return pcmDuration(int64(s.pos), s.sampleRate, s.channels)
}

func (s *pcmStream) Seek(d time.Duration) error {
	s.pos = int(clampOffset(d, s.sampleRate, s.channels, int64(len(s.data))))
	return nil
}

func (s *pcmStream) Close() error { return nil }

// mp3Stream reads 16-bit stereo straight from go-mp3
type mp3Stream struct {
	dec        *gomp3.Decoder
	read       int64
	length     int64
	sampleRate int
}

func (s *mp3Stream) Read(p []byte) (int, error) {
	n, err := s.dec.Read(p)
	s.read += int64(n)
	return n, err
}

func (s *mp3Stream) Duration() time.Duration {
	if s.length < 0 {
		return 0
	}
	return pcmDuration(s.length, s.sampleRate, 2)
}

func (s *mp3Stream) Position() time.Duration {
	return pcmDuration(s.read, s.sampleRate, 2)
}

func (s *mp3Stream) Seek(d time.Duration) error {
	off := clampOffset(d, s.sampleRate, 2, s.length)
	if _, err := s.dec.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek failed: %w", err)
	}
	s.read = off
	return nil
}

func (s *mp3Stream) Close() error { return nil }

// beepStream converts a beep streamer into 16-bit PCM, resampling when the
// source rate differs from the output
type beepStream struct {
	src      beep.StreamSeekCloser
	format   beep.Format
	out      beep.Streamer
	channels int
	buf      [][2]float64
}

func newBeepStream(src beep.StreamSeekCloser, format beep.Format, sampleRate, channels int) *beepStream {
	var out beep.Streamer = src
	if int(format.SampleRate) != sampleRate {
		out = beep.Resample(4, format.SampleRate, beep.SampleRate(sampleRate), src)
	}
	return &beepStream{src: src, format: format, out: out, channels: channels}
}

func (s *beepStream) Read(p []byte) (int, error) {
	frameSize := s.channels * bytesPerSample
	frames := len(p) / frameSize
	if frames == 0 {
		return 0, nil
	}
	if cap(s.buf) < frames {
		s.buf = make([][2]float64, frames)
	}
	buf := s.buf[:frames]

	n, ok := s.out.Stream(buf)
	if n == 0 && !ok {
		if err := s.out.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	off := 0
	for i := 0; i < n; i++ {
		if s.channels == 1 {
			putSample(p[off:], (buf[i][0]+buf[i][1])/2)
			off += bytesPerSample
			continue
		}
		for c := 0; c < s.channels; c++ {
			putSample(p[off:], buf[i][c%2])
			off += bytesPerSample
		}
	}
	return off, nil
}

func (s *beepStream) Duration() time.Duration {
	return s.format.SampleRate.D(s.src.Len())
}

func (s *beepStream) Position() time.Duration {
	return s.format.SampleRate.D(s.src.Position())
}

func (s *beepStream) Seek(d time.Duration) error {
	target := s.format.SampleRate.N(d)
	if target < 0 {
		target = 0
	}
	if target > s.src.Len() {
		target = s.src.Len()
	}
	return s.src.Seek(target)
}

func (s *beepStream) Close() error {
	return s.src.Close()
}

func putSample(dst []byte, v float64) {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	sample := int16(v * 32767)
	dst[0] = byte(sample)
	dst[1] = byte(sample >> 8)
}

// clampOffset converts d to a frame-aligned byte offset within [0, length]
func clampOffset(d time.Duration, sampleRate, channels int, length int64) int64 {
	frame := int64(channels * bytesPerSample)
	off := int64(d) * int64(sampleRate) / int64(time.Second) * frame
	if off < 0 {
		off = 0
	}
	if length >= 0 && off > length {
		off = length - length%frame
	}
	return off
}
