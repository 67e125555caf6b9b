package waveform

import (
	"math"
	"time"
)

// Dimensions of the drawing surface in layout units (CSS pixels) and the
// device pixel ratio used for the backing store
type Dimensions struct {
	Width      float64
	Height     float64
	PixelRatio float64
}

// Style sets bar geometry and the played/unplayed colours
type Style struct {
	BarWidth float64
	BarGap   float64
	Played   string
	Unplayed string
}

// DefaultStyle returns 2px bars with a 2px gap
func DefaultStyle() Style {
	return Style{
		BarWidth: 2,
		BarGap:   2,
		Played:   "#1db954",
		Unplayed: "#8a8a8a",
	}
}

// Bar is one rectangle to fill
type Bar struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Played bool
}

// Frame is the draw list for one paint
type Frame struct {
	Width       float64
	Height      float64
	PixelRatio  float64
	PixelWidth  int
	PixelHeight int
	Bars        []Bar
}

// ProgressRatio returns elapsed/duration, or 0 while the duration is unknown
func ProgressRatio(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(elapsed) / float64(duration)
}

// Layout computes the bars for samples at the given progress ratio. Samples
// are mapped to bars by nearest-neighbour index; every bar is at least one
// unit tall and vertically centred.
func Layout(samples []float64, progress float64, dims Dimensions, style Style) Frame {
	dpr := dims.PixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	frame := Frame{PixelRatio: dpr}
	if dims.Width <= 0 || dims.Height <= 0 {
		return frame
	}
	frame.Width = dims.Width
	frame.Height = dims.Height
	frame.PixelWidth = int(dims.Width * dpr)
	frame.PixelHeight = int(dims.Height * dpr)

	if math.IsNaN(progress) {
		progress = 0
	}
	if style.BarWidth <= 0 {
		style.BarWidth = DefaultStyle().BarWidth
	}
	if style.BarGap < 0 {
		style.BarGap = 0
	}
	pitch := style.BarWidth + style.BarGap

	numBars := int(math.Floor(dims.Width / pitch))
	if len(samples) == 0 || numBars == 0 {
		return frame
	}

	frame.Bars = make([]Bar, numBars)
	for i := 0; i < numBars; i++ {
		idx := i * len(samples) / numBars
		sample := 0.0
		if idx < len(samples) {
			sample = samples[idx]
		}
		x := float64(i) * pitch
		h := math.Max(1, sample*dims.Height)
		frame.Bars[i] = Bar{
			X:      x,
			Y:      (dims.Height - h) / 2,
			Width:  style.BarWidth,
			Height: h,
			Played: x/dims.Width < progress,
		}
	}
	return frame
}

// SeekRatio maps a click offset to a position ratio in [0, 1]
func SeekRatio(offsetX, width float64) float64 {
	if width <= 0 || math.IsNaN(offsetX) {
		return 0
	}
	r := offsetX / width
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// SeekTime maps a click offset to a playback position
func SeekTime(offsetX, width float64, duration time.Duration) time.Duration {
	return time.Duration(SeekRatio(offsetX, width) * float64(duration))
}
