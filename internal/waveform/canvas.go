package waveform

import (
	"fmt"
	"image"
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/fogleman/gg"
)

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// ValidColor reports whether s is a hex colour gg and lipgloss both accept
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}

// Canvas renders frames into a raster image sized for the device pixel
// ratio. It is owned by a single renderer.
type Canvas struct {
	mu    sync.Mutex
	dims  Dimensions
	style Style
	last  *gg.Context
}

// NewCanvas creates a canvas of the given size and style
func NewCanvas(dims Dimensions, style Style) *Canvas {
	return &Canvas{dims: dims, style: style}
}

// Resize changes the layout size, e.g. after a window resize
func (c *Canvas) Resize(dims Dimensions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dims = dims
}

// Paint clears the canvas and draws samples with bars before progress in
// the played colour
func (c *Canvas) Paint(samples []float64, progress float64) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := Layout(samples, progress, c.dims, c.style)
	if frame.PixelWidth <= 0 || frame.PixelHeight <= 0 {
		c.last = nil
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	dc := gg.NewContext(frame.PixelWidth, frame.PixelHeight)
	dc.Scale(frame.PixelRatio, frame.PixelRatio)
	for _, bar := range frame.Bars {
		if bar.Played {
			dc.SetHexColor(c.style.Played)
		} else {
			dc.SetHexColor(c.style.Unplayed)
		}
		dc.DrawRectangle(bar.X, bar.Y, bar.Width, bar.Height)
		dc.Fill()
	}
	c.last = dc
	return dc.Image()
}

// Click converts a click offset in layout units into a seek position
func (c *Canvas) Click(offsetX float64, duration time.Duration) time.Duration {
	c.mu.Lock()
	width := c.dims.Width
	c.mu.Unlock()
	return SeekTime(offsetX, width, duration)
}

// WritePNG encodes the last painted image
func (c *Canvas) WritePNG(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return fmt.Errorf("nothing painted")
	}
	return c.last.EncodePNG(w)
}
