package waveform

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Eighth-block glyphs from empty to full
var levels = []rune(" ▁▂▃▄▅▆▇█")

// RenderTerminal draws samples as a one-line strip of width cells, one bar
// per cell. Colours are skipped when the style leaves them empty.
func RenderTerminal(samples []float64, progress float64, width int, style Style) string {
	frame := Layout(samples, progress, Dimensions{
		Width:      float64(width),
		Height:     float64(len(levels) - 1),
		PixelRatio: 1,
	}, Style{BarWidth: 1, BarGap: 0})
	if len(frame.Bars) == 0 {
		return strings.Repeat(" ", max(width, 0))
	}

	played := lipgloss.NewStyle().Foreground(lipgloss.Color(style.Played))
	unplayed := lipgloss.NewStyle().Foreground(lipgloss.Color(style.Unplayed))

	var b strings.Builder
	var run strings.Builder
	runPlayed := frame.Bars[0].Played
	flush := func() {
		if run.Len() == 0 {
			return
		}
		color := style.Unplayed
		st := unplayed
		if runPlayed {
			color = style.Played
			st = played
		}
		if color == "" {
			b.WriteString(run.String())
		} else {
			b.WriteString(st.Render(run.String()))
		}
		run.Reset()
	}

	for _, bar := range frame.Bars {
		if bar.Played != runPlayed {
			flush()
			runPlayed = bar.Played
		}
		level := int(math.Round(bar.Height))
		if level < 1 {
			level = 1
		}
		if level > len(levels)-1 {
			level = len(levels) - 1
		}
		run.WriteRune(levels[level])
	}
	flush()
	return b.String()
}
