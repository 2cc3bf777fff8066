package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks is the 8-level block character set for sparklines.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline converts values into a block sparkline of exactly width
// characters, scaled to the largest value.
//
//   - Empty values → width spaces
//   - All zeros → all '▁'
//   - More values than width → the last width values
//   - Fewer values than width → left-padded with spaces
func RenderSparkline(values []float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	maxVal := slices.Max(values)
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", width-len(values)))
	for _, v := range values {
		var idx int
		if maxVal > 0 {
			idx = int(v / maxVal * 7)
		}
		idx = max(0, min(idx, 7))
		sb.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}

// latencyColor picks the sparkline color from the most recent round trip.
func latencyColor(ms float64) lipgloss.Color {
	switch {
	case ms >= 500:
		return colorRed
	case ms >= 100:
		return colorYellow
	default:
		return colorGreen
	}
}
