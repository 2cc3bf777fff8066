package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColor = lipgloss.Color("#ffffff")

func spark(values []float64, width int) []rune {
	return []rune(stripANSI(RenderSparkline(values, width, testColor)))
}

func TestRenderSparkline_Empty(t *testing.T) {
	assert.Equal(t, strings.Repeat(" ", 10), string(spark(nil, 10)))
	assert.Equal(t, "", RenderSparkline([]float64{1}, 0, testColor))
}

func TestRenderSparkline_AllZeros(t *testing.T) {
	assert.Equal(t, "▁▁▁▁▁", string(spark([]float64{0, 0, 0, 0, 0}, 5)))
}

func TestRenderSparkline_Ascending(t *testing.T) {
	got := spark([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 8)
	require.Len(t, got, 8)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1], "index %d", i)
	}
	assert.Equal(t, '█', got[7])
}

func TestRenderSparkline_KeepsNewest(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}
	got := spark(values, 10)
	require.Len(t, got, 10)
	assert.Equal(t, '█', got[9])
}

func TestRenderSparkline_LeftPads(t *testing.T) {
	assert.Equal(t, "    █", string(spark([]float64{42}, 5)))
}

func TestRenderSparkline_FailedSamplesAtFloor(t *testing.T) {
	// failed polls contribute 0 ms
	got := spark([]float64{0, 12.5, 0}, 3)
	assert.Equal(t, "▁█▁", string(got))
}

func TestLatencyColor(t *testing.T) {
	assert.Equal(t, colorGreen, latencyColor(3))
	assert.Equal(t, colorYellow, latencyColor(150))
	assert.Equal(t, colorRed, latencyColor(900))
}
