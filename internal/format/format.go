// Package format renders diagnostics for humans and files.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatLatency formats a round-trip time. Values >= 1s are shown as seconds
// with 2 decimal places, smaller values as ms with 2 decimal places.
// Negative durations (failed samples) return "---".
func FormatLatency(d time.Duration) string {
	if d < 0 {
		return "---"
	}
	ms := float64(d) / float64(time.Millisecond)
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", ms/1000)
	}
	return fmt.Sprintf("%.2f ms", ms)
}

// FormatAge renders how long ago t was, at second resolution.
// A zero t returns "never".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t).Truncate(time.Second)
	if d < time.Second {
		return "just now"
	}
	return d.String() + " ago"
}

// FormatNumber formats an integer with comma separators.
// Example: 12345678 → "12,345,678".
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		return "-" + insertCommas(s[1:])
	}
	return insertCommas(s)
}

// FormatBytes renders a byte count with a binary unit, one decimal place
// above 1 KiB. Example: 1610612736 → "1.5 GiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 5; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// insertCommas inserts comma separators into a digit string every 3 digits from the right.
func insertCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var buf strings.Builder
	lead := n % 3
	if lead > 0 {
		buf.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(s[i : i+3])
	}
	return buf.String()
}
