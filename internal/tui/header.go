package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rbramwell/halin/internal/client"
)

// renderHeader renders the top bar.
//
// Layout:
//
//	left:   base URI, server version and edition
//	center: "● CLUSTER (n members)" / "● SINGLE", or "● DISCONNECTED  <error>"
//	right:  "Last: HH:MM:SS  Poll: Ns" (or "Press r to retry" when offline)
func renderHeader(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}

	left := app.c.BaseURI()
	caps := app.c.Capabilities()
	if v := caps.Version(); v != "" {
		left += "  neo4j " + v
		if caps.Edition != "" {
			left += " " + caps.Edition
		}
	}

	var center, right string
	if app.connState == stateDisconnected && app.lastError != nil {
		center = StyleError.Render("● DISCONNECTED  " + classifyError(app.lastError))
		right = StyleError.Render("Press r to retry")
	} else {
		n := len(app.c.Members())
		if app.c.IsCluster() {
			center = StylePurple.Bold(true).Render(fmt.Sprintf("● CLUSTER (%d members)", n))
		} else {
			center = StyleGreen.Bold(true).Render("● SINGLE")
		}
		lastStr := "Connecting..."
		if !app.lastUpdated.IsZero() {
			lastStr = app.lastUpdated.Format("15:04:05")
		}
		right = StyleDim.Render(fmt.Sprintf("Last: %s  Poll: %s", lastStr, formatDuration(app.pollInterval)))
	}

	// StyleHeader has Padding(0, 1) so inner content width = total width - 2.
	innerWidth := width - 2
	spacing := innerWidth - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if spacing < 0 {
		spacing = 0
	}
	leftSpacing := spacing / 2
	row := left + strings.Repeat(" ", leftSpacing) + center + strings.Repeat(" ", spacing-leftSpacing) + right

	return StyleHeader.Width(width).Render(row)
}

// formatDuration formats a poll interval as a compact string, e.g. "10s" or "2m".
func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// sanitize strips control characters so server-supplied text cannot move the cursor.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// renderedHeight returns the line count of a rendered block; empty is zero.
func renderedHeight(s string) int {
	if s == "" {
		return 0
	}
	return lipgloss.Height(s)
}

// classifyError maps a poll failure to a short label for the header.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, client.ErrUnauthorized), strings.Contains(msg, "unauthorized"), strings.Contains(msg, "authentication"):
		return "Authentication failed"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "Timeout"
	case strings.Contains(msg, "connection refused"):
		return "Connection refused"
	case isTLSError(err):
		return "TLS error"
	case errors.Is(err, client.ErrUnreachable):
		return "Unreachable"
	default:
		return truncate(err.Error(), 40)
	}
}

func isTLSError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "tls") || strings.Contains(msg, "x509") || strings.Contains(msg, "certificate")
}
