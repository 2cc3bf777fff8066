package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/format"
)

// featuresCmd samples page cache and storage on every member. A feature the
// deployment lacks is reported in FeaturesMsg.Errs instead of its samples.
func featuresCmd(s *engine.Sampler) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg := FeaturesMsg{Samples: map[string][]engine.Sample{}, Errs: map[string]error{}}
		for _, f := range engine.Features() {
			out, err := s.SampleAll(ctx, f)
			if err != nil {
				msg.Errs[f] = err
				continue
			}
			msg.Samples[f] = out
		}
		return msg
	}
}

// renderFeatures renders the page cache and storage panel.
func renderFeatures(app *App) string {
	lines := []string{StyleSection.Render("Page cache & storage") + "  " + StyleDim.Render("[p: close]")}
	if app.features == nil {
		return strings.Join(append(lines, StyleDim.Render("  sampling...")), "\n")
	}
	f := app.features

	lines = append(lines, "  "+StyleDim.Render(fmt.Sprintf("%-16s %12s %12s %10s %9s", "member", "hits", "faults", "evictions", "hit ratio")))
	if err := f.Errs[engine.FeaturePageCache]; err != nil {
		lines = append(lines, "  "+StyleDim.Render(sanitize(err.Error())))
	}
	for _, s := range f.Samples[engine.FeaturePageCache] {
		if s.Failed() {
			lines = append(lines, fmt.Sprintf("  %-16s %s", sanitize(s.Member), StyleError.Render(sanitize(s.Err))))
			continue
		}
		for _, r := range s.Rows {
			lines = append(lines, fmt.Sprintf("  %-16s %12s %12s %10s %8.1f%%", sanitize(s.Member),
				format.FormatNumber(asInt(r["hits"])), format.FormatNumber(asInt(r["faults"])),
				format.FormatNumber(asInt(r["evictions"])), asFloat(r["hitRatio"])*100))
		}
	}

	lines = append(lines, "  "+StyleDim.Render(fmt.Sprintf("%-16s %-32s %10s %10s %7s", "member", "location", "free", "total", "free %")))
	if err := f.Errs[engine.FeatureStorage]; err != nil {
		lines = append(lines, "  "+StyleDim.Render(sanitize(err.Error())))
	}
	for _, s := range f.Samples[engine.FeatureStorage] {
		if s.Failed() {
			lines = append(lines, fmt.Sprintf("  %-16s %s", sanitize(s.Member), StyleError.Render(sanitize(s.Err))))
			continue
		}
		for _, r := range s.Rows {
			lines = append(lines, fmt.Sprintf("  %-16s %-32s %10s %10s %6.1f%%", sanitize(s.Member),
				sanitize(format.Stringify(r["setting"])), format.FormatBytes(asInt(r["freeSpaceBytes"])),
				format.FormatBytes(asInt(r["totalSpaceBytes"])), asFloat(r["percentFree"])*100))
		}
	}
	return strings.Join(lines, "\n")
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
