package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rbramwell/halin/internal/format"
	"github.com/rbramwell/halin/internal/model"
)

// renderFindings lists advisor findings from the last diagnostics run.
// Empty until the first run is requested.
func renderFindings(app *App) string {
	if app.advice == nil && !app.advising {
		return ""
	}
	title := "Advice"
	if app.advising {
		title += "  " + StyleDim.Render("running diagnostics...")
	}
	lines := []string{StyleSection.Render(title)}

	if a := app.advice; a != nil {
		lines = append(lines, StyleDim.Render(fmt.Sprintf("  %s records, %d failed probes, generated %s",
			format.FormatNumber(int64(a.Records)), a.Failed, format.FormatAge(a.At, time.Now()))))
		for _, f := range a.Findings {
			level := LevelStyle(f.Level).Render(fmt.Sprintf("%-5s", f.Level))
			lines = append(lines, fmt.Sprintf("  %s %s  %s", level, StyleDim.Render(f.Category), sanitize(f.Finding)))
			if f.Recommendation != "" && f.Recommendation != model.NoActionNeeded {
				lines = append(lines, "        "+StyleDim.Render(sanitize(f.Recommendation)))
			}
		}
	}
	return strings.Join(lines, "\n")
}
