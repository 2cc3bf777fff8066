package tui

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/rbramwell/halin/internal/format"
	"github.com/rbramwell/halin/internal/model"
)

const sparkWidth = 20

var memberHeaders = []string{"Member", "Role", "Observed", "Latency", "History", "Error"}

// memberRow is the rendered state of one member.
type memberRow struct {
	Label    string
	Role     model.Role
	Observed model.Role
	Latency  string
	Spark    string
	Err      string
}

func memberRows(app *App) []memberRow {
	members := app.c.Members()
	rows := make([]memberRow, 0, len(members))
	for _, n := range members {
		r := memberRow{Label: n.Label(), Role: n.Role(), Latency: "---"}
		h := n.Observations()
		if o, ok := h.Latest(); ok {
			r.Observed = o.Role
			r.Err = o.Err
			if o.Err == "" {
				r.Latency = format.FormatLatency(o.Latency)
			}
		}
		lat := h.Latencies()
		var last float64
		if len(lat) > 0 {
			last = lat[len(lat)-1]
		}
		r.Spark = RenderSparkline(lat, sparkWidth, latencyColor(last))
		rows = append(rows, r)
	}
	return rows
}

// renderMembers renders the members table. Observed roles that differ from
// the discovered role are highlighted.
func renderMembers(app *App) string {
	title := StyleSection.Render("Members")
	rows := memberRows(app)
	if len(rows) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, StyleDim.Render("  (no members)"))
	}

	t := ltable.New().
		Headers(memberHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(colorGray)
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row%2 == 0 {
				base = base.Background(colorAlt)
			}
			r := rows[row]
			switch col {
			case 1:
				return base.Inherit(RoleStyle(r.Role))
			case 2:
				if r.Observed != "" && r.Observed != r.Role {
					return base.Inherit(StyleYellow.Bold(true))
				}
				return base.Inherit(RoleStyle(r.Observed))
			case 5:
				return base.Foreground(colorRed)
			default:
				return base.Foreground(colorWhite)
			}
		}).
		BorderStyle(lipgloss.NewStyle().Foreground(colorGray)).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderColumn(false)

	if app.width > 0 {
		t = t.Width(app.width)
	}
	for _, r := range rows {
		t = t.Row(
			sanitize(r.Label),
			string(r.Role),
			string(r.Observed),
			r.Latency,
			r.Spark,
			truncate(sanitize(r.Err), 40),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, t.String())
}
