package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rbramwell/halin/internal/security"
)

// usersCmd reads the user list from the seed member.
func usersCmd(m *security.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		users, err := m.ListUsers(ctx)
		return UsersMsg{Users: users, Err: err}
	}
}

// deleteUserCmd deletes a user on every member and returns a DeleteResultMsg.
func deleteUserCmd(m *security.Manager, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		action := "Deleting user " + name
		res, err := m.DeleteUser(ctx, name)
		if err != nil {
			return DeleteResultMsg{Username: name, Status: security.Failure(action, err)}
		}
		return DeleteResultMsg{Username: name, Status: security.FromClusterOp(action, res)}
	}
}

// renderUsers renders the users panel with the selected row highlighted.
func renderUsers(app *App) string {
	lines := []string{StyleSection.Render("Users") + "  " + StyleDim.Render("[↑↓: select  x: delete  u: close]")}
	if app.usersErr != nil {
		lines = append(lines, "  "+StyleError.Render(sanitize(app.usersErr.Error())))
		return strings.Join(lines, "\n")
	}
	if len(app.users) == 0 {
		lines = append(lines, StyleDim.Render("  (no users)"))
		return strings.Join(lines, "\n")
	}
	for i, u := range app.users {
		marker := "  "
		style := lipgloss.NewStyle().Foreground(colorWhite)
		if i == app.cursor {
			marker = "> "
			style = style.Background(colorSelectedBg)
		}
		text := fmt.Sprintf("%-20s %s", sanitize(u.Username), sanitize(strings.Join(u.Roles, ",")))
		if u.Protected() {
			text += "  " + StyleDim.Render("(protected)")
		}
		lines = append(lines, marker+style.Render(text))
	}
	return strings.Join(lines, "\n")
}

// renderDeleteConfirm renders the full-screen confirmation dialog for the
// pending user deletion. The caller renders the header above and footer below.
func renderDeleteConfirm(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}
	height := app.height
	if height <= 0 {
		height = 24
	}

	titleText := "Delete User Confirmation"
	hintText := StyleDim.Render("[y: confirm  n/esc: cancel]")
	gap := width - 2 - lipgloss.Width(titleText) - lipgloss.Width(hintText)
	if gap < 1 {
		gap = 1
	}
	titleBar := StyleHeader.Width(width).MaxWidth(width).Render(titleText + strings.Repeat(" ", gap) + hintText)

	availH := height - renderedHeight(renderHeader(app)) - lipgloss.Height(titleBar) - renderedHeight(renderFooter(app))
	if availH < 1 {
		availH = 1
	}

	body := []string{
		"",
		"  " + StyleRed.Bold(true).Render("WARNING: This action cannot be undone."),
		"",
		fmt.Sprintf("  User %s will be deleted from all %d members.", sanitize(app.pendingDelete), len(app.c.Members())),
		"",
		"  " + StyleYellow.Render("Press y to confirm, n or esc to cancel."),
	}
	// The prompt is the last line; trim from the top when space is short.
	if len(body) > availH {
		body = body[len(body)-availH:]
	}
	for len(body) < availH {
		body = append(body, "")
	}
	return titleBar + "\n" + strings.Join(body, "\n")
}
