package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rbramwell/halin/internal/model"
)

// Palette.
var (
	colorGreen      = lipgloss.Color("#10b981")
	colorYellow     = lipgloss.Color("#f59e0b")
	colorRed        = lipgloss.Color("#ef4444")
	colorGray       = lipgloss.Color("#6b7280")
	colorBlue       = lipgloss.Color("#3b82f6")
	colorCyan       = lipgloss.Color("#06b6d4")
	colorPurple     = lipgloss.Color("#8b5cf6")
	colorWhite      = lipgloss.Color("#f8fafc")
	colorDark       = lipgloss.Color("#1e293b")
	colorAlt        = lipgloss.Color("#0f172a")
	colorSelectedBg = lipgloss.Color("#334155")
)

// StyleHeader is the full-width dark bar used for the header and dialog titles.
var StyleHeader = lipgloss.NewStyle().
	Background(colorDark).
	Foreground(colorWhite).
	Padding(0, 1)

// StyleSection titles each dashboard panel.
var StyleSection = lipgloss.NewStyle().Bold(true).Foreground(colorGray)

var (
	StyleError  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	StyleDim    = lipgloss.NewStyle().Foreground(colorGray)
	StyleGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(colorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(colorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(colorBlue)
	StyleCyan   = lipgloss.NewStyle().Foreground(colorCyan)
	StylePurple = lipgloss.NewStyle().Foreground(colorPurple)
)

// LevelStyle colors an advisor finding by severity.
func LevelStyle(level model.Level) lipgloss.Style {
	switch level {
	case model.LevelPass:
		return StyleGreen.Bold(true)
	case model.LevelWarn:
		return StyleYellow.Bold(true)
	case model.LevelError:
		return StyleRed.Bold(true)
	default:
		return StyleDim
	}
}

// RoleStyle colors a member role.
func RoleStyle(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleLeader:
		return StylePurple.Bold(true)
	case model.RoleFollower:
		return StyleBlue
	case model.RoleReadReplica:
		return StyleCyan
	case model.RoleSingle:
		return StyleGreen
	default:
		return StyleDim
	}
}
