package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/security"
)

type connState int

const (
	stateConnected connState = iota
	stateDisconnected
)

var errNoMembers = errors.New("no members discovered")

// App is the root Bubble Tea model for the halin dashboard.
type App struct {
	c            *engine.Context
	poller       *engine.Poller
	advisor      *engine.Advisor
	admin        *security.Manager
	sampler      *engine.Sampler
	pollInterval time.Duration

	// Poll state
	fetching     bool // true while a pollCmd goroutine is in-flight
	observations []model.Observation

	// Connection state
	connState        connState
	consecutiveFails int
	lastError        error
	lastUpdated      time.Time

	// Diagnostics state
	advising bool
	advice   *AdviceMsg

	// Users panel
	showUsers     bool
	users         []security.User
	usersErr      error
	cursor        int
	pendingDelete string
	status        *security.Status

	// Page cache and storage panel
	showFeatures bool
	sampling     bool
	features     *FeaturesMsg

	width, height int
	showHelp      bool
}

// NewApp creates a dashboard over an initialized context.
func NewApp(c *engine.Context) *App {
	return &App{
		c:            c,
		poller:       engine.NewPoller(c),
		advisor:      engine.NewAdvisor(),
		admin:        security.NewManager(c),
		sampler:      engine.NewSampler(c),
		pollInterval: c.PollInterval(),
		connState:    stateDisconnected,
		fetching:     true, // Init() always issues an immediate pollCmd
	}
}

// Init implements tea.Model. Polls immediately on launch.
func (app *App) Init() tea.Cmd {
	return pollCmd(app.poller, app.c.ProbeTimeout())
}

// Update implements tea.Model.
func (app *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		app.width = msg.Width
		app.height = msg.Height

	case PollMsg:
		app.fetching = false
		app.observations = msg.Observations
		app.consecutiveFails = 0
		app.lastError = nil
		app.connState = stateConnected
		app.lastUpdated = msg.At
		if app.showFeatures && !app.sampling {
			app.sampling = true
			return app, tea.Batch(tickCmd(app.pollInterval), featuresCmd(app.sampler))
		}
		return app, tickCmd(app.pollInterval)

	case FetchErrorMsg:
		app.fetching = false
		app.consecutiveFails++
		app.lastError = msg.Err
		app.connState = stateDisconnected
		return app, tickCmd(backoffDuration(app.consecutiveFails))

	case TickMsg:
		if app.fetching {
			return app, nil
		}
		app.fetching = true
		return app, pollCmd(app.poller, app.c.ProbeTimeout())

	case AdviceMsg:
		app.advising = false
		app.advice = &msg

	case FeaturesMsg:
		app.sampling = false
		app.features = &msg

	case UsersMsg:
		app.users = msg.Users
		app.usersErr = msg.Err
		app.clampCursor()

	case DeleteResultMsg:
		st := msg.Status
		app.status = &st
		return app, usersCmd(app.admin)

	case tea.KeyMsg:
		return app.handleKey(msg)
	}

	return app, nil
}

func (app *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return app, tea.Quit
	}
	app.status = nil

	if app.pendingDelete != "" {
		switch {
		case key.Matches(msg, keys.Confirm):
			name := app.pendingDelete
			app.pendingDelete = ""
			return app, deleteUserCmd(app.admin, name)
		case key.Matches(msg, keys.Cancel):
			app.pendingDelete = ""
		}
		return app, nil
	}

	switch {
	case key.Matches(msg, keys.Refresh):
		if app.fetching {
			return app, nil
		}
		app.fetching = true
		return app, pollCmd(app.poller, app.c.ProbeTimeout())
	case key.Matches(msg, keys.Advise):
		if app.advising {
			return app, nil
		}
		app.advising = true
		return app, adviceCmd(app.c, app.advisor)
	case key.Matches(msg, keys.Users):
		app.showUsers = !app.showUsers
		if app.showUsers {
			return app, usersCmd(app.admin)
		}
	case key.Matches(msg, keys.Samples):
		app.showFeatures = !app.showFeatures
		if app.showFeatures && !app.sampling {
			app.sampling = true
			return app, featuresCmd(app.sampler)
		}
	case key.Matches(msg, keys.Up):
		if app.showUsers && app.cursor > 0 {
			app.cursor--
		}
	case key.Matches(msg, keys.Down):
		if app.showUsers && app.cursor < len(app.users)-1 {
			app.cursor++
		}
	case key.Matches(msg, keys.Delete):
		app.requestDelete()
	case key.Matches(msg, keys.Help):
		app.showHelp = !app.showHelp
	}
	return app, nil
}

// requestDelete opens the confirmation dialog for the selected user, or
// explains why it cannot be deleted.
func (app *App) requestDelete() {
	if !app.showUsers || app.cursor >= len(app.users) {
		return
	}
	u := app.users[app.cursor]
	if u.Protected() {
		st := security.Failure("Deleting user "+u.Username, security.ErrProtectedUser)
		app.status = &st
		return
	}
	app.pendingDelete = u.Username
}

func (app *App) clampCursor() {
	if app.cursor >= len(app.users) {
		app.cursor = len(app.users) - 1
	}
	if app.cursor < 0 {
		app.cursor = 0
	}
}

// View implements tea.Model.
func (app *App) View() string {
	if app.pendingDelete != "" {
		return strings.Join([]string{renderHeader(app), renderDeleteConfirm(app), renderFooter(app)}, "\n")
	}

	parts := []string{renderHeader(app), renderMembers(app)}
	if f := renderFindings(app); f != "" {
		parts = append(parts, f)
	}
	if app.showFeatures {
		parts = append(parts, renderFeatures(app))
	}
	if app.showUsers {
		parts = append(parts, renderUsers(app))
	}
	parts = append(parts, renderFooter(app))
	return strings.Join(parts, "\n")
}

// tickCmd schedules the next poll after duration d.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// pollCmd samples every member once. It reports a FetchErrorMsg only when no
// member answered.
func pollCmd(p *engine.Poller, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		obs := p.PollOnce(ctx)
		if len(obs) == 0 {
			return FetchErrorMsg{Err: errNoMembers}
		}
		var firstErr string
		for _, o := range obs {
			if o.Err == "" {
				return PollMsg{At: time.Now(), Observations: obs}
			}
			if firstErr == "" {
				firstErr = o.Err
			}
		}
		return FetchErrorMsg{Err: errors.New(firstErr)}
	}
}

// adviceCmd runs a full diagnostics pass and evaluates the advisor over it.
func adviceCmd(c *engine.Context, a *engine.Advisor) tea.Cmd {
	return func() tea.Msg {
		pkg := engine.RunDiagnostics(context.Background(), c)
		failed := 0
		for _, r := range pkg.Records {
			if r.Failed() {
				failed++
			}
		}
		return AdviceMsg{
			At:       pkg.GeneratedAt,
			Records:  len(pkg.Records),
			Failed:   failed,
			Findings: a.Evaluate(pkg),
		}
	}
}

// backoffDuration returns min(2^fails * time.Second, 60*time.Second).
// At fails=1: 2s, fails=2: 4s, fails=3: 8s, ..., fails>=6: 60s.
func backoffDuration(fails int) time.Duration {
	const maxBackoff = 60 * time.Second
	if fails <= 0 {
		return time.Second
	}
	if fails >= 6 {
		return maxBackoff
	}
	return time.Duration(1<<fails) * time.Second
}

// Run starts the dashboard in the alternate screen and blocks until quit.
func Run(c *engine.Context) error {
	_, err := tea.NewProgram(NewApp(c), tea.WithAltScreen()).Run()
	return err
}
