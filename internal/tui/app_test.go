package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbramwell/halin/internal/client/clienttest"
	"github.com/rbramwell/halin/internal/config"
	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/logging"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/security"
)

const (
	core1 = "bolt://core1:7687"
	core2 = "bolt://core2:7687"
)

func memberDriver() *clienttest.MockDriver {
	return &clienttest.MockDriver{Responses: map[string]clienttest.Response{
		"YIELD name, versions, edition": clienttest.Rows(map[string]any{
			"name": "Neo4j Kernel", "versions": []any{"3.5.3"}, "edition": "enterprise",
		}),
		"versions AS value":           clienttest.Value([]any{"3.5.3"}),
		"dbms.security.auth_provider": clienttest.Rows(map[string]any{"value": "native"}),
		"dbms.cluster.role()":         clienttest.Rows(map[string]any{"role": "FOLLOWER"}),
		"dbms.security.listUsers()": clienttest.Rows(
			map[string]any{"username": "neo4j", "roles": []any{"admin"}, "flags": []any{}},
			map[string]any{"username": "bob", "roles": []any{"reader"}, "flags": []any{}},
		),
	}}
}

// newTestApp returns an App over an initialized two member cluster.
func newTestApp(t *testing.T) (*App, map[string]*clienttest.MockDriver) {
	t.Helper()
	d1, d2 := memberDriver(), memberDriver()
	d1.Responses["dbms.cluster.overview()"] = clienttest.Rows(
		map[string]any{"id": "id-1", "addresses": []any{core1}, "role": "LEADER", "database": "default"},
		map[string]any{"id": "id-2", "addresses": []any{core2}, "role": "FOLLOWER", "database": "default"},
	)
	d1.Responses["dbms.cluster.role()"] = clienttest.Rows(map[string]any{"role": "LEADER"})
	drivers := map[string]*clienttest.MockDriver{core1: d1, core2: d2}

	cfg := config.DefaultConfig()
	cfg.Connection.Host = "core1"
	cfg.Poll.Interval = 10 * time.Second
	f := clienttest.NewFactory(drivers)
	c := engine.New(cfg, engine.WithDriverFactory(f.Create), engine.WithLogger(logging.Nop()))
	require.NoError(t, c.Initialize(context.Background()))
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return NewApp(c), drivers
}

func update(app *App, msg tea.Msg) (*App, tea.Cmd) {
	m, cmd := app.Update(msg)
	return m.(*App), cmd
}

func keyMsg(k string) tea.KeyMsg {
	if k == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestApp_PollMsgUpdatesState(t *testing.T) {
	app, _ := newTestApp(t)
	require.True(t, app.fetching)

	at := time.Now()
	app, cmd := update(app, PollMsg{At: at, Observations: []model.Observation{{Role: model.RoleLeader}}})
	assert.False(t, app.fetching)
	assert.Equal(t, stateConnected, app.connState)
	assert.Equal(t, at, app.lastUpdated)
	assert.Zero(t, app.consecutiveFails)
	assert.Len(t, app.observations, 1)
	require.NotNil(t, cmd)
}

func TestApp_FetchErrorBacksOff(t *testing.T) {
	app, _ := newTestApp(t)
	boom := errors.New("connection refused")

	app, cmd := update(app, FetchErrorMsg{Err: boom})
	assert.Equal(t, 1, app.consecutiveFails)
	assert.Equal(t, stateDisconnected, app.connState)
	assert.Equal(t, boom, app.lastError)
	require.NotNil(t, cmd)

	app, _ = update(app, FetchErrorMsg{Err: boom})
	assert.Equal(t, 2, app.consecutiveFails)

	app, _ = update(app, PollMsg{At: time.Now()})
	assert.Zero(t, app.consecutiveFails)
	assert.Nil(t, app.lastError)
}

func TestApp_TickSkippedWhileFetching(t *testing.T) {
	app, _ := newTestApp(t)
	app.fetching = true
	_, cmd := update(app, TickMsg(time.Now()))
	assert.Nil(t, cmd)

	app.fetching = false
	app, cmd = update(app, TickMsg(time.Now()))
	assert.True(t, app.fetching)
	assert.NotNil(t, cmd)
}

func TestApp_QuitKey(t *testing.T) {
	app, _ := newTestApp(t)
	_, cmd := update(app, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_HelpToggle(t *testing.T) {
	app, _ := newTestApp(t)
	app, _ = update(app, keyMsg("?"))
	assert.True(t, app.showHelp)
	assert.Contains(t, stripANSI(renderFooter(app)), "d: diagnostics")
	app, _ = update(app, keyMsg("?"))
	assert.False(t, app.showHelp)
}

func TestPollCmd_PushesObservations(t *testing.T) {
	app, _ := newTestApp(t)
	msg := pollCmd(app.poller, time.Second)()
	poll, ok := msg.(PollMsg)
	require.True(t, ok, "got %T", msg)
	require.Len(t, poll.Observations, 2)
	assert.Equal(t, model.RoleLeader, poll.Observations[0].Role)

	for _, n := range app.c.Members() {
		assert.Equal(t, 1, n.Observations().Len())
	}
}

func TestPollCmd_AllMembersDown(t *testing.T) {
	app, drivers := newTestApp(t)
	for _, d := range drivers {
		d.Responses["dbms.cluster.role()"] = clienttest.Fail(errors.New("connection refused"))
	}
	msg := pollCmd(app.poller, time.Second)()
	fe, ok := msg.(FetchErrorMsg)
	require.True(t, ok, "got %T", msg)
	assert.EqualError(t, fe.Err, "connection refused")
}

func TestAdviceCmd(t *testing.T) {
	app, _ := newTestApp(t)
	app, cmd := update(app, keyMsg("d"))
	assert.True(t, app.advising)
	require.NotNil(t, cmd)

	_, again := update(app, keyMsg("d"))
	assert.Nil(t, again, "a second run is not started while one is in flight")

	msg := cmd()
	advice, ok := msg.(AdviceMsg)
	require.True(t, ok, "got %T", msg)
	assert.Positive(t, advice.Records)
	require.NotEmpty(t, advice.Findings)

	app, _ = update(app, advice)
	assert.False(t, app.advising)
	out := stripANSI(renderFindings(app))
	assert.Contains(t, out, "All machines are running the same version of Neo4j, 3.5.3")
	assert.Contains(t, out, "PASS")
}

func TestApp_View(t *testing.T) {
	app, _ := newTestApp(t)
	app, _ = update(app, tea.WindowSizeMsg{Width: 120, Height: 30})
	pollCmd(app.poller, time.Second)()
	app, _ = update(app, PollMsg{At: time.Now()})

	out := stripANSI(app.View())
	assert.Contains(t, out, "bolt://core1:7687")
	assert.Contains(t, out, "CLUSTER (2 members)")
	assert.Contains(t, out, "Members")
	assert.Contains(t, out, "core2")
	assert.Contains(t, out, "LEADER")
	assert.NotContains(t, out, "Advice")
}

func TestApp_ViewHighlightsRoleChange(t *testing.T) {
	app, drivers := newTestApp(t)
	drivers[core2].Responses["dbms.cluster.role()"] = clienttest.Rows(map[string]any{"role": "LEADER"})
	pollCmd(app.poller, time.Second)()

	rows := memberRows(app)
	require.Len(t, rows, 2)
	assert.Equal(t, model.RoleFollower, rows[1].Role)
	assert.Equal(t, model.RoleLeader, rows[1].Observed)
	assert.NotEqual(t, "---", rows[1].Latency)
}

func TestBackoffDuration(t *testing.T) {
	cases := []struct {
		fails int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},
		{100, 60 * time.Second},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, backoffDuration(tc.fails), "fails=%d", tc.fails)
	}
}

func TestApp_DeleteResultShowsStatus(t *testing.T) {
	app, _ := newTestApp(t)
	app, cmd := update(app, DeleteResultMsg{
		Username: "bob",
		Status:   security.Message("Success", "Deleting user bob succeeded on 2 of 2 members"),
	})
	require.NotNil(t, app.status)
	assert.NotNil(t, cmd, "user list is refreshed")
	assert.Contains(t, stripANSI(renderFooter(app)), "succeeded on 2 of 2")

	app, _ = update(app, keyMsg("?"))
	assert.Nil(t, app.status, "any key clears the status line")
}

// stripANSI removes ANSI escape sequences from s.
func stripANSI(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			// CSI final bytes are in range 0x40-0x7E
			if r >= 0x40 && r <= 0x7E && r != '[' {
				inEscape = false
			}
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

func TestFeaturesPanel(t *testing.T) {
	app, drivers := newTestApp(t)
	for _, d := range drivers {
		d.Responses["name=Page cache"] = clienttest.Rows(map[string]any{
			"faults": int64(12), "hits": int64(4500), "evictions": int64(3), "hitRatio": 0.9973,
		})
	}

	app, cmd := update(app, keyMsg("p"))
	require.True(t, app.showFeatures)
	assert.True(t, app.sampling)
	require.NotNil(t, cmd)
	assert.Contains(t, stripANSI(renderFeatures(app)), "sampling...")

	msg, ok := cmd().(FeaturesMsg)
	require.True(t, ok)
	require.Len(t, msg.Samples[engine.FeaturePageCache], 2)
	assert.ErrorIs(t, msg.Errs[engine.FeatureStorage], engine.ErrFeatureUnavailable)

	app, _ = update(app, msg)
	assert.False(t, app.sampling)
	out := stripANSI(app.View())
	assert.Contains(t, out, "Page cache & storage")
	assert.Contains(t, out, "4,500")
	assert.Contains(t, out, "99.7%")
	assert.Contains(t, out, "apoc.metrics.storage")

	app, _ = update(app, keyMsg("p"))
	assert.False(t, app.showFeatures)
	assert.NotContains(t, stripANSI(app.View()), "Page cache & storage")
}

func TestFeaturesPanel_RefreshesOnPoll(t *testing.T) {
	app, _ := newTestApp(t)
	app.fetching = false
	_, cmd := update(app, PollMsg{At: time.Now()})
	require.NotNil(t, cmd)
	assert.False(t, app.sampling)

	app.showFeatures = true
	app, cmd = update(app, PollMsg{At: time.Now()})
	require.NotNil(t, cmd)
	assert.True(t, app.sampling)

	app, _ = update(app, PollMsg{At: time.Now()})
	assert.True(t, app.sampling, "no second sample while one is in flight")
}

func TestFeaturesPanel_StorageRows(t *testing.T) {
	app, _ := newTestApp(t)
	app.showFeatures = true
	app.features = &FeaturesMsg{
		Samples: map[string][]engine.Sample{
			engine.FeatureStorage: {
				{Member: "core1", Rows: []map[string]any{{
					"setting": "dbms.directories.data", "freeSpaceBytes": int64(1 << 30),
					"totalSpaceBytes": int64(4 << 30), "percentFree": 0.25,
				}}},
				{Member: "core2", Err: "connection refused"},
			},
		},
		Errs: map[string]error{},
	}
	out := stripANSI(renderFeatures(app))
	assert.Contains(t, out, "dbms.directories.data")
	assert.Contains(t, out, "1.0 GiB")
	assert.Contains(t, out, "4.0 GiB")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "connection refused")
}
