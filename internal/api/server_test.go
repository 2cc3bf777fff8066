package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbramwell/halin/internal/client"
	"github.com/rbramwell/halin/internal/client/clienttest"
	"github.com/rbramwell/halin/internal/config"
	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/logging"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/publish"
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
		"versions AS value": clienttest.Value([]any{"3.5.3"}),
		"edition AS value":  clienttest.Value("enterprise"),
		"dbms.procedures() YIELD name RETURN name": clienttest.Rows(
			map[string]any{"name": "apoc.metrics.get"},
			map[string]any{"name": "dbms.security.listUsers"},
		),
		"dbms.security.auth_provider": clienttest.Rows(map[string]any{"value": "native"}),
		"dbms.showCurrentUser()":      clienttest.Rows(map[string]any{"username": "neo4j", "roles": []any{"admin"}}),
		"dbms.listConfig()": clienttest.Rows(
			map[string]any{"name": "dbms.jvm.additional", "value": `-Dname="halin"`},
		),
		"apoc.version()": clienttest.Value("3.5.0.1"),
		"dbms.security.listUsers()": clienttest.Rows(
			map[string]any{"username": "neo4j", "roles": []any{"admin"}, "flags": []any{}},
			map[string]any{"username": "bob", "roles": []any{"reader"}, "flags": []any{}},
		),
	}}
}

func newServer(t *testing.T, opts ...Option) (*Server, map[string]*clienttest.MockDriver) {
	t.Helper()
	d1, d2 := memberDriver(), memberDriver()
	d1.Responses["dbms.cluster.overview()"] = clienttest.Rows(
		map[string]any{"id": "id-1", "addresses": []any{core1}, "role": "LEADER", "database": "default"},
		map[string]any{"id": "id-2", "addresses": []any{core2}, "role": "FOLLOWER", "database": "default"},
	)
	drivers := map[string]*clienttest.MockDriver{core1: d1, core2: d2}

	cfg := config.DefaultConfig()
	cfg.Connection.Host = "core1"
	f := clienttest.NewFactory(drivers)
	c := engine.New(cfg, engine.WithDriverFactory(f.Create), engine.WithLogger(logging.Nop()))
	require.NoError(t, c.Initialize(context.Background()))
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return New(c, cfg.Server, opts...), drivers
}

func do(t *testing.T, s *Server, method, path string) *http.Response {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, path, nil), -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "GET", "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var h HealthResponse
	decodeBody(t, resp, &h)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 2, h.Members)
	assert.True(t, h.Cluster)
	assert.Equal(t, "bolt://core1:7687", h.BaseURI)
	assert.NotEmpty(t, h.Timestamp)
}

func TestMembers(t *testing.T) {
	s, _ := newServer(t)
	var members []MemberView
	decodeBody(t, do(t, s, "GET", "/api/members"), &members)
	require.Len(t, members, 2)
	assert.Equal(t, "id-1", members[0].ID)
	assert.Equal(t, "LEADER", members[0].Role)
	assert.Equal(t, "core2", members[1].Label)
	assert.Empty(t, members[1].LastError)
}

func TestCapabilities(t *testing.T) {
	s, _ := newServer(t)
	var caps CapabilitiesView
	decodeBody(t, do(t, s, "GET", "/api/capabilities"), &caps)
	assert.True(t, caps.Enterprise)
	assert.True(t, caps.Metrics)
	assert.True(t, caps.APOC)
	assert.False(t, caps.Algorithms)
	assert.True(t, caps.NativeAuth)
	assert.Equal(t, "neo4j", caps.User.Username)
}

func TestDiagnostics_JSON(t *testing.T) {
	s, _ := newServer(t)
	var pkg struct {
		Nodes   []model.NodeDiagnostics `json:"nodes"`
		Records []model.Record          `json:"records"`
	}
	decodeBody(t, do(t, s, "GET", "/api/diagnostics"), &pkg)
	assert.Len(t, pkg.Nodes, 2)
	assert.NotEmpty(t, pkg.Records)
}

func TestDiagnostics_CSV(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "GET", "/api/diagnostics?format=csv")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"node", "domain", "key", "value"}, rows[0])

	var found bool
	for _, r := range rows[1:] {
		if r[1] == engine.DomainConfig && r[2] == "dbms.jvm.additional" {
			found = true
			assert.Equal(t, `-Dname="halin"`, r[3])
		}
	}
	assert.True(t, found)
}

func TestDiagnostics_BadFormat(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "GET", "/api/diagnostics?format=xml")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e ErrorResponse
	decodeBody(t, resp, &e)
	assert.Equal(t, "ERROR", e.Error.Code)
	assert.Equal(t, "/api/diagnostics", e.Error.Path)
}

func TestAdvice(t *testing.T) {
	s, _ := newServer(t)
	var a AdviceResponse
	decodeBody(t, do(t, s, "GET", "/api/advice"), &a)
	require.NotEmpty(t, a.Results)
	assert.Equal(t, model.LevelPass, a.Results[0].Level)
	assert.Contains(t, a.Results[0].Finding, "3.5.3")
}

func TestUsers(t *testing.T) {
	s, drivers := newServer(t)

	var users []security.User
	decodeBody(t, do(t, s, "GET", "/api/users"), &users)
	assert.Len(t, users, 2)

	resp := do(t, s, "DELETE", "/api/users/neo4j")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var e ErrorResponse
	decodeBody(t, resp, &e)
	assert.Equal(t, "FORBIDDEN", e.Error.Code)

	resp = do(t, s, "DELETE", "/api/users/bob")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st security.Status
	decodeBody(t, resp, &st)
	assert.False(t, st.IsError)
	assert.Contains(t, drivers[core2].Calls(), "CALL dbms.security.deleteUser($username)")

	resp = do(t, s, "DELETE", "/api/users/nobody")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoles_BuiltinRefused(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "DELETE", "/api/roles/admin")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPublish(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "POST", "/api/diagnostics/publish")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	pub := publish.NewMemoryPublisher()
	s, _ = newServer(t, WithExporter(publish.NewExporter(pub, "halin.diagnostics", logging.Nop())))
	resp = do(t, s, "POST", "/api/diagnostics/publish")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var pr PublishResponse
	decodeBody(t, resp, &pr)
	msgs := pub.Messages("halin.diagnostics")
	require.Len(t, msgs, 1)
	assert.Equal(t, msgs[0].ID, pr.ID)
	assert.Positive(t, pr.Records)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "GET", "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "halin_pool_dials_total")
}

func TestNotFound(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "GET", "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e ErrorResponse
	decodeBody(t, resp, &e)
	assert.Equal(t, "NOT_FOUND", e.Error.Code)
	assert.Equal(t, "/nope", e.Error.Path)
}

func TestSamples_PageCacheAcrossMembers(t *testing.T) {
	s, drivers := newServer(t)
	for _, d := range drivers {
		d.Responses["name=Page cache"] = clienttest.Rows(map[string]any{
			"faults": int64(3), "hits": int64(97), "evictions": int64(1), "hitRatio": 0.97,
		})
	}
	resp := do(t, s, "GET", "/api/samples/pagecache")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []engine.Sample
	decodeBody(t, resp, &out)
	require.Len(t, out, 2)
	assert.Equal(t, core1, out[0].Node)
	assert.Equal(t, core2, out[1].Node)
	assert.EqualValues(t, 97, out[0].Rows[0]["hits"])
}

func TestSamples_UnavailableFeature(t *testing.T) {
	s, _ := newServer(t)
	resp := do(t, s, "GET", "/api/samples/storage")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	var e ErrorResponse
	decodeBody(t, resp, &e)
	assert.Equal(t, "NOT_SUPPORTED", e.Error.Code)
	assert.Contains(t, e.Error.Message, "apoc.metrics.storage")
}

func TestSamples_UnknownFeatureAndMember(t *testing.T) {
	s, _ := newServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, "GET", "/api/samples/heap").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, s, "GET", "/api/members/id-9/samples/pagecache").StatusCode)
}

func TestMemberMetric(t *testing.T) {
	s, drivers := newServer(t)
	var got map[string]any
	drivers[core2].RunFn = func(_ context.Context, cypher string, params map[string]any) (*client.Result, error) {
		if bytes.Contains([]byte(cypher), []byte("apoc.metrics.get")) {
			got = params
			return clienttest.Rows(map[string]any{"timestamp": int64(1), "value": 5.0}).Result, nil
		}
		return drivers[core1].Run(context.Background(), cypher, params)
	}

	resp := do(t, s, "GET", "/api/members/id-2/metrics/neo4j.bolt.connections_opened?last=3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out engine.Sample
	decodeBody(t, resp, &out)
	assert.Equal(t, core2, out.Node)
	assert.Equal(t, "neo4j.bolt.connections_opened", got["metric"])
	assert.Equal(t, int64(3), got["last"])
	require.Len(t, out.Rows, 1)

	assert.Equal(t, http.StatusBadRequest, do(t, s, "GET", "/api/members/id-2/metrics/x?last=0").StatusCode)
}
