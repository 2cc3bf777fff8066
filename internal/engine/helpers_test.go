package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rbramwell/halin/internal/client/clienttest"
	"github.com/rbramwell/halin/internal/config"
	"github.com/rbramwell/halin/internal/logging"
)

const (
	core1 = "bolt://core1:7687"
	core2 = "bolt://core2:7687"
	core3 = "bolt://core3:7687"
)

// recordsPerHealthyMember is the record count produced by memberDriver:
// 4 local facts, 1 index, 1 constraint, 2 jmx beans, 2 settings, 6 scalars.
const recordsPerHealthyMember = 16

var errNoProcedure = &neo4j.Neo4jError{
	Code: "Neo.ClientError.Procedure.ProcedureNotFound",
	Msg:  "There is no procedure with the name `dbms.cluster.overview` registered for this database instance.",
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Connection.Host = "core1"
	cfg.Connection.Password = "secret"
	cfg.Diagnostics.ProbeTimeout = 2 * time.Second
	cfg.Poll.HistorySize = 10
	return cfg
}

func overviewRow(id, host, role string) map[string]any {
	return map[string]any{
		"id":        id,
		"addresses": []any{"bolt://" + host + ":7687", "http://" + host + ":7474"},
		"role":      role,
		"database":  "default",
	}
}

// memberDriver answers every diagnostics and capability query for a healthy
// enterprise member running version.
func memberDriver(version string) *clienttest.MockDriver {
	return &clienttest.MockDriver{Responses: map[string]clienttest.Response{
		"db.indexes()": clienttest.Rows(map[string]any{
			"description": "INDEX ON :Person(name)",
			"label":       "Person",
			"properties":  []any{"name"},
			"state":       "ONLINE",
			"type":        "node_label_property",
			"provider":    map[string]any{"key": "native-btree", "version": "1.0"},
		}),
		"db.constraints()": clienttest.Rows(map[string]any{"description": "CONSTRAINT ON ( person:Person ) ASSERT person.id IS UNIQUE"}),
		"dbms.queryJmx": clienttest.Rows(
			map[string]any{"name": "org.neo4j:instance=kernel#0,name=Kernel", "attributes": map[string]any{"ReadOnly": map[string]any{"value": false}}},
			map[string]any{"name": "java.lang:type=Memory", "attributes": map[string]any{"HeapMemoryUsage": map[string]any{"value": int64(1024)}}},
		),
		"dbms.listConfig()": clienttest.Rows(
			map[string]any{"name": "dbms.memory.heap.max_size", "value": "1G"},
			map[string]any{"name": "dbms.mode", "value": "CORE"},
		),
		"algo.version()":    clienttest.Fail(errors.New("Unknown function 'algo.version'")),
		"apoc.version()":    clienttest.Value("3.5.0.1"),
		"count(n)":          clienttest.Value(int64(100)),
		"db.labels()":       clienttest.Value([]any{"Person"}),
		"versions AS value": clienttest.Value([]any{version}),
		"edition AS value":  clienttest.Value("enterprise"),

		"YIELD name, versions, edition": clienttest.Rows(map[string]any{
			"name": "Neo4j Kernel", "versions": []any{version}, "edition": "enterprise",
		}),
		"dbms.procedures() YIELD name RETURN name": clienttest.Rows(
			map[string]any{"name": "dbms.cluster.overview"},
			map[string]any{"name": "dbms.security.listUsers"},
			map[string]any{"name": "apoc.metrics.get"},
		),
		"dbms.security.auth_provider": clienttest.Rows(map[string]any{"value": "native"}),
		"dbms.showCurrentUser()": clienttest.Rows(map[string]any{
			"username": "neo4j", "roles": []any{"admin"}, "flags": []any{},
		}),
		"dbms.cluster.role()": clienttest.Rows(map[string]any{"role": "FOLLOWER"}),
	}}
}

// threeCoreCluster returns drivers for a three member cluster whose seed is core1.
func threeCoreCluster() map[string]*clienttest.MockDriver {
	d1, d2, d3 := memberDriver("3.5.3"), memberDriver("3.5.3"), memberDriver("3.5.3")
	d1.Responses["dbms.cluster.overview()"] = clienttest.Rows(
		overviewRow("id-1", "core1", "LEADER"),
		overviewRow("id-2", "core2", "FOLLOWER"),
		overviewRow("id-3", "core3", "FOLLOWER"),
	)
	d1.Responses["dbms.cluster.role()"] = clienttest.Rows(map[string]any{"role": "LEADER"})
	return map[string]*clienttest.MockDriver{core1: d1, core2: d2, core3: d3}
}

func newTestContext(t *testing.T, drivers map[string]*clienttest.MockDriver) (*Context, *clienttest.Factory) {
	t.Helper()
	f := clienttest.NewFactory(drivers)
	c := New(testConfig(), WithDriverFactory(f.Create), WithLogger(logging.Nop()), WithVersion("test"))
	return c, f
}
