package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbramwell/halin/internal/client"
	"github.com/rbramwell/halin/internal/metrics"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/query"
	"github.com/rbramwell/halin/internal/tracing"
)

// Diagnostic domains.
const (
	DomainHalin       = "halin"
	DomainHalinDriver = "halin-driver"
	DomainIndex       = "index"
	DomainConstraint  = "constraint"
	DomainJMX         = "jmx"
	DomainConfig      = "config"
	DomainAlgo        = "algo"
	DomainAPOC        = "apoc"
	DomainNodes       = "nodes"
	DomainSchema      = "schema"
	DomainDBMS        = "dbms"
)

// bulkProbe maps every row of one query onto a record.
type bulkProbe struct {
	domain string
	query  query.Query
	record func(i int, row client.Row) (key string, value any)
}

// scalarProbe reads the "value" column of a single-row query.
type scalarProbe struct {
	domain string
	key    string
	query  query.Query
}

var bulkProbes = []bulkProbe{
	{DomainIndex, query.Indexes, func(i int, row client.Row) (string, any) {
		value := make(map[string]any, 6)
		for _, f := range []string{"description", "label", "properties", "state", "type", "provider"} {
			v, _ := row.Get(f)
			value[f] = v
		}
		return strconv.Itoa(i), value
	}},
	{DomainConstraint, query.Constraints, func(i int, row client.Row) (string, any) {
		return strconv.Itoa(i), row.String("description")
	}},
	{DomainJMX, query.JMX, func(_ int, row client.Row) (string, any) {
		v, _ := row.Get("attributes")
		return row.String("name"), v
	}},
	{DomainConfig, query.ListConfig, func(_ int, row client.Row) (string, any) {
		v, _ := row.Get("value")
		return row.String("name"), v
	}},
}

var scalarProbes = []scalarProbe{
	{DomainAlgo, "version", query.AlgoVersion},
	{DomainAPOC, "version", query.APOCVersion},
	{DomainNodes, "count", query.NodeCount},
	{DomainSchema, "labels", query.Labels},
	{DomainDBMS, "versions", query.ComponentVersions},
	{DomainDBMS, "edition", query.ComponentEdition},
}

// RunDiagnostics queries every member concurrently and returns the combined
// records sorted by domain. It never fails: a failing probe becomes a single
// record holding a model.ProbeError, leaving sibling probes and other members
// untouched. Each remote call gets the context's probe timeout.
func RunDiagnostics(ctx context.Context, c *Context) *model.Package {
	start := time.Now()
	defer func() { metrics.DiagnosticsDuration.Observe(time.Since(start).Seconds()) }()

	members := c.Members()
	perNode := make([][]model.Record, len(members))
	nodes := make([]model.NodeDiagnostics, len(members))

	var g errgroup.Group
	for i, n := range members {
		g.Go(func() error {
			perNode[i], nodes[i] = nodeDiagnostics(ctx, c, n)
			return nil
		})
	}
	_ = g.Wait()

	generated := time.Now().UTC()
	records := halinDiagnostics(c, generated)
	for _, recs := range perNode {
		records = append(records, recs...)
	}
	model.SortByDomain(records)

	c.log.Debug("diagnostics complete",
		"members", len(members),
		"records", len(records),
		"elapsed", time.Since(start).String())

	return &model.Package{
		GeneratedAt: generated,
		Nodes:       nodes,
		Records:     records,
	}
}

func nodeDiagnostics(ctx context.Context, c *Context, n *model.ClusterNode) ([]model.Record, model.NodeDiagnostics) {
	node := n.Key()
	ctx, span := tracing.StartSpan(ctx, "diagnostics.node", "node", node)
	defer span.End(nil)

	records := []model.Record{
		{Node: node, Domain: DomainHalin, Key: "protocols", Value: n.Protocols()},
		{Node: node, Domain: DomainHalin, Key: "role", Value: string(n.Role())},
		{Node: node, Domain: DomainHalin, Key: "database", Value: n.Database()},
		{Node: node, Domain: DomainHalin, Key: "id", Value: n.ID()},
	}
	diag := model.NodeDiagnostics{Node: node, ID: n.ID(), Role: n.Role(), Database: n.Database()}

	driver, driverErr := c.DriverFor(n)

	bulk := make([][]model.Record, len(bulkProbes))
	scalar := make([]model.Record, len(scalarProbes))

	var g errgroup.Group
	for i, p := range bulkProbes {
		g.Go(func() error {
			res, err := runProbe(ctx, c, driver, driverErr, node, p.domain, p.query)
			if err != nil {
				bulk[i] = []model.Record{{Node: node, Domain: p.domain, Key: p.query.Name, Value: model.ProbeError(err.Error())}}
				return nil
			}
			out := make([]model.Record, 0, len(res.Rows))
			for j, row := range res.Rows {
				key, value := p.record(j, row)
				out = append(out, model.Record{Node: node, Domain: p.domain, Key: key, Value: value})
			}
			bulk[i] = out
			return nil
		})
	}
	for i, p := range scalarProbes {
		g.Go(func() error {
			value, err := scalarValue(ctx, c, driver, driverErr, node, p)
			if err != nil {
				value = model.ProbeError(err.Error())
			}
			scalar[i] = model.Record{Node: node, Domain: p.domain, Key: p.key, Value: value}
			return nil
		})
	}
	_ = g.Wait()

	for _, recs := range bulk {
		records = append(records, recs...)
	}
	records = append(records, scalar...)

	diag.Basics = basicsFrom(scalar)
	return records, diag
}

func scalarValue(ctx context.Context, c *Context, d client.Driver, driverErr error, node string, p scalarProbe) (any, error) {
	res, err := runProbe(ctx, c, d, driverErr, node, p.domain, p.query)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("%s: no rows returned", p.query.Name)
	}
	v, ok := res.Rows[0].Get("value")
	if !ok {
		return nil, fmt.Errorf("%s: no value column", p.query.Name)
	}
	return v, nil
}

// runProbe executes one probe query with its own timeout, recording a span
// and the outcome metric.
func runProbe(ctx context.Context, c *Context, d client.Driver, driverErr error, node, domain string, q query.Query) (*client.Result, error) {
	if driverErr != nil {
		metrics.Probes.WithLabelValues(domain, "error").Inc()
		return nil, driverErr
	}
	ctx, span := tracing.StartSpan(ctx, "diagnostics.probe", "node", node, "domain", domain, "query", q.Name)
	ctx, cancel := c.probeContext(ctx)
	defer cancel()

	res, err := d.Run(ctx, q.Cypher, nil)
	span.End(err)
	if err != nil {
		metrics.Probes.WithLabelValues(domain, "error").Inc()
		c.log.Debug("probe failed", "node", node, "domain", domain, "query", q.Name, "error", err)
		return nil, err
	}
	metrics.Probes.WithLabelValues(domain, "ok").Inc()
	return res, nil
}

// basicsFrom lifts the dbms probe results into the structure rules read.
func basicsFrom(scalar []model.Record) *model.Basics {
	b := &model.Basics{}
	for _, r := range scalar {
		if r.Domain != DomainDBMS || r.Failed() {
			continue
		}
		switch r.Key {
		case "versions":
			switch v := r.Value.(type) {
			case []string:
				b.Versions = v
			case []any:
				for _, e := range v {
					if s, ok := e.(string); ok {
						b.Versions = append(b.Versions, s)
					}
				}
			case string:
				b.Versions = []string{v}
			}
		case "edition":
			b.Edition, _ = r.Value.(string)
		}
	}
	return b
}

// halinDiagnostics returns the process-wide records: generation time, tool
// version and one encryption record per pooled driver.
func halinDiagnostics(c *Context, generated time.Time) []model.Record {
	records := []model.Record{
		{Node: model.NotApplicable, Domain: DomainHalin, Key: "diagnosticsGenerated", Value: generated.Format(time.RFC3339)},
		{Node: model.NotApplicable, Domain: DomainHalin, Key: "halinVersion", Value: c.version},
	}
	for _, addr := range c.pool.Addresses() {
		enc, ok := c.pool.Encrypted(addr)
		if !ok {
			continue
		}
		records = append(records, model.Record{Node: addr, Domain: DomainHalinDriver, Key: "encrypted", Value: enc})
	}
	return records
}
