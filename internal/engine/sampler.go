package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbramwell/halin/internal/metrics"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/query"
	"github.com/rbramwell/halin/internal/tracing"
)

// Features served by the Sampler.
const (
	FeaturePageCache = "pagecache"
	FeatureStorage   = "storage"
)

var (
	ErrUnknownFeature     = errors.New("engine: unknown feature")
	ErrFeatureUnavailable = errors.New("engine: feature not available on this deployment")
)

var featureQueries = map[string]query.Query{
	FeaturePageCache: query.JMXPageCache,
	FeatureStorage:   query.APOCStorageMetric,
}

// Features returns the names of every sampled feature, sorted.
func Features() []string {
	out := make([]string, 0, len(featureQueries))
	for name := range featureQueries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Sample is the result of one feature query on one member. A failed query is
// recorded in Err rather than returned.
type Sample struct {
	Feature string           `json:"feature"`
	Node    string           `json:"node"`
	Member  string           `json:"member"`
	At      time.Time        `json:"at"`
	Rows    []map[string]any `json:"rows"`
	Err     string           `json:"error,omitempty"`
}

func (s Sample) Failed() bool { return s.Err != "" }

// Sampler runs the capability-gated feature queries (page cache, storage,
// apoc metrics) on demand. Results are cached per member and reused until
// the query's Rate has elapsed.
type Sampler struct {
	c   *Context
	now func() time.Time

	mu    sync.Mutex
	cache map[string]Sample
}

func NewSampler(c *Context) *Sampler {
	return &Sampler{c: c, now: time.Now, cache: make(map[string]Sample)}
}

// Available reports whether the deployment can serve feature.
func (s *Sampler) Available(feature string) error {
	q, ok := featureQueries[feature]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownFeature, feature)
	}
	return s.gate(feature, q)
}

func (s *Sampler) gate(name string, q query.Query) error {
	if !s.c.Capabilities().Satisfies(q.Dependency) {
		return fmt.Errorf("%w: %s requires %s", ErrFeatureUnavailable, name, q.Dependency)
	}
	return nil
}

// Sample returns feature's result on n, running the query only when no
// successful sample younger than the query's Rate is cached.
func (s *Sampler) Sample(ctx context.Context, n *model.ClusterNode, feature string) (Sample, error) {
	if err := s.Available(feature); err != nil {
		return Sample{}, err
	}
	q := featureQueries[feature]
	key := feature + "|" + n.Key()

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok && !cached.Failed() && q.Rate > 0 && s.now().Sub(cached.At) < q.Rate {
		return cached, nil
	}

	out := s.run(ctx, n, feature, q, nil)
	s.mu.Lock()
	s.cache[key] = out
	s.mu.Unlock()
	return out, nil
}

// SampleAll samples feature on every member concurrently, in member order.
func (s *Sampler) SampleAll(ctx context.Context, feature string) ([]Sample, error) {
	if err := s.Available(feature); err != nil {
		return nil, err
	}
	members := s.c.Members()
	out := make([]Sample, len(members))
	var g errgroup.Group
	for i, n := range members {
		g.Go(func() error {
			out[i], _ = s.Sample(ctx, n, feature)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// Metric fetches the last values of an apoc metric on n. It is never cached.
func (s *Sampler) Metric(ctx context.Context, n *model.ClusterNode, metric string, last int) (Sample, error) {
	q := query.APOCMetricsGet
	name := "metric:" + metric
	if err := s.gate(name, q); err != nil {
		return Sample{}, err
	}
	params := map[string]any{"metric": metric, "last": int64(last)}
	if metric == "" {
		delete(params, "metric")
	}
	if err := q.Validate(params); err != nil {
		return Sample{}, err
	}
	return s.run(ctx, n, name, q, params), nil
}

func (s *Sampler) run(ctx context.Context, n *model.ClusterNode, feature string, q query.Query, params map[string]any) Sample {
	out := Sample{Feature: feature, Node: n.Key(), Member: n.Label(), At: s.now(), Rows: []map[string]any{}}
	outcome := "ok"
	defer func() { metrics.Samples.WithLabelValues(q.Name, outcome).Inc() }()

	d, err := s.c.DriverFor(n)
	if err != nil {
		outcome, out.Err = "error", err.Error()
		return out
	}
	ctx, span := tracing.StartSpan(ctx, "sampler.query", "node", out.Node, "query", q.Name)
	ctx, cancel := s.c.probeContext(ctx)
	defer cancel()

	res, err := d.Run(ctx, q.Cypher, params)
	span.End(err)
	if err != nil {
		outcome, out.Err = "error", err.Error()
		s.c.log.Debug("sample failed", "node", out.Node, "feature", feature, "error", err)
		return out
	}
	for _, row := range res.Rows {
		out.Rows = append(out.Rows, row.AsMap())
	}
	return out
}
