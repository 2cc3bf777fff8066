package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbramwell/halin/internal/metrics"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/query"
)

// Poller samples every member on an interval and appends the result to the
// member's observation history.
type Poller struct {
	c        *Context
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller returns a poller using the context's poll interval.
func NewPoller(c *Context) *Poller {
	interval := c.PollInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{c: c, interval: interval}
}

// Start polls in the background until Stop is called or ctx ends. Starting
// an already running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.PollOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.PollOnce(ctx)
			}
		}
	}(p.done)
}

// Stop halts background polling and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// PollOnce samples every member concurrently and returns the observations in
// member order.
func (p *Poller) PollOnce(ctx context.Context) []model.Observation {
	members := p.c.Members()
	clustered := len(members) > 1
	out := make([]model.Observation, len(members))

	var g errgroup.Group
	for i, n := range members {
		g.Go(func() error {
			out[i] = p.sample(ctx, n, clustered)
			n.Observations().Push(out[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Poller) sample(ctx context.Context, n *model.ClusterNode, clustered bool) model.Observation {
	o := model.Observation{Timestamp: time.Now(), Role: n.Role()}
	label := n.Label()

	d, err := p.c.DriverFor(n)
	if err != nil {
		o.Err = err.Error()
		metrics.PollErrors.WithLabelValues(label).Inc()
		return o
	}

	q := query.Ping
	if clustered {
		q = query.ClusterRole
	}
	ctx, cancel := p.c.probeContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := d.Run(ctx, q.Cypher, nil)
	o.Latency = time.Since(start)
	if err != nil {
		o.Err = err.Error()
		metrics.PollErrors.WithLabelValues(label).Inc()
		p.c.log.Debug("poll failed", "member", label, "error", err)
		return o
	}
	metrics.PollLatency.WithLabelValues(label).Set(o.Latency.Seconds())

	if clustered && len(res.Rows) > 0 {
		o.Role = model.ParseRole(res.Rows[0].String("role"))
		if o.Role != n.Role() {
			p.c.log.Warn("member role changed; rediscovery required",
				"member", label, "discovered", string(n.Role()), "observed", string(o.Role))
		}
	}
	return o
}
