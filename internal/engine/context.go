package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rbramwell/halin/internal/client"
	"github.com/rbramwell/halin/internal/config"
	"github.com/rbramwell/halin/internal/logging"
	"github.com/rbramwell/halin/internal/model"
)

// Version is reported in diagnostics packages as halinVersion.
var Version = "0.1.0"

// Context owns everything known about one monitored cluster: the seed
// connection parameters, discovered members, the driver pool and the frozen
// capability set. Create it with New and call Initialize before use.
type Context struct {
	conn         config.ConnectionConfig
	creds        client.Credentials
	pool         *client.Pool
	log          *logging.Logger
	probeTimeout time.Duration
	pollInterval time.Duration
	historySize  int
	version      string

	initOnce sync.Once
	initErr  error

	mu    sync.RWMutex
	nodes []*model.ClusterNode
	caps  model.Capabilities
}

// Option configures a Context.
type Option func(*contextOptions)

type contextOptions struct {
	factory client.DriverFactory
	log     *logging.Logger
	version string
}

// WithDriverFactory replaces the Neo4j driver factory, mainly for tests.
func WithDriverFactory(f client.DriverFactory) Option {
	return func(o *contextOptions) { o.factory = f }
}

// WithLogger sets the logger used by the context and everything it owns.
func WithLogger(l *logging.Logger) Option {
	return func(o *contextOptions) { o.log = l }
}

// WithVersion overrides the reported tool version.
func WithVersion(v string) Option {
	return func(o *contextOptions) { o.version = v }
}

// New builds an uninitialized Context from cfg.
func New(cfg *config.Config, opts ...Option) *Context {
	o := contextOptions{version: Version}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Global()
	}
	if o.factory == nil {
		o.factory = client.Neo4jFactory(cfg.Connection.Database, cfg.Diagnostics.ProbeTimeout)
	}

	return &Context{
		conn:         cfg.Connection,
		creds:        client.Credentials{Username: cfg.Connection.Username, Password: cfg.Connection.Password},
		pool:         client.NewPool(o.factory, cfg.Connection.Encrypted, o.log),
		log:          o.log,
		probeTimeout: cfg.Diagnostics.ProbeTimeout,
		pollInterval: cfg.Poll.Interval,
		historySize:  cfg.Poll.HistorySize,
		version:      o.version,
	}
}

// Initialize connects to the seed, discovers the topology, warms the pool
// and probes capabilities. It runs once; later calls return the first result.
func (c *Context) Initialize(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.initialize(ctx)
	})
	return c.initErr
}

func (c *Context) initialize(ctx context.Context) error {
	seed, err := c.Seed()
	if err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}
	if err := seed.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("Initialize %s: %w", c.BaseURI(), client.Classify(err))
	}

	nodes, err := c.discover(ctx, seed)
	if err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}

	caps := ProbeCapabilities(ctx, seed, len(nodes) > 1, c.log)

	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()

	c.log.Info("context initialized",
		"base", c.BaseURI(),
		"members", len(nodes),
		"edition", caps.Edition,
		"version", caps.Version())
	return nil
}

// discover runs topology discovery against seed, replaces the member set and
// opens a pooled driver for every member before anyone fans out over them.
func (c *Context) discover(ctx context.Context, seed client.Driver) ([]*model.ClusterNode, error) {
	nodes, err := Discover(ctx, seed, c.conn.SeedAddresses(), c.historySize)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		addr, err := n.BoltAddress()
		if err != nil {
			c.log.Warn("member has no bolt address", "member", n.ID())
			continue
		}
		if _, err := c.pool.DriverFor(addr, c.creds); err != nil {
			c.log.Warn("could not open driver for member", "addr", addr, "error", err)
		}
	}

	c.mu.Lock()
	c.nodes = nodes
	c.mu.Unlock()
	return nodes, nil
}

// Rediscover repeats topology discovery and swaps in the new member set.
// Capabilities are not recomputed.
func (c *Context) Rediscover(ctx context.Context) error {
	seed, err := c.Seed()
	if err != nil {
		return fmt.Errorf("Rediscover: %w", err)
	}
	if _, err := c.discover(ctx, seed); err != nil {
		return fmt.Errorf("Rediscover: %w", err)
	}
	return nil
}

// Shutdown closes every pooled driver. It is safe to call more than once and
// before or after a failed Initialize.
func (c *Context) Shutdown(ctx context.Context) error {
	if err := c.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("Shutdown: %w", err)
	}
	return nil
}

// Seed returns the pooled driver of the bootstrap address.
func (c *Context) Seed() (client.Driver, error) {
	return c.pool.DriverFor(c.BaseURI(), c.creds)
}

// DriverFor returns the pooled driver for a member.
func (c *Context) DriverFor(n *model.ClusterNode) (client.Driver, error) {
	addr, err := n.BoltAddress()
	if err != nil {
		return nil, err
	}
	return c.pool.DriverFor(addr, c.creds)
}

// Members returns the current member set. The slice is a copy; the nodes are shared.
func (c *Context) Members() []*model.ClusterNode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.ClusterNode, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Member finds a member by id, bolt address or host label.
func (c *Context) Member(ref string) (*model.ClusterNode, bool) {
	for _, n := range c.Members() {
		if n.ID() == ref || n.Key() == ref || n.Label() == ref {
			return n, true
		}
	}
	return nil, false
}

// IsCluster reports whether more than one member was discovered.
func (c *Context) IsCluster() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes) > 1
}

// BaseURI is the bolt address of the seed.
func (c *Context) BaseURI() string { return c.conn.Address() }

// Capabilities returns a copy of the snapshot taken at initialization.
func (c *Context) Capabilities() model.Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps.Clone()
}

func (c *Context) CurrentUser() model.CurrentUser { return c.Capabilities().CurrentUser() }

func (c *Context) PollInterval() time.Duration { return c.pollInterval }

func (c *Context) ProbeTimeout() time.Duration { return c.probeTimeout }

// probeContext bounds a single remote call by the probe timeout.
func (c *Context) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.probeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.probeTimeout)
}

func (c *Context) Pool() *client.Pool { return c.pool }

func (c *Context) Logger() *logging.Logger { return c.log }
