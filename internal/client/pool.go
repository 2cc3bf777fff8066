package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rbramwell/halin/internal/logging"
	"github.com/rbramwell/halin/internal/metrics"
)

// Pool caches one Driver per member address. The first request for an
// address creates the driver through the factory; later requests reuse it.
type Pool struct {
	mu        sync.Mutex
	drivers   map[string]Driver
	factory   DriverFactory
	encrypted bool
	log       *logging.Logger
}

// NewPool returns an empty pool. encrypted is applied to every driver it creates.
func NewPool(factory DriverFactory, encrypted bool, log *logging.Logger) *Pool {
	if log == nil {
		log = logging.Global()
	}
	return &Pool{
		drivers:   make(map[string]Driver),
		factory:   factory,
		encrypted: encrypted,
		log:       log.With("component", "pool"),
	}
}

// DriverFor returns the cached driver for addr, creating it on first use.
func (p *Pool) DriverFor(addr string, creds Credentials) (Driver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d, ok := p.drivers[addr]; ok {
		metrics.PoolReuse.Inc()
		return d, nil
	}
	if _, _, err := SplitAddress(addr); err != nil {
		return nil, fmt.Errorf("DriverFor %s: %w", addr, err)
	}

	d, err := p.factory(addr, creds, p.encrypted)
	if err != nil {
		return nil, fmt.Errorf("DriverFor %s: %w", addr, err)
	}
	p.drivers[addr] = d
	metrics.PoolDials.Inc()
	metrics.PoolActive.Set(float64(len(p.drivers)))
	p.log.Debug("driver created", "addr", addr, "encrypted", p.encrypted)
	return d, nil
}

// Addresses returns the pooled addresses in sorted order.
func (p *Pool) Addresses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.drivers))
	for a := range p.drivers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Encrypted reports whether the driver pooled under addr is encrypted.
func (p *Pool) Encrypted(addr string) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[addr]
	if !ok {
		return false, false
	}
	return d.Encrypted(), true
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.drivers)
}

// Shutdown closes every pooled driver and empties the pool. Close failures
// are logged and returned joined; the pool is emptied regardless. Calling
// Shutdown on an empty pool is a no-op.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	drivers := p.drivers
	p.drivers = make(map[string]Driver)
	p.mu.Unlock()

	var errs []error
	for addr, d := range drivers {
		if err := d.Close(ctx); err != nil {
			p.log.Warn("driver close failed", "addr", addr, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
	}
	metrics.PoolActive.Set(0)
	return errors.Join(errs...)
}
