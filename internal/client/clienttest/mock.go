// Package clienttest provides a scriptable client.Driver for tests.
package clienttest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rbramwell/halin/internal/client"
)

// MockDriver implements client.Driver. Run is answered by RunFn when set,
// otherwise by the longest Responses key contained in the
// cypher text; unmatched statements yield an empty result.
type MockDriver struct {
	Addr        string
	IsEncrypted bool

	RunFn      func(ctx context.Context, cypher string, params map[string]any) (*client.Result, error)
	VerifyFn   func(ctx context.Context) error
	CloseFn    func(ctx context.Context) error
	DelayFn    func(cypher string) time.Duration
	Responses  map[string]Response
	mu         sync.Mutex
	calls      []string
	closeCalls int
}

// Response is a canned answer to a statement.
type Response struct {
	Result *client.Result
	Err    error
}

// Rows builds a Response from map rows.
func Rows(rows ...map[string]any) Response {
	res := &client.Result{}
	for _, m := range rows {
		r := client.MapRow(m)
		res.Rows = append(res.Rows, r)
		res.Keys = r.Keys()
	}
	return Response{Result: res}
}

// Value builds a single-row Response with one "value" column.
func Value(v any) Response {
	return Rows(map[string]any{"value": v})
}

// Fail builds a failing Response.
func Fail(err error) Response {
	return Response{Err: err}
}

func (m *MockDriver) Run(ctx context.Context, cypher string, params map[string]any) (*client.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cypher)
	m.mu.Unlock()

	if m.DelayFn != nil {
		if d := m.DelayFn(cypher); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if m.RunFn != nil {
		return m.RunFn(ctx, cypher, params)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	best := ""
	for key := range m.Responses {
		if strings.Contains(cypher, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return &client.Result{}, nil
	}
	r := m.Responses[best]
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Result == nil {
		return &client.Result{}, nil
	}
	return r.Result, nil
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx)
	}
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()
	if m.CloseFn != nil {
		return m.CloseFn(ctx)
	}
	return nil
}

func (m *MockDriver) Target() string {
	if m.Addr == "" {
		return "bolt://mock:7687"
	}
	return m.Addr
}

func (m *MockDriver) Encrypted() bool { return m.IsEncrypted }

// Calls returns every statement Run has seen, in order.
func (m *MockDriver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CloseCalls returns how many times Close was called.
func (m *MockDriver) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Factory hands out drivers from a fixed set keyed by address and counts
// how often each address was requested.
type Factory struct {
	mu      sync.Mutex
	Drivers map[string]*MockDriver
	Err     error
	created map[string]int
}

// NewFactory returns a Factory serving the given drivers.
func NewFactory(drivers map[string]*MockDriver) *Factory {
	return &Factory{Drivers: drivers, created: make(map[string]int)}
}

// Create satisfies client.DriverFactory. Unknown addresses get an empty MockDriver.
func (f *Factory) Create(addr string, _ client.Credentials, encrypted bool) (client.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, f.Err)
	}
	f.created[addr]++
	d, ok := f.Drivers[addr]
	if !ok {
		d = &MockDriver{}
		if f.Drivers == nil {
			f.Drivers = make(map[string]*MockDriver)
		}
		f.Drivers[addr] = d
	}
	d.Addr = addr
	d.IsEncrypted = encrypted
	return d, nil
}

// Created returns how many drivers were made for addr.
func (f *Factory) Created(addr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[addr]
}

// Total returns the number of drivers made across all addresses.
func (f *Factory) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.created {
		n += c
	}
	return n
}
