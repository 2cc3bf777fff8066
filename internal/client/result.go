package client

import (
	"fmt"
	"sort"
)

// Result is a fully collected query result.
type Result struct {
	Keys []string
	Rows []Row
}

// Single returns the only row of a result, failing when there is not exactly one.
func (r *Result) Single() (Row, error) {
	if r == nil || len(r.Rows) != 1 {
		n := 0
		if r != nil {
			n = len(r.Rows)
		}
		return Row{}, fmt.Errorf("expected one row, got %d", n)
	}
	return r.Rows[0], nil
}

// Row is one result record. Integers are int64, as delivered by the protocol.
type Row struct {
	keys   []string
	values []any
}

// NewRow pairs keys with values positionally.
func NewRow(keys []string, values []any) Row {
	return Row{keys: keys, values: values}
}

// MapRow builds a Row from a map; keys are ordered alphabetically.
func MapRow(m map[string]any) Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}
	return Row{keys: keys, values: values}
}

func (r Row) Keys() []string { return r.keys }

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	for i, k := range r.keys {
		if k == key && i < len(r.values) {
			return r.values[i], true
		}
	}
	return nil, false
}

// String returns the value under key as a string, or "" when absent or not a string.
func (r Row) String(key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

// Int64 returns the integer under key.
func (r Row) Int64(key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Strings returns the list of strings under key, skipping non-string elements.
func (r Row) Strings(key string) []string {
	v, _ := r.Get(key)
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Map returns the map under key.
func (r Row) Map(key string) map[string]any {
	v, _ := r.Get(key)
	m, _ := v.(map[string]any)
	return m
}

// AsMap returns every column of the row.
func (r Row) AsMap() map[string]any {
	out := make(map[string]any, len(r.keys))
	for i, k := range r.keys {
		if i < len(r.values) {
			out[k] = r.values[i]
		}
	}
	return out
}
