package model

import (
	"sort"
	"time"
)

// NotApplicable is the node value of process-wide records.
const NotApplicable = "n/a"

// ProbeError is stored as a record value when a probe failed. It serializes
// as the plain error text.
type ProbeError string

func (e ProbeError) Error() string { return string(e) }

// Record is one diagnostic fact: which member, what category, which fact, its value.
type Record struct {
	Node   string `json:"node"`
	Domain string `json:"domain"`
	Key    string `json:"key"`
	Value  any    `json:"value"`
}

// Failed reports whether the record carries a probe failure.
func (r Record) Failed() bool {
	_, ok := r.Value.(ProbeError)
	return ok
}

// Basics are the component facts rules read per member.
type Basics struct {
	Versions []string `json:"versions"`
	Edition  string   `json:"edition"`
}

// Version returns the first reported version, or "" when unknown.
func (b Basics) Version() string {
	if len(b.Versions) == 0 {
		return ""
	}
	return b.Versions[0]
}

// NodeDiagnostics groups the per-member facts of one diagnostics run.
type NodeDiagnostics struct {
	Node     string  `json:"node"`
	ID       string  `json:"id"`
	Role     Role    `json:"role"`
	Database string  `json:"database"`
	Basics   *Basics `json:"basics,omitempty"`
}

// Package is the full output of a diagnostics run.
type Package struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Nodes       []NodeDiagnostics `json:"nodes"`
	Records     []Record          `json:"records"`
}

// RecordsFor returns the records of a domain, optionally filtered by key.
func (p *Package) RecordsFor(domain, key string) []Record {
	if p == nil {
		return nil
	}
	var out []Record
	for _, r := range p.Records {
		if r.Domain != domain {
			continue
		}
		if key != "" && r.Key != key {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortByDomain stable-sorts records by domain in place.
func SortByDomain(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Domain < records[j].Domain
	})
}
