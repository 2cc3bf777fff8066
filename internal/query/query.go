// Package query holds the contract for named Cypher queries and the catalog
// of queries halin issues against cluster members.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DependencyType says what kind of capability a query relies on.
type DependencyType string

const (
	DependsOnProcedure DependencyType = "procedure"
	DependsOnDeploy    DependencyType = "deploy"
	DependsOnEdition   DependencyType = "edition"
)

// Dependency is a capability a query needs before it can run, for example a
// procedure from an extension or a clustered deployment.
type Dependency struct {
	Type DependencyType
	Name string
}

func (d Dependency) String() string {
	return string(d.Type) + ":" + d.Name
}

// Column describes one expected result column.
type Column struct {
	Header   string
	Accessor string // result key
}

// Query is a named Cypher statement with the columns it is expected to return.
type Query struct {
	Name        string
	Description string
	Cypher      string
	Columns     []Column
	Dependency  *Dependency
	Rate        time.Duration // suggested polling interval; zero means on demand
	Parameters  map[string]string
}

// Accessors returns the result keys of the declared columns.
func (q Query) Accessors() []string {
	out := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		out[i] = c.Accessor
	}
	return out
}

// Validate checks that the statement is present and that every required
// parameter is supplied.
func (q Query) Validate(params map[string]any) error {
	if strings.TrimSpace(q.Cypher) == "" {
		return fmt.Errorf("query %s: empty cypher", q.Name)
	}
	var missing []string
	for name := range q.Parameters {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("query %s: missing parameters %s", q.Name, strings.Join(missing, ", "))
	}
	return nil
}
