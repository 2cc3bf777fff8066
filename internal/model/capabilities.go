package model

import (
	"slices"
	"sort"
	"strings"

	"github.com/rbramwell/halin/internal/query"
)

// Editions reported by dbms.components().
const (
	EditionEnterprise = "enterprise"
	EditionCommunity  = "community"
)

// CurrentUser is the identity the seed connection authenticated as.
type CurrentUser struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Capabilities is the frozen set of facts gathered once at initialization.
// It is passed by value; callers cannot change the context's copy.
type Capabilities struct {
	Versions   []string    `json:"versions"`
	Edition    string      `json:"edition"`
	Procedures []string    `json:"-"`
	NativeAuth bool        `json:"native_auth"`
	Clustered  bool        `json:"clustered"`
	User       CurrentUser `json:"current_user"`
}

// NewCapabilities normalises the probed facts: edition lowercased and
// procedure names sorted for lookup.
func NewCapabilities(versions []string, edition string, procedures []string, nativeAuth, clustered bool, user CurrentUser) Capabilities {
	procs := slices.Clone(procedures)
	sort.Strings(procs)
	user.Roles = slices.Clone(user.Roles)
	return Capabilities{
		Versions:   slices.Clone(versions),
		Edition:    strings.ToLower(strings.TrimSpace(edition)),
		Procedures: procs,
		NativeAuth: nativeAuth,
		Clustered:  clustered,
		User:       user,
	}
}

// Clone returns a copy that shares no slices with c.
func (c Capabilities) Clone() Capabilities {
	c.Versions = slices.Clone(c.Versions)
	c.Procedures = slices.Clone(c.Procedures)
	c.User.Roles = slices.Clone(c.User.Roles)
	return c
}

func (c Capabilities) IsEnterprise() bool { return c.Edition == EditionEnterprise }

// IsCommunity is the complement of IsEnterprise; an unknown edition counts as community.
func (c Capabilities) IsCommunity() bool { return !c.IsEnterprise() }

func (c Capabilities) SupportsNativeAuth() bool { return c.NativeAuth }

func (c Capabilities) SupportsAPOC() bool { return c.hasPrefix("apoc.") }

func (c Capabilities) SupportsMetrics() bool { return c.HasProcedure("apoc.metrics.get") }

func (c Capabilities) SupportsAlgorithms() bool {
	return c.hasPrefix("algo.") || c.hasPrefix("gds.")
}

func (c Capabilities) SupportsLogStream() bool { return c.HasProcedure("apoc.log.stream") }

// CurrentUser returns the authenticated user.
func (c Capabilities) CurrentUser() CurrentUser { return c.User }

// Version returns the first reported component version, or "".
func (c Capabilities) Version() string {
	if len(c.Versions) == 0 {
		return ""
	}
	return c.Versions[0]
}

// HasProcedure reports whether a procedure with exactly this name is installed.
func (c Capabilities) HasProcedure(name string) bool {
	i := sort.SearchStrings(c.Procedures, name)
	return i < len(c.Procedures) && c.Procedures[i] == name
}

func (c Capabilities) hasPrefix(prefix string) bool {
	i := sort.SearchStrings(c.Procedures, prefix)
	return i < len(c.Procedures) && strings.HasPrefix(c.Procedures[i], prefix)
}

// Satisfies evaluates a query's capability dependency. A nil dependency is
// always satisfied.
func (c Capabilities) Satisfies(dep *query.Dependency) bool {
	if dep == nil {
		return true
	}
	switch dep.Type {
	case query.DependsOnProcedure:
		return c.HasProcedure(dep.Name)
	case query.DependsOnDeploy:
		switch dep.Name {
		case "cluster":
			return c.Clustered
		case "single":
			return !c.Clustered
		}
		return false
	case query.DependsOnEdition:
		return c.Edition == strings.ToLower(dep.Name)
	default:
		return false
	}
}
