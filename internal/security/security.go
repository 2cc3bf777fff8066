// Package security administers users and roles on every cluster member.
package security

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/query"
)

var (
	ErrProtectedUser = errors.New("security: user is protected")
	ErrBuiltinRole   = errors.New("security: built-in roles cannot be deleted")
	ErrUnknownUser   = errors.New("security: no such user")
	ErrNotSupported  = errors.New("security: not supported by this database")
)

// BuiltinRoles ship with every enterprise installation.
var BuiltinRoles = []string{"admin", "architect", "editor", "publisher", "reader"}

const (
	protectedUser = "neo4j"
	adminRole     = "admin"
)

// User is a row of dbms.security.listUsers().
type User struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Flags    []string `json:"flags"`
}

// Protected reports whether the user may not be deleted: the built-in neo4j
// account and anyone holding the admin role.
func (u User) Protected() bool {
	return u.Username == protectedUser || slices.Contains(u.Roles, adminRole)
}

// Role is a row of dbms.security.listRoles().
type Role struct {
	Name  string   `json:"role"`
	Users []string `json:"users"`
}

// Builtin reports whether the role ships with the database.
func (r Role) Builtin() bool { return slices.Contains(BuiltinRoles, r.Name) }

// MemberOutcome is the result of an operation on one member.
type MemberOutcome struct {
	Node string `json:"node"`
	Err  error  `json:"-"`
}

// ClusterOpResult collects per-member outcomes in member order.
type ClusterOpResult struct {
	Members []MemberOutcome `json:"members"`
}

// Success is true when every member succeeded. An empty result is not a success.
func (r ClusterOpResult) Success() bool {
	return len(r.Members) > 0 && len(r.Failures()) == 0
}

// Failures returns the members whose operation failed.
func (r ClusterOpResult) Failures() []MemberOutcome {
	var out []MemberOutcome
	for _, m := range r.Members {
		if m.Err != nil {
			out = append(out, m)
		}
	}
	return out
}

// Manager runs user and role administration against an initialized context.
type Manager struct {
	c *engine.Context
}

// NewManager returns a Manager for c.
func NewManager(c *engine.Context) *Manager {
	return &Manager{c: c}
}

// ListUsers reads the user list from the seed member.
func (m *Manager) ListUsers(ctx context.Context) ([]User, error) {
	if !m.c.Capabilities().SupportsNativeAuth() {
		return nil, fmt.Errorf("ListUsers: %w", ErrNotSupported)
	}
	seed, err := m.c.Seed()
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	res, err := seed.Run(ctx, query.ListUsers.Cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	users := make([]User, 0, len(res.Rows))
	for _, row := range res.Rows {
		users = append(users, User{
			Username: row.String("username"),
			Roles:    row.Strings("roles"),
			Flags:    row.Strings("flags"),
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// ListRoles reads the role list from the seed member. Enterprise only.
func (m *Manager) ListRoles(ctx context.Context) ([]Role, error) {
	if !m.c.Capabilities().Satisfies(query.ListRoles.Dependency) {
		return nil, fmt.Errorf("ListRoles: %w", ErrNotSupported)
	}
	seed, err := m.c.Seed()
	if err != nil {
		return nil, fmt.Errorf("ListRoles: %w", err)
	}
	res, err := seed.Run(ctx, query.ListRoles.Cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("ListRoles: %w", err)
	}
	roles := make([]Role, 0, len(res.Rows))
	for _, row := range res.Rows {
		roles = append(roles, Role{Name: row.String("role"), Users: row.Strings("users")})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// DeleteUser removes username from every member. Protected users are refused
// before any member is contacted.
func (m *Manager) DeleteUser(ctx context.Context, username string) (ClusterOpResult, error) {
	users, err := m.ListUsers(ctx)
	if err != nil {
		return ClusterOpResult{}, fmt.Errorf("DeleteUser %s: %w", username, err)
	}
	idx := slices.IndexFunc(users, func(u User) bool { return u.Username == username })
	if idx < 0 {
		return ClusterOpResult{}, fmt.Errorf("DeleteUser %s: %w", username, ErrUnknownUser)
	}
	if users[idx].Protected() {
		return ClusterOpResult{}, fmt.Errorf("DeleteUser %s: %w", username, ErrProtectedUser)
	}
	params := map[string]any{"username": username}
	if err := query.DeleteUser.Validate(params); err != nil {
		return ClusterOpResult{}, err
	}
	return m.onEveryMember(ctx, query.DeleteUser, params), nil
}

// DeleteRole removes a custom role from every member.
func (m *Manager) DeleteRole(ctx context.Context, role string) (ClusterOpResult, error) {
	if !m.c.Capabilities().Satisfies(query.DeleteRole.Dependency) {
		return ClusterOpResult{}, fmt.Errorf("DeleteRole %s: %w", role, ErrNotSupported)
	}
	if (Role{Name: role}).Builtin() {
		return ClusterOpResult{}, fmt.Errorf("DeleteRole %s: %w", role, ErrBuiltinRole)
	}
	params := map[string]any{"role": role}
	if err := query.DeleteRole.Validate(params); err != nil {
		return ClusterOpResult{}, err
	}
	return m.onEveryMember(ctx, query.DeleteRole, params), nil
}

func (m *Manager) onEveryMember(ctx context.Context, q query.Query, params map[string]any) ClusterOpResult {
	members := m.c.Members()
	res := ClusterOpResult{Members: make([]MemberOutcome, len(members))}
	log := m.c.Logger()

	var g errgroup.Group
	for i, n := range members {
		g.Go(func() error {
			out := MemberOutcome{Node: n.Key()}
			d, err := m.c.DriverFor(n)
			if err == nil {
				_, err = d.Run(ctx, q.Cypher, params)
			}
			if err != nil {
				out.Err = err
				log.Warn("cluster operation failed", "query", q.Name, "member", out.Node, "error", err)
			}
			res.Members[i] = out
			return nil
		})
	}
	_ = g.Wait()
	log.Info("cluster operation finished", "query", q.Name, "members", len(members), "failed", len(res.Failures()))
	return res
}
