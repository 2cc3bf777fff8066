package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Role is the part a member plays in the cluster.
type Role string

const (
	RoleLeader      Role = "LEADER"
	RoleFollower    Role = "FOLLOWER"
	RoleReadReplica Role = "READ_REPLICA"
	RoleSingle      Role = "SINGLE"
	RoleUnknown     Role = "UNKNOWN"
)

// ParseRole maps a role string reported by the server onto a Role.
// Matching is case-insensitive; unrecognised values yield RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEADER":
		return RoleLeader
	case "FOLLOWER":
		return RoleFollower
	case "READ_REPLICA", "READ-REPLICA", "READREPLICA":
		return RoleReadReplica
	case "SINGLE":
		return RoleSingle
	default:
		return RoleUnknown
	}
}

// Protocol schemes a member may advertise.
const (
	SchemeBolt  = "bolt"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// ErrNoAddress is returned when a member advertises no address for a scheme.
var ErrNoAddress = errors.New("model: no address for protocol")

// NodeSource is anything a ClusterNode can be built from: a protocol result
// row or a plain NodeRecord.
type NodeSource interface {
	Get(key string) (any, bool)
}

// NodeRecord is the structured form of a cluster overview row.
type NodeRecord struct {
	ID        string
	Addresses []string
	Role      string
	Database  string
}

// Get implements NodeSource using the cluster overview column names.
func (r NodeRecord) Get(key string) (any, bool) {
	switch key {
	case "id":
		return r.ID, true
	case "addresses":
		return r.Addresses, true
	case "role":
		return r.Role, true
	case "database":
		return r.Database, true
	default:
		return nil, false
	}
}

// ClusterNode is one discovered member of the cluster. Identity, role and
// database are fixed at construction; only the observation history changes.
type ClusterNode struct {
	id        string
	addresses []string
	role      Role
	database  string

	observations *ObservationHistory
}

// NewClusterNode converts a NodeSource into a ClusterNode. It is the only
// construction path, used for both overview rows and synthesized members.
func NewClusterNode(src NodeSource, historySize int) (*ClusterNode, error) {
	id := stringValue(src, "id")
	if id == "" {
		return nil, fmt.Errorf("NewClusterNode: missing id")
	}

	raw, _ := src.Get("addresses")
	addresses := toStrings(raw)
	if len(addresses) == 0 {
		return nil, fmt.Errorf("NewClusterNode %s: no addresses", id)
	}

	return &ClusterNode{
		id:           id,
		addresses:    addresses,
		role:         ParseRole(stringValue(src, "role")),
		database:     stringValue(src, "database"),
		observations: NewObservationHistory(historySize),
	}, nil
}

func (n *ClusterNode) ID() string       { return n.id }
func (n *ClusterNode) Role() Role       { return n.role }
func (n *ClusterNode) Database() string { return n.database }

// Addresses returns a copy of the advertised URIs in server order.
func (n *ClusterNode) Addresses() []string {
	out := make([]string, len(n.addresses))
	copy(out, n.addresses)
	return out
}

// Observations returns the member's rolling metric history.
func (n *ClusterNode) Observations() *ObservationHistory {
	return n.observations
}

// Address returns the first advertised URI using the given scheme.
func (n *ClusterNode) Address(scheme string) (string, error) {
	prefix := scheme + "://"
	for _, a := range n.addresses {
		if strings.HasPrefix(a, prefix) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w %q on member %s", ErrNoAddress, scheme, n.id)
}

// BoltAddress returns the member's procedure-protocol address.
func (n *ClusterNode) BoltAddress() (string, error) {
	return n.Address(SchemeBolt)
}

// HTTPAddress returns the member's http address, falling back to https.
func (n *ClusterNode) HTTPAddress() (string, error) {
	if a, err := n.Address(SchemeHTTP); err == nil {
		return a, nil
	}
	return n.Address(SchemeHTTPS)
}

// Key identifies the member in diagnostics output: the bolt address when
// there is one, otherwise the id.
func (n *ClusterNode) Key() string {
	if a, err := n.BoltAddress(); err == nil {
		return a
	}
	return n.id
}

// Label is the host name of the bolt address, used as a short display name.
func (n *ClusterNode) Label() string {
	a, err := n.BoltAddress()
	if err != nil {
		return n.id
	}
	u, err := url.Parse(a)
	if err != nil || u.Hostname() == "" {
		return a
	}
	return u.Hostname()
}

// Protocols lists the distinct schemes the member advertises, in address order.
func (n *ClusterNode) Protocols() []string {
	seen := make(map[string]bool, len(n.addresses))
	var out []string
	for _, a := range n.addresses {
		i := strings.Index(a, "://")
		if i <= 0 {
			continue
		}
		p := a[:i]
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func stringValue(src NodeSource, key string) string {
	v, ok := src.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}
