package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rbramwell/halin/internal/client"
	"github.com/rbramwell/halin/internal/metrics"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/query"
)

// SingleDatabase is the database name given to a synthesized single member.
const SingleDatabase = "default"

// DiscoveryError means the topology could not be determined at all.
type DiscoveryError struct {
	Seed string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery via %s failed: %v", e.Seed, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Discover asks seed for the cluster overview and returns the members in
// result order. A server without the overview procedure is modelled as a
// one-member cluster with role SINGLE, a generated id, seedAddrs as its
// addresses and database "default". Any other failure is a *DiscoveryError.
func Discover(ctx context.Context, seed client.Driver, seedAddrs []string, historySize int) ([]*model.ClusterNode, error) {
	res, err := seed.Run(ctx, query.ClusterOverview.Cypher, nil)
	if err != nil {
		if !client.IsProcedureNotFound(err) {
			metrics.Discoveries.WithLabelValues("error").Inc()
			return nil, &DiscoveryError{Seed: seed.Target(), Err: client.Classify(err)}
		}
		n, err := model.NewClusterNode(model.NodeRecord{
			ID:        uuid.NewString(),
			Addresses: seedAddrs,
			Role:      string(model.RoleSingle),
			Database:  SingleDatabase,
		}, historySize)
		if err != nil {
			return nil, &DiscoveryError{Seed: seed.Target(), Err: err}
		}
		metrics.Discoveries.WithLabelValues("single").Inc()
		metrics.ClusterMembers.Set(1)
		return []*model.ClusterNode{n}, nil
	}

	if len(res.Rows) == 0 {
		metrics.Discoveries.WithLabelValues("error").Inc()
		return nil, &DiscoveryError{Seed: seed.Target(), Err: fmt.Errorf("cluster overview returned no members")}
	}

	nodes := make([]*model.ClusterNode, 0, len(res.Rows))
	for i, row := range res.Rows {
		n, err := model.NewClusterNode(row, historySize)
		if err != nil {
			return nil, &DiscoveryError{Seed: seed.Target(), Err: fmt.Errorf("overview row %d: %w", i, err)}
		}
		nodes = append(nodes, n)
	}
	metrics.Discoveries.WithLabelValues("cluster").Inc()
	metrics.ClusterMembers.Set(float64(len(nodes)))
	return nodes, nil
}
