package engine

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rbramwell/halin/internal/client"
	"github.com/rbramwell/halin/internal/logging"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/query"
)

// ProbeCapabilities gathers the capability facts from seed. Every probe is
// best effort: a failure leaves its facts empty and is logged.
func ProbeCapabilities(ctx context.Context, seed client.Driver, clustered bool, log *logging.Logger) model.Capabilities {
	var (
		mu         sync.Mutex
		versions   []string
		edition    string
		procedures []string
		provider   string
		providerOK bool
		user       model.CurrentUser
	)

	warn := func(probe string, err error) {
		log.Warn("capability probe failed", "probe", probe, "addr", seed.Target(), "error", err)
	}

	var g errgroup.Group

	g.Go(func() error {
		res, err := seed.Run(ctx, query.DBMSComponents.Cypher, nil)
		if err != nil {
			warn(query.DBMSComponents.Name, err)
			return nil
		}
		for _, row := range res.Rows {
			if row.String("name") != "" && !strings.EqualFold(row.String("name"), "Neo4j Kernel") {
				continue
			}
			mu.Lock()
			versions = row.Strings("versions")
			edition = row.String("edition")
			mu.Unlock()
			break
		}
		return nil
	})

	g.Go(func() error {
		res, err := seed.Run(ctx, query.Procedures.Cypher, nil)
		if err != nil {
			warn(query.Procedures.Name, err)
			return nil
		}
		names := make([]string, 0, len(res.Rows))
		for _, row := range res.Rows {
			names = append(names, row.String("name"))
		}
		mu.Lock()
		procedures = names
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		res, err := seed.Run(ctx, query.AuthProvider.Cypher, nil)
		if err != nil {
			warn(query.AuthProvider.Name, err)
			return nil
		}
		if len(res.Rows) > 0 {
			mu.Lock()
			provider = res.Rows[0].String("value")
			providerOK = true
			mu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		res, err := seed.Run(ctx, query.ShowCurrentUser.Cypher, nil)
		if err != nil {
			warn(query.ShowCurrentUser.Name, err)
			return nil
		}
		row, err := res.Single()
		if err != nil {
			warn(query.ShowCurrentUser.Name, err)
			return nil
		}
		mu.Lock()
		user = model.CurrentUser{Username: row.String("username"), Roles: row.Strings("roles")}
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	nativeAuth := strings.Contains(strings.ToLower(provider), "native")
	if !providerOK {
		for _, p := range procedures {
			if p == "dbms.security.listUsers" {
				nativeAuth = true
				break
			}
		}
	}

	return model.NewCapabilities(versions, edition, procedures, nativeAuth, clustered, user)
}
