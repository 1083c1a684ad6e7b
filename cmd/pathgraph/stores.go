package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rohankatakam/pathgraph/internal/accession"
	"github.com/rohankatakam/pathgraph/internal/config"
	perrors "github.com/rohankatakam/pathgraph/internal/errors"
	"github.com/rohankatakam/pathgraph/internal/graph"
	"github.com/rohankatakam/pathgraph/internal/identity"
)

// openIdentityStore opens the configured identity cache backend
func openIdentityStore(ctx context.Context, c config.IdentityConfig) (identity.Store, error) {
	switch c.Backend {
	case "bolt":
		store, err := identity.OpenBolt(c.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: c.RedisAddr,
			DB:   c.RedisDB,
		})
		store, err := identity.NewRedisStore(ctx, client, c.RedisPrefix)
		if err != nil {
			client.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown identity backend %q", c.Backend)
	}
}

// openGraphStore connects to Neo4j
func openGraphStore(ctx context.Context, c *config.Config) (*graph.Neo4jStore, error) {
	return graph.NewNeo4jStore(ctx, graph.Neo4jConfig{
		URI:             c.Neo4j.URI,
		User:            c.Neo4j.User,
		Password:        c.Neo4j.Password,
		Database:        c.Neo4j.Database,
		MaxPoolSize:     c.Neo4j.MaxPoolSize,
		WritesPerSecond: c.Ingest.WritesPerSecond,
	}, logger)
}

// resolverStack is the accession resolver chain of a load job together with
// what each configured source contributed.
type resolverStack struct {
	accession.Chain
	aliasFile    int // entries read from the alias file
	tableAliases int // rows in the accession table
	table        *accession.SQLResolver
}

// Close releases the accession table, if any
func (r *resolverStack) Close() error {
	if r.table == nil {
		return nil
	}
	return r.table.Close()
}

// buildResolver chains the xref resolver with the alias file and the
// accession table when they are configured.
func buildResolver(ctx context.Context, c config.AccessionConfig) (*resolverStack, error) {
	stack := &resolverStack{Chain: accession.Chain{accession.NewXrefResolver(c.XrefDBs...)}}

	if c.AliasFile != "" {
		aliases, err := accession.LoadAliasFile(c.AliasFile)
		if err != nil {
			return nil, perrors.ConfigError(err.Error())
		}
		stack.Chain = append(stack.Chain, aliases)
		stack.aliasFile = len(aliases)
	}

	if c.DSN == "" {
		return stack, nil
	}
	table, err := openAccessionTable(ctx, c)
	if err != nil {
		return nil, err
	}
	n, err := table.Count(ctx)
	if err != nil {
		table.Close()
		return nil, err
	}
	if n == 0 {
		logger.WithField("driver", c.Driver).Warn("Accession table is empty")
	}
	stack.Chain = append(stack.Chain, table)
	stack.table = table
	stack.tableAliases = n
	return stack, nil
}

// openAccessionTable connects to the accession table and creates it when missing
func openAccessionTable(ctx context.Context, c config.AccessionConfig) (*accession.SQLResolver, error) {
	table, err := accession.Open(c.Driver, c.DSN, logger)
	if err != nil {
		return nil, perrors.DatabaseError(err, "accession table unavailable")
	}
	if err := table.EnsureSchema(ctx); err != nil {
		table.Close()
		return nil, perrors.DatabaseError(err, "accession table unavailable")
	}
	return table, nil
}
