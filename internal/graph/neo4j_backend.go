package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	perrors "github.com/rohankatakam/pathgraph/internal/errors"
	"github.com/rohankatakam/pathgraph/internal/model"
)

// Neo4jConfig holds connection and write settings
type Neo4jConfig struct {
	URI             string
	User            string
	Password        string
	Database        string
	MaxPoolSize     int
	WritesPerSecond float64 // 0 disables throttling
}

// Neo4jStore implements Store for Neo4j with parameterized UNWIND queries.
// Every write runs in its own managed transaction.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	limiter  *rate.Limiter
	logger   *logrus.Entry
}

// NewNeo4jStore connects to Neo4j and verifies connectivity
// Security: NEVER hardcode credentials
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig, logger *logrus.Logger) (*Neo4jStore, error) {
	if cfg.URI == "" || cfg.User == "" || cfg.Password == "" {
		return nil, perrors.ConfigErrorf("neo4j credentials missing: uri=%s, user=%s", cfg.URI, cfg.User)
	}
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = cfg.MaxPoolSize
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.ConnectionLivenessCheckTimeout = 5 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, perrors.DatabaseError(err, "failed to create neo4j driver")
	}

	// Verify connectivity (fail fast on startup)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, perrors.DatabaseErrorf(err, "failed to connect to neo4j at %s", cfg.URI)
	}

	s := &Neo4jStore{
		driver:   driver,
		database: cfg.Database,
		logger:   logger.WithField("component", "neo4j"),
	}
	if cfg.WritesPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), 1)
	}

	s.logger.WithFields(logrus.Fields{
		"uri":               cfg.URI,
		"database":          cfg.Database,
		"max_pool_size":     cfg.MaxPoolSize,
		"writes_per_second": cfg.WritesPerSecond,
	}).Info("Neo4j store connected")

	return s, nil
}

// CreateNodes merges nodes grouped by kind, one UNWIND round trip per group
func (s *Neo4jStore) CreateNodes(ctx context.Context, nodes []model.Node) error {
	for _, group := range GroupNodes(nodes) {
		query, err := BuildNodeMerge(group.Kind)
		if err != nil {
			return perrors.ValidationErrorf("cannot write %s nodes: %v", group.Kind, err)
		}
		rows, err := NodeRows(group.Nodes)
		if err != nil {
			return perrors.ValidationErrorf("cannot write %s nodes: %v", group.Kind, err)
		}

		written, err := s.writeRows(ctx, OpNodeBatch, query, rows)
		if err != nil {
			return perrors.DatabaseErrorf(err, "batch %s node creation failed (%d nodes)", group.Kind, len(rows))
		}
		s.logger.WithFields(logrus.Fields{
			"kind":    group.Kind.String(),
			"nodes":   len(rows),
			"written": written,
		}).Debug("Merged node group")
	}
	return nil
}

// MergeRelations merges relations grouped by kind triple. Rows whose
// endpoints are missing from the store match nothing and are reported.
func (s *Neo4jStore) MergeRelations(ctx context.Context, relations []model.Relation) error {
	for _, group := range GroupRelations(relations) {
		t := group.Triple
		query, err := BuildRelationMerge(t)
		if err != nil {
			return perrors.ValidationErrorf("cannot write %s relations: %v", t.Kind, err)
		}
		rows, err := RelationRows(group.Relations)
		if err != nil {
			return perrors.ValidationErrorf("cannot write %s relations: %v", t.Kind, err)
		}

		written, err := s.writeRows(ctx, OpRelationBatch, query, rows)
		if err != nil {
			return perrors.DatabaseErrorf(err, "batch %s relation merge failed (%s->%s, %d relations)",
				t.Kind, t.OriginKind, t.DestKind, len(rows))
		}
		if written < int64(len(rows)) {
			s.logger.WithFields(logrus.Fields{
				"relation": string(t.Kind),
				"from":     t.OriginKind.String(),
				"to":       t.DestKind.String(),
				"rows":     len(rows),
				"written":  written,
			}).Warn("Some relation endpoints were not found in the store")
		}
	}
	return nil
}

// LastSurrogateKey implements Store
func (s *Neo4jStore) LastSurrogateKey(ctx context.Context) (uint64, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	tc := GetConfigForOperation(OpLoaderConfig)
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (c:LoaderConfig {name: $name}) RETURN c.last_surrogate_key AS last",
			map[string]any{"name": LoaderConfigName})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return int64(0), res.Err()
		}
		last, _ := res.Record().Get("last")
		v, _ := last.(int64)
		return v, nil
	}, tc.AsNeo4jConfig()...)
	if err != nil {
		return 0, perrors.DatabaseError(err, "failed to read loader config record")
	}

	v, _ := result.(int64)
	if v < 0 {
		return 0, perrors.DatabaseErrorf(fmt.Errorf("negative value %d", v), "loader config record is corrupt")
	}
	return uint64(v), nil
}

// CountNodes returns the number of nodes whose primary kind is kind
func (s *Neo4jStore) CountNodes(ctx context.Context, kind model.NodeKind) (int64, error) {
	query, err := BuildNodeCount(kind)
	if err != nil {
		return 0, perrors.ValidationErrorf("cannot count %s nodes: %v", kind, err)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	tc := GetConfigForOperation(OpNodeCount).WithCustomMetadata("label", kind.String())
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		var count int64
		if res.Next(ctx) {
			if v, ok := res.Record().Get("count"); ok {
				count, _ = v.(int64)
			}
		}
		return count, res.Err()
	}, tc.AsNeo4jConfig()...)
	if err != nil {
		return 0, perrors.DatabaseErrorf(err, "failed to count %s nodes", kind)
	}

	count, _ := result.(int64)
	return count, nil
}

// SaveLastSurrogateKey implements Store. The record only ever grows.
func (s *Neo4jStore) SaveLastSurrogateKey(ctx context.Context, key uint64) error {
	value, err := storeKey(key)
	if err != nil {
		return perrors.ValidationErrorf("cannot persist high-water mark: %v", err)
	}

	query := `MERGE (c:LoaderConfig {name: $name})
SET c.last_surrogate_key = CASE
  WHEN c.last_surrogate_key IS NULL OR c.last_surrogate_key < $value THEN $value
  ELSE c.last_surrogate_key
END,
c.updated_at = datetime()`

	_, err = s.write(ctx, OpLoaderConfig, query, map[string]any{"name": LoaderConfigName, "value": value})
	if err != nil {
		return perrors.DatabaseError(err, "failed to write loader config record")
	}
	return nil
}

// EnsureIndexes implements Store
func (s *Neo4jStore) EnsureIndexes(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT loader_config_name IF NOT EXISTS FOR (c:LoaderConfig) REQUIRE c.name IS UNIQUE",
	}
	for _, kind := range model.PrimaryKinds() {
		stmt, err := BuildIndex(kind)
		if err != nil {
			return perrors.InternalErrorf("index for %s: %v", kind, err)
		}
		statements = append(statements, stmt)
	}

	for _, stmt := range statements {
		if _, err := s.write(ctx, OpIndexCreation, stmt, nil); err != nil {
			return perrors.DatabaseErrorf(err, "failed to create index: %s", stmt)
		}
	}
	s.logger.WithField("statements", len(statements)).Info("Indexes ensured")
	return nil
}

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return perrors.DatabaseError(err, "failed to close neo4j driver")
	}
	return nil
}

func (s *Neo4jStore) writeRows(ctx context.Context, op, query string, rows []map[string]any) (int64, error) {
	return s.write(ctx, op, query, map[string]any{"rows": rows})
}

// write runs one statement in a managed write transaction and returns the
// "written" column of its single record, if any
func (s *Neo4jStore) write(ctx context.Context, op, query string, params map[string]any) (int64, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	tc := GetConfigForOperation(op)
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var written int64
		if res.Next(ctx) {
			if v, ok := res.Record().Get("written"); ok {
				written, _ = v.(int64)
			}
		}
		return written, res.Err()
	}, tc.AsNeo4jConfig()...)
	if err != nil {
		return 0, err
	}

	written, _ := result.(int64)
	return written, nil
}
