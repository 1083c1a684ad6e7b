package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Operation names used as transaction metadata
const (
	OpNodeBatch     = "node_batch"
	OpRelationBatch = "relation_batch"
	OpIndexCreation = "index_creation"
	OpLoaderConfig  = "loader_config"
	OpNodeCount     = "node_count"
)

// TransactionConfig defines timeout and metadata for transactions
//
// Transaction metadata is logged by Neo4j and visible in query.log
// This helps with debugging slow queries and categorizing operations.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns recommended configs per operation type
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		// Node batches carry every attribute of up to a few thousand nodes
		OpNodeBatch: {
			Timeout: 3 * time.Minute,
			Metadata: map[string]any{
				"operation": OpNodeBatch,
				"type":      "write",
			},
		},

		// Relation batches match two endpoints per row
		OpRelationBatch: {
			Timeout: 5 * time.Minute,
			Metadata: map[string]any{
				"operation": OpRelationBatch,
				"type":      "write",
			},
		},

		// Index creation can be slow on large graphs
		OpIndexCreation: {
			Timeout: 5 * time.Minute,
			Metadata: map[string]any{
				"operation": OpIndexCreation,
				"type":      "schema",
			},
		},

		OpLoaderConfig: {
			Timeout: 30 * time.Second,
			Metadata: map[string]any{
				"operation": OpLoaderConfig,
				"type":      "write",
			},
		},

		// Counts scan one label index
		OpNodeCount: {
			Timeout: 2 * time.Minute,
			Metadata: map[string]any{
				"operation": OpNodeCount,
				"type":      "read",
			},
		},
	}
}

// AsNeo4jConfig converts to Neo4j transaction config functions
// Use with ExecuteRead/ExecuteWrite
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	configs := []func(*neo4j.TransactionConfig){}

	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}

	return configs
}

// GetConfigForOperation retrieves the appropriate transaction config
// Returns default config if operation not found
func GetConfigForOperation(operation string) TransactionConfig {
	if config, ok := DefaultTransactionConfigs()[operation]; ok {
		return config
	}

	return TransactionConfig{
		Timeout: 60 * time.Second,
		Metadata: map[string]any{
			"operation": operation,
			"type":      "unknown",
		},
	}
}

// WithCustomMetadata creates a config with custom metadata
func (tc TransactionConfig) WithCustomMetadata(key string, value any) TransactionConfig {
	newConfig := TransactionConfig{
		Timeout:  tc.Timeout,
		Metadata: make(map[string]any, len(tc.Metadata)+1),
	}
	for k, v := range tc.Metadata {
		newConfig.Metadata[k] = v
	}
	newConfig.Metadata[key] = value

	return newConfig
}

// WithTimeout creates a config with a custom timeout
func (tc TransactionConfig) WithTimeout(timeout time.Duration) TransactionConfig {
	return TransactionConfig{
		Timeout:  timeout,
		Metadata: tc.Metadata,
	}
}
