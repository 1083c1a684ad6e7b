package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/pathgraph/internal/batch"
	perrors "github.com/rohankatakam/pathgraph/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextLoad - load writes to Neo4j and the identity cache
	ValidationContextLoad ValidationContext = "load"
	// ValidationContextDryRun - load --dry-run only needs the identity cache
	ValidationContextDryRun ValidationContext = "dry-run"
	// ValidationContextStats - identity stats only reads the identity cache
	ValidationContextStats ValidationContext = "stats"
	// ValidationContextSchema - init-schema only needs Neo4j
	ValidationContextSchema ValidationContext = "schema"
	// ValidationContextImport - accession import only needs the accession table
	ValidationContextImport ValidationContext = "import"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Err returns the result as a config error, or nil when valid
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return perrors.ConfigError(strings.TrimSpace(vr.Error()))
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextLoad:
		c.validateNeo4j(result)
		c.validateIdentity(result)
		c.validateAccession(result)
		c.validateIngest(result)
	case ValidationContextDryRun:
		c.validateIdentity(result)
		c.validateAccession(result)
		c.validateIngest(result)
	case ValidationContextStats:
		c.validateIdentity(result)
	case ValidationContextSchema:
		c.validateNeo4j(result)
	case ValidationContextImport:
		if c.Accession.DSN == "" {
			result.AddError("ACCESSION_DSN is required to import aliases")
		}
		c.validateAccession(result)
	default:
		result.AddError("unknown validation context %q", ctx)
	}
	c.validateLog(result)

	return result
}

func (c *Config) validateNeo4j(result *ValidationResult) {
	if c.Neo4j.URI == "" {
		result.AddError("NEO4J_URI is required but not set")
	} else if u, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	} else {
		switch u.Scheme {
		case "bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc":
		default:
			result.AddError("NEO4J_URI has unsupported scheme %q", u.Scheme)
		}
	}

	if c.Neo4j.User == "" {
		result.AddError("NEO4J_USER is required but not set")
	}

	if c.Neo4j.Password == "" {
		result.AddError("NEO4J_PASSWORD is required but not set. Set it via environment variable or .env file.")
	} else if c.Neo4j.Password == "neo4j" || c.Neo4j.Password == "password" {
		result.AddWarning("NEO4J_PASSWORD is set to a very common password (%s)", c.Neo4j.Password)
	}

	if c.Neo4j.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use the server default")
	}

	if c.Neo4j.MaxPoolSize < 0 {
		result.AddError("neo4j.max_pool_size must not be negative, got %d", c.Neo4j.MaxPoolSize)
	}
}

func (c *Config) validateIdentity(result *ValidationResult) {
	switch c.Identity.Backend {
	case "bolt":
		if c.Identity.Path == "" {
			result.AddError("IDENTITY_PATH is required for the bolt backend")
		}
	case "redis":
		if c.Identity.RedisAddr == "" {
			result.AddError("REDIS_ADDR is required for the redis backend")
		}
		if c.Identity.RedisPrefix == "" {
			result.AddWarning("identity.redis_prefix is empty, keys will share the database namespace")
		}
	default:
		result.AddError("IDENTITY_BACKEND must be bolt or redis, got %q", c.Identity.Backend)
	}
}

func (c *Config) validateAccession(result *ValidationResult) {
	if c.Accession.AliasFile != "" {
		if info, err := os.Stat(c.Accession.AliasFile); err != nil {
			result.AddError("ACCESSION_ALIAS_FILE %s is not readable: %v", c.Accession.AliasFile, err)
		} else if info.IsDir() {
			result.AddError("ACCESSION_ALIAS_FILE %s is a directory", c.Accession.AliasFile)
		}
	}

	if c.Accession.DSN == "" {
		if c.Accession.Driver != "" {
			result.AddWarning("ACCESSION_DRIVER is set without ACCESSION_DSN, the accession table is disabled")
		}
		return
	}
	switch c.Accession.Driver {
	case "sqlite3", "postgres":
	default:
		result.AddError("ACCESSION_DRIVER must be sqlite3 or postgres, got %q", c.Accession.Driver)
	}
}

func (c *Config) validateIngest(result *ValidationResult) {
	if c.Ingest.BatchSize < 0 {
		result.AddError("BATCH_SIZE must not be negative, got %d", c.Ingest.BatchSize)
	}
	if c.Ingest.BatchSize == 0 {
		if _, err := batch.ConfigForProfile(c.Ingest.BatchProfile); err != nil {
			result.AddError("ingest.batch_profile is invalid: %v", err)
		}
	}
	if c.Ingest.WritesPerSecond < 0 {
		result.AddError("WRITES_PER_SECOND must not be negative, got %.2f", c.Ingest.WritesPerSecond)
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		result.AddError("LOG_LEVEL is invalid: %v", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		result.AddError("log.format must be text or json, got %q", c.Log.Format)
	}
}

// BatchConfig resolves the accumulator thresholds from the ingest section
func (c *Config) BatchConfig() (batch.Config, error) {
	if c.Ingest.BatchSize > 0 {
		return batch.Uniform(c.Ingest.BatchSize), nil
	}
	return batch.ConfigForProfile(c.Ingest.BatchProfile)
}
