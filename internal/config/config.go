package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Graph store connection
	Neo4j Neo4jConfig `yaml:"neo4j" mapstructure:"neo4j"`

	// Identity cache backend
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`

	// Protein accession lookup table
	Accession AccessionConfig `yaml:"accession" mapstructure:"accession"`

	// Load job settings
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`

	// Logging
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

type Neo4jConfig struct {
	URI         string `yaml:"uri" mapstructure:"uri"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Database    string `yaml:"database" mapstructure:"database"`
	MaxPoolSize int    `yaml:"max_pool_size" mapstructure:"max_pool_size"`
}

type IdentityConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"` // "bolt", "redis"
	Path        string `yaml:"path" mapstructure:"path"`       // bolt file
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
	RedisDB     int    `yaml:"redis_db" mapstructure:"redis_db"`
}

type AccessionConfig struct {
	Driver  string   `yaml:"driver" mapstructure:"driver"` // "sqlite3", "postgres", "" disables the table
	DSN     string   `yaml:"dsn" mapstructure:"dsn"`
	XrefDBs []string `yaml:"xref_dbs" mapstructure:"xref_dbs"` // xref databases holding accessions

	// Tab-separated alias -> accession file consulted before the table
	AliasFile string `yaml:"alias_file" mapstructure:"alias_file"`
}

type IngestConfig struct {
	BatchProfile    string   `yaml:"batch_profile" mapstructure:"batch_profile"` // "default", "small", "large"
	BatchSize       int      `yaml:"batch_size" mapstructure:"batch_size"`       // overrides the profile when > 0
	XrefFilter      []string `yaml:"xref_filter" mapstructure:"xref_filter"`
	WritesPerSecond float64  `yaml:"writes_per_second" mapstructure:"writes_per_second"`
}

type LogConfig struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"` // "text", "json"
	File      string `yaml:"file" mapstructure:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Neo4j: Neo4jConfig{
			URI:         "bolt://localhost:7687",
			User:        "neo4j",
			Database:    "neo4j",
			MaxPoolSize: 50,
		},
		Identity: IdentityConfig{
			Backend:     "bolt",
			Path:        filepath.Join(homeDir, ".pathgraph", "identity.db"),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "pathgraph",
		},
		Accession: AccessionConfig{},
		Ingest: IngestConfig{
			BatchProfile: "default",
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 100,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults key by key so partial files and PATHGRAPH_* variables
	// merge with them
	cfg := Default()
	setDefaults(v, cfg)

	// Load from environment variables (PATHGRAPH_NEO4J_URI, ...)
	v.SetEnvPrefix("PATHGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath(".pathgraph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".pathgraph"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	cfg.Identity.Path = expandPath(cfg.Identity.Path)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Accession.AliasFile = expandPath(cfg.Accession.AliasFile)

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("neo4j.uri", cfg.Neo4j.URI)
	v.SetDefault("neo4j.user", cfg.Neo4j.User)
	v.SetDefault("neo4j.password", cfg.Neo4j.Password)
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)
	v.SetDefault("neo4j.max_pool_size", cfg.Neo4j.MaxPoolSize)

	v.SetDefault("identity.backend", cfg.Identity.Backend)
	v.SetDefault("identity.path", cfg.Identity.Path)
	v.SetDefault("identity.redis_addr", cfg.Identity.RedisAddr)
	v.SetDefault("identity.redis_prefix", cfg.Identity.RedisPrefix)
	v.SetDefault("identity.redis_db", cfg.Identity.RedisDB)

	v.SetDefault("accession.driver", cfg.Accession.Driver)
	v.SetDefault("accession.dsn", cfg.Accession.DSN)
	v.SetDefault("accession.xref_dbs", cfg.Accession.XrefDBs)
	v.SetDefault("accession.alias_file", cfg.Accession.AliasFile)

	v.SetDefault("ingest.batch_profile", cfg.Ingest.BatchProfile)
	v.SetDefault("ingest.batch_size", cfg.Ingest.BatchSize)
	v.SetDefault("ingest.xref_filter", cfg.Ingest.XrefFilter)
	v.SetDefault("ingest.writes_per_second", cfg.Ingest.WritesPerSecond)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			// godotenv never overwrites variables that are already set
			_ = godotenv.Load(file)
		}
	}

	// Also try loading from home directory
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".pathgraph", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	// Neo4j configuration
	cfg.Neo4j.URI = GetString("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = GetString("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = GetString("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = GetString("NEO4J_DATABASE", cfg.Neo4j.Database)

	// Identity cache configuration
	cfg.Identity.Backend = GetString("IDENTITY_BACKEND", cfg.Identity.Backend)
	if path := os.Getenv("IDENTITY_PATH"); path != "" {
		cfg.Identity.Path = expandPath(path)
	}
	cfg.Identity.RedisAddr = GetString("REDIS_ADDR", cfg.Identity.RedisAddr)

	// Accession table configuration
	cfg.Accession.Driver = GetString("ACCESSION_DRIVER", cfg.Accession.Driver)
	cfg.Accession.DSN = GetString("ACCESSION_DSN", cfg.Accession.DSN)
	cfg.Accession.AliasFile = GetString("ACCESSION_ALIAS_FILE", cfg.Accession.AliasFile)

	// Ingest configuration
	cfg.Ingest.BatchSize = GetInt("BATCH_SIZE", cfg.Ingest.BatchSize)
	cfg.Ingest.WritesPerSecond = GetFloat("WRITES_PER_SECOND", cfg.Ingest.WritesPerSecond)
	if filter := os.Getenv("XREF_FILTER"); filter != "" {
		cfg.Ingest.XrefFilter = SplitList(filter)
	}

	// Logging configuration
	cfg.Log.Level = GetString("LOG_LEVEL", cfg.Log.Level)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file. The Neo4j password is never written.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	neo4j := c.Neo4j
	neo4j.Password = ""

	// Convert struct to map for Viper
	v.Set("neo4j", neo4j)
	v.Set("identity", c.Identity)
	v.Set("accession", c.Accession)
	v.Set("ingest", c.Ingest)
	v.Set("log", c.Log)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write config file
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
