package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/systemshift/crmgraph/internal/server/graph"
)

// Config holds all service configuration
type Config struct {
	// Server settings
	Port            string        `env:"PORT" envDefault:"8080"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Graph store settings
	Backend           string `env:"GRAPH_BACKEND" envDefault:"neo4j"`
	EdgePolicy        string `env:"EDGE_POLICY" envDefault:"placeholder"`
	EnsureConstraints bool   `env:"ENSURE_CONSTRAINTS" envDefault:"true"`
	BreakerEnabled    bool   `env:"BREAKER_ENABLED" envDefault:"true"`
	Neo4j             Neo4jConfig
	SQLitePath        string `env:"SQLITE_PATH" envDefault:"crmgraph.db"`

	// Entity registry extensions (YAML)
	RegistryFile string `env:"ENTITY_REGISTRY_FILE"`

	// Outbound change events
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
	NotifyBuffer     int    `env:"NOTIFY_BUFFER" envDefault:"1000"`
}

// Neo4jConfig holds Neo4j connection settings
type Neo4jConfig struct {
	URI      string `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`
	Username string `env:"NEO4J_USERNAME" envDefault:"neo4j"`
	Password string `env:"NEO4J_PASSWORD"`
	Database string `env:"NEO4J_DATABASE" envDefault:"neo4j"`
}

// Backend names
const (
	BackendNeo4j  = "neo4j"
	BackendSQLite = "sqlite"
)

// Load reads .env files (if present) and then the environment
func Load(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		// missing files are fine; real environment always wins
		_ = godotenv.Load(f)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendNeo4j, BackendSQLite:
	default:
		return fmt.Errorf("GRAPH_BACKEND must be %s or %s, got %q", BackendNeo4j, BackendSQLite, c.Backend)
	}
	if _, err := graph.ParseEdgePolicy(c.EdgePolicy); err != nil {
		return fmt.Errorf("EDGE_POLICY: %w", err)
	}
	if c.Backend == BackendNeo4j && c.Neo4j.URI == "" {
		return fmt.Errorf("NEO4J_URI is required for the neo4j backend")
	}
	if c.Backend == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
	}
	return nil
}

// Policy returns the parsed edge policy
func (c *Config) Policy() graph.EdgePolicy {
	p, _ := graph.ParseEdgePolicy(c.EdgePolicy)
	return p
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
