// Package config provides unified configuration for the glatt service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (GLATT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the glatt service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Batch         BatchConfig         `yaml:"batch"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Debug         DebugConfig         `yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// BatchConfig holds batch runner settings. The field and mode entries are
// server-side defaults applied when a request leaves them unset.
type BatchConfig struct {
	// MaxRecords caps the number of records accepted per run. Default: 1000.
	MaxRecords int `yaml:"max_records"`

	// InputField is the default field holding the response document. Default: "data".
	InputField string `yaml:"input_field"`

	// OutputField is the default field the result is written to. Default: "data".
	OutputField string `yaml:"output_field"`

	// ProcessAllItems defaults the batch scope. Unset means all records.
	ProcessAllItems *bool `yaml:"process_all_items"`

	// StrictMode, when true, makes strict mode the server default. A
	// request cannot lower it back to lenient.
	StrictMode bool `yaml:"strict_mode"`
}

// StorageConfig holds run persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`       // "none", "apikey" or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"`   // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`        // JWT settings for type=jwt
	RateLimit RateLimitConfig `yaml:"rate_limit"` // optional per-tier rate limits
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	TenantID    string `yaml:"tenant_id"`
	ServiceTier string `yaml:"service_tier"`
}

// JWTConfig holds JWT/OIDC validation settings.
type JWTConfig struct {
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	JWKSURL     string `yaml:"jwks_url"`
	UserClaim   string `yaml:"user_claim"`   // default: "sub"
	TenantClaim string `yaml:"tenant_claim"` // default: "tenant_id"
}

// RateLimitConfig holds in-process rate limiter settings.
type RateLimitConfig struct {
	Enabled    bool           `yaml:"enabled"`
	DefaultRPM int            `yaml:"default_rpm"` // default: 0 (unlimited)
	Tiers      map[string]int `yaml:"tiers"`       // tier name -> requests per minute
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// DebugConfig holds debug logging settings. Environment variables
// (GLATT_DEBUG, GLATT_LOG_LEVEL) take precedence over these.
type DebugConfig struct {
	Categories string `yaml:"categories"` // comma-separated, e.g. "batch,normalize"
	Level      string `yaml:"level"`      // ERROR, WARN, INFO, DEBUG or TRACE
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Batch: BatchConfig{
			MaxRecords:  1000,
			InputField:  "data",
			OutputField: "data",
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
