// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Upstreams UpstreamsConfig         `mapstructure:"upstreams"`
	Discovery DiscoveryConfig         `mapstructure:"discovery"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- External Upstreams ---

// UpstreamConfig holds settings for one external HTTP endpoint.
type UpstreamConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Timeout     int    `mapstructure:"timeout"`      // milliseconds
	MinInterval int    `mapstructure:"min_interval"` // milliseconds between calls
	MaxAttempts int    `mapstructure:"max_attempts"`
	UserAgent   string `mapstructure:"user_agent"`
}

type UpstreamsConfig struct {
	Geocoder  UpstreamConfig `mapstructure:"geocoder"`
	AreaQuery UpstreamConfig `mapstructure:"area_query"`
}

// --- Discovery Engine ---

type DiscoveryConfig struct {
	CacheTTL       int     `mapstructure:"cache_ttl"`     // seconds
	HotCacheTTL    int     `mapstructure:"hot_cache_ttl"` // seconds, redis tier
	TopN           int     `mapstructure:"top_n"`
	ElementLimit   int     `mapstructure:"element_limit"`
	BBoxPadding    float64 `mapstructure:"bbox_padding"` // degrees of longitude
	VenueCategory  string  `mapstructure:"venue_category"`
	ScoreDecayKm   float64 `mapstructure:"score_decay_km"`
	SuggestionsCap int     `mapstructure:"suggestions_cap"` // max rows returned by list queries
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
