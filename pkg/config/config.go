package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvLogLevel           = "STOREFRONT_LOG_LEVEL"
	EnvGatewayBaseURL     = "STOREFRONT_GATEWAY_BASE_URL"
	EnvGatewayTimeout     = "STOREFRONT_GATEWAY_TIMEOUT"
	EnvGatewayCartSchema  = "STOREFRONT_GATEWAY_CART_SCHEMA"
	EnvGatewayReadRetries = "STOREFRONT_GATEWAY_READ_RETRIES"
	EnvStorageBackend     = "STOREFRONT_STORAGE_BACKEND"
	EnvSQLitePath         = "STOREFRONT_SQLITE_PATH"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvRedisAddr          = "STOREFRONT_REDIS_ADDR"
	EnvSessionProfile     = "STOREFRONT_SESSION_PROFILE"
	EnvDiscardExpired     = "STOREFRONT_SESSION_DISCARD_EXPIRED"
)

// Storage backends for the persisted session.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Cart payload schemas understood by the gateway client.
const (
	CartSchemaV1 = "v1"
	CartSchemaV2 = "v2"
)

type Config struct {
	App     AppConfig
	Gateway GatewayConfig
	Storage StorageConfig
	Redis   RedisConfig
	Session SessionConfig
	Metrics MetricsConfig
	API     APIConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(cfg.Redis); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port            string        `envconfig:"STOREFRONT_APP_PORT" default:"8085"`
	LogLevel        string        `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type GatewayConfig struct {
	BaseURL      string        `envconfig:"STOREFRONT_GATEWAY_BASE_URL" required:"true"`
	Timeout      time.Duration `envconfig:"STOREFRONT_GATEWAY_TIMEOUT" default:"10s"`
	CartSchema   string        `envconfig:"STOREFRONT_GATEWAY_CART_SCHEMA" default:"v1"`
	ReadRetries  uint64        `envconfig:"STOREFRONT_GATEWAY_READ_RETRIES" default:"2"`
	RetryBackoff time.Duration `envconfig:"STOREFRONT_GATEWAY_RETRY_BACKOFF" default:"200ms"`
	Tracing      bool          `envconfig:"STOREFRONT_GATEWAY_TRACING" default:"false"`
}

// NormalizedCartSchema returns the lower-cased schema name.
func (g GatewayConfig) NormalizedCartSchema() string {
	return strings.ToLower(strings.TrimSpace(g.CartSchema))
}

func (g GatewayConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(g.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvGatewayBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvGatewayBaseURL)
	}
	switch g.NormalizedCartSchema() {
	case CartSchemaV1, CartSchemaV2:
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvGatewayCartSchema, CartSchemaV1, CartSchemaV2)
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvGatewayTimeout)
	}
	return nil
}

type StorageConfig struct {
	Backend    string `envconfig:"STOREFRONT_STORAGE_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`
}

// NormalizedBackend returns the lower-cased backend name.
func (s StorageConfig) NormalizedBackend() string {
	return strings.ToLower(strings.TrimSpace(s.Backend))
}

func (s StorageConfig) validate(redisCfg RedisConfig) error {
	switch s.NormalizedBackend() {
	case StorageMemory:
		return nil
	case StorageSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			return fmt.Errorf("%s is required for the sqlite backend", EnvSQLitePath)
		}
		return nil
	case StorageRedis:
		if redisCfg.URL == "" && redisCfg.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis backend", EnvRedisURL, EnvRedisAddr)
		}
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvStorageBackend, StorageMemory, StorageSQLite, StorageRedis)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	// Profile namespaces the persisted keys so several local profiles can share one backend.
	Profile        string `envconfig:"STOREFRONT_SESSION_PROFILE" default:"default"`
	DiscardExpired bool   `envconfig:"STOREFRONT_SESSION_DISCARD_EXPIRED" default:"true"`
}

// APIConfig tunes the local HTTP surface served to the UI.
type APIConfig struct {
	CORSOrigins      []string      `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
	AuthRateWindow   time.Duration `envconfig:"STOREFRONT_AUTH_RATE_WINDOW" default:"1m"`
	AuthRateIPLimit  int           `envconfig:"STOREFRONT_AUTH_RATE_IP_LIMIT" default:"30"`
	AuthRateMaxEmail int           `envconfig:"STOREFRONT_AUTH_RATE_EMAIL_LIMIT" default:"5"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
}
