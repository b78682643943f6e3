package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full service configuration, read from the environment.
type Config struct {
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	Port            string        `envconfig:"PORT" default:"8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	RabbitMQURL     string        `envconfig:"RABBITMQ_URL"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	DB      DB      `ignored:"true"`
	Auth    Auth    `ignored:"true"`
	Tenancy Tenancy `ignored:"true"`
	AI      AI      `ignored:"true"`
	Redis   Redis   `ignored:"true"`
	S3      S3      `ignored:"true"`
}

// DB holds the PostgreSQL connection settings.
type DB struct {
	Host         string `envconfig:"DB_HOST"`
	Port         string `envconfig:"DB_PORT" default:"5432"`
	User         string `envconfig:"DB_USER"`
	Password     string `envconfig:"DB_PASSWORD"`
	Name         string `envconfig:"DB_NAME"`
	SSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	TimeZone     string `envconfig:"DB_TIMEZONE" default:"UTC"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
}

// Auth holds the JWT verification settings.
type Auth struct {
	Issuer          string        `envconfig:"AUTH_ISSUER"`
	JWKSURL         string        `envconfig:"AUTH_JWKS_URL"`
	Audience        string        `envconfig:"AUTH_AUD"`
	PermissionsFile string        `envconfig:"PERMISSIONS_FILE" default:"permissions.yml"`
	JWKSRefresh     time.Duration `envconfig:"AUTH_JWKS_REFRESH" default:"15m"`
}

// Tenancy controls how requests are mapped to tenants.
type Tenancy struct {
	BaseDomain  string `envconfig:"TENANT_BASE_DOMAIN" default:"localhost"`
	DevFallback bool   `envconfig:"TENANT_DEV_FALLBACK" default:"false"`
}

// AI configures the generative model client.
type AI struct {
	APIKey   string        `envconfig:"AI_API_KEY"`
	Model    string        `envconfig:"AI_MODEL" default:"gemini-2.0-flash"`
	Timeout  time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	CacheTTL time.Duration `envconfig:"AI_CACHE_TTL" default:"24h"`
}

// Redis configures the shared cache. An empty Addr disables caching.
type Redis struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	LockTTL  time.Duration `envconfig:"REDIS_LOCK_TTL" default:"35s"`
}

// S3 configures ID card archival. An empty Bucket disables archival.
type S3 struct {
	Bucket         string `envconfig:"S3_BUCKET"`
	Region         string `envconfig:"S3_REGION" default:"eu-central-1"`
	Endpoint       string `envconfig:"S3_ENDPOINT"`
	ForcePathStyle bool   `envconfig:"S3_FORCE_PATH_STYLE" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Sections carry fully qualified keys; processing them without a prefix
	// keeps envconfig from falling back to unprefixed names like USER or PORT.
	sections := []interface{}{&cfg.DB, &cfg.Auth, &cfg.Tenancy, &cfg.AI, &cfg.Redis, &cfg.S3}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects combinations that are unsafe to run.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Tenancy.DevFallback {
		return errors.New("TENANT_DEV_FALLBACK must not be enabled in production")
	}
	if c.AI.Timeout <= 0 {
		return errors.New("AI_TIMEOUT must be positive")
	}
	if c.Tenancy.BaseDomain == "" {
		return errors.New("TENANT_BASE_DOMAIN is required")
	}
	return nil
}

// Validate checks the connection settings needed to reach PostgreSQL.
func (d DB) Validate() error {
	if d.Host == "" || d.User == "" || d.Password == "" || d.Name == "" {
		return errors.New("missing required database environment variables")
	}
	return nil
}

// DSN renders a lib/pq connection string.
func (d DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.TimeZone,
	)
}
