package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"
	_ "time/tzdata"

	pkgconfig "github.com/trungse123/review-backend/pkg/config"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Media drivers.
const (
	MediaLocal  = "local"
	MediaS3     = "s3"
	MediaMemory = "memory"
)

// Rewards transports.
const (
	RewardsHTTP  = "http"
	RewardsKafka = "kafka"
	RewardsNone  = "none"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"REVIEW_HTTP_PORT" envDefault:"8015"`

	// Review store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"review"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"review_secret"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"review_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// MongoDB
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" envDefault:"reviews"`

	// Redis backs the cooldown reservation; without it reservations are
	// process-local.
	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Purchase verification (order API). Empty URL disables verification.
	PurchaseVerifyURL       string `env:"PURCHASE_VERIFY_URL" envDefault:""`
	PurchaseVerifyToken     string `env:"PURCHASE_VERIFY_TOKEN" envDefault:""`
	PurchaseVerifyTimeoutMs int    `env:"PURCHASE_VERIFY_TIMEOUT_MS" envDefault:"3000"`

	// Loyalty rewards
	RewardsTransport   string `env:"REWARDS_TRANSPORT" envDefault:"none"`
	RewardsURL         string `env:"REWARDS_URL" envDefault:""`
	RewardsToken       string `env:"REWARDS_TOKEN" envDefault:""`
	RewardsMaxAttempts uint   `env:"REWARDS_MAX_ATTEMPTS" envDefault:"4"`

	// Circuit breaker settings for outbound calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Media storage
	MediaDriver    string `env:"MEDIA_DRIVER" envDefault:"local"`
	MediaLocalDir  string `env:"MEDIA_LOCAL_DIR" envDefault:"uploads"`
	MediaBaseURL   string `env:"MEDIA_BASE_URL" envDefault:""`
	MediaS3Bucket  string `env:"MEDIA_S3_BUCKET" envDefault:""`
	MediaS3Region  string `env:"MEDIA_S3_REGION" envDefault:"ap-southeast-1"`
	MediaCDNDomain string `env:"MEDIA_CDN_DOMAIN" envDefault:""`
	// MediaS3Endpoint points at an S3-compatible store such as MinIO.
	MediaS3Endpoint string `env:"MEDIA_S3_ENDPOINT" envDefault:""`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Per-IP limit on the create endpoint. Zero disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`

	// Calendar used for the daily and monthly quota windows.
	QuotaTimezone string `env:"QUOTA_TIMEZONE" envDefault:"Asia/Ho_Chi_Minh"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, ".env"); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !slices.Contains([]string{StorePostgres, StoreMongo, StoreMemory}, c.StoreDriver) {
		return fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory, got %q", c.StoreDriver)
	}
	if c.StoreDriver == StorePostgres && c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.StoreDriver == StoreMongo && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.PurchaseVerifyURL != "" {
		if err := validURL(c.PurchaseVerifyURL); err != nil {
			return fmt.Errorf("PURCHASE_VERIFY_URL: %w", err)
		}
	}
	if c.PurchaseVerifyTimeoutMs <= 0 {
		return fmt.Errorf("PURCHASE_VERIFY_TIMEOUT_MS must be positive, got %d", c.PurchaseVerifyTimeoutMs)
	}

	switch c.RewardsTransport {
	case RewardsNone:
	case RewardsHTTP:
		if err := validURL(c.RewardsURL); err != nil {
			return fmt.Errorf("REWARDS_URL: %w", err)
		}
	case RewardsKafka:
		if !c.KafkaEnabled {
			return fmt.Errorf("REWARDS_TRANSPORT=kafka requires KAFKA_ENABLED")
		}
	default:
		return fmt.Errorf("REWARDS_TRANSPORT must be one of http, kafka, none, got %q", c.RewardsTransport)
	}
	if c.RewardsMaxAttempts == 0 {
		return fmt.Errorf("REWARDS_MAX_ATTEMPTS must be at least 1")
	}

	switch c.MediaDriver {
	case MediaLocal:
		if c.MediaLocalDir == "" {
			return fmt.Errorf("MEDIA_LOCAL_DIR is required")
		}
	case MediaS3:
		if c.MediaS3Bucket == "" {
			return fmt.Errorf("MEDIA_S3_BUCKET is required")
		}
	case MediaMemory:
	default:
		return fmt.Errorf("MEDIA_DRIVER must be one of local, s3, memory, got %q", c.MediaDriver)
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1")
	}
	if _, err := time.LoadLocation(c.QuotaTimezone); err != nil {
		return fmt.Errorf("invalid QUOTA_TIMEZONE %q: %w", c.QuotaTimezone, err)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// QuotaLocation returns the parsed quota timezone.
func (c *Config) QuotaLocation() *time.Location {
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// PurchaseVerifyTimeout returns the verification budget.
func (c *Config) PurchaseVerifyTimeout() time.Duration {
	return time.Duration(c.PurchaseVerifyTimeoutMs) * time.Millisecond
}

// MediaPublicURL returns the base URL media references are built from.
func (c *Config) MediaPublicURL() string {
	if c.MediaBaseURL != "" {
		return c.MediaBaseURL
	}
	return fmt.Sprintf("http://localhost:%d/uploads", c.HTTPPort)
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
