package config

import (
	"fmt"
	"net/url"

	pkgconfig "github.com/IntegratedRai444/zipzydeliver-sub001/pkg/config"
)

// Config holds all configuration for the notification engine.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"NOTIFICATION_HTTP_PORT" envDefault:"8012"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"zipzy"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"zipzy_secret"`
	PostgresDB   string `env:"NOTIFICATION_DB_NAME" envDefault:"notification_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis backs the consumed-event dedup store. Optional: with no
	// REDIS_HOST the engine tracks seen event IDs in process memory,
	// which is fine for a single instance but not across replicas.
	RedisHost     string `env:"REDIS_HOST" envDefault:""`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Dedup window for consumed platform events.
	EventDedupTTLHours int `env:"EVENT_DEDUP_TTL_HOURS" envDefault:"24"`

	// Engine tunables. Payloads expire after NOTIFICATION_EXPIRY_HOURS,
	// bounding how stale a quiet-hours deferral may get; the scheduler
	// re-checks deferred payloads every SWEEP_INTERVAL_SECONDS.
	PayloadExpiryHours   int `env:"NOTIFICATION_EXPIRY_HOURS" envDefault:"24"`
	SweepIntervalSeconds int `env:"SWEEP_INTERVAL_SECONDS" envDefault:"30"`

	// Delivery history retention
	HistoryMaxEntries     int `env:"HISTORY_MAX_ENTRIES" envDefault:"1000"`
	HistoryRetentionDays  int `env:"HISTORY_RETENTION_DAYS" envDefault:"7"`
	HistoryCleanupMinutes int `env:"HISTORY_CLEANUP_MINUTES" envDefault:"360"`

	// Web Push (VAPID). With no key pair the push channel runs against a
	// logging stub, which keeps local development working without
	// registered browser endpoints.
	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY" envDefault:""`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY" envDefault:""`
	VAPIDSubscriber string `env:"VAPID_SUBSCRIBER" envDefault:"mailto:ops@zipzy.app"`

	// AWS transports (SNS for SMS, SES for email). With no AWS_REGION both
	// channels run against logging stubs.
	AWSRegion string `env:"AWS_REGION" envDefault:""`
	EmailFrom string `env:"NOTIFICATION_EMAIL_FROM" envDefault:"no-reply@zipzy.app"`

	// Contact directory for resolving phone numbers and email addresses.
	UserServiceURL string `env:"USER_SERVICE_URL" envDefault:"http://localhost:8006"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load notification config: %w", err)
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
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.PayloadExpiryHours < 1 {
		return fmt.Errorf("NOTIFICATION_EXPIRY_HOURS must be at least 1, got %d", c.PayloadExpiryHours)
	}
	if c.SweepIntervalSeconds < 1 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be at least 1, got %d", c.SweepIntervalSeconds)
	}
	if c.HistoryMaxEntries < 1 {
		return fmt.Errorf("HISTORY_MAX_ENTRIES must be at least 1, got %d", c.HistoryMaxEntries)
	}
	if c.HistoryRetentionDays < 1 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must be at least 1, got %d", c.HistoryRetentionDays)
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.UserServiceURL == "" {
		return fmt.Errorf("USER_SERVICE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.UserServiceURL); err != nil {
		return fmt.Errorf("invalid USER_SERVICE_URL %q: %w", c.UserServiceURL, err)
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// RedisEnabled reports whether a Redis endpoint has been configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// PushConfigured reports whether real Web Push credentials are present.
func (c *Config) PushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}
