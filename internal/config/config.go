package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName       string
	AppVersion    string
	Environment   string
	SnowflakeNode int64

	HTTPAddr string

	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
	DBAutoMigrate     bool

	Redis RedisConfig
	SMTP  SMTPConfig
	NATS  NATSConfig

	WebhookTimeout time.Duration

	Sweep SweepConfig

	MetricCatalogPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

type NATSConfig struct {
	URL          string
	SMSSubject   string
	EmailSubject string
}

func (c NATSConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// ObservabilityConfig carries raw logging and OTLP settings; normalization happens in the observability package.
type ObservabilityConfig struct {
	LogLevel      string
	LogFormat     string
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
	// OtelEnabled is nil when OTEL_ENABLED is unset so the endpoint decides.
	OtelEnabled *bool
}

type SweepConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	LockTTL  time.Duration
	LockKey  string
	OrgID    int64

	// TriggerRate is manual triggers per second per organization; zero disables throttling.
	TriggerRate  float64
	TriggerBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:       getenv("APP_SERVICE", "fleetwatch"),
		AppVersion:    getenv("SERVICE_VERSION", getenv("APP_VERSION", "0.1.0")),
		Environment:   getenv("DEPLOYMENT_ENV", getenv("ENVIRONMENT", "development")),
		SnowflakeNode: getenvInt64("SNOWFLAKE_NODE", 1),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),

		Observability: ObservabilityConfig{
			LogLevel:      getenv("LOG_LEVEL", "info"),
			LogFormat:     getenv("LOG_FORMAT", "json"),
			OTLPEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", ""))),
			OTLPProtocol:  getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 1),
			OtelEnabled:   getenvOptionalBool("OTEL_ENABLED"),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "fleetwatch"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: getenvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		DBConnMaxIdleTime: getenvDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:     int(getenvInt64("SMTP_PORT", 587)),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "alerts@fleetwatch.local"),
		},
		NATS: NATSConfig{
			URL:          strings.TrimSpace(getenv("NATS_URL", "")),
			SMSSubject:   getenv("NATS_SMS_SUBJECT", "fleetwatch.notifications.sms"),
			EmailSubject: getenv("NATS_EMAIL_SUBJECT", "fleetwatch.notifications.email"),
		},

		WebhookTimeout: time.Duration(getenvInt64("WEBHOOK_TIMEOUT_SECONDS", 10)) * time.Second,

		Sweep: SweepConfig{
			Interval: getenvDuration("SWEEP_INTERVAL", time.Minute),
			Timeout:  getenvDuration("SWEEP_TIMEOUT", 5*time.Minute),
			LockTTL:  getenvDuration("SWEEP_LOCK_TTL", 10*time.Minute),
			LockKey:  getenv("SWEEP_LOCK_KEY", "fleetwatch:sweep"),
			OrgID:    getenvInt64("SWEEP_ORG_ID", 0),

			TriggerRate:  getenvFloat("SWEEP_TRIGGER_RATE", 0.1),
			TriggerBurst: int(getenvInt64("SWEEP_TRIGGER_BURST", 3)),
		},

		MetricCatalogPath: strings.TrimSpace(getenv("METRIC_CATALOG_PATH", "")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvOptionalBool(key string) *bool {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return nil
	}
	v := getenvBool(key, false)
	return &v
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// getenvDuration accepts Go durations ("90s") or bare seconds ("90").
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
