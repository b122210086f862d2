package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/yungbote/observer-backend/internal/data/db"
	"github.com/yungbote/observer-backend/internal/observability"
	"github.com/yungbote/observer-backend/internal/services"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	LogMode string `env:"LOG_MODE" envDefault:"development"`

	DBDialect        string `env:"DB_DIALECT" envDefault:"postgres"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresName     string `env:"POSTGRES_NAME" envDefault:"observer"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	SQLitePath       string `env:"DB_SQLITE_PATH" envDefault:"tmp/observer.sqlite"`

	JWTSecretKey   string        `env:"JWT_SECRET_KEY,required"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`

	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	RedisChannel     string        `env:"REDIS_CHANNEL" envDefault:"observer:sse"`
	ProgressCacheTTL time.Duration `env:"PROGRESS_CACHE_TTL" envDefault:"30s"`

	LevelThresholds   string        `env:"LEVEL_THRESHOLDS"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	NotifyConcurrency int           `env:"NOTIFY_CONCURRENCY" envDefault:"8"`
	NpcReplyTimeout   time.Duration `env:"NPC_REPLY_TIMEOUT" envDefault:"10s"`
	CatalogPath       string        `env:"CATALOG_PATH"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envSeparator:","`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"false"`

	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"observer-backend"`
	OtelEnvironment string  `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	OtelVersion     string  `env:"OTEL_SERVICE_VERSION"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch db.Dialect(strings.ToLower(strings.TrimSpace(c.DBDialect))) {
	case db.DialectPostgres, db.DialectSQLite:
	default:
		return fmt.Errorf("DB_DIALECT must be postgres or sqlite, got %q", c.DBDialect)
	}
	if len(strings.TrimSpace(c.JWTSecretKey)) < 16 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 16 characters")
	}
	if c.NotifyConcurrency <= 0 {
		return fmt.Errorf("NOTIFY_CONCURRENCY must be > 0")
	}
	if _, err := c.Levels(); err != nil {
		return err
	}
	return nil
}

// Levels builds the level table from LEVEL_THRESHOLDS, or the default.
func (c Config) Levels() (*services.LevelTable, error) {
	if strings.TrimSpace(c.LevelThresholds) == "" {
		return services.DefaultLevelTable(), nil
	}
	thresholds, err := services.ParseLevelThresholds(c.LevelThresholds)
	if err != nil {
		return nil, fmt.Errorf("LEVEL_THRESHOLDS: %w", err)
	}
	return services.NewLevelTable(thresholds)
}

func (c Config) DBOptions() db.Options {
	return db.Options{
		Dialect:          db.Dialect(c.DBDialect),
		PostgresHost:     c.PostgresHost,
		PostgresPort:     c.PostgresPort,
		PostgresUser:     c.PostgresUser,
		PostgresPassword: c.PostgresPassword,
		PostgresName:     c.PostgresName,
		PostgresSSLMode:  c.PostgresSSLMode,
		SQLitePath:       c.SQLitePath,
		MaxOpenConns:     c.DBMaxOpenConns,
	}
}

func (c Config) Otel() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.OtelEnabled,
		ServiceName: c.OtelServiceName,
		Environment: c.OtelEnvironment,
		Version:     c.OtelVersion,
		SampleRatio: c.OtelSampleRatio,
		Endpoint:    c.OtelEndpoint,
		Headers:     c.OtelHeaders,
		Insecure:    c.OtelInsecure,
	}
}
