package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPlanCatalogHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string `env:"APP_SERVICE" envDefault:"invoicer"`
	AppVersion  string `env:"APP_VERSION" envDefault:"0.1.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`

	// Defaults to a process-local in-memory store that is reset on restart.
	DBType            string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	DBHost            string `env:"DATABASE_HOST" envDefault:"localhost"`
	DBPort            string `env:"DATABASE_PORT" envDefault:"5432"`
	DBName            string `env:"DATABASE_NAME" envDefault:"invoicer"`
	DBUser            string `env:"DATABASE_USER" envDefault:"postgres"`
	DBPassword        string `env:"DATABASE_PASSWORD"`
	DBSSLMode         string `env:"DATABASE_SSLMODE" envDefault:"disable"`
	DBPath            string `env:"DATABASE_PATH" envDefault:"file::memory:?cache=shared"`
	DBMaxIdleConn     int    `env:"DATABASE_MAX_IDLE_CONN" envDefault:"5"`
	DBMaxOpenConn     int    `env:"DATABASE_MAX_OPEN_CONN" envDefault:"20"`
	DBConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"300"`
	DBConnMaxIdleTime int    `env:"DATABASE_CONN_MAX_IDLE_TIME" envDefault:"60"`

	AI        AIConfig
	RateLimit RateLimitConfig
	AMQP      AMQPConfig
	Invoice   InvoiceConfig
	Profile   ProfileConfig
	Scheduler SchedulerConfig

	PlansFile string `env:"PLANS_FILE"`
}

// AIConfig configures the hosted language model used by the flows.
type AIConfig struct {
	Provider string        `env:"AI_PROVIDER" envDefault:"openai"`
	APIKey   string        `env:"AI_API_KEY"`
	BaseURL  string        `env:"AI_BASE_URL"`
	Model    string        `env:"AI_MODEL" envDefault:"gpt-4o-mini"`
	Timeout  time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
}

type RateLimitConfig struct {
	Enabled       bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RedisAddr     string  `env:"REDIS_ADDR"`
	RedisPassword string  `env:"REDIS_PASSWORD"`
	RedisDB       int     `env:"REDIS_DB" envDefault:"0"`
	FlowRate      float64 `env:"RATE_LIMIT_FLOW_RATE" envDefault:"0.5"`
	FlowBurst     int     `env:"RATE_LIMIT_FLOW_BURST" envDefault:"5"`
}

type AMQPConfig struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"invoicer.events"`
	Queue    string `env:"AMQP_QUEUE" envDefault:"invoicer.invoices"`
}

type InvoiceConfig struct {
	NumberTemplate string `env:"INVOICE_NUMBER_TEMPLATE" envDefault:"INV-{YYYY}{MM}{DD}-{SEQ4}"`
	DefaultDueDays int    `env:"INVOICE_DEFAULT_DUE_DAYS" envDefault:"30"`
}

// SchedulerConfig drives the background past-due watch.
type SchedulerConfig struct {
	Enabled     bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	RunInterval time.Duration `env:"SCHEDULER_RUN_INTERVAL" envDefault:"1h"`
	JobTimeout  time.Duration `env:"SCHEDULER_JOB_TIMEOUT" envDefault:"30s"`
}

// ProfileConfig describes the business issuing invoices.
type ProfileConfig struct {
	CompanyName     string `env:"PROFILE_COMPANY_NAME" envDefault:"My Company"`
	Email           string `env:"PROFILE_EMAIL"`
	DefaultLanguage string `env:"PROFILE_DEFAULT_LANGUAGE" envDefault:"en"`
}

const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeMySQL    = "mysql"
)

// Load loads configuration from environment variables and .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DBType = normalizeDBType(cfg.DBType)
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.AI.APIKey = strings.TrimSpace(cfg.AI.APIKey)
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if cfg.Invoice.DefaultDueDays <= 0 {
		cfg.Invoice.DefaultDueDays = 30
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeDBType(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case DBTypePostgres, "postgresql", "pg":
		return DBTypePostgres
	case DBTypeMySQL:
		return DBTypeMySQL
	default:
		return DBTypeSQLite
	}
}
