package observability

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/smallbiznis/invoicer/internal/config"
)

// Config holds observability configuration derived from environment variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

type observabilityEnv struct {
	Environment    string  `env:"DEPLOYMENT_ENV"`
	Version        string  `env:"SERVICE_VERSION"`
	LogLevel       string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string  `env:"LOG_FORMAT" envDefault:"json"`
	OtelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint       string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Protocol       string  `env:"OTEL_EXPORTER_OTLP_PROTOCOL" envDefault:"grpc"`
	TracesProtocol string  `env:"OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"`
	SamplingRatio  float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"0.1"`
}

func LoadConfig(cfg config.Config) (Config, error) {
	var raw observabilityEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, err
	}

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "invoicer"
	}
	environment := firstNonEmpty(raw.Environment, cfg.Environment)
	version := firstNonEmpty(raw.Version, cfg.AppVersion)
	endpoint := firstNonEmpty(raw.Endpoint, cfg.OTLPEndpoint)
	protocol := firstNonEmpty(raw.TracesProtocol, raw.Protocol)

	return Config{
		ServiceName:          serviceName,
		Environment:          environment,
		Version:              version,
		LogLevel:             strings.ToLower(strings.TrimSpace(raw.LogLevel)),
		LogFormat:            strings.ToLower(strings.TrimSpace(raw.LogFormat)),
		OtelEnabled:          raw.OtelEnabled,
		OtelExporterEndpoint: endpoint,
		OtelExporterProtocol: strings.ToLower(protocol),
		OtelSamplingRatio:    raw.SamplingRatio,
	}, nil
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
