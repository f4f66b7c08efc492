package observability

import (
	"strings"

	"github.com/smallbiznis/fleetwatch/internal/config"
)

// Config holds the normalized logging, tracing and metrics settings of a fleetwatch process.
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

func LoadConfig(cfg config.Config) Config {
	obs := cfg.Observability

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "fleetwatch"
	}

	// Sweeps are low volume; keep every trace unless told otherwise.
	ratio := obs.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	endpoint := strings.TrimSpace(obs.OTLPEndpoint)
	enabled := endpoint != ""
	if obs.OtelEnabled != nil {
		enabled = *obs.OtelEnabled
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             normalize(obs.LogLevel, "info"),
		LogFormat:            normalize(obs.LogFormat, "json"),
		OtelEnabled:          enabled,
		OtelExporterEndpoint: endpoint,
		OtelExporterProtocol: normalize(obs.OTLPProtocol, "grpc"),
		OtelSamplingRatio:    ratio,
	}
}

// Debug turns on verbose request logs and stack traces.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func normalize(value, def string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def
	}
	return value
}
