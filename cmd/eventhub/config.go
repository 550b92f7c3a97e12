package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"eventhub/internal/hub/loop"
	"eventhub/internal/hub/metrics"
	"eventhub/internal/hub/registry"
	"eventhub/internal/hub/tracing"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	Version        string `env:"EVENTHUB_VERSION" envDefault:"dev"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`

	Hub     registry.Config
	Loop    loop.Config
	Metrics metrics.ServerConfig
	Tracing tracing.Config
}

// loadConfig reads envFile, if present, into the process environment and
// then parses Config from it. Variables already set take precedence.
func loadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", level, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
