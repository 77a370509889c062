// Package logger builds the process-wide zerolog logger from a validated Config.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Config struct {
	Level          string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format         string `mapstructure:"format" validate:"oneof=json console"`
	Output         string `mapstructure:"output" validate:"oneof=stdout stderr"`
	Env            string `mapstructure:"env" validate:"oneof=dev staging prod"`
	ServiceName    string `mapstructure:"service_name" validate:"required"`
	ServiceVersion string `mapstructure:"service_version"`
	WithCaller     bool   `mapstructure:"with_caller"`
}

func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	if c.ServiceName == "" {
		c.ServiceName = "open-page"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.1.0"
	}
	if !c.WithCaller && c.Env == "dev" {
		c.WithCaller = true
	}
}

// New returns a logger writing to the configured output.
func New(cfg *Config) (zerolog.Logger, error) {
	var out io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}
	return NewWithWriter(cfg, out)
}

// NewWithWriter is New with an explicit destination, used by tests.
func NewWithWriter(cfg *Config, out io.Writer) (logger zerolog.Logger, err error) {
	cfg.SetDefaults()
	if err = validator.New().Struct(cfg); err != nil {
		return logger, fmt.Errorf("logger config validation error: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return logger, err
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.ServiceVersion).
		Str("env", cfg.Env).
		Logger()
	if cfg.WithCaller {
		logger = logger.With().Caller().Logger()
	}
	return logger, nil
}
