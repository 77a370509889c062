// Package config loads server settings from a YAML file and the environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/technopolitica/open-page/internal/logger"
)

// EnvPrefix prefixes every environment key, e.g. OPEN_PAGE_LOGGER_LEVEL for
// logger.level.
const EnvPrefix = "OPEN_PAGE"

type Config struct {
	Port      int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	PublicKey string        `mapstructure:"public_key" validate:"required,startswith=file://"`
	Logger    logger.Config `mapstructure:"logger"`
}

// Every key needs a default for AutomaticEnv to bind it during Unmarshal.
var defaults = map[string]any{
	"port":                   0,
	"public_key":             "",
	"logger.level":           "",
	"logger.format":          "",
	"logger.output":          "",
	"logger.env":             "",
	"logger.service_name":    "",
	"logger.service_version": "",
	"logger.with_caller":     false,
}

// Load reads the YAML file at path, if any, and overlays OPEN_PAGE_* variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// Validate fills logger defaults and checks every field.
func (cfg *Config) Validate() error {
	cfg.Logger.SetDefaults()
	err := validator.New().Struct(cfg)
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return fmt.Errorf("invalid configuration: %w", validationErrs)
	}
	return err
}
