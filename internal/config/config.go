// Package config manages application configuration from config.yaml,
// BOT_* environment variables, and default values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultDBPath = "teleblast.db"

	// Broadcast times entered by admins are wall-clock in this zone.
	DefaultTimezone = "Europe/Moscow"

	DefaultDispatchInterval  = 30 * time.Second
	DefaultAutoDeleteHorizon = 48 * time.Hour
	DefaultRecentLimit       = 10

	DefaultWebappListen = ":8080"
)

// Config defines the application configuration. Values can be set via
// environment variables prefixed with BOT_ (e.g. BOT_TELEGRAM_TOKEN) or
// through config.yaml.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Webapp   WebappConfig   `mapstructure:"webapp"`
}

// TelegramConfig holds bot credentials and the admin seed list.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`

	// AdminIDs seed the administrator roster on startup. The first id
	// becomes super-admin when the roster has none yet.
	AdminIDs []int64 `mapstructure:"admin_ids" validate:"required,min=1,dive,gt=0"`

	// Timezone is the IANA zone broadcast times are interpreted in.
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// DispatchConfig holds scheduler loop settings.
type DispatchConfig struct {
	// Interval between dispatcher polls. Iterations never overlap; a slow
	// iteration delays the next one.
	Interval time.Duration `mapstructure:"interval" validate:"required,min=1s"`

	// AutoDeleteHorizon bounds how long after publication a broadcast may be
	// auto-deleted. Telegram caps bot deletions at 48 hours.
	AutoDeleteHorizon time.Duration `mapstructure:"auto_delete_horizon" validate:"required,min=1m,max=48h"`

	// RecentLimit is how many broadcasts list commands show.
	RecentLimit int `mapstructure:"recent_limit" validate:"required,min=1"`
}

// WebappConfig holds web panel settings. Credentials are only required when
// the web panel binary is run.
type WebappConfig struct {
	Listen   string `mapstructure:"listen"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file (optional)
// 3. BOT_* environment variables
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine, defaults plus env cover everything.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its struct tags and verifies the
// timezone resolves.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := time.LoadLocation(c.Telegram.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Telegram.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Telegram.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("database.path", DefaultDBPath)

	// Empty defaults so AutomaticEnv binds keys that only arrive via env.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_ids", []int64{})
	v.SetDefault("telegram.timezone", DefaultTimezone)

	v.SetDefault("dispatch.interval", DefaultDispatchInterval)
	v.SetDefault("dispatch.auto_delete_horizon", DefaultAutoDeleteHorizon)
	v.SetDefault("dispatch.recent_limit", DefaultRecentLimit)

	v.SetDefault("webapp.listen", DefaultWebappListen)
	v.SetDefault("webapp.username", "")
	v.SetDefault("webapp.password", "")
}
