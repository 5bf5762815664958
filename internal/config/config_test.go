package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:    "123:abc",
			AdminIDs: []int64{100},
			Timezone: "Europe/Moscow",
		},
		Database: DatabaseConfig{Path: "test.db"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Dispatch: DispatchConfig{
			Interval:          30 * time.Second,
			AutoDeleteHorizon: 48 * time.Hour,
			RecentLimit:       10,
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Telegram.Token = "" },
			wantErr: true,
		},
		{
			name:    "no admin ids",
			mutate:  func(c *Config) { c.Telegram.AdminIDs = nil },
			wantErr: true,
		},
		{
			name:    "negative admin id",
			mutate:  func(c *Config) { c.Telegram.AdminIDs = []int64{-5} },
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Telegram.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "horizon beyond telegram limit",
			mutate:  func(c *Config) { c.Dispatch.AutoDeleteHorizon = 72 * time.Hour },
			wantErr: true,
		},
		{
			name:    "sub-second dispatch interval",
			mutate:  func(c *Config) { c.Dispatch.Interval = 100 * time.Millisecond },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if got := cfg.Location().String(); got != "Europe/Moscow" {
		t.Errorf("Location() = %q, want Europe/Moscow", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("BOT_TELEGRAM_ADMIN_IDS", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Dispatch.Interval != DefaultDispatchInterval {
		t.Errorf("dispatch interval = %v, want %v", cfg.Dispatch.Interval, DefaultDispatchInterval)
	}
	if cfg.Dispatch.AutoDeleteHorizon != DefaultAutoDeleteHorizon {
		t.Errorf("auto-delete horizon = %v, want %v", cfg.Dispatch.AutoDeleteHorizon, DefaultAutoDeleteHorizon)
	}
	if cfg.Telegram.Timezone != DefaultTimezone {
		t.Errorf("timezone = %q, want %q", cfg.Telegram.Timezone, DefaultTimezone)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("log format = %q, want %q", cfg.Log.Format, DefaultLogFormat)
	}
}
