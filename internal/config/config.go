package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds process configuration for planty.
// Values come from an optional YAML file; environment variables override them.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Care     CareConfig     `yaml:"care"`
	Merge    MergeConfig    `yaml:"merge"`
}

// DatabaseConfig selects the store. An empty DSN with the sqlite driver means
// the default per-user database path.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"PLANTY_DB_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"PLANTY_DB_DSN" env-default:""`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"PLANTY_LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"PLANTY_LOG_FORMAT" env-default:"console"`
}

// CareConfig holds the dashboard windows, in whole days.
type CareConfig struct {
	SoonWindowDays int `yaml:"soon_window_days" env:"PLANTY_SOON_WINDOW_DAYS" env-default:"7"`
	RecentDays     int `yaml:"recent_days" env:"PLANTY_RECENT_DAYS" env-default:"7"`
}

type MergeConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"PLANTY_MERGE_TIMEOUT" env-default:"10s"`
	Retries int           `yaml:"retries" env:"PLANTY_MERGE_RETRIES" env-default:"3"`
}

// SoonWindow is the due-soon window as a duration.
func (c CareConfig) SoonWindow() time.Duration {
	return time.Duration(c.SoonWindowDays) * 24 * time.Hour
}

// RecentWindow is the recently-cared window as a duration.
func (c CareConfig) RecentWindow() time.Duration {
	return time.Duration(c.RecentDays) * 24 * time.Hour
}

// Load reads path when it is non-empty and exists, then applies environment
// overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return cfg, cfg.validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read config from environment: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("postgres driver requires PLANTY_DB_DSN")
	}
	if c.Care.SoonWindowDays <= 0 {
		return fmt.Errorf("soon_window_days must be > 0")
	}
	if c.Care.RecentDays <= 0 {
		return fmt.Errorf("recent_days must be > 0")
	}
	if c.Merge.Timeout <= 0 {
		return fmt.Errorf("merge timeout must be > 0")
	}
	if c.Merge.Retries < 0 {
		return fmt.Errorf("merge retries must be >= 0")
	}
	return nil
}
