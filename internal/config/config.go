// Package config loads settings from a TOML file and BUDGETFORECAST_ env vars.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Account  AccountConfig
	Matching MatchingConfig
	Forecast ForecastConfig
	Log      LogConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// AccountConfig names the single forecast account.
type AccountConfig struct {
	Name     string
	Currency string
}

// MatchingConfig holds the heuristic linking defaults.
type MatchingConfig struct {
	MinScore       float64 `mapstructure:"min_score"`
	AmountRatio    float64 `mapstructure:"amount_ratio"`
	DateWindowDays int     `mapstructure:"date_window_days"`
}

// ForecastConfig tunes actualization.
type ForecastConfig struct {
	PostponeHorizonDays int `mapstructure:"postpone_horizon_days"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string `mapstructure:"date_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "budgetforecast", "budgetforecast.db"))
	v.SetDefault("account.name", "Main")
	v.SetDefault("account.currency", "EUR")
	v.SetDefault("matching.min_score", 20.0)
	v.SetDefault("matching.amount_ratio", 0.05)
	v.SetDefault("matching.date_window_days", 5)
	v.SetDefault("forecast.postpone_horizon_days", 62)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ui.date_format", "2006-01-02")
}

// Path is where Load reads and Save writes.
func Path() string {
	if p := os.Getenv("BUDGETFORECAST_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "budgetforecast", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix BUDGETFORECAST_.
// A missing file leaves the defaults in place.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("BUDGETFORECAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", Path(), err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes cfg to Path, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("account.name", cfg.Account.Name)
	v.Set("account.currency", cfg.Account.Currency)
	v.Set("matching.min_score", cfg.Matching.MinScore)
	v.Set("matching.amount_ratio", cfg.Matching.AmountRatio)
	v.Set("matching.date_window_days", cfg.Matching.DateWindowDays)
	v.Set("forecast.postpone_horizon_days", cfg.Forecast.PostponeHorizonDays)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("ui.date_format", cfg.UI.DateFormat)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
