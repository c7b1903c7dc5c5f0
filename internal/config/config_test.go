package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("BUDGETFORECAST_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Main", cfg.Account.Name)
	require.Equal(t, "EUR", cfg.Account.Currency)
	require.Equal(t, 20.0, cfg.Matching.MinScore)
	require.Equal(t, 0.05, cfg.Matching.AmountRatio)
	require.Equal(t, 5, cfg.Matching.DateWindowDays)
	require.Equal(t, 62, cfg.Forecast.PostponeHorizonDays)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("BUDGETFORECAST_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Database.Path = "/tmp/forecast.db"
	cfg.Matching.MinScore = 35
	cfg.Log.Format = "json"
	require.NoError(t, Save(cfg))

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Load()
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BUDGETFORECAST_CONFIG", filepath.Join(t.TempDir(), "config.toml"))
	t.Setenv("BUDGETFORECAST_ACCOUNT_NAME", "Joint")
	t.Setenv("BUDGETFORECAST_FORECAST_POSTPONE_HORIZON_DAYS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Joint", cfg.Account.Name)
	require.Equal(t, 30, cfg.Forecast.PostponeHorizonDays)
}
