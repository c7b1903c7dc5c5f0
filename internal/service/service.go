// Package service implements the use cases of the forecaster on top of the
// sqlite repositories: target lifecycle, linking, import, categorization
// and forecast queries.
package service

import (
	"database/sql"
	"log/slog"

	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/forecast"
	"github.com/jask/budgetforecast/internal/matcher"
)

// Options carries the settings every service shares.
type Options struct {
	AccountName string
	Currency    string
	MinScore    float64
	Forecast    forecast.Settings
}

// Services wires every service to one database and one matcher cache.
type Services struct {
	Accounts    *AccountService
	Links       *LinkService
	Targets     *TargetService
	Import      *ImportService
	Categorize  *CategorizeService
	Forecast    *ForecastService
	Maintenance *MaintenanceService

	Matchers *matcher.Cache
}

// New builds the service set. A nil logger falls back to slog.Default.
func New(db *sql.DB, opts Options, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.AccountName == "" {
		opts.AccountName = "Main"
	}
	if opts.Currency == "" {
		opts.Currency = "EUR"
	}
	if opts.MinScore <= 0 {
		opts.MinScore = matcher.DefaultMinScore
	}
	cache := matcher.NewCache(repository.NewTargetRepo(db), logger)
	links := &LinkService{DB: db, Matchers: cache, MinScore: opts.MinScore, Logger: logger}
	return &Services{
		Accounts:    &AccountService{DB: db, AccountName: opts.AccountName, Currency: opts.Currency},
		Links:       links,
		Targets:     &TargetService{DB: db, Matchers: cache, Links: links, Logger: logger},
		Import:      &ImportService{DB: db, Links: links, AccountName: opts.AccountName, Currency: opts.Currency, Logger: logger},
		Categorize:  &CategorizeService{DB: db, Links: links, Logger: logger},
		Forecast:    &ForecastService{DB: db, AccountName: opts.AccountName, Settings: opts.Forecast, Logger: logger},
		Maintenance: &MaintenanceService{DB: db, Matchers: cache, Logger: logger},
		Matchers:    cache,
	}
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
