package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/forecast"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// statusHorizonDays bounds IterationStatuses when no end is given.
const statusHorizonDays = 365

// ForecastService answers balance and budget questions from a consistent
// snapshot of the database.
type ForecastService struct {
	DB          *sql.DB
	AccountName string
	Settings    forecast.Settings
	Logger      *slog.Logger
}

type snapshot struct {
	account    model.Account
	targets    []model.Target
	operations []model.Operation
	links      []model.Link
}

func (s *ForecastService) snapshot(ctx context.Context) (snapshot, error) {
	var snap snapshot
	var err error
	if snap.account, err = loadAccount(ctx, repository.NewAccountRepo(s.DB), s.AccountName); err != nil {
		return snap, err
	}
	if snap.targets, err = repository.NewTargetRepo(s.DB).List(ctx, repository.TargetFilter{IncludeArchived: true}); err != nil {
		return snap, fmt.Errorf("load targets: %w", err)
	}
	if snap.operations, err = repository.NewOperationRepo(s.DB).All(ctx); err != nil {
		return snap, fmt.Errorf("load operations: %w", err)
	}
	if snap.links, err = repository.NewLinkRepo(s.DB).All(ctx); err != nil {
		return snap, fmt.Errorf("load links: %w", err)
	}
	return snap, nil
}

func (s *ForecastService) actualizer(snap snapshot) *forecast.Actualizer {
	return forecast.NewActualizer(snap.account.BalanceDate, snap.links, snap.operations, s.Settings, loggerOr(s.Logger))
}

func (s *ForecastService) projector(snap snapshot) *forecast.Projector {
	actualized := s.actualizer(snap).Actualize(model.Forecast{Targets: snap.targets})
	return forecast.NewProjector(snap.account, snap.operations, actualized)
}

// Actualized returns what is still expected after the balance date.
func (s *ForecastService) Actualized(ctx context.Context) (model.Forecast, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return model.Forecast{}, err
	}
	return s.actualizer(snap).Actualize(model.Forecast{Targets: snap.targets}), nil
}

// BalanceAt returns the projected balance at the end of day d.
func (s *ForecastService) BalanceAt(ctx context.Context, d timerange.Date) (decimal.Decimal, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return s.projector(snap).StateAt(d), nil
}

// BalanceEvolution returns the daily balance over [from, to].
func (s *ForecastService) BalanceEvolution(ctx context.Context, from, to timerange.Date) ([]forecast.Point, error) {
	if to.Before(from) {
		return nil, model.Invalid("compute balance evolution", "end %s is before start %s", to, from)
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.projector(snap).Evolution(from, to), nil
}

// IterationStatuses classifies the iterations of key overlapping
// [from, to]. A zero from starts at the target's first iteration; a zero
// to stops a year after the balance date.
func (s *ForecastService) IterationStatuses(ctx context.Context, key model.TargetKey, from, to timerange.Date) ([]forecast.IterationState, error) {
	t, err := repository.NewTargetRepo(s.DB).Get(ctx, key)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		from = t.Range.InitialDate()
	}
	if to.IsZero() {
		to = snap.account.BalanceDate.AddDays(statusHorizonDays)
	}
	return s.actualizer(snap).States(t, from, to), nil
}

// BudgetReport summarises [from, to] per month and category.
func (s *ForecastService) BudgetReport(ctx context.Context, from, to timerange.Date) ([]forecast.CategoryMonth, error) {
	if to.Before(from) {
		return nil, model.Invalid("build report", "end %s is before start %s", to, from)
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	actualized := s.actualizer(snap).Actualize(model.Forecast{Targets: snap.targets})
	return forecast.BuildReport(forecast.ReportInput{
		BalanceDate: snap.account.BalanceDate,
		Targets:     snap.targets,
		Actualized:  actualized,
		Operations:  snap.operations,
		Links:       snap.links,
	}, from, to), nil
}
