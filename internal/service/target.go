package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/matcher"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// TargetService owns the target lifecycle. Every mutation invalidates the
// matcher cache entry of the targets it touches.
type TargetService struct {
	DB       *sql.DB
	Matchers *matcher.Cache
	Links    *LinkService
	Logger   *slog.Logger
}

// SplitRequest describes a split. Nil fields keep the original value.
type SplitRequest struct {
	Date     timerange.Date
	Amount   *decimal.Decimal
	Period   *timerange.Period
	Duration *timerange.Period
}

// SplitResult holds both halves of a split.
type SplitResult struct {
	Terminated    model.Target
	Continuation  model.Target
	LinksMigrated int
}

func (s *TargetService) Get(ctx context.Context, key model.TargetKey) (model.Target, error) {
	return repository.NewTargetRepo(s.DB).Get(ctx, key)
}

func (s *TargetService) List(ctx context.Context, kind model.TargetKind, includeArchived bool) ([]model.Target, error) {
	return repository.NewTargetRepo(s.DB).List(ctx, repository.TargetFilter{Kind: kind, IncludeArchived: includeArchived})
}

func validateTarget(op string, t model.Target) error {
	if err := t.Validate(); err != nil {
		return model.Invalid(op, "%v", err)
	}
	return nil
}

// Create stores t and links the existing operations it matches.
func (s *TargetService) Create(ctx context.Context, t model.Target) (model.Target, error) {
	if err := validateTarget("create target", t); err != nil {
		return model.Target{}, err
	}
	others, err := s.Links.activeMatchers(ctx)
	if err != nil {
		return model.Target{}, err
	}
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		id, err := repository.NewTargetRepo(tx).Insert(ctx, t)
		if err != nil {
			return fmt.Errorf("insert target: %w", err)
		}
		t.ID = id
		_, _, err = s.Links.recalculate(ctx, tx, t, others)
		return err
	})
	if err != nil {
		return model.Target{}, err
	}
	s.Matchers.Invalidate(t.Key())
	loggerOr(s.Logger).Info("target created", "target", t.Key().String(), "description", t.Description)
	return t, nil
}

// Update overwrites t, drops its automatic links and recomputes them.
// Manual links are kept even when t no longer matches them.
func (s *TargetService) Update(ctx context.Context, t model.Target) (model.Target, error) {
	if err := validateTarget("update target", t); err != nil {
		return model.Target{}, err
	}
	if _, err := s.Get(ctx, t.Key()); err != nil {
		return model.Target{}, err
	}
	others, err := s.Links.activeMatchers(ctx)
	if err != nil {
		return model.Target{}, err
	}
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := repository.NewTargetRepo(tx).Update(ctx, t); err != nil {
			return err
		}
		_, _, err := s.Links.recalculate(ctx, tx, t, others)
		return err
	})
	s.Matchers.Invalidate(t.Key())
	if err != nil {
		return model.Target{}, err
	}
	loggerOr(s.Logger).Info("target updated", "target", t.Key().String())
	return t, nil
}

// Delete removes key and every link to it, manual ones included.
func (s *TargetService) Delete(ctx context.Context, key model.TargetKey) error {
	var removed int64
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := repository.NewTargetRepo(tx).Get(ctx, key); err != nil {
			return err
		}
		n, err := repository.NewLinkRepo(tx).DeleteForTarget(ctx, key)
		if err != nil {
			return fmt.Errorf("delete links: %w", err)
		}
		removed = n
		return repository.NewTargetRepo(tx).Delete(ctx, key)
	})
	s.Matchers.Invalidate(key)
	if err != nil {
		return err
	}
	loggerOr(s.Logger).Info("target deleted", "target", key.String(), "links_deleted", removed)
	return nil
}

// SetArchived flags key. Archived targets keep their links but leave the
// forecast and heuristic matching.
func (s *TargetService) SetArchived(ctx context.Context, key model.TargetKey, archived bool) error {
	err := repository.NewTargetRepo(s.DB).SetArchived(ctx, key, archived)
	s.Matchers.Invalidate(key)
	if err != nil {
		return err
	}
	loggerOr(s.Logger).Info("target archive flag set", "target", key.String(), "archived", archived)
	return nil
}

// Split terminates key the day before req.Date and continues it from
// req.Date as a new target. Links on iterations from req.Date on move to
// the new target with their iteration date unchanged. Nothing is written
// unless every step succeeds.
func (s *TargetService) Split(ctx context.Context, key model.TargetKey, req SplitRequest) (SplitResult, error) {
	const op = "split target"
	var res SplitResult
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		targets := repository.NewTargetRepo(tx)
		orig, err := targets.Get(ctx, key)
		if err != nil {
			return err
		}
		head, tail, err := orig.Range.SplitAt(req.Date)
		if err != nil {
			return splitError(op, orig, req.Date, err)
		}

		cont := orig
		cont.ID = 0
		cont.Range = tail
		if req.Amount != nil {
			cont.Amount = *req.Amount
		}
		if req.Period != nil {
			cont.Range = cont.Range.WithPeriod(*req.Period)
		}
		if req.Duration != nil {
			cont.Range = cont.Range.WithDuration(*req.Duration)
		}
		if err := validateTarget(op, cont); err != nil {
			return err
		}

		term := orig
		term.Range = head
		if err := targets.Update(ctx, term); err != nil {
			return fmt.Errorf("terminate target: %w", err)
		}
		id, err := targets.Insert(ctx, cont)
		if err != nil {
			return fmt.Errorf("insert continuation: %w", err)
		}
		cont.ID = id

		links := repository.NewLinkRepo(tx)
		existing, err := links.ForTarget(ctx, key)
		if err != nil {
			return err
		}
		for _, l := range existing {
			if l.IterationDate.Before(req.Date) {
				continue
			}
			l.Target = cont.Key()
			if err := links.Upsert(ctx, l); err != nil {
				return fmt.Errorf("migrate link of operation %d: %w", l.OperationID, err)
			}
			res.LinksMigrated++
		}
		res.Terminated, res.Continuation = term, cont
		return nil
	})
	s.Matchers.Invalidate(key)
	if err != nil {
		return SplitResult{}, err
	}
	s.Matchers.Invalidate(res.Continuation.Key())
	loggerOr(s.Logger).Info("target split",
		"target", key.String(), "continuation", res.Continuation.Key().String(),
		"split_date", req.Date.String(), "links_migrated", res.LinksMigrated)
	return res, nil
}

func splitError(op string, t model.Target, d timerange.Date, err error) error {
	switch {
	case errors.Is(err, timerange.ErrNotPeriodic):
		return model.Invalid(op, "%s %q is not recurring", t.Kind.Label(), t.Description)
	case errors.Is(err, timerange.ErrSplitNotAfterStart):
		return model.Invalid(op, "split date %s must be after the start date %s", d, t.Range.InitialDate())
	case errors.Is(err, timerange.ErrSplitAfterEnd):
		return model.Invalid(op, "split date %s is after the end date %s", d, t.Range.EndDate())
	}
	return model.Invalid(op, "%v", err)
}

// NextNonActualizedIteration returns the first iteration of key, scanning
// from its start, that has no link. It reports false for one-time or
// missing targets and when every iteration is linked.
func (s *TargetService) NextNonActualizedIteration(ctx context.Context, key model.TargetKey) (timerange.TimeRange, bool, error) {
	t, err := repository.NewTargetRepo(s.DB).FindTarget(ctx, key)
	if err != nil || t == nil || !t.IsPeriodic() {
		return timerange.TimeRange{}, false, err
	}
	links, err := repository.NewLinkRepo(s.DB).ForTarget(ctx, key)
	if err != nil {
		return timerange.TimeRange{}, false, err
	}
	linked := make(map[timerange.Date]struct{}, len(links))
	for _, l := range links {
		linked[l.IterationDate] = struct{}{}
	}
	for it := range t.Range.Iterations() {
		if _, ok := linked[it.InitialDate()]; !ok {
			return it, true, nil
		}
	}
	return timerange.TimeRange{}, false, nil
}
