package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/matcher"
	"github.com/jask/budgetforecast/internal/model"
)

// CategorizeService reassigns operation categories and keeps the automatic
// links consistent with them.
type CategorizeService struct {
	DB     *sql.DB
	Links  *LinkService
	Logger *slog.Logger
}

// Categorize sets the category of an operation. An automatic link whose
// target no longer matches under the new category is dropped, and an
// unlinked operation is offered to the heuristics again. Manual links are
// never touched. The operation's link after the change is returned, or nil.
func (s *CategorizeService) Categorize(ctx context.Context, operationID int64, c model.Category) (*model.Link, error) {
	ok, err := repository.NewCategoryRepo(s.DB).Exists(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.Invalid("categorize operation", "unknown category %q", c)
	}
	matchers, err := s.Links.activeMatchers(ctx)
	if err != nil {
		return nil, err
	}

	var result *model.Link
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		ops := repository.NewOperationRepo(tx)
		links := repository.NewLinkRepo(tx)
		op, err := ops.Get(ctx, operationID)
		if err != nil {
			return err
		}
		if err := ops.UpdateCategory(ctx, operationID, c); err != nil {
			return err
		}
		op.Category = c

		current, err := links.GetForOperation(ctx, operationID)
		if err != nil {
			return err
		}
		if current != nil {
			keep := current.Manual
			if !keep {
				t, err := repository.NewTargetRepo(tx).FindTarget(ctx, current.Target)
				if err != nil {
					return err
				}
				keep = t != nil && matcher.New(*t).MatchesHeuristically(op)
			}
			if keep {
				result = current
				return nil
			}
			if _, err := links.Delete(ctx, operationID); err != nil {
				return fmt.Errorf("drop automatic link: %w", err)
			}
			loggerOr(s.Logger).Info("automatic link dropped",
				"operation_id", operationID, "target", current.Target.String(), "category", string(c))
		}

		if _, err := s.Links.linkOperations(ctx, tx, []model.Operation{op}, matchers, nil); err != nil {
			return err
		}
		result, err = links.GetForOperation(ctx, operationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Categories lists the known categories.
func (s *CategorizeService) Categories(ctx context.Context) ([]model.Category, error) {
	return repository.NewCategoryRepo(s.DB).List(ctx)
}

// AddCategories registers categories that are not known yet, after the
// existing ones.
func (s *CategorizeService) AddCategories(ctx context.Context, cats ...model.Category) error {
	if len(cats) == 0 {
		return nil
	}
	return database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		repo := repository.NewCategoryRepo(tx)
		existing, err := repo.List(ctx)
		if err != nil {
			return err
		}
		known := make(map[model.Category]bool, len(existing))
		for _, c := range existing {
			known[c] = true
		}
		next := len(existing)
		for _, c := range cats {
			if c == "" || known[c] {
				continue
			}
			if err := repo.Upsert(ctx, c, next); err != nil {
				return fmt.Errorf("add category %q: %w", c, err)
			}
			known[c] = true
			next++
		}
		return nil
	})
}
