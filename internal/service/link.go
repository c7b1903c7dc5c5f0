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
	"github.com/jask/budgetforecast/internal/timerange"
)

// LinkService creates and removes operation links, manual and automatic.
type LinkService struct {
	DB       *sql.DB
	Matchers *matcher.Cache
	MinScore float64
	Logger   *slog.Logger
}

// LinkRequest describes a manual link.
type LinkRequest struct {
	OperationID   int64
	Target        model.TargetKey
	IterationDate timerange.Date
	Notes         string
}

// validate checks that the operation and target exist and that the
// iteration date is a real iteration start of the target.
func (s *LinkService) validate(ctx context.Context, db repository.DBTX, op string, req LinkRequest) error {
	if _, err := repository.NewOperationRepo(db).Get(ctx, req.OperationID); err != nil {
		return err
	}
	t, err := repository.NewTargetRepo(db).Get(ctx, req.Target)
	if err != nil {
		return err
	}
	if !t.Range.IsIterationStart(req.IterationDate) {
		return model.Invalid(op, "%s is not an iteration of %s %q (%s)",
			req.IterationDate, t.Kind.Label(), t.Description, t.Range)
	}
	return nil
}

func (req LinkRequest) link() model.Link {
	return model.Link{
		OperationID:   req.OperationID,
		Target:        req.Target,
		IterationDate: req.IterationDate,
		Manual:        true,
		Notes:         req.Notes,
	}
}

// Link creates a manual link. It fails with a ConstraintViolationError when
// the operation is already linked; use Relink to move it.
func (s *LinkService) Link(ctx context.Context, req LinkRequest) (model.Link, error) {
	if err := s.validate(ctx, s.DB, "link operation", req); err != nil {
		return model.Link{}, err
	}
	l := req.link()
	if err := repository.NewLinkRepo(s.DB).Create(ctx, l); err != nil {
		return model.Link{}, err
	}
	loggerOr(s.Logger).Info("manual link created",
		"operation_id", l.OperationID, "target", l.Target.String(), "iteration_date", l.IterationDate.String())
	return l, nil
}

// Relink replaces whatever link the operation has with a manual one.
func (s *LinkService) Relink(ctx context.Context, req LinkRequest) (model.Link, error) {
	l := req.link()
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.validate(ctx, tx, "relink operation", req); err != nil {
			return err
		}
		return repository.NewLinkRepo(tx).Upsert(ctx, l)
	})
	if err != nil {
		return model.Link{}, err
	}
	loggerOr(s.Logger).Info("operation relinked",
		"operation_id", l.OperationID, "target", l.Target.String(), "iteration_date", l.IterationDate.String())
	return l, nil
}

// Unlink deletes the link of an operation, manual or not.
func (s *LinkService) Unlink(ctx context.Context, operationID int64) error {
	if _, err := repository.NewOperationRepo(s.DB).Get(ctx, operationID); err != nil {
		return err
	}
	deleted, err := repository.NewLinkRepo(s.DB).Delete(ctx, operationID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.Invalid("unlink operation", "operation %d has no link", operationID)
	}
	loggerOr(s.Logger).Info("operation unlinked", "operation_id", operationID)
	return nil
}

// ForOperation returns the link of an operation, or nil.
func (s *LinkService) ForOperation(ctx context.Context, operationID int64) (*model.Link, error) {
	return repository.NewLinkRepo(s.DB).GetForOperation(ctx, operationID)
}

// List returns the links of key, or every link when key is zero.
func (s *LinkService) List(ctx context.Context, key model.TargetKey) ([]model.Link, error) {
	repo := repository.NewLinkRepo(s.DB)
	if key == (model.TargetKey{}) {
		return repo.All(ctx)
	}
	return repo.ForTarget(ctx, key)
}

// activeMatchers reads the cache. Call it before opening a transaction:
// the cache loads through the pool's only connection.
func (s *LinkService) activeMatchers(ctx context.Context) ([]*matcher.Matcher, error) {
	return s.Matchers.Matchers(ctx)
}

// linkOperations creates automatic links for the unlinked operations among
// ops. Only candidates whose target passes keep are written; a nil keep
// accepts every target.
func (s *LinkService) linkOperations(ctx context.Context, db repository.DBTX, ops []model.Operation,
	matchers []*matcher.Matcher, keep func(model.TargetKey) bool) (int, error) {
	if len(ops) == 0 || len(matchers) == 0 {
		return 0, nil
	}
	links := repository.NewLinkRepo(db)
	existing, err := links.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load links: %w", err)
	}
	created := 0
	for _, l := range matcher.AutomaticLinks(ops, matchers, matcher.NewLinkIndex(existing), s.MinScore) {
		if keep != nil && !keep(l.Target) {
			continue
		}
		if err := links.Create(ctx, l); err != nil {
			return created, fmt.Errorf("link operation %d: %w", l.OperationID, err)
		}
		loggerOr(s.Logger).Debug("automatic link created",
			"operation_id", l.OperationID, "target", l.Target.String(), "iteration_date", l.IterationDate.String())
		created++
	}
	return created, nil
}

// recalculate drops the automatic links of t and recomputes them against
// every operation. others are the matchers of the remaining targets so an
// operation that fits another target better is not taken. Manual links
// are untouched.
func (s *LinkService) recalculate(ctx context.Context, db repository.DBTX, t model.Target, others []*matcher.Matcher) (int64, int, error) {
	deleted, err := repository.NewLinkRepo(db).DeleteAutomaticForTarget(ctx, t.Key())
	if err != nil {
		return 0, 0, fmt.Errorf("delete automatic links: %w", err)
	}
	if t.Archived {
		return deleted, 0, nil
	}
	ops, err := repository.NewOperationRepo(db).All(ctx)
	if err != nil {
		return deleted, 0, fmt.Errorf("load operations: %w", err)
	}
	matchers := []*matcher.Matcher{matcher.New(t)}
	for _, m := range others {
		if m.Key() != t.Key() {
			matchers = append(matchers, m)
		}
	}
	key := t.Key()
	created, err := s.linkOperations(ctx, db, ops, matchers, func(k model.TargetKey) bool { return k == key })
	if err != nil {
		return deleted, created, err
	}
	loggerOr(s.Logger).Info("links recalculated",
		"target", key.String(), "links_deleted", deleted, "links_created", created)
	return deleted, created, nil
}
