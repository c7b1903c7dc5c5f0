package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

func openTestDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, ctx
}

func rent() model.Target {
	return model.Target{
		Kind:        model.KindPlanned,
		Description: "Rent",
		Amount:      decimal.RequireFromString("-800"),
		Currency:    "EUR",
		Category:    "rent",
		Range: timerange.Periodic(timerange.MustParse("2025-01-01"), timerange.Days(1),
			timerange.Months(1), timerange.Date{}),
		Match: model.MatchParams{AmountRatio: 0.05, DateWindow: 5, DescriptionHints: []string{"landlord"}},
	}
}

func insertOperation(t *testing.T, ctx context.Context, ops *repository.OperationRepo, date, amount, fp string) int64 {
	t.Helper()
	id, inserted, err := ops.InsertIfNew(ctx, model.Operation{
		Description: "op " + fp,
		Category:    "rent",
		Date:        timerange.MustParse(date),
		Amount:      decimal.RequireFromString(amount),
		Currency:    "EUR",
		Fingerprint: fp,
	})
	require.NoError(t, err)
	require.True(t, inserted)
	return id
}

func TestTargetRoundTrip(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	repo := repository.NewTargetRepo(db)

	in := rent()
	id, err := repo.Insert(ctx, in)
	require.NoError(t, err)
	in.ID = id

	got, err := repo.Get(ctx, in.Key())
	require.NoError(t, err)
	require.Equal(t, in.Description, got.Description)
	require.True(t, in.Amount.Equal(got.Amount))
	require.Equal(t, in.Range, got.Range)
	require.Equal(t, in.Match, got.Match)

	once := model.Target{
		Kind: model.KindBudget, Description: "Holidays", Amount: decimal.RequireFromString("-300"),
		Currency: "EUR", Category: "holidays",
		Range: timerange.Single(timerange.MustParse("2025-07-01"), timerange.Months(1)),
	}
	onceID, err := repo.Insert(ctx, once)
	require.NoError(t, err)
	gotOnce, err := repo.Get(ctx, model.TargetKey{Kind: model.KindBudget, ID: onceID})
	require.NoError(t, err)
	require.False(t, gotOnce.IsPeriodic())
	require.Equal(t, once.Range, gotOnce.Range)
	require.Empty(t, gotOnce.Match.DescriptionHints)
}

func TestTargetKindIsPartOfKey(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	repo := repository.NewTargetRepo(db)

	id, err := repo.Insert(ctx, rent())
	require.NoError(t, err)

	missing, err := repo.FindTarget(ctx, model.TargetKey{Kind: model.KindBudget, ID: id})
	require.NoError(t, err)
	require.Nil(t, missing)

	_, err = repo.Get(ctx, model.TargetKey{Kind: model.KindBudget, ID: id})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestTargetUpdateArchiveDelete(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	repo := repository.NewTargetRepo(db)

	tg := rent()
	id, err := repo.Insert(ctx, tg)
	require.NoError(t, err)
	tg.ID = id

	tg.Amount = decimal.RequireFromString("-850")
	require.NoError(t, repo.Update(ctx, tg))
	got, err := repo.Get(ctx, tg.Key())
	require.NoError(t, err)
	require.Equal(t, "-850", got.Amount.String())

	require.NoError(t, repo.SetArchived(ctx, tg.Key(), true))
	active, err := repo.ActiveTargets(ctx)
	require.NoError(t, err)
	require.Empty(t, active)
	all, err := repo.List(ctx, repository.TargetFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Archived)

	require.NoError(t, repo.Delete(ctx, tg.Key()))
	err = repo.Delete(ctx, tg.Key())
	require.ErrorIs(t, err, model.ErrNotFound)

	tg.ID = 999
	require.ErrorIs(t, repo.Update(ctx, tg), model.ErrNotFound)
}

func TestOperationDedupOnFingerprint(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	ops := repository.NewOperationRepo(db)

	insertOperation(t, ctx, ops, "2025-01-02", "-800", "fp-1")
	_, inserted, err := ops.InsertIfNew(ctx, model.Operation{
		Description: "again", Date: timerange.MustParse("2025-01-02"),
		Amount: decimal.RequireFromString("-800"), Currency: "EUR", Fingerprint: "fp-1",
	})
	require.NoError(t, err)
	require.False(t, inserted)

	all, err := ops.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, timerange.MustParse("2025-01-02"), all[0].Date)
}

func TestOperationListFilters(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	ops := repository.NewOperationRepo(db)

	insertOperation(t, ctx, ops, "2025-01-02", "-800", "a")
	id := insertOperation(t, ctx, ops, "2025-02-02", "-800", "b")
	insertOperation(t, ctx, ops, "2025-03-02", "-800", "c")
	require.NoError(t, ops.UpdateCategory(ctx, id, "groceries"))

	inFeb, err := ops.List(ctx, repository.OperationFilter{
		From: timerange.MustParse("2025-02-01"), To: timerange.MustParse("2025-02-28"),
	})
	require.NoError(t, err)
	require.Len(t, inFeb, 1)
	require.Equal(t, model.Category("groceries"), inFeb[0].Category)

	byCat, err := ops.List(ctx, repository.OperationFilter{Category: "rent"})
	require.NoError(t, err)
	require.Len(t, byCat, 2)

	_, err = ops.Get(ctx, 4242)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.ErrorIs(t, ops.UpdateCategory(ctx, 4242, "rent"), model.ErrNotFound)
}

func TestLinkUniquePerOperation(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	targets := repository.NewTargetRepo(db)
	ops := repository.NewOperationRepo(db)
	links := repository.NewLinkRepo(db)

	tid, err := targets.Insert(ctx, rent())
	require.NoError(t, err)
	key := model.TargetKey{Kind: model.KindPlanned, ID: tid}
	opID := insertOperation(t, ctx, ops, "2025-01-02", "-800", "fp")

	first := model.Link{OperationID: opID, Target: key, IterationDate: timerange.MustParse("2025-01-01")}
	require.NoError(t, links.Create(ctx, first))

	err = links.Create(ctx, model.Link{OperationID: opID, Target: key, IterationDate: timerange.MustParse("2025-02-01"), Manual: true})
	require.ErrorIs(t, err, model.ErrConstraintViolation)
	var cv *model.ConstraintViolationError
	require.True(t, errors.As(err, &cv))
	require.Contains(t, cv.Detail, "relink")

	got, err := links.GetForOperation(ctx, opID)
	require.NoError(t, err)
	require.Equal(t, first, *got)

	moved := model.Link{OperationID: opID, Target: key, IterationDate: timerange.MustParse("2025-02-01"), Manual: true, Notes: "paid late"}
	require.NoError(t, links.Upsert(ctx, moved))
	all, err := links.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.Link{moved}, all)
}

func TestLinkDeletionScopes(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	targets := repository.NewTargetRepo(db)
	ops := repository.NewOperationRepo(db)
	links := repository.NewLinkRepo(db)

	tid, err := targets.Insert(ctx, rent())
	require.NoError(t, err)
	key := model.TargetKey{Kind: model.KindPlanned, ID: tid}
	auto := insertOperation(t, ctx, ops, "2025-01-02", "-800", "auto")
	manual := insertOperation(t, ctx, ops, "2025-02-02", "-800", "manual")
	require.NoError(t, links.Create(ctx, model.Link{OperationID: auto, Target: key, IterationDate: timerange.MustParse("2025-01-01")}))
	require.NoError(t, links.Create(ctx, model.Link{OperationID: manual, Target: key, IterationDate: timerange.MustParse("2025-02-01"), Manual: true}))

	n, err := links.DeleteAutomaticForTarget(ctx, key)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	left, err := links.ForTarget(ctx, key)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.True(t, left[0].Manual)

	n, err = links.DeleteForTarget(ctx, key)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	deleted, err := links.Delete(ctx, manual)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestAccountUpsert(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)
	repo := repository.NewAccountRepo(db)

	missing, err := repo.Get(ctx, "Main")
	require.NoError(t, err)
	require.Nil(t, missing)

	acct := model.Account{Name: "Main", Balance: decimal.RequireFromString("1000.50"), Currency: "EUR", BalanceDate: timerange.MustParse("2025-01-15")}
	require.NoError(t, repo.Upsert(ctx, acct))
	acct.Balance = decimal.RequireFromString("900")
	require.NoError(t, repo.Upsert(ctx, acct))

	got, err := repo.Get(ctx, "Main")
	require.NoError(t, err)
	require.True(t, acct.Balance.Equal(got.Balance))
	require.Equal(t, acct.BalanceDate, got.BalanceDate)
}

func TestTransactionRollback(t *testing.T) {
	t.Parallel()
	db, ctx := openTestDB(t)

	boom := errors.New("boom")
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := repository.NewTargetRepo(tx).Insert(ctx, rent()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := repository.NewTargetRepo(db).List(ctx, repository.TargetFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Empty(t, all)
}
