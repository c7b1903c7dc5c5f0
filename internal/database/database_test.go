package database_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

func TestMigrationsApplyToOpenHandle(t *testing.T) {
	t.Parallel()
	db, err := database.Open(filepath.Join(t.TempDir(), "nested", "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.RunMigrationsWithDB(db))
	require.NoError(t, database.RunMigrationsWithDB(db), "second run is a no-op")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM operation_links`).Scan(&n))
	assert.Zero(t, n)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	today := timerange.MustParse("2025-03-01")
	require.NoError(t, database.SeedDefaults(ctx, db, "Main", "EUR", today))

	accounts := repository.NewAccountRepo(db)
	require.NoError(t, accounts.Upsert(ctx, model.Account{
		Name: "Main", Balance: decimal.NewFromInt(50), Currency: "EUR", BalanceDate: today,
	}))
	require.NoError(t, database.SeedDefaults(ctx, db, "Main", "EUR", today.AddDays(10)))

	acct, err := accounts.Get(ctx, "Main")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, "50", acct.Balance.String())
	assert.Equal(t, today, acct.BalanceDate)

	cats, err := repository.NewCategoryRepo(db).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCategories, cats)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	boom := errors.New("boom")
	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := repository.NewCategoryRepo(tx).Upsert(ctx, "pets", 0); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := repository.NewCategoryRepo(db).Exists(ctx, "pets")
	require.NoError(t, err)
	assert.False(t, ok)
}
