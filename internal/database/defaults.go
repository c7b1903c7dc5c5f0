package database

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// SeedDefaults ensures baseline categories and the forecast account exist.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB, accountName, currency string, today timerange.Date) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		catRepo := repository.NewCategoryRepo(tx)
		existing, err := catRepo.List(ctx)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for idx, c := range model.DefaultCategories {
				if err := catRepo.Upsert(ctx, c, idx); err != nil {
					return err
				}
			}
		}

		accounts := repository.NewAccountRepo(tx)
		acct, err := accounts.Get(ctx, accountName)
		if err != nil || acct != nil {
			return err
		}
		return accounts.Upsert(ctx, model.Account{
			Name:        accountName,
			Balance:     decimal.Zero,
			Currency:    currency,
			BalanceDate: today,
		})
	})
}
