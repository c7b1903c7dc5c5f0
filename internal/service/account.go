package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jask/budgetforecast/internal/database/repository"
	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// AccountService reads and updates the forecast account.
type AccountService struct {
	DB          *sql.DB
	AccountName string
	Currency    string
}

// Get returns the account, failing with a NotFoundError before the first
// balance has been recorded.
func (s *AccountService) Get(ctx context.Context) (model.Account, error) {
	return loadAccount(ctx, repository.NewAccountRepo(s.DB), s.AccountName)
}

// SetBalance records the known balance at date.
func (s *AccountService) SetBalance(ctx context.Context, balance decimal.Decimal, date timerange.Date) (model.Account, error) {
	if date.IsZero() {
		return model.Account{}, model.Invalid("set balance", "a balance date is required")
	}
	acct := model.Account{Name: s.AccountName, Balance: balance, Currency: s.Currency, BalanceDate: date}
	if err := repository.NewAccountRepo(s.DB).Upsert(ctx, acct); err != nil {
		return model.Account{}, fmt.Errorf("save account: %w", err)
	}
	return acct, nil
}

func loadAccount(ctx context.Context, repo *repository.AccountRepo, name string) (model.Account, error) {
	acct, err := repo.Get(ctx, name)
	if err != nil {
		return model.Account{}, fmt.Errorf("load account: %w", err)
	}
	if acct == nil {
		return model.Account{}, &model.NotFoundError{Entity: "account", ID: name}
	}
	return *acct, nil
}
