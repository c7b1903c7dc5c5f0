package repository

import (
	"context"
	"database/sql"

	"github.com/jask/budgetforecast/internal/model"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db DBTX
}

func NewAccountRepo(db DBTX) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Upsert(ctx context.Context, a model.Account) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO accounts(name, balance, currency, balance_date, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(name) DO UPDATE SET
	 balance=excluded.balance,
	 currency=excluded.currency,
	 balance_date=excluded.balance_date,
	 updated_at=CURRENT_TIMESTAMP;
	`, a.Name, a.Balance, a.Currency, a.BalanceDate)
	return err
}

// Get returns nil when the account has never been saved.
func (r *AccountRepo) Get(ctx context.Context, name string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT name, balance, currency, balance_date FROM accounts WHERE name = ?`, name)
	var a model.Account
	if err := row.Scan(&a.Name, &a.Balance, &a.Currency, &a.BalanceDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, balance, currency, balance_date FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.Name, &a.Balance, &a.Currency, &a.BalanceDate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
