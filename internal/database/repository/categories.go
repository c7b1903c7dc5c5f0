package repository

import (
	"context"

	"github.com/jask/budgetforecast/internal/model"
)

// CategoryRepo handles categories.
type CategoryRepo struct {
	db DBTX
}

func NewCategoryRepo(db DBTX) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Upsert(ctx context.Context, c model.Category, sortOrder int) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(name, sort_order)
	VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET
	 sort_order=excluded.sort_order;
	`, c, sortOrder)
	return err
}

func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepo) Exists(ctx context.Context, c model.Category) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM categories WHERE name = ?`, c).Scan(&n)
	return n > 0, err
}
