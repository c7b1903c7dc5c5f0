package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// OperationFilter defines list filters. Zero values mean no filter.
type OperationFilter struct {
	From     timerange.Date
	To       timerange.Date
	Category model.Category
	Search   string
}

// OperationRepo handles imported operations.
type OperationRepo struct {
	db DBTX
}

func NewOperationRepo(db DBTX) *OperationRepo { return &OperationRepo{db: db} }

const operationColumns = `id, description, category, date, amount, currency, fingerprint`

func scanOperation(s scanner) (model.Operation, error) {
	var op model.Operation
	err := s.Scan(&op.ID, &op.Description, &op.Category, &op.Date, &op.Amount, &op.Currency, &op.Fingerprint)
	return op, err
}

// InsertIfNew stores op unless its fingerprint is already known. It reports
// the new id and whether a row was written.
func (r *OperationRepo) InsertIfNew(ctx context.Context, op model.Operation) (int64, bool, error) {
	if op.Category == "" {
		op.Category = model.Uncategorized
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO operations(description, category, date, amount, currency, fingerprint, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(fingerprint) DO NOTHING;
	`, op.Description, op.Category, op.Date, op.Amount, op.Currency, op.Fingerprint)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return 0, false, err
	}
	id, err := res.LastInsertId()
	return id, err == nil, err
}

// Find returns nil when id is unknown.
func (r *OperationRepo) Find(ctx context.Context, id int64) (*model.Operation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+operationColumns+` FROM operations WHERE id = ?`, id)
	op, err := scanOperation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

// Get is Find for callers that need the operation to exist.
func (r *OperationRepo) Get(ctx context.Context, id int64) (model.Operation, error) {
	op, err := r.Find(ctx, id)
	if err != nil {
		return model.Operation{}, err
	}
	if op == nil {
		return model.Operation{}, model.OperationNotFound(id)
	}
	return *op, nil
}

func (r *OperationRepo) UpdateCategory(ctx context.Context, id int64, c model.Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE operations SET category = ? WHERE id = ?`, c, id)
	if err != nil {
		return err
	}
	return requireRow(res, model.OperationNotFound(id))
}

// List returns matching operations by date then id.
func (r *OperationRepo) List(ctx context.Context, f OperationFilter) ([]model.Operation, error) {
	var where []string
	var args []any

	if !f.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.To)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, "description LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := "SELECT " + operationColumns + " FROM operations"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// All lists every operation.
func (r *OperationRepo) All(ctx context.Context) ([]model.Operation, error) {
	return r.List(ctx, OperationFilter{})
}
