package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/timerange"
)

// TargetFilter narrows List.
type TargetFilter struct {
	Kind            model.TargetKind // empty = both
	IncludeArchived bool
}

// TargetRepo handles planned operations and budgets. Both live in one table
// and share one id sequence.
type TargetRepo struct {
	db DBTX
}

func NewTargetRepo(db DBTX) *TargetRepo { return &TargetRepo{db: db} }

const targetColumns = `id, kind, description, amount, currency, category, start_date,
 duration_value, duration_unit, period_value, period_unit, end_date,
 description_hints, approximation_date_days, approximation_amount_ratio, is_archived`

// targetArgs flattens t in the column order of Insert and Update.
func targetArgs(t model.Target) ([]any, error) {
	hints := t.Match.DescriptionHints
	if hints == nil {
		hints = []string{}
	}
	rawHints, err := json.Marshal(hints)
	if err != nil {
		return nil, err
	}
	var periodValue sql.NullInt64
	var periodUnit sql.NullString
	if p := t.Range.Period(); !p.IsZero() {
		periodValue = sql.NullInt64{Int64: int64(p.Value), Valid: true}
		periodUnit = sql.NullString{String: string(p.Unit), Valid: true}
	}
	d := t.Range.Duration()
	return []any{
		t.Kind, t.Description, t.Amount, t.Currency, t.Category, t.Range.InitialDate(),
		d.Value, string(d.Unit), periodValue, periodUnit, t.Range.EndDate(),
		string(rawHints), t.Match.DateWindow, t.Match.AmountRatio, t.Archived,
	}, nil
}

func scanTarget(s scanner) (model.Target, error) {
	var (
		t           model.Target
		start, end  timerange.Date
		durValue    int
		durUnit     string
		periodValue sql.NullInt64
		periodUnit  sql.NullString
		rawHints    string
	)
	if err := s.Scan(&t.ID, &t.Kind, &t.Description, &t.Amount, &t.Currency, &t.Category, &start,
		&durValue, &durUnit, &periodValue, &periodUnit, &end,
		&rawHints, &t.Match.DateWindow, &t.Match.AmountRatio, &t.Archived); err != nil {
		return t, err
	}
	if rawHints != "" {
		if err := json.Unmarshal([]byte(rawHints), &t.Match.DescriptionHints); err != nil {
			return t, fmt.Errorf("target %d hints: %w", t.ID, err)
		}
	}
	duration := timerange.Period{Value: durValue, Unit: timerange.Unit(durUnit)}
	if periodValue.Valid {
		period := timerange.Period{Value: int(periodValue.Int64), Unit: timerange.Unit(periodUnit.String)}
		t.Range = timerange.Periodic(start, duration, period, end)
	} else {
		t.Range = timerange.Single(start, duration)
	}
	return t, nil
}

// Insert stores t and returns its new id. t.ID is ignored.
func (r *TargetRepo) Insert(ctx context.Context, t model.Target) (int64, error) {
	args, err := targetArgs(t)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO targets(
	 kind, description, amount, currency, category, start_date,
	 duration_value, duration_unit, period_value, period_unit, end_date,
	 description_hints, approximation_date_days, approximation_amount_ratio, is_archived,
	 created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update overwrites every stored field of t.
func (r *TargetRepo) Update(ctx context.Context, t model.Target) error {
	args, err := targetArgs(t)
	if err != nil {
		return err
	}
	// kind is the first column; it doubles as part of the key.
	args = append(args[1:], t.ID, t.Kind)
	res, err := r.db.ExecContext(ctx, `
	UPDATE targets SET
	 description=?, amount=?, currency=?, category=?, start_date=?,
	 duration_value=?, duration_unit=?, period_value=?, period_unit=?, end_date=?,
	 description_hints=?, approximation_date_days=?, approximation_amount_ratio=?, is_archived=?,
	 updated_at=CURRENT_TIMESTAMP
	WHERE id = ? AND kind = ?`, args...)
	if err != nil {
		return err
	}
	return requireRow(res, model.TargetNotFound(t.Key()))
}

func (r *TargetRepo) SetArchived(ctx context.Context, key model.TargetKey, archived bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE targets SET is_archived = ?, updated_at=CURRENT_TIMESTAMP WHERE id = ? AND kind = ?`,
		archived, key.ID, key.Kind)
	if err != nil {
		return err
	}
	return requireRow(res, model.TargetNotFound(key))
}

// Delete removes the target row. Links must be removed first.
func (r *TargetRepo) Delete(ctx context.Context, key model.TargetKey) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ? AND kind = ?`, key.ID, key.Kind)
	if err != nil {
		return err
	}
	return requireRow(res, model.TargetNotFound(key))
}

// FindTarget returns nil when no target has key.
func (r *TargetRepo) FindTarget(ctx context.Context, key model.TargetKey) (*model.Target, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ? AND kind = ?`, key.ID, key.Kind)
	t, err := scanTarget(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Get is FindTarget for callers that need the target to exist.
func (r *TargetRepo) Get(ctx context.Context, key model.TargetKey) (model.Target, error) {
	t, err := r.FindTarget(ctx, key)
	if err != nil {
		return model.Target{}, err
	}
	if t == nil {
		return model.Target{}, model.TargetNotFound(key)
	}
	return *t, nil
}

func (r *TargetRepo) List(ctx context.Context, f TargetFilter) ([]model.Target, error) {
	query := `SELECT ` + targetColumns + ` FROM targets WHERE 1=1`
	var args []any
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if !f.IncludeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY CASE kind WHEN 'planned_operation' THEN 0 ELSE 1 END, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ActiveTargets lists every non-archived target.
func (r *TargetRepo) ActiveTargets(ctx context.Context) ([]model.Target, error) {
	return r.List(ctx, TargetFilter{})
}

// requireRow turns "no row touched" into notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
