package repository

import (
	"context"
	"database/sql"

	"github.com/jask/budgetforecast/internal/model"
)

// LinkRepo handles operation links. An operation has at most one link; the
// table enforces it with a unique operation_id.
type LinkRepo struct {
	db DBTX
}

func NewLinkRepo(db DBTX) *LinkRepo { return &LinkRepo{db: db} }

const linkColumns = `operation_id, target_kind, target_id, iteration_date, is_manual, notes`

func scanLink(s scanner) (model.Link, error) {
	var l model.Link
	err := s.Scan(&l.OperationID, &l.Target.Kind, &l.Target.ID, &l.IterationDate, &l.Manual, &l.Notes)
	return l, err
}

func (r *LinkRepo) query(ctx context.Context, where string, args ...any) ([]model.Link, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM operation_links `+where+` ORDER BY iteration_date, operation_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetForOperation returns nil when the operation is unlinked.
func (r *LinkRepo) GetForOperation(ctx context.Context, operationID int64) (*model.Link, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM operation_links WHERE operation_id = ?`, operationID)
	l, err := scanLink(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *LinkRepo) All(ctx context.Context) ([]model.Link, error) {
	return r.query(ctx, "")
}

func (r *LinkRepo) ForTarget(ctx context.Context, key model.TargetKey) ([]model.Link, error) {
	return r.query(ctx, `WHERE target_kind = ? AND target_id = ?`, key.Kind, key.ID)
}

// Create inserts l and fails with a ConstraintViolationError when the
// operation is already linked.
func (r *LinkRepo) Create(ctx context.Context, l model.Link) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO operation_links(operation_id, target_kind, target_id, iteration_date, is_manual, notes, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, l.OperationID, l.Target.Kind, l.Target.ID, l.IterationDate, l.Manual, l.Notes)
	if err != nil && isUniqueViolation(err) {
		existing, gerr := r.GetForOperation(ctx, l.OperationID)
		if gerr != nil || existing == nil {
			return &model.ConstraintViolationError{Constraint: "operation already linked", Detail: err.Error()}
		}
		return model.OperationAlreadyLinked(l.OperationID, existing.Target)
	}
	return err
}

// Upsert writes l, replacing any link the operation already has.
func (r *LinkRepo) Upsert(ctx context.Context, l model.Link) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO operation_links(operation_id, target_kind, target_id, iteration_date, is_manual, notes, created_at)
	VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(operation_id) DO UPDATE SET
	 target_kind=excluded.target_kind,
	 target_id=excluded.target_id,
	 iteration_date=excluded.iteration_date,
	 is_manual=excluded.is_manual,
	 notes=excluded.notes;
	`, l.OperationID, l.Target.Kind, l.Target.ID, l.IterationDate, l.Manual, l.Notes)
	return err
}

// Delete removes the link of operationID. It reports whether one existed.
func (r *LinkRepo) Delete(ctx context.Context, operationID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM operation_links WHERE operation_id = ?`, operationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteAutomaticForTarget removes the heuristic links of key; manual ones stay.
func (r *LinkRepo) DeleteAutomaticForTarget(ctx context.Context, key model.TargetKey) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM operation_links WHERE target_kind = ? AND target_id = ? AND is_manual = 0`, key.Kind, key.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteForTarget removes every link of key, manual ones included.
func (r *LinkRepo) DeleteForTarget(ctx context.Context, key model.TargetKey) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM operation_links WHERE target_kind = ? AND target_id = ?`, key.Kind, key.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
