package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/matcher"
)

// MaintenanceService houses destructive actions.
type MaintenanceService struct {
	DB       *sql.DB
	Matchers *matcher.Cache
	Logger   *slog.Logger
}

// Reset wipes all user data. It keeps the schema intact so the app can continue running.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		tables := []string{
			"operation_links",
			"targets",
			"operations",
			"categories",
			"accounts",
		}
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if s.Matchers != nil {
		s.Matchers.Reset()
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	loggerOr(s.Logger).Info("database reset")
	return nil
}
