// Package cli is the budgetforecast command line: thin cobra commands over
// the services, printing lipgloss tables.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jask/budgetforecast/internal/config"
	"github.com/jask/budgetforecast/internal/database"
	"github.com/jask/budgetforecast/internal/forecast"
	"github.com/jask/budgetforecast/internal/logging"
	"github.com/jask/budgetforecast/internal/prefs"
	"github.com/jask/budgetforecast/internal/service"
	"github.com/jask/budgetforecast/internal/timerange"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfg    config.Config
	dbPath string
	db     *sql.DB
	svc    *service.Services
	logger *slog.Logger
	out    io.Writer
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:     "budgetforecast",
		Short:   "Forecast an account balance from planned operations and budgets",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.OutOrStdout())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database path (overrides database.path)")

	rootCmd.AddCommand(
		newAccountCommand(a),
		newImportCommand(a),
		newTargetCommand(a),
		newLinkCommand(a),
		newCategorizeCommand(a),
		newCategoryCommand(a),
		newBalanceCommand(a),
		newEvolutionCommand(a),
		newReportCommand(a),
		newStatusCommand(a),
		newSeedCommand(a),
		newResetCommand(a),
	)
	return rootCmd
}

func (a *app) open(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg, a.out = cfg, out

	a.logger, err = logging.New(cfg.Log)
	if err != nil {
		return err
	}

	a.db, err = database.OpenAndMigrate(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.SeedDefaults(ctx, a.db, cfg.Account.Name, cfg.Account.Currency, timerange.Today()); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	a.svc = service.New(a.db, service.Options{
		AccountName: cfg.Account.Name,
		Currency:    cfg.Account.Currency,
		MinScore:    cfg.Matching.MinScore,
		Forecast:    forecast.Settings{PostponeHorizonDays: cfg.Forecast.PostponeHorizonDays},
	}, a.logger)

	// categories added by the user survive a reset
	if cats, err := prefs.LoadCategories(); err == nil {
		if err := a.svc.Categorize.AddCategories(ctx, cats...); err != nil {
			return err
		}
	} else {
		a.logger.Warn("saved categories unreadable", "error", err)
	}
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) date(d timerange.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format(a.cfg.UI.DateFormat)
}
