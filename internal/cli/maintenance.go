package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jask/budgetforecast/internal/testdata"
	"github.com/jask/budgetforecast/internal/timerange"
)

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with a sample household",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := testdata.Seed(cmd.Context(), a.db, a.svc, timerange.Today())
			if err != nil {
				return err
			}
			a.printf("Seeded %d targets and %d operations (%d linked)\n", len(res.Targets), res.Imported, res.Linked)
			return nil
		},
	}
}

func newResetCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data, keeping the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes every target, operation and link; pass --yes to confirm")
			}
			if err := a.svc.Maintenance.Reset(cmd.Context()); err != nil {
				return err
			}
			a.printf("Database reset\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
