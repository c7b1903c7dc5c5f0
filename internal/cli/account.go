package cli

import (
	"github.com/spf13/cobra"

	"github.com/jask/budgetforecast/internal/timerange"
)

func newAccountCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show or set the known balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := a.svc.Accounts.Get(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("%s: %s %s on %s\n", acct.Name, Money(acct.Balance), acct.Currency, a.date(acct.BalanceDate))
			return nil
		},
	}

	var date string
	setBalance := &cobra.Command{
		Use:   "set-balance <amount>",
		Short: "Record the balance known at a date (default today)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			d, err := parseOptionalDate(date)
			if err != nil {
				return err
			}
			if d.IsZero() {
				d = timerange.Today()
			}
			acct, err := a.svc.Accounts.SetBalance(cmd.Context(), amount, d)
			if err != nil {
				return err
			}
			a.printf("Balance of %s set to %s on %s\n", acct.Name, Money(acct.Balance), a.date(acct.BalanceDate))
			return nil
		},
	}
	setBalance.Flags().StringVar(&date, "date", "", "balance date (YYYY-MM-DD)")

	cmd.AddCommand(setBalance)
	return cmd
}
