package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/budgetforecast/internal/service"
)

func newImportCommand(a *app) *cobra.Command {
	var balance, balanceDate string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import operations from a date,amount,description[,category] CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			var opts service.ImportOptions
			if balance != "" {
				b, err := parseAmount(balance)
				if err != nil {
					return err
				}
				opts.Balance = &b
				if opts.BalanceDate, err = parseOptionalDate(balanceDate); err != nil {
					return err
				}
			}

			res, err := a.svc.Import.ImportCSV(cmd.Context(), f, opts)
			if err != nil {
				return err
			}
			a.printf("Imported %d, skipped %d already known, linked %d.\n", res.Imported, res.Skipped, res.Linked)
			for _, e := range res.Errors {
				a.printf("  %s %v\n", warnStyle.Render("error:"), e)
			}
			if len(res.NearDuplicates) > 0 {
				rows := make([][]string, 0, len(res.NearDuplicates))
				for _, nd := range res.NearDuplicates {
					rows = append(rows, []string{
						fmt.Sprint(nd.Imported.ID), a.date(nd.Imported.Date), nd.Imported.Description,
						fmt.Sprint(nd.Existing.ID), a.date(nd.Existing.Date), nd.Existing.Description,
						Money(nd.Imported.Amount),
					})
				}
				a.printf("%s", RenderTable(Table{
					Title:   "Possible duplicates (not merged)",
					Headers: []string{"New", "Date", "Description", "Existing", "Date", "Description", "Amount"},
					Rows:    rows,
					Right:   []int{6},
				}))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&balance, "balance", "", "account balance after this import")
	cmd.Flags().StringVar(&balanceDate, "balance-date", "", "date of --balance (default: latest operation)")
	return cmd
}
