package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jask/budgetforecast/internal/forecast"
	"github.com/jask/budgetforecast/internal/timerange"
)

func newBalanceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [date]",
		Short: "Projected balance at the end of a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := timerange.Today()
			if len(args) == 1 {
				var err error
				if d, err = timerange.ParseDate(args[0]); err != nil {
					return err
				}
			}
			b, err := a.svc.Forecast.BalanceAt(cmd.Context(), d)
			if err != nil {
				return err
			}
			a.printf("%s: %s\n", a.date(d), Money(b))
			return nil
		},
	}
}

// dateRange reads --from and --to, defaulting to the current month and the
// given number of following months.
func dateRange(from, to string, months int) (timerange.Date, timerange.Date, error) {
	f, err := parseOptionalDate(from)
	if err != nil {
		return f, f, err
	}
	t, err := parseOptionalDate(to)
	if err != nil {
		return f, t, err
	}
	if f.IsZero() {
		f = timerange.Today().FirstOfMonth()
	}
	if t.IsZero() {
		t = f.AddMonths(months).AddDays(-1)
	}
	return f, t, nil
}

func newEvolutionCommand(a *app) *cobra.Command {
	var from, to string
	var step int
	cmd := &cobra.Command{
		Use:   "evolution",
		Short: "Daily projected balance over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, t, err := dateRange(from, to, 3)
			if err != nil {
				return err
			}
			points, err := a.svc.Forecast.BalanceEvolution(cmd.Context(), f, t)
			if err != nil {
				return err
			}
			values := make([]decimal.Decimal, 0, len(points))
			rows := make([][]string, 0, len(points)/max(step, 1)+1)
			for i, p := range points {
				values = append(values, p.Balance)
				if i%max(step, 1) == 0 || i == len(points)-1 {
					rows = append(rows, []string{a.date(p.Date), Money(p.Balance)})
				}
			}
			a.printf("%s\n", Sparkline(values))
			a.printf("%s", RenderTable(Table{Headers: []string{"Date", "Balance"}, Rows: rows, Right: []int{1}}))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (default: first of this month)")
	cmd.Flags().StringVar(&to, "to", "", "last day (default: three months on)")
	cmd.Flags().IntVar(&step, "step", 7, "print one row every step days")
	return cmd
}

func newReportCommand(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Planned, actual and projected amounts per month and category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, t, err := dateRange(from, to, 1)
			if err != nil {
				return err
			}
			cells, err := a.svc.Forecast.BudgetReport(cmd.Context(), f, t)
			if err != nil {
				return err
			}
			if len(cells) == 0 {
				a.printf("Nothing planned or recorded in this period.\n")
				return nil
			}
			rows := make([][]string, 0, len(cells))
			for _, c := range cells {
				rows = append(rows, []string{
					c.Month.Format("2006-01"), string(c.Category),
					Money(c.Planned), Money(c.Actual), Money(c.Projected),
				})
			}
			a.printf("%s", RenderTable(Table{
				Headers: []string{"Month", "Category", "Planned", "Actual", "Projected"},
				Rows:    rows,
				Right:   []int{2, 3, 4},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (default: first of this month)")
	cmd.Flags().StringVar(&to, "to", "", "last day (default: end of the month)")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "status <target>",
		Short: "Show the state of each iteration of a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseTargetKey(args[0])
			if err != nil {
				return err
			}
			f, err := parseOptionalDate(from)
			if err != nil {
				return err
			}
			t, err := parseOptionalDate(to)
			if err != nil {
				return err
			}
			states, err := a.svc.Forecast.IterationStatuses(cmd.Context(), key, f, t)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(states))
			for _, st := range states {
				ops := make([]string, 0, len(st.Operations))
				for _, id := range st.Operations {
					ops = append(ops, fmt.Sprint(id))
				}
				rows = append(rows, []string{
					a.date(st.Iteration.InitialDate()), a.date(st.Iteration.LastDate()),
					statusLabel(st.Status), Money(st.Planned), Money(st.Amount()), strings.Join(ops, ","),
				})
			}
			a.printf("%s", RenderTable(Table{
				Title:   formatKey(key),
				Headers: []string{"From", "To", "Status", "Planned", "Amount", "Operations"},
				Rows:    rows,
				Right:   []int{3, 4},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (default: target start)")
	cmd.Flags().StringVar(&to, "to", "", "last day (default: a year after the balance date)")
	return cmd
}

func statusLabel(s forecast.Status) string {
	switch s {
	case forecast.StatusActualized:
		return okStyle.Render(string(s))
	case forecast.StatusLate, forecast.StatusPostponed:
		return warnStyle.Render(string(s))
	case forecast.StatusSkipped:
		return mutedStyle.Render(string(s))
	}
	return string(s)
}
