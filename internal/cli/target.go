package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/service"
	"github.com/jask/budgetforecast/internal/timerange"
)

// targetFlags are shared by target add and target edit.
type targetFlags struct {
	description string
	amount      string
	category    string
	start       string
	duration    string
	period      string
	end         string
	hints       string
	dateWindow  int
	amountRatio float64
}

func (f *targetFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.description, "description", "", "what the target is")
	fs.StringVar(&f.amount, "amount", "", "signed amount per iteration")
	fs.StringVar(&f.category, "category", "", "category operations must have to match")
	fs.StringVar(&f.start, "start", "", "first iteration date (YYYY-MM-DD)")
	fs.StringVar(&f.duration, "duration", "", "iteration length, e.g. 1d or 1m")
	fs.StringVar(&f.period, "period", "", "recurrence, e.g. 1m or 2w (empty = one-time)")
	fs.StringVar(&f.end, "end", "", "last day of the recurrence (YYYY-MM-DD)")
	fs.StringVar(&f.hints, "hints", "", "comma separated description hints")
	fs.IntVar(&f.dateWindow, "date-window", 0, "date tolerance in days")
	fs.Float64Var(&f.amountRatio, "amount-ratio", 0, "amount tolerance ratio (planned operations)")
}

// apply copies the flags that were set onto t.
func (f *targetFlags) apply(fs *pflag.FlagSet, t *model.Target) error {
	set := fs.Changed
	if set("description") {
		t.Description = f.description
	}
	if set("amount") {
		amount, err := parseAmount(f.amount)
		if err != nil {
			return err
		}
		t.Amount = amount
	}
	if set("category") {
		t.Category = model.Category(f.category)
	}
	r := t.Range
	if set("start") {
		d, err := timerange.ParseDate(f.start)
		if err != nil {
			return err
		}
		r = r.WithInitialDate(d)
	}
	if set("duration") {
		p, err := timerange.ParsePeriod(f.duration)
		if err != nil {
			return err
		}
		r = r.WithDuration(p)
	}
	if set("period") {
		var p timerange.Period
		if f.period != "" {
			var err error
			if p, err = timerange.ParsePeriod(f.period); err != nil {
				return err
			}
		}
		r = r.WithPeriod(p)
	}
	if set("end") {
		d, err := parseOptionalDate(f.end)
		if err != nil {
			return err
		}
		r = r.WithEndDate(d)
	}
	t.Range = r
	if set("hints") {
		t.Match.DescriptionHints = splitHints(f.hints)
	}
	if set("date-window") {
		t.Match.DateWindow = f.dateWindow
	}
	if set("amount-ratio") {
		t.Match.AmountRatio = f.amountRatio
	}
	return nil
}

func newTargetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Manage planned operations and budgets",
	}
	cmd.AddCommand(
		newTargetAddCommand(a),
		newTargetListCommand(a),
		newTargetEditCommand(a),
		newTargetArchiveCommand(a),
		newTargetDeleteCommand(a),
		newTargetSplitCommand(a),
		newTargetNextCommand(a),
	)
	return cmd
}

func newTargetAddCommand(a *app) *cobra.Command {
	var (
		kind  string
		flags targetFlags
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a planned operation or a budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := model.ParseTargetKind(kind)
			if err != nil {
				return err
			}
			t := model.Target{
				Kind:     k,
				Currency: a.cfg.Account.Currency,
				Range:    timerange.Single(timerange.Today(), timerange.Days(1)),
				Match:    model.DefaultMatchParams(k),
			}
			if k == model.KindPlanned {
				t.Match.AmountRatio = a.cfg.Matching.AmountRatio
				t.Match.DateWindow = a.cfg.Matching.DateWindowDays
			}
			if err := flags.apply(cmd.Flags(), &t); err != nil {
				return err
			}
			created, err := a.svc.Targets.Create(cmd.Context(), t)
			if err != nil {
				return err
			}
			a.printf("Created %s %s: %s\n", created.Kind.Label(), formatKey(created.Key()), created.Range)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "planned", "planned or budget")
	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newTargetListCommand(a *app) *cobra.Command {
	var (
		kind string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var k model.TargetKind
			if kind != "" {
				var err error
				if k, err = model.ParseTargetKind(kind); err != nil {
					return err
				}
			}
			targets, err := a.svc.Targets.List(cmd.Context(), k, all)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				a.printf("No targets.\n")
				return nil
			}
			rows := make([][]string, 0, len(targets))
			for _, t := range targets {
				desc := t.Description
				if t.Archived {
					desc += mutedStyle.Render(" (archived)")
				}
				rows = append(rows, []string{
					formatKey(t.Key()), desc, string(t.Category), Money(t.Amount), t.Range.String(),
					strings.Join(t.Match.DescriptionHints, ","),
				})
			}
			a.printf("%s", RenderTable(Table{
				Headers: []string{"Target", "Description", "Category", "Amount", "Schedule", "Hints"},
				Rows:    rows,
				Right:   []int{3},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only planned or budget")
	cmd.Flags().BoolVar(&all, "all", false, "include archived targets")
	return cmd
}

func newTargetEditCommand(a *app) *cobra.Command {
	var flags targetFlags
	cmd := &cobra.Command{
		Use:   "edit <target>",
		Short: "Change a target; its automatic links are recomputed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseTargetKey(args[0])
			if err != nil {
				return err
			}
			t, err := a.svc.Targets.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if err := flags.apply(cmd.Flags(), &t); err != nil {
				return err
			}
			if _, err := a.svc.Targets.Update(cmd.Context(), t); err != nil {
				return err
			}
			a.printf("Updated %s\n", formatKey(key))
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newTargetArchiveCommand(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "archive <target>",
		Short: "Hide a target from the forecast and from matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseTargetKey(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.Targets.SetArchived(cmd.Context(), key, !undo); err != nil {
				return err
			}
			if undo {
				a.printf("Restored %s\n", formatKey(key))
			} else {
				a.printf("Archived %s\n", formatKey(key))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "unarchive instead")
	return cmd
}

func newTargetDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <target>",
		Short: "Delete a target and all of its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseTargetKey(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.Targets.Delete(cmd.Context(), key); err != nil {
				return err
			}
			a.printf("Deleted %s\n", formatKey(key))
			return nil
		},
	}
}

func newTargetSplitCommand(a *app) *cobra.Command {
	var date, amount, period, duration string
	cmd := &cobra.Command{
		Use:   "split <target>",
		Short: "End a recurring target and continue it with new values",
		Long: "Split terminates the target the day before --date and creates its continuation from --date.\n" +
			"Links on iterations from --date on move to the continuation. --date defaults to the first\n" +
			"iteration without a link.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key, err := parseTargetKey(args[0])
			if err != nil {
				return err
			}
			var req service.SplitRequest
			if req.Date, err = parseOptionalDate(date); err != nil {
				return err
			}
			if req.Date.IsZero() {
				it, ok, err := a.svc.Targets.NextNonActualizedIteration(ctx, key)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("no iteration left to split at; pass --date")
				}
				req.Date = it.InitialDate()
			}
			if amount != "" {
				v, err := parseAmount(amount)
				if err != nil {
					return err
				}
				req.Amount = &v
			}
			if period != "" {
				p, err := timerange.ParsePeriod(period)
				if err != nil {
					return err
				}
				req.Period = &p
			}
			if duration != "" {
				p, err := timerange.ParsePeriod(duration)
				if err != nil {
					return err
				}
				req.Duration = &p
			}
			res, err := a.svc.Targets.Split(ctx, key, req)
			if err != nil {
				return err
			}
			a.printf("%s now ends %s; continued as %s from %s (%d links moved)\n",
				formatKey(key), a.date(res.Terminated.Range.EndDate()),
				formatKey(res.Continuation.Key()), a.date(req.Date), res.LinksMigrated)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "first day of the continuation")
	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	cmd.Flags().StringVar(&period, "period", "", "new recurrence")
	cmd.Flags().StringVar(&duration, "duration", "", "new iteration length")
	return cmd
}

func newTargetNextCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "next <target>",
		Short: "Show the first iteration without a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseTargetKey(args[0])
			if err != nil {
				return err
			}
			it, ok, err := a.svc.Targets.NextNonActualizedIteration(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				a.printf("none\n")
				return nil
			}
			a.printf("%s\n", a.date(it.InitialDate()))
			return nil
		},
	}
}

func formatKey(k model.TargetKey) string {
	short := "planned"
	if k.Kind == model.KindBudget {
		short = "budget"
	}
	return fmt.Sprintf("%s:%d", short, k.ID)
}
