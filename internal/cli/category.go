package cli

import (
	"github.com/spf13/cobra"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/prefs"
)

func newCategorizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <operation> <category>",
		Short: "Set the category of an operation and relink it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opID, err := parseOperationID(args[0])
			if err != nil {
				return err
			}
			l, err := a.svc.Categorize.Categorize(cmd.Context(), opID, model.Category(args[1]))
			if err != nil {
				return err
			}
			if l == nil {
				a.printf("Operation %d is now %s and unlinked\n", opID, args[1])
				return nil
			}
			a.printf("Operation %d is now %s, linked to %s iteration %s\n",
				opID, args[1], formatKey(l.Target), a.date(l.IterationDate))
			return nil
		},
	}
}

func newCategoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "List or add categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := a.svc.Categorize.Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				a.printf("%s\n", c)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>...",
		Short: "Add categories; they are kept across resets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]model.Category, len(args))
			for i, name := range args {
				names[i] = model.Category(name)
			}
			saved, err := prefs.AddCategories(names...)
			if err != nil {
				return err
			}
			return a.svc.Categorize.AddCategories(cmd.Context(), saved...)
		},
	})
	return cmd
}
