package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jask/budgetforecast/internal/model"
	"github.com/jask/budgetforecast/internal/service"
	"github.com/jask/budgetforecast/internal/timerange"
)

func newLinkCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link operations to target iterations by hand",
	}
	cmd.AddCommand(
		newLinkWriteCommand(a, "add", "Link an unlinked operation", false),
		newLinkWriteCommand(a, "relink", "Replace the link of an operation", true),
		newLinkRemoveCommand(a),
		newLinkListCommand(a),
	)
	return cmd
}

func newLinkWriteCommand(a *app, use, short string, replace bool) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   use + " <operation> <target> <iteration-date>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opID, err := parseOperationID(args[0])
			if err != nil {
				return err
			}
			key, err := parseTargetKey(args[1])
			if err != nil {
				return err
			}
			it, err := timerange.ParseDate(args[2])
			if err != nil {
				return err
			}
			req := service.LinkRequest{OperationID: opID, Target: key, IterationDate: it, Notes: notes}
			var l model.Link
			if replace {
				l, err = a.svc.Links.Relink(cmd.Context(), req)
			} else {
				l, err = a.svc.Links.Link(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			a.printf("Operation %d linked to %s, iteration %s\n", l.OperationID, formatKey(l.Target), a.date(l.IterationDate))
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "free text kept with the link")
	return cmd
}

func newLinkRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <operation>",
		Short: "Remove the link of an operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opID, err := parseOperationID(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.Links.Unlink(cmd.Context(), opID); err != nil {
				return err
			}
			a.printf("Operation %d unlinked\n", opID)
			return nil
		},
	}
}

func newLinkListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [target]",
		Short: "List links, optionally of one target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key model.TargetKey
			if len(args) == 1 {
				var err error
				if key, err = parseTargetKey(args[0]); err != nil {
					return err
				}
			}
			links, err := a.svc.Links.List(cmd.Context(), key)
			if err != nil {
				return err
			}
			if len(links) == 0 {
				a.printf("No links.\n")
				return nil
			}
			rows := make([][]string, 0, len(links))
			for _, l := range links {
				origin := "auto"
				if l.Manual {
					origin = "manual"
				}
				rows = append(rows, []string{fmt.Sprint(l.OperationID), formatKey(l.Target), a.date(l.IterationDate), origin, l.Notes})
			}
			a.printf("%s", RenderTable(Table{
				Headers: []string{"Operation", "Target", "Iteration", "Origin", "Notes"},
				Rows:    rows,
			}))
			return nil
		},
	}
}
