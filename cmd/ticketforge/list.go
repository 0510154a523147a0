package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tickethq/ticketforge/internal/store"
)

func listCmd() *cobra.Command {
	var filter store.Filter

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List stored tickets",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, closeDB, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			tickets, err := st.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Title", "Type", "Priority", "Effort", "Confidence", "Assignee"})
			for _, t := range tickets {
				tw.AppendRow(table.Row{
					shortID(t.ID), t.Title, t.Type, t.Priority, t.EstimatedEffort,
					fmt.Sprintf("%.2f", t.Confidence), t.SuggestedAssignee,
				})
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Type, "type", "", "ticket type filter")
	cmd.Flags().StringVar(&filter.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&filter.Workspace, "workspace", "", "workspace filter")
	return cmd
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 && len(id) > 8 {
		return id[:8]
	}
	return id
}
