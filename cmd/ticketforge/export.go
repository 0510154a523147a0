package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tickethq/ticketforge/internal/config"
	"github.com/tickethq/ticketforge/internal/export"
	"github.com/tickethq/ticketforge/internal/store"
)

func exportCmd() *cobra.Command {
	var (
		format string
		filter store.Filter
	)

	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Export stored tickets as JSON or CSV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Export.Format
			}
			if format == "" {
				format = export.FormatJSON
			}

			st, _, closeDB, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			tickets, err := st.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return export.Write(os.Stdout, tickets, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "export format: json or csv (default from config)")
	cmd.Flags().StringVar(&filter.Type, "type", "", "ticket type filter")
	cmd.Flags().StringVar(&filter.Workspace, "workspace", "", "workspace filter")
	return cmd
}
