package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func editCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:          "edit <id>",
		Short:        "Edit a stored ticket and re-validate it",
		Long:         "Applies field overrides to a stored ticket and runs the result back through the validation pipeline, so citation keys are re-derived and confidence is re-clamped. Values are parsed as JSON when possible, else taken as strings.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			for _, set := range sets {
				key, value, ok := strings.Cut(set, "=")
				if !ok || strings.TrimSpace(key) == "" {
					return fmt.Errorf("invalid --set %q (expected key=value)", set)
				}
				var parsed any
				if err := json.Unmarshal([]byte(value), &parsed); err != nil {
					parsed = value
				}
				overrides[key] = parsed
			}
			if len(overrides) == 0 {
				return fmt.Errorf("no overrides supplied (use --set key=value)")
			}

			st, _, closeDB, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			updated, err := st.Update(cmd.Context(), args[0], overrides)
			if err != nil {
				return err
			}
			log.Info().Str("id", updated.ID).Msg("ticket updated and re-validated")

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(updated)
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field override as key=value (repeatable)")
	return cmd
}
