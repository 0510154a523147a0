package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tickethq/ticketforge/internal/extract"
	"github.com/tickethq/ticketforge/internal/validate"
)

func validateCmd() *cobra.Command {
	var (
		sourceDocs []string
		workspace  string
		save       bool
	)

	cmd := &cobra.Command{
		Use:          "validate <file|->",
		Short:        "Validate and repair a batch of raw ticket candidates",
		Long:         "Reads raw LLM output (JSON, noisy text containing JSON, or YAML) and runs every candidate through the validation pipeline. Validated tickets are printed to stdout as JSON; the validation log goes to stderr.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}

			candidates, err := parseCandidates(args[0], data)
			if err != nil {
				return err
			}
			if workspace != "" {
				for _, c := range candidates {
					if _, ok := c["workspace_id"]; !ok {
						c["workspace_id"] = workspace
					}
				}
			}

			ctx := validate.Context{
				SourceDocIDs: sourceDocs,
				HasDocuments: len(sourceDocs) > 0,
			}
			res := validate.ValidateAndRepair(candidates, ctx)
			logResult(res)

			if save {
				st, _, closeDB, err := openStore()
				if err != nil {
					return err
				}
				defer closeDB()
				if err := st.SaveBatch(cmd.Context(), res.Tickets); err != nil {
					return err
				}
				log.Info().Int("saved", len(res.Tickets)).Msg("tickets saved to store")
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Tickets)
		},
	}

	cmd.Flags().StringSliceVar(&sourceDocs, "source-doc", nil, "source document id backing this run (repeatable)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id stamped on candidates that lack one")
	cmd.Flags().BoolVar(&save, "save", false, "persist validated tickets to the store")
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// parseCandidates decodes the input into a candidate batch. YAML files are
// decoded directly; everything else goes through the best-effort JSON
// extractor, which tolerates prose and markdown around the payload.
func parseCandidates(path string, data []byte) ([]map[string]any, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		var items []map[string]any
		if err := yaml.Unmarshal(data, &items); err != nil {
			var single map[string]any
			if err2 := yaml.Unmarshal(data, &single); err2 != nil {
				return nil, fmt.Errorf("parse yaml candidates: %w", err)
			}
			items = []map[string]any{single}
		}
		return items, nil
	}
	return extract.Candidates(data), nil
}

func logResult(res validate.Result) {
	log.Info().
		Int("input", res.Log.TotalInput).
		Int("output", res.Log.TotalOutput).
		Int("repaired", res.Log.Repaired).
		Int("dropped", res.Log.Dropped).
		Int("promoted_to_decision", res.Log.PromotedToDecision).
		Int("citations_injected", res.Log.CitationsInjected).
		Msg("validation complete")
	for _, reason := range res.Log.Reasons {
		log.Debug().Msg(reason)
	}
}
