// Package export renders validated tickets as JSON or CSV for downstream
// tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tickethq/ticketforge/internal/ticket"
)

// Formats supported by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Write renders tickets in the requested format.
func Write(w io.Writer, tickets []ticket.Ticket, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, tickets)
	case FormatCSV:
		return writeCSV(w, tickets)
	default:
		return fmt.Errorf("unsupported export format %q (allowed: json, csv)", format)
	}
}

func writeJSON(w io.Writer, tickets []ticket.Ticket) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tickets); err != nil {
		return fmt.Errorf("encode tickets: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"id", "title", "type", "priority", "estimated_effort", "confidence",
	"suggested_assignee", "source_mode", "acceptance_criteria", "dependencies",
	"labels", "citation_keys",
}

func writeCSV(w io.Writer, tickets []ticket.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range tickets {
		record := []string{
			t.ID,
			t.Title,
			t.Type,
			t.Priority,
			t.EstimatedEffort,
			strconv.FormatFloat(t.Confidence, 'f', 2, 64),
			t.SuggestedAssignee,
			t.SourceMode,
			strings.Join(t.AcceptanceCriteria, "; "),
			strings.Join(t.Dependencies, "; "),
			strings.Join(t.Labels, "; "),
			strings.Join(t.CitationKeys, "; "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
