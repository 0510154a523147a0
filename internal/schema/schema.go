// Package schema validates canonical tickets against the published JSON
// Schema. The validation pipeline guarantees conformance by construction;
// this package is the independent check used by the store on ingest and by
// tests.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tickethq/ticketforge/internal/ticket"
)

//go:embed ticket.schema.json
var ticketSchemaJSON string

// TicketSchema returns the canonical ticket JSON Schema document.
func TicketSchema() string {
	return ticketSchemaJSON
}

// ValidateTicket checks one ticket against the canonical schema.
func ValidateTicket(t ticket.Ticket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	return ValidateDocument(data)
}

// ValidateDocument checks a raw JSON document against the canonical schema.
func ValidateDocument(doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(ticketSchemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate ticket schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)

	return fmt.Errorf("ticket schema validation failed: %s", strings.Join(errs, "; "))
}
