package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tickethq/ticketforge/internal/schema"
	"github.com/tickethq/ticketforge/internal/ticket"
	"github.com/tickethq/ticketforge/internal/validate"
)

// Store provides persistence for validated tickets.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type      string
	Priority  string
	Workspace string
}

// SaveBatch inserts or replaces validated tickets in one transaction. Each
// ticket is checked against the canonical schema first: the store does not
// re-trust callers that bypassed the pipeline.
func (s *Store) SaveBatch(ctx context.Context, tickets []ticket.Ticket) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save batch: %w", err)
	}
	for _, t := range tickets {
		if err := schema.ValidateTicket(t); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("ticket %q: %w", t.ID, err)
		}
		doc, err := json.Marshal(t)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal ticket %q: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tickets(id, title, type, priority, workspace_id, created_at, updated_at, doc)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title=excluded.title, type=excluded.type, priority=excluded.priority,
				workspace_id=excluded.workspace_id, updated_at=excluded.updated_at, doc=excluded.doc`,
			t.ID, t.Title, t.Type, t.Priority, t.WorkspaceID, now, now, string(doc)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert ticket %q: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save batch: %w", err)
	}
	return nil
}

// Get loads one ticket by id.
func (s *Store) Get(ctx context.Context, id string) (ticket.Ticket, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM tickets WHERE id=?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return ticket.Ticket{}, fmt.Errorf("ticket %q not found", id)
	}
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("query ticket %q: %w", id, err)
	}
	var t ticket.Ticket
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return ticket.Ticket{}, fmt.Errorf("decode ticket %q: %w", id, err)
	}
	return t, nil
}

// List returns stored tickets matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]ticket.Ticket, error) {
	query := `SELECT doc FROM tickets WHERE 1=1`
	args := []any{}
	if filter.Type != "" {
		query += ` AND type=?`
		args = append(args, filter.Type)
	}
	if filter.Priority != "" {
		query += ` AND priority=?`
		args = append(args, filter.Priority)
	}
	if filter.Workspace != "" {
		query += ` AND workspace_id=?`
		args = append(args, filter.Workspace)
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var out []ticket.Ticket
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		var t ticket.Ticket
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, fmt.Errorf("decode ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update applies field overrides to a stored ticket and re-runs the full
// validation pipeline before writing, re-deriving citation keys and
// re-clamping confidence. Edited fields are never trusted as-is.
func (s *Store) Update(ctx context.Context, id string, overrides map[string]any) (ticket.Ticket, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return ticket.Ticket{}, err
	}

	doc, err := json.Marshal(existing)
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("marshal ticket %q: %w", id, err)
	}
	var candidate map[string]any
	if err := json.Unmarshal(doc, &candidate); err != nil {
		return ticket.Ticket{}, fmt.Errorf("decode ticket %q: %w", id, err)
	}
	for key, value := range overrides {
		candidate[key] = value
	}

	res := validate.ValidateAndRepair([]map[string]any{candidate}, revalidationContext(existing))
	if len(res.Tickets) == 0 {
		return ticket.Ticket{}, fmt.Errorf("edit rejected: %v", res.Log.Reasons)
	}
	updated := res.Tickets[0]

	if err := s.SaveBatch(ctx, []ticket.Ticket{updated}); err != nil {
		return ticket.Ticket{}, err
	}
	return updated, nil
}

// Delete removes one ticket.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete ticket %q: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete ticket %q: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("ticket %q not found", id)
	}
	return nil
}

// revalidationContext reconstructs the validation context for a stored
// ticket from its own provenance fields, so re-validation applies the same
// grounding rules the original run did.
func revalidationContext(t ticket.Ticket) validate.Context {
	docIDs := t.SourceDocs
	if len(docIDs) == 0 {
		seen := map[string]bool{}
		for _, c := range t.Citations {
			if seen[c.DocumentID] {
				continue
			}
			seen[c.DocumentID] = true
			docIDs = append(docIDs, c.DocumentID)
		}
	}
	return validate.Context{
		SourceDocIDs: docIDs,
		HasDocuments: t.SourceMode == ticket.SourceModeGrounded,
	}
}
