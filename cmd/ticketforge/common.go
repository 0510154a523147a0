package main

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/tickethq/ticketforge/internal/config"
	"github.com/tickethq/ticketforge/internal/store"
)

// openStore loads config and opens the ticket store, creating the data
// directory on first use.
func openStore() (*store.Store, *sql.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, func() {}, err
	}
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, func() {}, err
		}
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, func() {}, err
	}
	return store.NewStore(db), db, func() { _ = db.Close() }, nil
}
