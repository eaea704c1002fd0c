// Package store implements the Postgres persistence layer for the directory,
// the per-scope sync locks and the run ledger.
package store

import (
	"database/sql"
)

// Store issues queries against the catalog schema.
type Store struct {
	db *sql.DB
}

// New creates a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}
