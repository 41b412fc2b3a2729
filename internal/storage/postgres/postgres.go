// Package postgres implements storage.Store on top of a pgx connection
// pool. Status transitions that serialize concurrent accepts are single
// conditional UPDATEs keyed on the expected prior status.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the postgres-backed implementation of storage.Store
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store using the given connection pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
