package repositories

import (
	"context"
	"database/sql"
)

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// Begin starts a new database transaction
	Begin(ctx context.Context) (*sql.Tx, error)

	// Commit commits a transaction
	Commit(tx *sql.Tx) error

	// Rollback rolls back a transaction
	Rollback(tx *sql.Tx) error
}
