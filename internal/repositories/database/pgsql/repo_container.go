package pgsql

import (
	"database/sql"

	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
)

// NewRepositoryProvider wires all Postgres repositories over one database handle.
func NewRepositoryProvider(db *sql.DB) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerRepo:       newPgxLedgerRepository(db),
		LockRepo:         newPgxGenerationLockRepository(db),
		JobRepo:          newPgxJobRepository(db),
		NotificationRepo: newPgxNotificationRepository(db),
	}
}
