package pgsql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
)

type PgxGenerationLockRepository struct {
	BaseRepository
}

func newPgxGenerationLockRepository(db *sql.DB) *PgxGenerationLockRepository {
	return &PgxGenerationLockRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.GenerationLockRepository = (*PgxGenerationLockRepository)(nil)

// AcquireLock is a single conditional insert. The primary key on account_id
// makes concurrent acquires for one account race inside Postgres, not here.
func (r *PgxGenerationLockRepository) AcquireLock(ctx context.Context, lock domain.GenerationLock) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO generation_locks (account_id, job_id, acquired_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO NOTHING;
	`, lock.AccountID, lock.JobID, lock.AcquiredAt)
	if err != nil {
		return storeError("failed to acquire generation lock for account "+lock.AccountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError("failed to read rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrAlreadyLocked, lock.AccountID)
	}
	return nil
}

// ReleaseLock deletes the lock row unconditionally.
func (r *PgxGenerationLockRepository) ReleaseLock(ctx context.Context, accountID string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM generation_locks WHERE account_id = $1;`, accountID); err != nil {
		return storeError("failed to release generation lock for account "+accountID, err)
	}
	return nil
}

func (r *PgxGenerationLockRepository) FindLock(ctx context.Context, accountID string) (*domain.GenerationLock, error) {
	var lock domain.GenerationLock
	err := r.DB.QueryRowContext(ctx, `
		SELECT account_id, job_id, acquired_at FROM generation_locks WHERE account_id = $1;
	`, accountID).Scan(&lock.AccountID, &lock.JobID, &lock.AcquiredAt)
	if err != nil {
		return nil, lookupError("generation lock for account "+accountID, err)
	}
	return &lock, nil
}
