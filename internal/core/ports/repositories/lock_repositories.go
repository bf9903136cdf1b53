package repositories

import (
	"context"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// GenerationLockRepository persists per-account generation locks.
type GenerationLockRepository interface {
	// AcquireLock inserts the lock row atomically; ErrAlreadyLocked if a row exists.
	AcquireLock(ctx context.Context, lock domain.GenerationLock) error

	// ReleaseLock deletes the account's lock row. Deleting an absent row is not an error.
	ReleaseLock(ctx context.Context, accountID string) error

	// FindLock returns the current lock, ErrNotFound if the account is unlocked.
	FindLock(ctx context.Context, accountID string) (*domain.GenerationLock, error)
}
