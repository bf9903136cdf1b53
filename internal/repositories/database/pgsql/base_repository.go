package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	DB *sql.DB
}

var _ portsrepo.TransactionManager = (*BaseRepository)(nil)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return apperrors.NewAppError(http.StatusInternalServerError, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction. Rolling back a finished transaction is a no-op.
func (r *BaseRepository) Rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return apperrors.NewAppError(http.StatusInternalServerError, "failed to rollback transaction", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// storeError wraps a driver error as an internal AppError, which matches apperrors.ErrStoreFailure.
func storeError(msg string, err error) error {
	return apperrors.NewAppError(http.StatusInternalServerError, msg, err)
}

// lookupError maps sql.ErrNoRows to ErrNotFound and everything else to a store error.
func lookupError(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	return storeError("failed to find "+what, err)
}
