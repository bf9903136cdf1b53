package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/credit_ledger/internal/models"
	"github.com/SscSPs/credit_ledger/internal/utils/mapping"
	"github.com/SscSPs/credit_ledger/internal/utils/pagination"
	"github.com/google/uuid"
)

const transactionColumns = `transaction_id, account_id, amount, balance_after, kind, description, job_id, external_ref, created_at`

type PgxLedgerRepository struct {
	BaseRepository
	now func() time.Time
}

// newPgxLedgerRepository creates a new repository for accounts and the credit ledger.
func newPgxLedgerRepository(db *sql.DB) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{DB: db}, now: func() time.Time { return time.Now().UTC() }}
}

// NewLedgerRepository is exported for callers that only need the ledger.
func NewLedgerRepository(db *sql.DB) portsrepo.LedgerRepositoryFacade {
	return newPgxLedgerRepository(db)
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

func scanTransaction(row rowScanner) (models.CreditTransaction, error) {
	var m models.CreditTransaction
	err := row.Scan(
		&m.TransactionID,
		&m.AccountID,
		&m.Amount,
		&m.BalanceAfter,
		&m.Kind,
		&m.Description,
		&m.JobID,
		&m.ExternalRef,
		&m.CreatedAt,
	)
	return m, err
}

func (r *PgxLedgerRepository) insertTransaction(ctx context.Context, tx *sql.Tx, m models.CreditTransaction) error {
	query := `
		INSERT INTO credit_transactions (transaction_id, account_id, amount, balance_after, kind, description, job_id, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := tx.ExecContext(ctx, query,
		m.TransactionID,
		m.AccountID,
		m.Amount,
		m.BalanceAfter,
		m.Kind,
		m.Description,
		m.JobID,
		m.ExternalRef,
		m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s transaction for account %s", apperrors.ErrDuplicate, m.Kind, m.AccountID)
		}
		return storeError("failed to insert credit transaction", err)
	}
	return nil
}

func newTransactionRow(entry domain.LedgerEntry, signedAmount, balanceAfter int64, at time.Time) models.CreditTransaction {
	return models.CreditTransaction{
		TransactionID: uuid.NewString(),
		AccountID:     entry.AccountID,
		Amount:        signedAmount,
		BalanceAfter:  balanceAfter,
		Kind:          string(entry.Kind),
		Description:   entry.Description,
		JobID:         mapping.ToNullString(entry.JobID),
		ExternalRef:   mapping.ToNullString(entry.ExternalRef),
		CreatedAt:     at,
	}
}

// CreateAccount inserts the account and its welcome transaction in one database transaction.
func (r *PgxLedgerRepository) CreateAccount(ctx context.Context, accountID string, welcomeCredits int64, description string) (*domain.Account, bool, error) {
	now := r.now()

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = r.Rollback(tx) }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (account_id, balance, total_generations, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (account_id) DO NOTHING;
	`, accountID, welcomeCredits, now)
	if err != nil {
		return nil, false, storeError("failed to insert account "+accountID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, storeError("failed to read rows affected", err)
	}

	if inserted == 0 {
		if err := r.Rollback(tx); err != nil {
			return nil, false, err
		}
		existing, err := r.FindAccountByID(ctx, accountID)
		return existing, false, err
	}

	if welcomeCredits > 0 {
		entry := domain.LedgerEntry{AccountID: accountID, Amount: welcomeCredits, Kind: domain.KindWelcome, Description: description}
		if err := r.insertTransaction(ctx, tx, newTransactionRow(entry, welcomeCredits, welcomeCredits, now)); err != nil {
			return nil, false, err
		}
	}

	if err := r.Commit(tx); err != nil {
		return nil, false, err
	}

	acc := mapping.ToDomainAccount(models.Account{
		AccountID:   accountID,
		Balance:     welcomeCredits,
		AuditFields: models.AuditFields{CreatedAt: now, UpdatedAt: now},
	})
	return &acc, true, nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxLedgerRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
		SELECT account_id, balance, total_generations, created_at, updated_at
		FROM accounts
		WHERE account_id = $1;
	`
	var m models.Account
	err := r.DB.QueryRowContext(ctx, query, accountID).Scan(
		&m.AccountID,
		&m.Balance,
		&m.TotalGenerations,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, lookupError("account "+accountID, err)
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}

// Credit adds entry.Amount to the balance and appends the transaction in one unit.
func (r *PgxLedgerRepository) Credit(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerTransaction, error) {
	if entry.Amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive, got %d", apperrors.ErrValidation, entry.Amount)
	}
	if !entry.Kind.IsCredit() {
		return nil, fmt.Errorf("%w: %s is not a credit kind", apperrors.ErrValidation, entry.Kind)
	}
	now := r.now()

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Rollback(tx) }()

	var balance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = $2
		WHERE account_id = $3
		RETURNING balance;
	`, entry.Amount, now, entry.AccountID).Scan(&balance)
	if err != nil {
		return nil, lookupError("account "+entry.AccountID, err)
	}

	row := newTransactionRow(entry, entry.Amount, balance, now)
	if err := r.insertTransaction(ctx, tx, row); err != nil {
		return nil, err
	}
	if err := r.Commit(tx); err != nil {
		return nil, err
	}

	txn := mapping.ToDomainTransaction(row)
	return &txn, nil
}

// Debit subtracts entry.Amount with a single compare-and-decrement statement.
// When the balance is too low no row matches and nothing is written.
func (r *PgxLedgerRepository) Debit(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerTransaction, error) {
	if entry.Amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive, got %d", apperrors.ErrValidation, entry.Amount)
	}
	entry.Kind = domain.KindDebit
	now := r.now()

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Rollback(tx) }()

	var balance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE accounts SET balance = balance - $1, total_generations = total_generations + 1, updated_at = $2
		WHERE account_id = $3 AND balance >= $1
		RETURNING balance;
	`, entry.Amount, now, entry.AccountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_id = $1);`, entry.AccountID).Scan(&exists); err != nil {
			return nil, storeError("failed to check account "+entry.AccountID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, entry.AccountID)
		}
		return nil, fmt.Errorf("%w: account %s cannot pay %d", apperrors.ErrInsufficientFunds, entry.AccountID, entry.Amount)
	}
	if err != nil {
		return nil, storeError("failed to debit account "+entry.AccountID, err)
	}

	row := newTransactionRow(entry, -entry.Amount, balance, now)
	if err := r.insertTransaction(ctx, tx, row); err != nil {
		return nil, err
	}
	if err := r.Commit(tx); err != nil {
		return nil, err
	}

	txn := mapping.ToDomainTransaction(row)
	return &txn, nil
}

// FindRefundByJobID returns the refund booked for a job, if any.
func (r *PgxLedgerRepository) FindRefundByJobID(ctx context.Context, jobID string) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM credit_transactions WHERE job_id = $1 AND kind = 'refund' LIMIT 1;`
	m, err := scanTransaction(r.DB.QueryRowContext(ctx, query, jobID))
	if err != nil {
		return nil, lookupError("refund for job "+jobID, err)
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

// FindTransactionByExternalRef returns the transaction booked for a payment reference, if any.
func (r *PgxLedgerRepository) FindTransactionByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM credit_transactions WHERE external_ref = $1 LIMIT 1;`
	m, err := scanTransaction(r.DB.QueryRowContext(ctx, query, externalRef))
	if err != nil {
		return nil, lookupError("transaction with external reference "+externalRef, err)
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

// ListTransactions returns transactions newest first using a (created_at, transaction_id) cursor.
func (r *PgxLedgerRepository) ListTransactions(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerTransaction, *string, error) {
	if limit <= 0 {
		limit = 50
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	args := []any{accountID}
	query := `SELECT ` + transactionColumns + ` FROM credit_transactions WHERE account_id = $1`
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", decodeErr)
		}
		query += ` AND (created_at, transaction_id) < ($2, $3)`
		args = append(args, lastCreatedAt, lastID)
	}
	query += ` ORDER BY created_at DESC, transaction_id DESC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, storeError("failed to query transactions for account "+accountID, err)
	}
	defer rows.Close()

	results := make([]models.CreditTransaction, 0, fetchLimit)
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, nil, storeError("failed to scan transaction row for account "+accountID, err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, storeError("failed iterating transactions for account "+accountID, err)
	}

	var nextTokenVal *string
	if len(results) > limit {
		last := results[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		nextTokenVal = &token
		results = results[:limit]
	}

	return mapping.ToDomainTransactionSlice(results), nextTokenVal, nil
}

// SumTransactions sums every signed amount booked for the account.
func (r *PgxLedgerRepository) SumTransactions(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM credit_transactions WHERE account_id = $1;`, accountID).Scan(&sum)
	if err != nil {
		return 0, storeError("failed to sum transactions for account "+accountID, err)
	}
	return sum, nil
}
