package repositories

import (
	"context"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// LedgerReader defines read operations over accounts and their transaction log.
type LedgerReader interface {
	// FindAccountByID retrieves an account, ErrNotFound if absent.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindRefundByJobID returns the refund transaction for a job, ErrNotFound if none exists.
	FindRefundByJobID(ctx context.Context, jobID string) (*domain.LedgerTransaction, error)

	// FindTransactionByExternalRef returns the transaction booked for an external payment reference.
	FindTransactionByExternalRef(ctx context.Context, externalRef string) (*domain.LedgerTransaction, error)

	// ListTransactions returns the account's transactions newest first, keyset paginated.
	ListTransactions(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerTransaction, *string, error)

	// SumTransactions returns the sum of all signed amounts for the account.
	SumTransactions(ctx context.Context, accountID string) (int64, error)
}

// LedgerWriter defines the balance-changing operations. Each call is one durable unit:
// the balance update and the appended transaction row commit together or not at all.
type LedgerWriter interface {
	// CreateAccount inserts the account with its welcome transaction. If the account
	// already exists it is returned unchanged with created=false.
	CreateAccount(ctx context.Context, accountID string, welcomeCredits int64, description string) (account *domain.Account, created bool, err error)

	// Credit increments the balance by entry.Amount (>0) and appends the transaction.
	Credit(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerTransaction, error)

	// Debit decrements the balance by entry.Amount (>0) only if balance >= amount.
	// Otherwise it returns ErrInsufficientFunds and mutates nothing.
	Debit(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerTransaction, error)
}

// LedgerRepositoryFacade combines the ledger interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}
