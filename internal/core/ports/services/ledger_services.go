package services

import (
	"context"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// AccountReaderSvc defines read operations over an account's credits.
type AccountReaderSvc interface {
	GetBalance(ctx context.Context, accountID string) (int64, error)
	ListTransactions(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerTransaction, *string, error)

	// VerifyLedger replays the transaction log against the stored balance.
	VerifyLedger(ctx context.Context, accountID string) (*domain.LedgerVerification, error)
}

// AccountWriterSvc defines operations that create accounts or add credits.
type AccountWriterSvc interface {
	// EnsureAccount returns the account, creating it with welcome credits on first sight.
	EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// PurchaseCredits books a signed store transaction. Each external transaction is booked once.
	PurchaseCredits(ctx context.Context, accountID string, signedTransaction string) (*domain.LedgerTransaction, error)

	ListCreditPacks() []domain.CreditPack
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}

// RefundSvc issues compensating credits. Refund is idempotent per job ID.
type RefundSvc interface {
	Refund(ctx context.Context, accountID, jobID string, amount int64) (int64, error)
}

// GenerationLockSvc is the per-account mutual exclusion for paid submissions.
type GenerationLockSvc interface {
	Acquire(ctx context.Context, accountID, jobID string) error
	Release(ctx context.Context, accountID string) error
	IsHeld(ctx context.Context, accountID string) (bool, error)
}
