package dto

import (
	"time"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// AccountResponse is the caller's own account summary.
type AccountResponse struct {
	AccountID            string    `json:"account_id"`
	CreditsBalance       int64     `json:"credits_balance"`
	TotalGenerations     int64     `json:"total_generations"`
	GenerationInProgress bool      `json:"generation_in_progress"`
	CreatedAt            time.Time `json:"created_at"`
}

// LedgerVerificationResponse reports whether balance equals the sum of all entries.
type LedgerVerificationResponse struct {
	AccountID      string `json:"account_id"`
	Balance        int64  `json:"balance"`
	TransactionSum int64  `json:"transaction_sum"`
	Consistent     bool   `json:"consistent"`
}

func ToAccountResponse(acc domain.Account, inProgress bool) AccountResponse {
	return AccountResponse{
		AccountID:            acc.AccountID,
		CreditsBalance:       acc.Balance,
		TotalGenerations:     acc.TotalGenerations,
		GenerationInProgress: inProgress,
		CreatedAt:            acc.CreatedAt,
	}
}

func ToLedgerVerificationResponse(v domain.LedgerVerification) LedgerVerificationResponse {
	return LedgerVerificationResponse{
		AccountID:      v.AccountID,
		Balance:        v.Balance,
		TransactionSum: v.TransactionSum,
		Consistent:     v.Consistent,
	}
}
