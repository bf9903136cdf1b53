package models

import (
	"database/sql"
	"time"
)

// CreditTransaction is the credit_transactions table row.
type CreditTransaction struct {
	TransactionID string
	AccountID     string
	Amount        int64 // Signed
	BalanceAfter  int64
	Kind          string
	Description   string
	JobID         sql.NullString
	ExternalRef   sql.NullString
	CreatedAt     time.Time
}
