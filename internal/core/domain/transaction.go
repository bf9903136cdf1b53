package domain

import "time"

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	KindWelcome  TransactionKind = "welcome"
	KindPurchase TransactionKind = "purchase"
	KindDebit    TransactionKind = "debit"
	KindRefund   TransactionKind = "refund"
)

// IsCredit reports whether the kind increases the balance.
func (k TransactionKind) IsCredit() bool {
	return k == KindWelcome || k == KindPurchase || k == KindRefund
}

// LedgerTransaction is an immutable balance-affecting entry. Amount is signed:
// credits are positive, debits negative. BalanceAfter is the resulting balance.
type LedgerTransaction struct {
	TransactionID string          `json:"transactionID"`
	AccountID     string          `json:"accountID"`
	Amount        int64           `json:"amount"`
	BalanceAfter  int64           `json:"balanceAfter"`
	Kind          TransactionKind `json:"kind"`
	Description   string          `json:"description"`
	JobID         *string         `json:"jobID,omitempty"`       // Job reference for debits and refunds
	ExternalRef   *string         `json:"externalRef,omitempty"` // Payment reference for purchases
	CreatedAt     time.Time       `json:"createdAt"`
}

// LedgerEntry is the input to a credit or debit. Amount is always positive here;
// the store applies the sign.
type LedgerEntry struct {
	AccountID   string
	Amount      int64
	Kind        TransactionKind
	Description string
	JobID       *string
	ExternalRef *string
}
