package domain

// Account is the prepaid credit balance of one user. The user identifier is the
// authenticated subject, so AccountID doubles as the user ID.
type Account struct {
	AccountID        string `json:"accountID"`
	Balance          int64  `json:"balance"`          // Never negative; changed only by ledger operations
	TotalGenerations int64  `json:"totalGenerations"` // Incremented by every successful debit
	AuditFields
}

// LedgerVerification is the result of replaying an account's transaction log.
type LedgerVerification struct {
	AccountID      string `json:"accountID"`
	Balance        int64  `json:"balance"`
	TransactionSum int64  `json:"transactionSum"`
	Consistent     bool   `json:"consistent"`
}
