package models

// Account is the accounts table row.
type Account struct {
	AccountID        string
	Balance          int64
	TotalGenerations int64
	AuditFields
}
