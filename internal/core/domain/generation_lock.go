package domain

import "time"

// GenerationLock marks that a paid job is in flight for an account. The row
// existing is the locked state; there is no flag.
type GenerationLock struct {
	AccountID  string    `json:"accountID"`
	JobID      string    `json:"jobID"`
	AcquiredAt time.Time `json:"acquiredAt"`
}
