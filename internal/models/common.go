package models

import "time"

// AuditFields mirrors the created_at / updated_at columns.
type AuditFields struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}
