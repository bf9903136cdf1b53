package models

import (
	"database/sql"
	"time"
)

// GenerationJob is the generation_jobs table row.
type GenerationJob struct {
	JobID                string
	AccountID            string
	ProviderJobID        string
	Status               string
	Model                string
	Prompt               string
	Size                 string
	Seconds              int
	CreditsCost          int64
	Progress             int
	VideoURL             sql.NullString
	ThumbnailURL         sql.NullString
	SpritesheetURL       sql.NullString
	DownloadURLExpiresAt sql.NullTime
	ErrorMessage         sql.NullString
	CreatedAt            time.Time
	CompletedAt          sql.NullTime
	FailedAt             sql.NullTime
}

// ProviderNotification is the provider_notifications table row.
type ProviderNotification struct {
	ProviderJobID string
	Kind          string
	EventID       string
	ReceivedAt    time.Time
	Processed     bool
	ProcessedAt   sql.NullTime
}
