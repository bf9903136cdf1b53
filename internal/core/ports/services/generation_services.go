package services

import (
	"context"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// GenerationReaderSvc defines read operations over an account's jobs.
type GenerationReaderSvc interface {
	Estimate(ctx context.Context, accountID string, spec domain.JobSpec) (*domain.Estimate, error)
	GetJob(ctx context.Context, accountID, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, accountID string, limit, offset int) ([]domain.Job, int64, error)
	FetchContent(ctx context.Context, accountID, jobID string, variant domain.ContentVariant) (*domain.Content, error)
}

// GenerationWriterSvc runs the paid submission: lock, debit, submit, commit or compensate.
type GenerationWriterSvc interface {
	Submit(ctx context.Context, accountID string, spec domain.JobSpec) (*domain.SubmissionResult, error)
}

// GenerationSvcFacade combines all generation-related service interfaces
type GenerationSvcFacade interface {
	GenerationReaderSvc
	GenerationWriterSvc
}

// NotificationSvc applies provider terminal events at most once per (job, kind).
type NotificationSvc interface {
	HandleTerminalEvent(ctx context.Context, event domain.TerminalEvent) (domain.NotificationOutcome, error)
}

// PricingSvc prices job specs and lists credit packs.
type PricingSvc interface {
	CostFor(spec domain.JobSpec) (int64, error)
	CreditsToUSD(credits int64) string
	Packs() []domain.CreditPack
	FindPack(productID string) (domain.CreditPack, bool)
}
