package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// JobReader defines read operations for job records
type JobReader interface {
	FindJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	FindJobByProviderID(ctx context.Context, providerJobID string) (*domain.Job, error)

	// ListJobsByAccount returns a page of jobs newest first and the total job count.
	ListJobsByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Job, int64, error)

	// CountJobsSince counts jobs created by the account at or after since.
	CountJobsSince(ctx context.Context, accountID string, since time.Time) (int64, error)
}

// JobWriter defines write operations for job records. The Mark* operations are
// idempotent and never move a job from one terminal state to the other.
type JobWriter interface {
	SaveJob(ctx context.Context, job domain.Job) error
	UpdateJobProgress(ctx context.Context, providerJobID string, status domain.JobStatus, progress int) error
	MarkJobCompleted(ctx context.Context, providerJobID string, assets domain.JobAssets, completedAt time.Time) error
	MarkJobFailed(ctx context.Context, providerJobID string, errorMessage string, failedAt time.Time) error
}

// JobRepositoryFacade combines all job-related repository interfaces
type JobRepositoryFacade interface {
	JobReader
	JobWriter
}
