package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/credit_ledger/internal/models"
	"github.com/SscSPs/credit_ledger/internal/utils/mapping"
)

const jobColumns = `job_id, account_id, provider_job_id, status, model, prompt, size, seconds, credits_cost, progress,
	video_url, thumbnail_url, spritesheet_url, download_url_expires_at, error_message, created_at, completed_at, failed_at`

type PgxJobRepository struct {
	BaseRepository
}

func newPgxJobRepository(db *sql.DB) *PgxJobRepository {
	return &PgxJobRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.JobRepositoryFacade = (*PgxJobRepository)(nil)

func scanJob(row rowScanner) (models.GenerationJob, error) {
	var m models.GenerationJob
	err := row.Scan(
		&m.JobID,
		&m.AccountID,
		&m.ProviderJobID,
		&m.Status,
		&m.Model,
		&m.Prompt,
		&m.Size,
		&m.Seconds,
		&m.CreditsCost,
		&m.Progress,
		&m.VideoURL,
		&m.ThumbnailURL,
		&m.SpritesheetURL,
		&m.DownloadURLExpiresAt,
		&m.ErrorMessage,
		&m.CreatedAt,
		&m.CompletedAt,
		&m.FailedAt,
	)
	return m, err
}

// SaveJob inserts a new job record.
func (r *PgxJobRepository) SaveJob(ctx context.Context, job domain.Job) error {
	m := mapping.ToModelJob(job)
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO generation_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`,
		m.JobID,
		m.AccountID,
		m.ProviderJobID,
		m.Status,
		m.Model,
		m.Prompt,
		m.Size,
		m.Seconds,
		m.CreditsCost,
		m.Progress,
		m.VideoURL,
		m.ThumbnailURL,
		m.SpritesheetURL,
		m.DownloadURLExpiresAt,
		m.ErrorMessage,
		m.CreatedAt,
		m.CompletedAt,
		m.FailedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: job %s", apperrors.ErrDuplicate, m.JobID)
		}
		return storeError("failed to save job "+m.JobID, err)
	}
	return nil
}

func (r *PgxJobRepository) findOne(ctx context.Context, where, arg, what string) (*domain.Job, error) {
	m, err := scanJob(r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE `+where+` = $1;`, arg))
	if err != nil {
		return nil, lookupError(what, err)
	}
	job := mapping.ToDomainJob(m)
	return &job, nil
}

func (r *PgxJobRepository) FindJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.findOne(ctx, "job_id", jobID, "job "+jobID)
}

func (r *PgxJobRepository) FindJobByProviderID(ctx context.Context, providerJobID string) (*domain.Job, error) {
	return r.findOne(ctx, "provider_job_id", providerJobID, "job for provider job "+providerJobID)
}

// ListJobsByAccount returns a page of the account's jobs, newest first, and the total count.
func (r *PgxJobRepository) ListJobsByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Job, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM generation_jobs WHERE account_id = $1;`, accountID).Scan(&total); err != nil {
		return nil, 0, storeError("failed to count jobs for account "+accountID, err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM generation_jobs
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`, accountID, limit, offset)
	if err != nil {
		return nil, 0, storeError("failed to list jobs for account "+accountID, err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0, limit)
	for rows.Next() {
		m, err := scanJob(rows)
		if err != nil {
			return nil, 0, storeError("failed to scan job row for account "+accountID, err)
		}
		jobs = append(jobs, mapping.ToDomainJob(m))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError("failed iterating jobs for account "+accountID, err)
	}
	return jobs, total, nil
}

func (r *PgxJobRepository) CountJobsSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM generation_jobs WHERE account_id = $1 AND created_at >= $2;
	`, accountID, since).Scan(&n)
	if err != nil {
		return 0, storeError("failed to count jobs for account "+accountID, err)
	}
	return n, nil
}

// UpdateJobProgress only touches jobs that are not terminal yet.
func (r *PgxJobRepository) UpdateJobProgress(ctx context.Context, providerJobID string, status domain.JobStatus, progress int) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE generation_jobs SET status = $1, progress = $2
		WHERE provider_job_id = $3 AND status NOT IN ('completed', 'failed');
	`, string(status), progress, providerJobID)
	if err != nil {
		return storeError("failed to update progress for provider job "+providerJobID, err)
	}
	return nil
}

// MarkJobCompleted is safe to repeat; the first completed_at wins and failed jobs stay failed.
func (r *PgxJobRepository) MarkJobCompleted(ctx context.Context, providerJobID string, assets domain.JobAssets, completedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = 'completed', progress = 100,
		    video_url = $1, thumbnail_url = $2, spritesheet_url = $3, download_url_expires_at = $4,
		    completed_at = COALESCE(completed_at, $5)
		WHERE provider_job_id = $6 AND status <> 'failed';
	`, assets.VideoURL, assets.ThumbnailURL, assets.SpritesheetURL, assets.ExpiresAt, completedAt, providerJobID)
	if err != nil {
		return storeError("failed to mark provider job "+providerJobID+" completed", err)
	}
	return nil
}

// MarkJobFailed is safe to repeat; the first failed_at wins and completed jobs stay completed.
func (r *PgxJobRepository) MarkJobFailed(ctx context.Context, providerJobID string, errorMessage string, failedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE generation_jobs
		SET status = 'failed', error_message = $1, failed_at = COALESCE(failed_at, $2)
		WHERE provider_job_id = $3 AND status <> 'completed';
	`, errorMessage, failedAt, providerJobID)
	if err != nil {
		return storeError("failed to mark provider job "+providerJobID+" failed", err)
	}
	return nil
}
