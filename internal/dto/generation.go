package dto

import (
	"time"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// EstimatedWaitSeconds is the advertised time to completion of a fresh job.
const EstimatedWaitSeconds = 120

// CreateGenerationRequest defines the data needed to start a paid generation job.
// Value ranges are enforced by the generation service.
type CreateGenerationRequest struct {
	Model   string `json:"model" binding:"required"`
	Prompt  string `json:"prompt" binding:"required"`
	Size    string `json:"size" binding:"required"`
	Seconds int    `json:"seconds" binding:"required"`
}

// EstimateRequest prices a job without a prompt.
type EstimateRequest struct {
	Model   string `json:"model" binding:"required"`
	Size    string `json:"size" binding:"required"`
	Seconds int    `json:"seconds" binding:"required"`
}

// EstimateResponse is the priced view of a request for the caller.
type EstimateResponse struct {
	CreditsCost       int64  `json:"credits_cost"`
	USDEquivalent     string `json:"usd_equivalent"`
	CurrentBalance    int64  `json:"current_balance"`
	SufficientCredits bool   `json:"sufficient_credits"`
}

// CreateGenerationResponse confirms a paid, accepted job.
type CreateGenerationResponse struct {
	JobID                string           `json:"job_id"`
	Status               domain.JobStatus `json:"status"`
	CreditsCost          int64            `json:"credits_cost"`
	NewBalance           int64            `json:"new_balance"`
	EstimatedWaitSeconds int              `json:"estimated_wait_seconds"`
}

// JobResponse is a stored job. Asset URLs point at this service's content proxy.
type JobResponse struct {
	JobID                string           `json:"job_id"`
	Status               domain.JobStatus `json:"status"`
	Model                string           `json:"model"`
	Prompt               string           `json:"prompt"`
	Size                 string           `json:"size"`
	Seconds              int              `json:"seconds"`
	CreditsCost          int64            `json:"credits_cost"`
	Progress             int              `json:"progress"`
	VideoURL             *string          `json:"video_url,omitempty"`
	ThumbnailURL         *string          `json:"thumbnail_url,omitempty"`
	SpritesheetURL       *string          `json:"spritesheet_url,omitempty"`
	DownloadURLExpiresAt *time.Time       `json:"download_url_expires_at,omitempty"`
	ErrorMessage         *string          `json:"error_message,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
	FailedAt             *time.Time       `json:"failed_at,omitempty"`
}

// ListJobsParams defines the query parameters for listing jobs.
type ListJobsParams struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ListJobsResponse is one page of the caller's jobs, newest first.
type ListJobsResponse struct {
	Jobs    []JobResponse `json:"jobs"`
	Total   int64         `json:"total"`
	HasMore bool          `json:"has_more"`
}

func (r CreateGenerationRequest) ToJobSpec() domain.JobSpec {
	return domain.JobSpec{Model: r.Model, Prompt: r.Prompt, Size: r.Size, Seconds: r.Seconds}
}

func (r EstimateRequest) ToJobSpec() domain.JobSpec {
	return domain.JobSpec{Model: r.Model, Size: r.Size, Seconds: r.Seconds}
}

func ToEstimateResponse(e domain.Estimate) EstimateResponse {
	return EstimateResponse{
		CreditsCost:       e.CreditsCost,
		USDEquivalent:     e.USDEquivalent,
		CurrentBalance:    e.CurrentBalance,
		SufficientCredits: e.SufficientCredits,
	}
}

func ToCreateGenerationResponse(res domain.SubmissionResult) CreateGenerationResponse {
	return CreateGenerationResponse{
		JobID:                res.Job.JobID,
		Status:               res.Job.Status,
		CreditsCost:          res.Job.CreditsCost,
		NewBalance:           res.NewBalance,
		EstimatedWaitSeconds: EstimatedWaitSeconds,
	}
}

func ToJobResponse(j domain.Job) JobResponse {
	return JobResponse{
		JobID:                j.JobID,
		Status:               j.Status,
		Model:                j.Model,
		Prompt:               j.Prompt,
		Size:                 j.Size,
		Seconds:              j.Seconds,
		CreditsCost:          j.CreditsCost,
		Progress:             j.Progress,
		VideoURL:             j.VideoURL,
		ThumbnailURL:         j.ThumbnailURL,
		SpritesheetURL:       j.SpritesheetURL,
		DownloadURLExpiresAt: j.DownloadURLExpiresAt,
		ErrorMessage:         j.ErrorMessage,
		CreatedAt:            j.CreatedAt,
		CompletedAt:          j.CompletedAt,
		FailedAt:             j.FailedAt,
	}
}

// ToListJobsResponse converts a page; has_more is derived from offset, page size and total.
func ToListJobsResponse(jobs []domain.Job, total int64, offset int) ListJobsResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToJobResponse(j))
	}
	return ListJobsResponse{
		Jobs:    out,
		Total:   total,
		HasMore: int64(offset+len(jobs)) < total,
	}
}
