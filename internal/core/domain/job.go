package domain

import (
	"io"
	"time"
)

// JobStatus mirrors the provider job states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobSpec holds the generation parameters supplied by the caller.
type JobSpec struct {
	Model   string `json:"model" validate:"required,oneof=sora-2 sora-2-pro"`
	Prompt  string `json:"prompt" validate:"required,min=1,max=4000"`
	Size    string `json:"size" validate:"required,oneof=720x1280 1280x720"`
	Seconds int    `json:"seconds" validate:"required,oneof=4 8 12"`
}

// JobAssets are the download locations of a completed job.
type JobAssets struct {
	VideoURL       string
	ThumbnailURL   string
	SpritesheetURL string
	ExpiresAt      time.Time
}

// Job is one paid unit of work. JobID is the stable identity shared by the lock,
// the ledger debit and refund, and the stored record; ProviderJobID is what
// notifications carry.
type Job struct {
	JobID                string     `json:"jobID"`
	AccountID            string     `json:"accountID"`
	ProviderJobID        string     `json:"providerJobID"`
	Status               JobStatus  `json:"status"`
	Model                string     `json:"model"`
	Prompt               string     `json:"prompt"`
	Size                 string     `json:"size"`
	Seconds              int        `json:"seconds"`
	CreditsCost          int64      `json:"creditsCost"`
	Progress             int        `json:"progress"`
	VideoURL             *string    `json:"videoURL,omitempty"`
	ThumbnailURL         *string    `json:"thumbnailURL,omitempty"`
	SpritesheetURL       *string    `json:"spritesheetURL,omitempty"`
	DownloadURLExpiresAt *time.Time `json:"downloadURLExpiresAt,omitempty"`
	ErrorMessage         *string    `json:"errorMessage,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	FailedAt             *time.Time `json:"failedAt,omitempty"`
}

// ProviderJob is the provider's view of a job.
type ProviderJob struct {
	ID           string
	Status       JobStatus
	Progress     int
	ErrorMessage string
}

// ContentVariant selects which asset of a completed job to download.
type ContentVariant string

const (
	VariantVideo       ContentVariant = "video"
	VariantThumbnail   ContentVariant = "thumbnail"
	VariantSpritesheet ContentVariant = "spritesheet"
)

func (v ContentVariant) Valid() bool {
	switch v {
	case VariantVideo, VariantThumbnail, VariantSpritesheet:
		return true
	}
	return false
}

// Content is a streamed provider asset. The caller closes Body.
type Content struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Estimate is the priced view of a JobSpec for one account.
type Estimate struct {
	CreditsCost       int64
	USDEquivalent     string
	CurrentBalance    int64
	SufficientCredits bool
}

// SubmissionResult is returned when a paid job was accepted by the provider.
type SubmissionResult struct {
	Job        Job
	NewBalance int64
}
