package mapping

import (
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	"github.com/SscSPs/credit_ledger/internal/models"
)

// ToModelJob converts a domain.Job to a generation_jobs row
func ToModelJob(d domain.Job) models.GenerationJob {
	return models.GenerationJob{
		JobID:                d.JobID,
		AccountID:            d.AccountID,
		ProviderJobID:        d.ProviderJobID,
		Status:               string(d.Status),
		Model:                d.Model,
		Prompt:               d.Prompt,
		Size:                 d.Size,
		Seconds:              d.Seconds,
		CreditsCost:          d.CreditsCost,
		Progress:             d.Progress,
		VideoURL:             ToNullString(d.VideoURL),
		ThumbnailURL:         ToNullString(d.ThumbnailURL),
		SpritesheetURL:       ToNullString(d.SpritesheetURL),
		DownloadURLExpiresAt: ToNullTime(d.DownloadURLExpiresAt),
		ErrorMessage:         ToNullString(d.ErrorMessage),
		CreatedAt:            d.CreatedAt,
		CompletedAt:          ToNullTime(d.CompletedAt),
		FailedAt:             ToNullTime(d.FailedAt),
	}
}

// ToDomainJob converts a generation_jobs row to a domain.Job
func ToDomainJob(m models.GenerationJob) domain.Job {
	return domain.Job{
		JobID:                m.JobID,
		AccountID:            m.AccountID,
		ProviderJobID:        m.ProviderJobID,
		Status:               domain.JobStatus(m.Status),
		Model:                m.Model,
		Prompt:               m.Prompt,
		Size:                 m.Size,
		Seconds:              m.Seconds,
		CreditsCost:          m.CreditsCost,
		Progress:             m.Progress,
		VideoURL:             FromNullString(m.VideoURL),
		ThumbnailURL:         FromNullString(m.ThumbnailURL),
		SpritesheetURL:       FromNullString(m.SpritesheetURL),
		DownloadURLExpiresAt: FromNullTime(m.DownloadURLExpiresAt),
		ErrorMessage:         FromNullString(m.ErrorMessage),
		CreatedAt:            m.CreatedAt,
		CompletedAt:          FromNullTime(m.CompletedAt),
		FailedAt:             FromNullTime(m.FailedAt),
	}
}

// ToDomainNotification converts a provider_notifications row
func ToDomainNotification(m models.ProviderNotification) domain.NotificationRecord {
	return domain.NotificationRecord{
		EventID:       m.EventID,
		ProviderJobID: m.ProviderJobID,
		Kind:          domain.NotificationKind(m.Kind),
		ReceivedAt:    m.ReceivedAt,
		Processed:     m.Processed,
		ProcessedAt:   FromNullTime(m.ProcessedAt),
	}
}
