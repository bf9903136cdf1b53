package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
)

const defaultFailureMessage = "Video generation failed on provider side"

// NotificationSettings configures how terminal events are applied.
type NotificationSettings struct {
	ServiceURL       string        // Base of the content proxy links stored on completed jobs
	VerifyOnComplete bool          // Confirm completion with the provider before applying it
	DownloadURLTTL   time.Duration // Lifetime advertised for the proxy links
	ProviderTimeout  time.Duration
}

type notificationService struct {
	BaseService
	jobRepo          portsrepo.JobRepositoryFacade
	notificationRepo portsrepo.NotificationRepository
	refunds          portssvc.RefundSvc
	provider         portssvc.JobProvider
	settings         NotificationSettings
	now              func() time.Time
}

// NewNotificationService creates the at-most-once applier of provider terminal events.
func NewNotificationService(
	jobRepo portsrepo.JobRepositoryFacade,
	notificationRepo portsrepo.NotificationRepository,
	refunds portssvc.RefundSvc,
	provider portssvc.JobProvider,
	settings NotificationSettings,
) portssvc.NotificationSvc {
	if settings.DownloadURLTTL <= 0 {
		settings.DownloadURLTTL = 24 * time.Hour
	}
	if settings.ProviderTimeout <= 0 {
		settings.ProviderTimeout = 60 * time.Second
	}
	return &notificationService{
		jobRepo:          jobRepo,
		notificationRepo: notificationRepo,
		refunds:          refunds,
		provider:         provider,
		settings:         settings,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

var _ portssvc.NotificationSvc = (*notificationService)(nil)

// HandleTerminalEvent applies event unless (ProviderJobID, Kind) was already processed.
// A failure while applying leaves the record unprocessed so a redelivery retries it.
func (s *notificationService) HandleTerminalEvent(ctx context.Context, event domain.TerminalEvent) (domain.NotificationOutcome, error) {
	if event.ProviderJobID == "" {
		return "", fmt.Errorf("%w: provider job id is required", apperrors.ErrValidation)
	}
	if event.Kind != domain.NotificationCompleted && event.Kind != domain.NotificationFailed {
		return "", fmt.Errorf("%w: unsupported notification kind %q", apperrors.ErrValidation, event.Kind)
	}
	logger := s.GetLogger(ctx).With(
		slog.String("provider_job_id", event.ProviderJobID),
		slog.String("kind", string(event.Kind)),
		slog.String("event_id", event.EventID),
	)

	rec, err := s.notificationRepo.FindNotification(ctx, event.ProviderJobID, event.Kind)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return "", err
	}
	if rec != nil && rec.Processed {
		logger.Info("Duplicate provider notification ignored")
		return domain.OutcomeDuplicate, nil
	}

	job, err := s.jobRepo.FindJobByProviderID(ctx, event.ProviderJobID)
	if errors.Is(err, apperrors.ErrNotFound) {
		logger.Warn("Notification for unknown provider job")
		return domain.OutcomeIgnored, nil
	}
	if err != nil {
		return "", err
	}

	if err := s.notificationRepo.RecordNotification(ctx, domain.NotificationRecord{
		EventID:       event.EventID,
		ProviderJobID: event.ProviderJobID,
		Kind:          event.Kind,
		ReceivedAt:    s.now(),
	}); err != nil {
		return "", err
	}

	switch event.Kind {
	case domain.NotificationCompleted:
		err = s.applyCompleted(ctx, logger, job)
	case domain.NotificationFailed:
		err = s.applyFailed(ctx, logger, job, event.ErrorMessage)
	}
	if err != nil {
		logger.Error("Failed to apply provider notification", slog.String("error", err.Error()))
		return "", err
	}

	if err := s.notificationRepo.MarkNotificationProcessed(ctx, event.ProviderJobID, event.Kind, s.now()); err != nil {
		return "", err
	}
	logger.Info("Provider notification applied", slog.String("job_id", job.JobID))
	return domain.OutcomeApplied, nil
}

func (s *notificationService) applyCompleted(ctx context.Context, logger *slog.Logger, job *domain.Job) error {
	if job.Status == domain.JobStatusFailed {
		logger.Warn("Completion for a failed job ignored", slog.String("job_id", job.JobID))
		return nil
	}

	if s.settings.VerifyOnComplete {
		pctx, cancel := context.WithTimeout(ctx, s.settings.ProviderTimeout)
		status, err := s.provider.GetStatus(pctx, job.ProviderJobID)
		cancel()
		if err != nil {
			return err
		}
		if status.Status != domain.JobStatusCompleted {
			logger.Warn("Provider does not report the job completed yet", slog.String("provider_status", string(status.Status)))
		}
	}

	now := s.now()
	assets := domain.JobAssets{
		VideoURL:       s.contentURL(job.JobID, domain.VariantVideo),
		ThumbnailURL:   s.contentURL(job.JobID, domain.VariantThumbnail),
		SpritesheetURL: s.contentURL(job.JobID, domain.VariantSpritesheet),
		ExpiresAt:      now.Add(s.settings.DownloadURLTTL),
	}
	return s.jobRepo.MarkJobCompleted(ctx, job.ProviderJobID, assets, now)
}

func (s *notificationService) applyFailed(ctx context.Context, logger *slog.Logger, job *domain.Job, message string) error {
	if job.Status == domain.JobStatusCompleted {
		logger.Warn("Failure for a completed job ignored, no refund", slog.String("job_id", job.JobID))
		return nil
	}
	if message == "" {
		message = defaultFailureMessage
	}
	if err := s.jobRepo.MarkJobFailed(ctx, job.ProviderJobID, message, s.now()); err != nil {
		return err
	}
	if job.CreditsCost <= 0 {
		return nil
	}
	balance, err := s.refunds.Refund(ctx, job.AccountID, job.JobID, job.CreditsCost)
	if err != nil {
		return err
	}
	logger.Info("Failed job refunded",
		slog.String("job_id", job.JobID),
		slog.Int64("credits", job.CreditsCost),
		slog.Int64("balance", balance))
	return nil
}

func (s *notificationService) contentURL(jobID string, variant domain.ContentVariant) string {
	return fmt.Sprintf("%s/v1/generations/%s/content?variant=%s", s.settings.ServiceURL, jobID, variant)
}
