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
	"github.com/google/uuid"
)

const (
	debitDescription = "Video generation cost"

	defaultJobLimit = 20
	maxJobLimit     = 100
)

// sagaState is the position of one paid submission.
type sagaState string

const (
	sagaStart        sagaState = "start"
	sagaLockAcquired sagaState = "lock_acquired"
	sagaDebited      sagaState = "debited"
	sagaSubmitted    sagaState = "submitted"
	sagaCommitted    sagaState = "committed"
	sagaCompensated  sagaState = "compensated"
)

// submission tracks one run of the lock, debit, submit, commit sequence.
type submission struct {
	accountID string
	jobID     string
	cost      int64
	state     sagaState
	logger    *slog.Logger
}

func (s *submission) advance(to sagaState) {
	s.logger.Debug("Generation saga transition",
		slog.String("from", string(s.state)),
		slog.String("to", string(to)))
	s.state = to
}

type generationService struct {
	BaseService
	ledgerRepo      portsrepo.LedgerRepositoryFacade
	jobRepo         portsrepo.JobRepositoryFacade
	locks           portssvc.GenerationLockSvc
	refunds         portssvc.RefundSvc
	notifications   portssvc.NotificationSvc
	pricing         portssvc.PricingSvc
	provider        portssvc.JobProvider
	providerTimeout time.Duration
	maxPerDay       int
	now             func() time.Time
}

// GenerationServiceOption is a functional option for configuring the generation service
type GenerationServiceOption func(*generationService)

// WithProviderTimeout bounds every provider call.
func WithProviderTimeout(d time.Duration) GenerationServiceOption {
	return func(s *generationService) {
		if d > 0 {
			s.providerTimeout = d
		}
	}
}

// WithDailyQuota caps submissions per account per UTC day. Zero disables the cap.
func WithDailyQuota(n int) GenerationServiceOption {
	return func(s *generationService) {
		s.maxPerDay = n
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) GenerationServiceOption {
	return func(s *generationService) {
		s.now = now
	}
}

// NewGenerationService creates the coordinator of paid submissions and the job read side.
func NewGenerationService(
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	jobRepo portsrepo.JobRepositoryFacade,
	locks portssvc.GenerationLockSvc,
	refunds portssvc.RefundSvc,
	notifications portssvc.NotificationSvc,
	pricing portssvc.PricingSvc,
	provider portssvc.JobProvider,
	options ...GenerationServiceOption,
) portssvc.GenerationSvcFacade {
	svc := &generationService{
		ledgerRepo:      ledgerRepo,
		jobRepo:         jobRepo,
		locks:           locks,
		refunds:         refunds,
		notifications:   notifications,
		pricing:         pricing,
		provider:        provider,
		providerTimeout: 60 * time.Second,
		maxPerDay:       20,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.GenerationSvcFacade = (*generationService)(nil)

// Estimate prices a job without a prompt.
func (s *generationService) Estimate(ctx context.Context, accountID string, spec domain.JobSpec) (*domain.Estimate, error) {
	if err := validateSpec(spec, "Prompt"); err != nil {
		return nil, err
	}
	cost, err := s.pricing.CostFor(spec)
	if err != nil {
		return nil, err
	}
	acc, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &domain.Estimate{
		CreditsCost:       cost,
		USDEquivalent:     s.pricing.CreditsToUSD(cost),
		CurrentBalance:    acc.Balance,
		SufficientCredits: acc.Balance >= cost,
	}, nil
}

func (s *generationService) price(spec domain.JobSpec) (int64, error) {
	if err := validateSpec(spec); err != nil {
		return 0, err
	}
	return s.pricing.CostFor(spec)
}

func (s *generationService) checkQuota(ctx context.Context, accountID string) error {
	if s.maxPerDay <= 0 {
		return nil
	}
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := s.jobRepo.CountJobsSince(ctx, accountID, midnight)
	if err != nil {
		return err
	}
	if n >= int64(s.maxPerDay) {
		return fmt.Errorf("%w: daily limit of %d generations reached", apperrors.ErrRateLimitExceeded, s.maxPerDay)
	}
	return nil
}

// Submit charges the account and hands the job to the provider. At most one
// submission per account runs at a time. If the provider rejects the job the
// charge is refunded and the lock released before returning.
func (s *generationService) Submit(ctx context.Context, accountID string, spec domain.JobSpec) (*domain.SubmissionResult, error) {
	cost, err := s.price(spec)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, accountID); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	sub := &submission{
		accountID: accountID,
		jobID:     jobID,
		cost:      cost,
		state:     sagaStart,
		logger:    s.GetLogger(ctx).With(slog.String("account_id", accountID), slog.String("job_id", jobID)),
	}
	// Cleanup must survive the caller going away.
	detached := context.WithoutCancel(ctx)

	if err := s.locks.Acquire(ctx, accountID, jobID); err != nil {
		return nil, err
	}
	sub.advance(sagaLockAcquired)

	debit, err := s.ledgerRepo.Debit(ctx, domain.LedgerEntry{
		AccountID:   accountID,
		Amount:      cost,
		Kind:        domain.KindDebit,
		Description: debitDescription,
		JobID:       &jobID,
	})
	if err != nil {
		s.release(detached, sub)
		if errors.Is(err, apperrors.ErrInsufficientFunds) {
			return nil, fmt.Errorf("%w: %d credits required", apperrors.ErrInsufficientCredits, cost)
		}
		return nil, err
	}
	sub.advance(sagaDebited)

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	providerJob, err := s.provider.Submit(pctx, spec)
	cancel()
	if err != nil {
		sub.logger.Error("Provider rejected job", slog.String("error", err.Error()))
		compErr := s.compensate(detached, sub)
		return nil, errors.Join(fmt.Errorf("%w: %w", apperrors.ErrProviderFailure, err), compErr)
	}
	sub.advance(sagaSubmitted)

	status := providerJob.Status
	if status == "" {
		status = domain.JobStatusQueued
	}
	job := domain.Job{
		JobID:         jobID,
		AccountID:     accountID,
		ProviderJobID: providerJob.ID,
		Status:        status,
		Model:         spec.Model,
		Prompt:        spec.Prompt,
		Size:          spec.Size,
		Seconds:       spec.Seconds,
		CreditsCost:   cost,
		Progress:      providerJob.Progress,
		CreatedAt:     s.now(),
	}
	if err := s.jobRepo.SaveJob(detached, job); err != nil {
		// The provider already accepted the job, so the debit stands.
		sub.logger.Error("Failed to persist submitted job",
			slog.String("provider_job_id", providerJob.ID),
			slog.String("error", err.Error()))
		s.release(detached, sub)
		return nil, err
	}

	s.release(detached, sub)
	sub.advance(sagaCommitted)
	sub.logger.Info("Generation submitted",
		slog.String("provider_job_id", providerJob.ID),
		slog.Int64("credits", cost),
		slog.Int64("balance", debit.BalanceAfter))

	return &domain.SubmissionResult{Job: job, NewBalance: debit.BalanceAfter}, nil
}

// release logs instead of failing; a stuck lock is recovered by deleting its row.
func (s *generationService) release(ctx context.Context, sub *submission) {
	if err := s.locks.Release(ctx, sub.accountID); err != nil {
		sub.logger.Error("Generation lock left held", slog.String("error", err.Error()))
	}
}

// compensate undoes a debit whose job never reached the provider.
func (s *generationService) compensate(ctx context.Context, sub *submission) error {
	var errs []error
	if _, err := s.refunds.Refund(ctx, sub.accountID, sub.jobID, sub.cost); err != nil {
		sub.logger.Error("Compensating refund failed", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("refund job %s: %w", sub.jobID, err))
	}
	if err := s.locks.Release(ctx, sub.accountID); err != nil {
		sub.logger.Error("Generation lock left held", slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	sub.advance(sagaCompensated)
	return errors.Join(errs...)
}

// GetJob returns the caller's job, refreshing it from the provider while it is
// still running. Jobs owned by someone else are reported as not found.
func (s *generationService) GetJob(ctx context.Context, accountID, jobID string) (*domain.Job, error) {
	job, err := s.ownedJob(ctx, accountID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() || job.ProviderJobID == "" {
		return job, nil
	}
	if !s.refresh(ctx, job) {
		return job, nil
	}
	return s.ownedJob(ctx, accountID, jobID)
}

// refresh polls the provider and reports whether the stored job changed.
func (s *generationService) refresh(ctx context.Context, job *domain.Job) bool {
	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	remote, err := s.provider.GetStatus(pctx, job.ProviderJobID)
	cancel()
	if err != nil {
		s.LogWarn(ctx, "Provider status refresh failed",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()))
		return false
	}

	switch remote.Status {
	case domain.JobStatusCompleted, domain.JobStatusFailed:
		kind := domain.NotificationCompleted
		if remote.Status == domain.JobStatusFailed {
			kind = domain.NotificationFailed
		}
		_, err := s.notifications.HandleTerminalEvent(ctx, domain.TerminalEvent{
			EventID:       "poll_" + job.JobID,
			ProviderJobID: job.ProviderJobID,
			Kind:          kind,
			ErrorMessage:  remote.ErrorMessage,
		})
		if err != nil {
			s.LogError(ctx, err, "Failed to apply polled terminal status", slog.String("job_id", job.JobID))
			return false
		}
		return true
	default:
		if remote.Status == job.Status && remote.Progress == job.Progress {
			return false
		}
		status := remote.Status
		if status == "" {
			status = job.Status
		}
		if err := s.jobRepo.UpdateJobProgress(ctx, job.ProviderJobID, status, remote.Progress); err != nil {
			s.LogError(ctx, err, "Failed to store job progress", slog.String("job_id", job.JobID))
			return false
		}
		return true
	}
}

func (s *generationService) ownedJob(ctx context.Context, accountID, jobID string) (*domain.Job, error) {
	job, err := s.jobRepo.FindJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.AccountID != accountID {
		return nil, fmt.Errorf("%w: job %s", apperrors.ErrNotFound, jobID)
	}
	return job, nil
}

func (s *generationService) ListJobs(ctx context.Context, accountID string, limit, offset int) ([]domain.Job, int64, error) {
	if limit <= 0 {
		limit = defaultJobLimit
	}
	if limit > maxJobLimit {
		limit = maxJobLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.jobRepo.ListJobsByAccount(ctx, accountID, limit, offset)
}

func (s *generationService) FetchContent(ctx context.Context, accountID, jobID string, variant domain.ContentVariant) (*domain.Content, error) {
	if variant == "" {
		variant = domain.VariantVideo
	}
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", apperrors.ErrValidation, variant)
	}
	job, err := s.ownedJob(ctx, accountID, jobID)
	if err != nil {
		return nil, err
	}
	// The body streams after this returns, so only the caller's context bounds it.
	return s.provider.FetchContent(ctx, job.ProviderJobID, variant)
}
