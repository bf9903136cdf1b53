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

type generationLockService struct {
	BaseService
	lockRepo portsrepo.GenerationLockRepository
	now      func() time.Time
}

// NewGenerationLockService creates the per-account submission lock.
func NewGenerationLockService(lockRepo portsrepo.GenerationLockRepository) portssvc.GenerationLockSvc {
	return &generationLockService{lockRepo: lockRepo, now: func() time.Time { return time.Now().UTC() }}
}

var _ portssvc.GenerationLockSvc = (*generationLockService)(nil)

// Acquire fails with ErrConcurrentGeneration when another paid job holds the lock.
func (s *generationLockService) Acquire(ctx context.Context, accountID, jobID string) error {
	err := s.lockRepo.AcquireLock(ctx, domain.GenerationLock{AccountID: accountID, JobID: jobID, AcquiredAt: s.now()})
	if errors.Is(err, apperrors.ErrAlreadyLocked) {
		s.LogInfo(ctx, "Generation already in progress", slog.String("account_id", accountID))
		return fmt.Errorf("%w: please wait for the current video to finish", apperrors.ErrConcurrentGeneration)
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to acquire generation lock", slog.String("account_id", accountID))
		return err
	}
	return nil
}

func (s *generationLockService) Release(ctx context.Context, accountID string) error {
	if err := s.lockRepo.ReleaseLock(ctx, accountID); err != nil {
		s.LogError(ctx, err, "Failed to release generation lock", slog.String("account_id", accountID))
		return err
	}
	return nil
}

func (s *generationLockService) IsHeld(ctx context.Context, accountID string) (bool, error) {
	_, err := s.lockRepo.FindLock(ctx, accountID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
