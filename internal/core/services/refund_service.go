package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
)

const refundDescription = "Video generation failed - credits refunded"

type refundService struct {
	BaseService
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

// NewRefundService creates the compensating credit issuer.
func NewRefundService(ledgerRepo portsrepo.LedgerRepositoryFacade) portssvc.RefundSvc {
	return &refundService{ledgerRepo: ledgerRepo}
}

var _ portssvc.RefundSvc = (*refundService)(nil)

// Refund credits amount back for jobID at most once and returns the resulting balance.
// A second call for the same job returns the current balance unchanged.
func (s *refundService) Refund(ctx context.Context, accountID, jobID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: refund amount must be positive, got %d", apperrors.ErrValidation, amount)
	}

	_, err := s.ledgerRepo.FindRefundByJobID(ctx, jobID)
	switch {
	case err == nil:
		s.LogInfo(ctx, "Job already refunded", slog.String("job_id", jobID))
		return s.currentBalance(ctx, accountID)
	case !errors.Is(err, apperrors.ErrNotFound):
		s.LogError(ctx, err, "Failed to look up refund", slog.String("job_id", jobID))
		return 0, err
	}

	txn, err := s.ledgerRepo.Credit(ctx, domain.LedgerEntry{
		AccountID:   accountID,
		Amount:      amount,
		Kind:        domain.KindRefund,
		Description: refundDescription,
		JobID:       &jobID,
	})
	if errors.Is(err, apperrors.ErrDuplicate) {
		// A concurrent refund won the unique index.
		s.LogInfo(ctx, "Job refunded concurrently", slog.String("job_id", jobID))
		return s.currentBalance(ctx, accountID)
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to refund credits",
			slog.String("account_id", accountID),
			slog.String("job_id", jobID),
			slog.Int64("amount", amount))
		return 0, err
	}

	s.LogInfo(ctx, "Credits refunded",
		slog.String("account_id", accountID),
		slog.String("job_id", jobID),
		slog.Int64("amount", amount),
		slog.Int64("balance", txn.BalanceAfter))
	return txn.BalanceAfter, nil
}

func (s *refundService) currentBalance(ctx context.Context, accountID string) (int64, error) {
	acc, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}
