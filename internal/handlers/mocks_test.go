package handlers_test

import (
	"context"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/stretchr/testify/mock"
)

// --- Mock Account Service ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountService) ListTransactions(ctx context.Context, accountID string, limit int, nextToken *string) ([]domain.LedgerTransaction, *string, error) {
	args := m.Called(ctx, accountID, limit, nextToken)
	var txns []domain.LedgerTransaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.LedgerTransaction)
	}
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	return txns, next, args.Error(2)
}

func (m *MockAccountService) VerifyLedger(ctx context.Context, accountID string) (*domain.LedgerVerification, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerVerification), args.Error(1)
}

func (m *MockAccountService) EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountService) PurchaseCredits(ctx context.Context, accountID string, signedTransaction string) (*domain.LedgerTransaction, error) {
	args := m.Called(ctx, accountID, signedTransaction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerTransaction), args.Error(1)
}

func (m *MockAccountService) ListCreditPacks() []domain.CreditPack {
	args := m.Called()
	return args.Get(0).([]domain.CreditPack)
}

var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Mock Lock Service ---
type MockLockService struct {
	mock.Mock
}

func (m *MockLockService) Acquire(ctx context.Context, accountID, jobID string) error {
	return m.Called(ctx, accountID, jobID).Error(0)
}

func (m *MockLockService) Release(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *MockLockService) IsHeld(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

var _ portssvc.GenerationLockSvc = (*MockLockService)(nil)

// --- Mock Generation Service ---
type MockGenerationService struct {
	mock.Mock
}

func (m *MockGenerationService) Estimate(ctx context.Context, accountID string, spec domain.JobSpec) (*domain.Estimate, error) {
	args := m.Called(ctx, accountID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Estimate), args.Error(1)
}

func (m *MockGenerationService) GetJob(ctx context.Context, accountID, jobID string) (*domain.Job, error) {
	args := m.Called(ctx, accountID, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockGenerationService) ListJobs(ctx context.Context, accountID string, limit, offset int) ([]domain.Job, int64, error) {
	args := m.Called(ctx, accountID, limit, offset)
	var jobs []domain.Job
	if args.Get(0) != nil {
		jobs = args.Get(0).([]domain.Job)
	}
	return jobs, args.Get(1).(int64), args.Error(2)
}

func (m *MockGenerationService) FetchContent(ctx context.Context, accountID, jobID string, variant domain.ContentVariant) (*domain.Content, error) {
	args := m.Called(ctx, accountID, jobID, variant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

func (m *MockGenerationService) Submit(ctx context.Context, accountID string, spec domain.JobSpec) (*domain.SubmissionResult, error) {
	args := m.Called(ctx, accountID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionResult), args.Error(1)
}

var _ portssvc.GenerationSvcFacade = (*MockGenerationService)(nil)

// --- Mock Notification Service ---
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) HandleTerminalEvent(ctx context.Context, event domain.TerminalEvent) (domain.NotificationOutcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.NotificationOutcome), args.Error(1)
}

var _ portssvc.NotificationSvc = (*MockNotificationService)(nil)
