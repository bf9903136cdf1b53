package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/credit_ledger/internal/apperrors"
	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/credit_ledger/internal/core/ports/services"
	"github.com/SscSPs/credit_ledger/internal/core/services"
	"github.com/SscSPs/credit_ledger/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testAccount = "acct-1"

var (
	spec4s = domain.JobSpec{Model: "sora-2", Prompt: "a cat surfing at dawn", Size: "720x1280", Seconds: 4}
	spec8s = domain.JobSpec{Model: "sora-2", Prompt: "a cat surfing at dawn", Size: "720x1280", Seconds: 8}
)

// --- Test Suite Setup ---

type GenerationServiceTestSuite struct {
	suite.Suite
	ctx          context.Context
	store        *memory.Store
	provider     *MockJobProvider
	locks        portssvc.GenerationLockSvc
	refunds      portssvc.RefundSvc
	notification portssvc.NotificationSvc
	service      portssvc.GenerationSvcFacade
	now          time.Time
}

func (suite *GenerationServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.New()
	suite.provider = new(MockJobProvider)
	suite.now = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	suite.refunds = nil
	suite.build()
}

func (suite *GenerationServiceTestSuite) build(opts ...services.GenerationServiceOption) {
	suite.locks = services.NewGenerationLockService(suite.store)
	if suite.refunds == nil {
		suite.refunds = services.NewRefundService(suite.store)
	}
	suite.notification = services.NewNotificationService(suite.store, suite.store, suite.refunds, suite.provider,
		services.NotificationSettings{ServiceURL: "https://svc.test"})
	opts = append([]services.GenerationServiceOption{services.WithClock(func() time.Time { return suite.now })}, opts...)
	suite.service = services.NewGenerationService(suite.store, suite.store, suite.locks, suite.refunds,
		suite.notification, services.NewPricingService(), suite.provider, opts...)
}

func (suite *GenerationServiceTestSuite) openAccount(balance int64) {
	_, _, err := suite.store.CreateAccount(suite.ctx, testAccount, balance, "Welcome bonus")
	suite.Require().NoError(err)
}

func (suite *GenerationServiceTestSuite) balance() int64 {
	acc, err := suite.store.FindAccountByID(suite.ctx, testAccount)
	suite.Require().NoError(err)
	return acc.Balance
}

func (suite *GenerationServiceTestSuite) lockHeld() bool {
	held, err := suite.locks.IsHeld(suite.ctx, testAccount)
	suite.Require().NoError(err)
	return held
}

// --- Test Cases ---

func (suite *GenerationServiceTestSuite) TestSubmit_Success() {
	suite.openAccount(100)
	suite.provider.On("Submit", mock.Anything, spec4s).
		Return(&domain.ProviderJob{ID: "video_1", Status: domain.JobStatusQueued}, nil).Once()

	result, err := suite.service.Submit(suite.ctx, testAccount, spec4s)

	suite.Require().NoError(err)
	suite.Equal(int64(0), result.NewBalance)
	suite.Equal("video_1", result.Job.ProviderJobID)
	suite.Equal(domain.JobStatusQueued, result.Job.Status)
	suite.Equal(int64(100), result.Job.CreditsCost)
	suite.Equal(int64(0), suite.balance())
	suite.False(suite.lockHeld())

	stored, err := suite.store.FindJobByID(suite.ctx, result.Job.JobID)
	suite.Require().NoError(err)
	suite.Equal(testAccount, stored.AccountID)

	acc, _ := suite.store.FindAccountByID(suite.ctx, testAccount)
	suite.Equal(int64(1), acc.TotalGenerations)
	suite.provider.AssertExpectations(suite.T())
}

func (suite *GenerationServiceTestSuite) TestSubmit_InsufficientCredits() {
	suite.openAccount(100)

	result, err := suite.service.Submit(suite.ctx, testAccount, spec8s)

	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrInsufficientCredits)
	suite.Equal(int64(100), suite.balance())
	suite.False(suite.lockHeld())
	suite.Equal(0, countKind(suite.T(), suite.store, testAccount, domain.KindDebit))
	suite.provider.AssertNotCalled(suite.T(), "Submit", mock.Anything, mock.Anything)
}

func (suite *GenerationServiceTestSuite) TestSubmit_ProviderFailureRefunds() {
	suite.openAccount(500)
	suite.provider.On("Submit", mock.Anything, spec8s).Return(nil, errors.New("upstream 503")).Once()

	result, err := suite.service.Submit(suite.ctx, testAccount, spec8s)

	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrProviderFailure)
	suite.Contains(err.Error(), "upstream 503")
	suite.Equal(int64(500), suite.balance())
	suite.False(suite.lockHeld())
	suite.Equal(1, countKind(suite.T(), suite.store, testAccount, domain.KindDebit))
	suite.Equal(1, countKind(suite.T(), suite.store, testAccount, domain.KindRefund))

	v, err := services.NewAccountService(suite.store, services.NewPricingService()).VerifyLedger(suite.ctx, testAccount)
	suite.Require().NoError(err)
	suite.True(v.Consistent)
}

func (suite *GenerationServiceTestSuite) TestSubmit_ProviderFailureWithCompensationError() {
	refunds := new(MockRefundSvc)
	suite.refunds = refunds
	suite.build()
	suite.openAccount(500)
	refundErr := errors.New("ledger unavailable")
	suite.provider.On("Submit", mock.Anything, spec4s).Return(nil, errors.New("timeout")).Once()
	refunds.On("Refund", mock.Anything, testAccount, mock.AnythingOfType("string"), int64(100)).Return(int64(0), refundErr).Once()

	_, err := suite.service.Submit(suite.ctx, testAccount, spec4s)

	suite.ErrorIs(err, apperrors.ErrProviderFailure)
	suite.ErrorIs(err, refundErr)
	suite.False(suite.lockHeld(), "lock is released even when the refund fails")
	refunds.AssertExpectations(suite.T())
}

func (suite *GenerationServiceTestSuite) TestSubmit_ConcurrentGenerationRejected() {
	suite.openAccount(500)
	suite.Require().NoError(suite.locks.Acquire(suite.ctx, testAccount, "job-in-flight"))

	_, err := suite.service.Submit(suite.ctx, testAccount, spec4s)

	suite.ErrorIs(err, apperrors.ErrConcurrentGeneration)
	suite.Equal(int64(500), suite.balance())
	suite.True(suite.lockHeld(), "the other job's lock stays in place")
	suite.provider.AssertNotCalled(suite.T(), "Submit", mock.Anything, mock.Anything)
}

func (suite *GenerationServiceTestSuite) TestSubmit_InvalidSpec() {
	suite.openAccount(500)

	_, err := suite.service.Submit(suite.ctx, testAccount, domain.JobSpec{Model: "dall-e", Prompt: "x", Size: "720x1280", Seconds: 4})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.Submit(suite.ctx, testAccount, domain.JobSpec{Model: "sora-2", Prompt: "", Size: "720x1280", Seconds: 4})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.Submit(suite.ctx, testAccount, domain.JobSpec{Model: "sora-2", Prompt: "x", Size: "1024x1024", Seconds: 4})
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.False(suite.lockHeld())
	suite.Equal(int64(500), suite.balance())
}

func (suite *GenerationServiceTestSuite) TestSubmit_DailyQuota() {
	suite.build(services.WithDailyQuota(1))
	suite.openAccount(500)
	suite.Require().NoError(suite.store.SaveJob(suite.ctx, domain.Job{
		JobID: "earlier", AccountID: testAccount, ProviderJobID: "video_0",
		Status: domain.JobStatusCompleted, CreatedAt: suite.now.Add(-time.Hour),
	}))

	_, err := suite.service.Submit(suite.ctx, testAccount, spec4s)

	suite.ErrorIs(err, apperrors.ErrRateLimitExceeded)
	suite.True(apperrors.IsRetryable(err))
	suite.Equal(int64(500), suite.balance())

	// Yesterday's jobs do not count.
	suite.now = suite.now.Add(24 * time.Hour)
	suite.provider.On("Submit", mock.Anything, spec4s).Return(&domain.ProviderJob{ID: "video_1"}, nil).Once()
	_, err = suite.service.Submit(suite.ctx, testAccount, spec4s)
	suite.NoError(err)
}

func (suite *GenerationServiceTestSuite) TestEstimate() {
	suite.openAccount(120)

	est, err := suite.service.Estimate(suite.ctx, testAccount, domain.JobSpec{Model: "sora-2", Size: "720x1280", Seconds: 8})

	suite.Require().NoError(err)
	suite.Equal(int64(150), est.CreditsCost)
	suite.Equal("$1.50", est.USDEquivalent)
	suite.Equal(int64(120), est.CurrentBalance)
	suite.False(est.SufficientCredits)
}

func (suite *GenerationServiceTestSuite) submitOne() *domain.SubmissionResult {
	suite.provider.On("Submit", mock.Anything, spec4s).
		Return(&domain.ProviderJob{ID: "video_1", Status: domain.JobStatusQueued}, nil).Once()
	result, err := suite.service.Submit(suite.ctx, testAccount, spec4s)
	suite.Require().NoError(err)
	return result
}

func (suite *GenerationServiceTestSuite) TestGetJob_PollingFailureRefundsOnce() {
	suite.openAccount(100)
	result := suite.submitOne()
	suite.provider.On("GetStatus", mock.Anything, "video_1").
		Return(&domain.ProviderJob{ID: "video_1", Status: domain.JobStatusFailed, ErrorMessage: "moderation"}, nil).Once()

	job, err := suite.service.GetJob(suite.ctx, testAccount, result.Job.JobID)

	suite.Require().NoError(err)
	suite.Equal(domain.JobStatusFailed, job.Status)
	suite.Require().NotNil(job.ErrorMessage)
	suite.Equal("moderation", *job.ErrorMessage)
	suite.Equal(int64(100), suite.balance())

	// The webhook for the same failure arrives afterwards.
	outcome, err := suite.notification.HandleTerminalEvent(suite.ctx, domain.TerminalEvent{
		EventID: "evt_1", ProviderJobID: "video_1", Kind: domain.NotificationFailed,
	})
	suite.Require().NoError(err)
	suite.Equal(domain.OutcomeDuplicate, outcome)
	suite.Equal(int64(100), suite.balance())
	suite.Equal(1, countKind(suite.T(), suite.store, testAccount, domain.KindRefund))

	// Terminal jobs are served from the store.
	_, err = suite.service.GetJob(suite.ctx, testAccount, result.Job.JobID)
	suite.NoError(err)
	suite.provider.AssertNumberOfCalls(suite.T(), "GetStatus", 1)
}

func (suite *GenerationServiceTestSuite) TestGetJob_ProgressRefresh() {
	suite.openAccount(100)
	result := suite.submitOne()
	suite.provider.On("GetStatus", mock.Anything, "video_1").
		Return(&domain.ProviderJob{ID: "video_1", Status: domain.JobStatusInProgress, Progress: 42}, nil).Once()

	job, err := suite.service.GetJob(suite.ctx, testAccount, result.Job.JobID)

	suite.Require().NoError(err)
	suite.Equal(domain.JobStatusInProgress, job.Status)
	suite.Equal(42, job.Progress)
}

func (suite *GenerationServiceTestSuite) TestGetJob_ProviderErrorServesStoredJob() {
	suite.openAccount(100)
	result := suite.submitOne()
	suite.provider.On("GetStatus", mock.Anything, "video_1").Return(nil, errors.New("down")).Once()

	job, err := suite.service.GetJob(suite.ctx, testAccount, result.Job.JobID)

	suite.Require().NoError(err)
	suite.Equal(domain.JobStatusQueued, job.Status)
}

func (suite *GenerationServiceTestSuite) TestGetJob_OtherOwnerIsNotFound() {
	suite.openAccount(100)
	result := suite.submitOne()

	_, err := suite.service.GetJob(suite.ctx, "acct-2", result.Job.JobID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.service.FetchContent(suite.ctx, "acct-2", result.Job.JobID, domain.VariantVideo)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *GenerationServiceTestSuite) TestFetchContent() {
	suite.openAccount(100)
	result := suite.submitOne()
	content := &domain.Content{ContentType: "image/webp"}
	suite.provider.On("FetchContent", mock.Anything, "video_1", domain.VariantThumbnail).Return(content, nil).Once()

	got, err := suite.service.FetchContent(suite.ctx, testAccount, result.Job.JobID, domain.VariantThumbnail)
	suite.Require().NoError(err)
	suite.Same(content, got)

	_, err = suite.service.FetchContent(suite.ctx, testAccount, result.Job.JobID, "poster")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *GenerationServiceTestSuite) TestListJobs_ClampsLimit() {
	for i := 0; i < 3; i++ {
		suite.Require().NoError(suite.store.SaveJob(suite.ctx, domain.Job{
			JobID: fmt.Sprintf("job-%d", i), AccountID: testAccount, ProviderJobID: fmt.Sprintf("video_%d", i),
			Status: domain.JobStatusQueued, CreatedAt: suite.now.Add(time.Duration(i) * time.Minute),
		}))
	}

	jobs, total, err := suite.service.ListJobs(suite.ctx, testAccount, 500, -3)

	suite.Require().NoError(err)
	suite.Equal(int64(3), total)
	suite.Len(jobs, 3)
	suite.Equal("job-2", jobs[0].JobID)
}

func TestGenerationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GenerationServiceTestSuite))
}

func TestSubmit_ConcurrentSubmissionsKeepLedgerConsistent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, _, err := store.CreateAccount(ctx, testAccount, 1000, "Welcome bonus")
	require.NoError(t, err)

	locks := services.NewGenerationLockService(store)
	refunds := services.NewRefundService(store)
	provider := &slowProvider{delay: 20 * time.Millisecond}
	notifications := services.NewNotificationService(store, store, refunds, provider, services.NotificationSettings{})
	svc := services.NewGenerationService(store, store, locks, refunds, notifications, services.NewPricingService(), provider)

	var (
		mu        sync.Mutex
		succeeded int64
		wg        sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, testAccount, spec4s)
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrConcurrentGeneration)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	acc, err := store.FindAccountByID(ctx, testAccount)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, succeeded, int64(1))
	assert.Equal(t, 1000-100*succeeded, acc.Balance)
	sum, err := store.SumTransactions(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, acc.Balance, sum)
	held, err := locks.IsHeld(ctx, testAccount)
	require.NoError(t, err)
	assert.False(t, held)
}
