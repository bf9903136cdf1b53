package services_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockJobProvider is a mock type for the JobProvider interface
type MockJobProvider struct {
	mock.Mock
}

func (m *MockJobProvider) Submit(ctx context.Context, spec domain.JobSpec) (*domain.ProviderJob, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderJob), args.Error(1)
}

func (m *MockJobProvider) GetStatus(ctx context.Context, providerJobID string) (*domain.ProviderJob, error) {
	args := m.Called(ctx, providerJobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderJob), args.Error(1)
}

func (m *MockJobProvider) FetchContent(ctx context.Context, providerJobID string, variant domain.ContentVariant) (*domain.Content, error) {
	args := m.Called(ctx, providerJobID, variant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Content), args.Error(1)
}

// MockRefundSvc is a mock type for the RefundSvc interface
type MockRefundSvc struct {
	mock.Mock
}

func (m *MockRefundSvc) Refund(ctx context.Context, accountID, jobID string, amount int64) (int64, error) {
	args := m.Called(ctx, accountID, jobID, amount)
	return args.Get(0).(int64), args.Error(1)
}

// slowProvider accepts every job after a delay and hands out unique ids.
type slowProvider struct {
	delay time.Duration
	seq   atomic.Int64
}

func (p *slowProvider) Submit(ctx context.Context, _ domain.JobSpec) (*domain.ProviderJob, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.ProviderJob{ID: fmt.Sprintf("video_%d", p.seq.Add(1)), Status: domain.JobStatusQueued}, nil
}

func (p *slowProvider) GetStatus(_ context.Context, id string) (*domain.ProviderJob, error) {
	return &domain.ProviderJob{ID: id, Status: domain.JobStatusInProgress}, nil
}

func (p *slowProvider) FetchContent(context.Context, string, domain.ContentVariant) (*domain.Content, error) {
	return nil, fmt.Errorf("not implemented")
}
