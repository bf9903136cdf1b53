package services

import (
	"context"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// JobProvider is the external asynchronous job runner. Every call may be slow or fail.
type JobProvider interface {
	Submit(ctx context.Context, spec domain.JobSpec) (*domain.ProviderJob, error)
	GetStatus(ctx context.Context, providerJobID string) (*domain.ProviderJob, error)
	FetchContent(ctx context.Context, providerJobID string, variant domain.ContentVariant) (*domain.Content, error)
}

// StoreTransactionDecoder turns a signed store payload into its transaction fields.
type StoreTransactionDecoder interface {
	Decode(signed string) (*domain.StoreTransaction, error)
}
