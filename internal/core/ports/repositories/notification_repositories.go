package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
)

// NotificationRepository stores provider notification records for deduplication.
type NotificationRepository interface {
	// FindNotification returns the record for (providerJobID, kind), ErrNotFound if unseen.
	FindNotification(ctx context.Context, providerJobID string, kind domain.NotificationKind) (*domain.NotificationRecord, error)

	// RecordNotification inserts an unprocessed record; an existing record is left as is.
	RecordNotification(ctx context.Context, record domain.NotificationRecord) error

	// MarkNotificationProcessed flags the record once its side effects are applied.
	MarkNotificationProcessed(ctx context.Context, providerJobID string, kind domain.NotificationKind, processedAt time.Time) error
}
