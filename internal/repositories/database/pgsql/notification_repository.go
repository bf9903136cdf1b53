package pgsql

import (
	"context"
	"database/sql"
	"time"

	"github.com/SscSPs/credit_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/credit_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/credit_ledger/internal/models"
	"github.com/SscSPs/credit_ledger/internal/utils/mapping"
)

type PgxNotificationRepository struct {
	BaseRepository
}

func newPgxNotificationRepository(db *sql.DB) *PgxNotificationRepository {
	return &PgxNotificationRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.NotificationRepository = (*PgxNotificationRepository)(nil)

func (r *PgxNotificationRepository) FindNotification(ctx context.Context, providerJobID string, kind domain.NotificationKind) (*domain.NotificationRecord, error) {
	var m models.ProviderNotification
	err := r.DB.QueryRowContext(ctx, `
		SELECT provider_job_id, kind, event_id, received_at, processed, processed_at
		FROM provider_notifications
		WHERE provider_job_id = $1 AND kind = $2;
	`, providerJobID, string(kind)).Scan(
		&m.ProviderJobID,
		&m.Kind,
		&m.EventID,
		&m.ReceivedAt,
		&m.Processed,
		&m.ProcessedAt,
	)
	if err != nil {
		return nil, lookupError("notification "+string(kind)+" for provider job "+providerJobID, err)
	}
	rec := mapping.ToDomainNotification(m)
	return &rec, nil
}

// RecordNotification inserts the record unless (provider_job_id, kind) was already seen.
func (r *PgxNotificationRepository) RecordNotification(ctx context.Context, record domain.NotificationRecord) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO provider_notifications (provider_job_id, kind, event_id, received_at, processed)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (provider_job_id, kind) DO NOTHING;
	`, record.ProviderJobID, string(record.Kind), record.EventID, record.ReceivedAt)
	if err != nil {
		return storeError("failed to record notification for provider job "+record.ProviderJobID, err)
	}
	return nil
}

func (r *PgxNotificationRepository) MarkNotificationProcessed(ctx context.Context, providerJobID string, kind domain.NotificationKind, processedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE provider_notifications SET processed = TRUE, processed_at = $1
		WHERE provider_job_id = $2 AND kind = $3;
	`, processedAt, providerJobID, string(kind))
	if err != nil {
		return storeError("failed to mark notification processed for provider job "+providerJobID, err)
	}
	return nil
}
