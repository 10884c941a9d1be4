package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
)

type deliveryLogRepository struct {
	db *sqlx.DB
}

func NewDeliveryLogRepository(db *sqlx.DB) repository.DeliveryLogRepository {
	return &deliveryLogRepository{db: db}
}

func (r *deliveryLogRepository) Create(ctx context.Context, entry *model.DeliveryLogEntry) error {
	query := `
		INSERT INTO delivery_log (
			id, type, client_id, invoice_id, subscription_id, channel,
			success, error_message, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	entry.ID = uuid.New()
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Type, entry.ClientID, entry.InvoiceID,
		entry.SubscriptionID, entry.Channel, entry.Success, entry.Error,
		entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery log entry: %w", err)
	}
	return nil
}

func (r *deliveryLogRepository) ExistsSuccessSince(ctx context.Context, clientID uuid.UUID, typ model.NotificationType, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM delivery_log
			WHERE client_id = $1 AND type = $2 AND success = true AND sent_at >= $3
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, clientID, typ, since); err != nil {
		return false, fmt.Errorf("failed to query delivery log: %w", err)
	}
	return exists, nil
}

func (r *deliveryLogRepository) ListRecent(ctx context.Context, limit int) ([]*model.DeliveryLogEntry, error) {
	query := `
		SELECT id, type, client_id, invoice_id, subscription_id, channel,
		       success, error_message, sent_at
		FROM delivery_log
		ORDER BY sent_at DESC
		LIMIT $1
	`
	var entries []*model.DeliveryLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list delivery log: %w", err)
	}
	return entries, nil
}

func (r *deliveryLogRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM delivery_log`); err != nil {
		return fmt.Errorf("failed to clear delivery log: %w", err)
	}
	return nil
}
