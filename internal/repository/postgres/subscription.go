package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
	"github.com/llevisouza/gestao-cobrancas/pkg/errors"
)

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, client_id, name, amount, recurrence_type, day_of_week,
			day_of_month, recurrence_days, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	if sub.Status == "" {
		sub.Status = model.SubscriptionStatusActive
	}

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.ClientID, sub.Name, sub.Amount, sub.RecurrenceType,
		sub.DayOfWeek, sub.DayOfMonth, sub.RecurrenceDays, sub.Status,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	query := `
		SELECT id, client_id, name, amount, recurrence_type, day_of_week,
		       day_of_month, recurrence_days, status, created_at, updated_at
		FROM subscriptions
		WHERE id = $1
	`
	var sub model.Subscription
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("subscription", err)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	query := `
		UPDATE subscriptions
		SET name = $1, amount = $2, recurrence_type = $3, day_of_week = $4,
		    day_of_month = $5, recurrence_days = $6, status = $7, updated_at = $8
		WHERE id = $9
	`
	sub.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		sub.Name, sub.Amount, sub.RecurrenceType, sub.DayOfWeek,
		sub.DayOfMonth, sub.RecurrenceDays, sub.Status, sub.UpdatedAt, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("subscription", nil)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("subscription", nil)
	}
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context) ([]*model.Subscription, error) {
	query := `
		SELECT id, client_id, name, amount, recurrence_type, day_of_week,
		       day_of_month, recurrence_days, status, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at DESC
	`
	var subs []*model.Subscription
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) ListByStatus(ctx context.Context, status model.SubscriptionStatus) ([]*model.Subscription, error) {
	query := `
		SELECT id, client_id, name, amount, recurrence_type, day_of_week,
		       day_of_month, recurrence_days, status, created_at, updated_at
		FROM subscriptions
		WHERE status = $1
		ORDER BY created_at DESC
	`
	var subs []*model.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, status); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions by status: %w", err)
	}
	return subs, nil
}
