package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
	"github.com/llevisouza/gestao-cobrancas/pkg/errors"
)

type invoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, client_id, subscription_id, amount, due_date, generation_date,
			status, paid_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	invoice.ID = uuid.New()
	invoice.CreatedAt = time.Now()
	invoice.UpdatedAt = invoice.CreatedAt
	if invoice.Status == "" {
		invoice.Status = model.InvoiceStatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID, invoice.ClientID, invoice.SubscriptionID, invoice.Amount,
		invoice.DueDate, invoice.GenerationDate, invoice.Status,
		invoice.PaidDate, invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	query := `
		SELECT id, client_id, subscription_id, amount, due_date, generation_date,
		       status, paid_date, created_at, updated_at
		FROM invoices
		WHERE id = $1
	`
	var invoice model.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("invoice", err)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	query := `
		UPDATE invoices
		SET amount = $1, due_date = $2, status = $3, paid_date = $4, updated_at = $5
		WHERE id = $6
	`
	invoice.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		invoice.Amount, invoice.DueDate, invoice.Status, invoice.PaidDate,
		invoice.UpdatedAt, invoice.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("invoice", nil)
	}
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("invoice", nil)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context) ([]*model.Invoice, error) {
	query := `
		SELECT id, client_id, subscription_id, amount, due_date, generation_date,
		       status, paid_date, created_at, updated_at
		FROM invoices
		ORDER BY due_date DESC
	`
	var invoices []*model.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) ListByStatuses(ctx context.Context, statuses ...model.InvoiceStatus) ([]*model.Invoice, error) {
	query := `
		SELECT id, client_id, subscription_id, amount, due_date, generation_date,
		       status, paid_date, created_at, updated_at
		FROM invoices
		WHERE status = ANY($1)
		ORDER BY due_date ASC
	`
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	var invoices []*model.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, pq.Array(raw)); err != nil {
		return nil, fmt.Errorf("failed to list invoices by status: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) ExistsForSubscriptionDueDate(ctx context.Context, subscriptionID uuid.UUID, dueDate time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE subscription_id = $1 AND due_date = $2 AND status != $3
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, subscriptionID, dueDate, model.InvoiceStatusCancelled); err != nil {
		return false, fmt.Errorf("failed to check invoice existence: %w", err)
	}
	return exists, nil
}
