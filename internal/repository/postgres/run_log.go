package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
)

type runLogRepository struct {
	db *sqlx.DB
}

func NewRunLogRepository(db *sqlx.DB) repository.RunLogRepository {
	return &runLogRepository{db: db}
}

func (r *runLogRepository) Create(ctx context.Context, entry *model.AutomationRunLog) error {
	query := `
		INSERT INTO automation_run_log (
			started_at, finished_at, processed, sent, errors, skipped,
			skip_reason, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		entry.StartedAt, entry.FinishedAt, entry.Processed, entry.Sent,
		entry.Errors, entry.Skipped, entry.SkipReason, entry.Error,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create run log entry: %w", err)
	}
	return nil
}

func (r *runLogRepository) ListRecent(ctx context.Context, limit int) ([]*model.AutomationRunLog, error) {
	query := `
		SELECT id, started_at, finished_at, processed, sent, errors, skipped,
		       skip_reason, error_message
		FROM automation_run_log
		ORDER BY started_at DESC
		LIMIT $1
	`
	var entries []*model.AutomationRunLog
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list run log: %w", err)
	}
	return entries, nil
}

func (r *runLogRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM automation_run_log`); err != nil {
		return fmt.Errorf("failed to clear run log: %w", err)
	}
	return nil
}
