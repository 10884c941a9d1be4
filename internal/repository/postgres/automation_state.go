package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
)

// automationStateRepository persists the run-loop singleton as a single row
// with config and stats as JSONB columns.
type automationStateRepository struct {
	db *sqlx.DB
}

func NewAutomationStateRepository(db *sqlx.DB) repository.AutomationStateRepository {
	return &automationStateRepository{db: db}
}

type automationStateRow struct {
	IsRunning   bool      `db:"is_running"`
	Config      []byte    `db:"config"`
	Stats       []byte    `db:"stats"`
	LastUpdated time.Time `db:"last_updated"`
}

func (r *automationStateRepository) Get(ctx context.Context) (*model.AutomationState, error) {
	query := `
		SELECT is_running, config, stats, last_updated
		FROM automation_state
		WHERE id = 1
	`
	var row automationStateRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get automation state: %w", err)
	}

	state := &model.AutomationState{
		IsRunning:   row.IsRunning,
		LastUpdated: row.LastUpdated,
	}
	if err := json.Unmarshal(row.Config, &state.Config); err != nil {
		return nil, fmt.Errorf("failed to decode automation config: %w", err)
	}
	if err := json.Unmarshal(row.Stats, &state.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode automation stats: %w", err)
	}
	return state, nil
}

func (r *automationStateRepository) Save(ctx context.Context, state *model.AutomationState) error {
	cfg, err := json.Marshal(state.Config)
	if err != nil {
		return fmt.Errorf("failed to encode automation config: %w", err)
	}
	stats, err := json.Marshal(state.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode automation stats: %w", err)
	}

	state.LastUpdated = time.Now()
	query := `
		INSERT INTO automation_state (id, is_running, config, stats, last_updated)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET is_running = $1, config = $2, stats = $3, last_updated = $4
	`
	if _, err := r.db.ExecContext(ctx, query, state.IsRunning, cfg, stats, state.LastUpdated); err != nil {
		return fmt.Errorf("failed to save automation state: %w", err)
	}
	return nil
}
