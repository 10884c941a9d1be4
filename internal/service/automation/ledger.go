package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
	"github.com/llevisouza/gestao-cobrancas/pkg/calendar"
)

// Ledger enforces at-most-one-send-per-type-per-client-per-day. Only
// successful deliveries block a resend: a failed attempt is retried on the
// next cycle.
type Ledger interface {
	WasSentToday(ctx context.Context, clientID uuid.UUID, typ model.NotificationType, now time.Time) (bool, error)
	Record(ctx context.Context, entry *model.DeliveryLogEntry) error
}

type ledger struct {
	repo repository.DeliveryLogRepository
}

func NewLedger(repo repository.DeliveryLogRepository) Ledger {
	return &ledger{repo: repo}
}

// WasSentToday queries the persisted delivery log for a successful entry of
// this type to this client since local midnight. The answer is never cached
// across cycles: a concurrent manual cycle may have recorded a delivery in
// between, so every cycle rechecks.
func (l *ledger) WasSentToday(ctx context.Context, clientID uuid.UUID, typ model.NotificationType, now time.Time) (bool, error) {
	sent, err := l.repo.ExistsSuccessSince(ctx, clientID, typ, calendar.StartOfDay(now))
	if err != nil {
		return false, fmt.Errorf("ledger query failed: %w", err)
	}
	return sent, nil
}

func (l *ledger) Record(ctx context.Context, entry *model.DeliveryLogEntry) error {
	if err := l.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("ledger record failed: %w", err)
	}
	return nil
}
