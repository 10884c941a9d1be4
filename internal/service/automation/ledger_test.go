package automation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
)

func TestLedgerBlocksSameTypeSameDay(t *testing.T) {
	repo := &memDeliveryLog{}
	ledger := NewLedger(repo)
	ctx := context.Background()
	clientID := uuid.New()
	now := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Record(ctx, &model.DeliveryLogEntry{
		Type:     model.NotificationReminder,
		ClientID: clientID,
		Success:  true,
		SentAt:   now.Add(-2 * time.Hour),
	}))

	sent, err := ledger.WasSentToday(ctx, clientID, model.NotificationReminder, now)
	require.NoError(t, err)
	assert.True(t, sent)

	// A different type on the same day is independent.
	sent, err = ledger.WasSentToday(ctx, clientID, model.NotificationOverdue, now)
	require.NoError(t, err)
	assert.False(t, sent)

	// A different client is independent.
	sent, err = ledger.WasSentToday(ctx, uuid.New(), model.NotificationReminder, now)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestLedgerFailedAttemptDoesNotBlock(t *testing.T) {
	repo := &memDeliveryLog{}
	ledger := NewLedger(repo)
	ctx := context.Background()
	clientID := uuid.New()
	now := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Record(ctx, &model.DeliveryLogEntry{
		Type:     model.NotificationReminder,
		ClientID: clientID,
		Success:  false,
		SentAt:   now.Add(-time.Hour),
	}))

	sent, err := ledger.WasSentToday(ctx, clientID, model.NotificationReminder, now)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestLedgerYesterdayDoesNotBlock(t *testing.T) {
	repo := &memDeliveryLog{}
	ledger := NewLedger(repo)
	ctx := context.Background()
	clientID := uuid.New()
	now := time.Date(2026, time.March, 10, 0, 30, 0, 0, time.UTC)

	// Sent late yesterday; today's window starts at local midnight.
	require.NoError(t, ledger.Record(ctx, &model.DeliveryLogEntry{
		Type:     model.NotificationReminder,
		ClientID: clientID,
		Success:  true,
		SentAt:   time.Date(2026, time.March, 9, 23, 45, 0, 0, time.UTC),
	}))

	sent, err := ledger.WasSentToday(ctx, clientID, model.NotificationReminder, now)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestLedgerQueryErrorSurfaces(t *testing.T) {
	repo := &memDeliveryLog{failQuery: true}
	ledger := NewLedger(repo)

	_, err := ledger.WasSentToday(context.Background(), uuid.New(), model.NotificationReminder, time.Now())
	assert.Error(t, err)
}
