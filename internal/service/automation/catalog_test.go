package automation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testClient(phone, email string) *model.Client {
	return &model.Client{
		ID:     uuid.New(),
		Name:   "Maria Silva",
		Phone:  phone,
		Email:  email,
		Status: model.ClientStatusActive,
	}
}

func testInvoice(clientID uuid.UUID, status model.InvoiceStatus, due, generated time.Time) *model.Invoice {
	return &model.Invoice{
		ID:             uuid.New(),
		ClientID:       clientID,
		Amount:         150,
		DueDate:        due,
		GenerationDate: generated,
		Status:         status,
	}
}

func testConfig() model.AutomationConfig {
	cfg := model.DefaultAutomationConfig()
	cfg.ReminderDaysBefore = 3
	cfg.OverdueSequence = []int{1, 3, 7, 15, 30}
	return cfg
}

func TestComputeCandidatesReminderWindow(t *testing.T) {
	catalog := NewCatalog()
	today := day(2026, time.March, 10)
	client := testClient("5511999990000", "")
	cfg := testConfig()

	for offset := 0; offset <= 3; offset++ {
		inv := testInvoice(client.ID, model.InvoiceStatusPending, today.AddDate(0, 0, offset), day(2026, time.March, 1))
		got := catalog.ComputeCandidates(
			[]*model.Invoice{inv}, []*model.Client{client}, nil, today, cfg)
		require.Len(t, got, 1, "offset %d", offset)
		assert.Equal(t, model.NotificationReminder, got[0].Type)
		assert.Equal(t, offset, got[0].DaysOffset)
	}

	// One day past the window: silence.
	inv := testInvoice(client.ID, model.InvoiceStatusPending, today.AddDate(0, 0, 4), day(2026, time.March, 1))
	got := catalog.ComputeCandidates(
		[]*model.Invoice{inv}, []*model.Client{client}, nil, today, cfg)
	assert.Empty(t, got)
}

func TestComputeCandidatesOverdueExactDaysOnly(t *testing.T) {
	catalog := NewCatalog()
	today := day(2026, time.March, 10)
	client := testClient("5511999990000", "")
	cfg := testConfig()

	escalation := map[int]bool{1: true, 3: true, 7: true, 15: true, 30: true}
	for overdue := 1; overdue <= 31; overdue++ {
		inv := testInvoice(client.ID, model.InvoiceStatusOverdue, today.AddDate(0, 0, -overdue), day(2026, time.January, 1))
		got := catalog.ComputeCandidates(
			[]*model.Invoice{inv}, []*model.Client{client}, nil, today, cfg)
		if escalation[overdue] {
			require.Len(t, got, 1, "day %d should escalate", overdue)
			assert.Equal(t, model.NotificationOverdue, got[0].Type)
			assert.Equal(t, overdue, got[0].DaysOffset)
		} else {
			assert.Empty(t, got, "day %d must stay silent", overdue)
		}
	}
}

func TestComputeCandidatesNewInvoiceOnGenerationDate(t *testing.T) {
	catalog := NewCatalog()
	today := day(2026, time.March, 10)
	client := testClient("", "maria@example.com")
	cfg := testConfig()

	// Generated today, due far out: only the new-invoice notice.
	inv := testInvoice(client.ID, model.InvoiceStatusPending, today.AddDate(0, 0, 20), today)
	got := catalog.ComputeCandidates(
		[]*model.Invoice{inv}, []*model.Client{client}, nil, today, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, model.NotificationNewInvoice, got[0].Type)

	// Generated today AND inside the reminder window: both fire.
	inv = testInvoice(client.ID, model.InvoiceStatusPending, today.AddDate(0, 0, 2), today)
	got = catalog.ComputeCandidates(
		[]*model.Invoice{inv}, []*model.Client{client}, nil, today, cfg)
	require.Len(t, got, 2)
	assert.Equal(t, model.NotificationReminder, got[0].Type)
	assert.Equal(t, model.NotificationNewInvoice, got[1].Type)

	// Overdue invoices never produce a new-invoice notice.
	inv = testInvoice(client.ID, model.InvoiceStatusOverdue, today.AddDate(0, 0, -1), today)
	got = catalog.ComputeCandidates(
		[]*model.Invoice{inv}, []*model.Client{client}, nil, today, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, model.NotificationOverdue, got[0].Type)
}

func TestComputeCandidatesSkipsPaidAndCancelled(t *testing.T) {
	catalog := NewCatalog()
	today := day(2026, time.March, 10)
	client := testClient("5511999990000", "")
	cfg := testConfig()

	paid := testInvoice(client.ID, model.InvoiceStatusPaid, today, today)
	cancelled := testInvoice(client.ID, model.InvoiceStatusCancelled, today, today)
	got := catalog.ComputeCandidates(
		[]*model.Invoice{paid, cancelled}, []*model.Client{client}, nil, today, cfg)
	assert.Empty(t, got)
}

func TestComputeCandidatesSkipsUnreachableClients(t *testing.T) {
	catalog := NewCatalog()
	today := day(2026, time.March, 10)
	cfg := testConfig()

	noChannel := testClient("", "")
	orphanID := uuid.New()
	invoices := []*model.Invoice{
		testInvoice(noChannel.ID, model.InvoiceStatusPending, today, day(2026, time.March, 1)),
		testInvoice(orphanID, model.InvoiceStatusPending, today, day(2026, time.March, 1)),
	}
	got := catalog.ComputeCandidates(invoices, []*model.Client{noChannel}, nil, today, cfg)
	assert.Empty(t, got)
}

func TestComputeCandidatesPriorityOrder(t *testing.T) {
	catalog := NewCatalog()
	today := day(2026, time.March, 10)
	cfg := testConfig()

	a := testClient("5511999990001", "")
	b := testClient("5511999990002", "")
	c := testClient("5511999990003", "")
	invoices := []*model.Invoice{
		testInvoice(a.ID, model.InvoiceStatusPending, today.AddDate(0, 0, 10), today),  // new_invoice
		testInvoice(b.ID, model.InvoiceStatusPending, today.AddDate(0, 0, 1), day(2026, time.March, 1)), // reminder
		testInvoice(c.ID, model.InvoiceStatusOverdue, today.AddDate(0, 0, -3), day(2026, time.January, 1)), // overdue
	}
	got := catalog.ComputeCandidates(invoices, []*model.Client{a, b, c}, nil, today, cfg)
	require.Len(t, got, 3)
	assert.Equal(t, model.NotificationOverdue, got[0].Type)
	assert.Equal(t, model.NotificationReminder, got[1].Type)
	assert.Equal(t, model.NotificationNewInvoice, got[2].Type)
}

func TestComputeCandidatesAttachesSubscription(t *testing.T) {
	catalog := NewCatalog()
	today := day(2026, time.March, 10)
	client := testClient("5511999990000", "")
	cfg := testConfig()

	sub := &model.Subscription{
		ID:             uuid.New(),
		ClientID:       client.ID,
		Name:           "Plano Mensal",
		RecurrenceType: model.RecurrenceMonthly,
	}
	inv := testInvoice(client.ID, model.InvoiceStatusPending, today, day(2026, time.March, 1))
	inv.SubscriptionID = &sub.ID

	got := catalog.ComputeCandidates(
		[]*model.Invoice{inv}, []*model.Client{client}, []*model.Subscription{sub}, today, cfg)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Subscription)
	assert.Equal(t, sub.ID, got[0].Subscription.ID)
}
