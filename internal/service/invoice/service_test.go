package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger"
	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/service/automation"
	"github.com/llevisouza/gestao-cobrancas/pkg/errors"
	"github.com/llevisouza/gestao-cobrancas/pkg/logger"
	"github.com/llevisouza/gestao-cobrancas/pkg/metrics"
)

type memClientRepo struct {
	clients map[uuid.UUID]*model.Client
}

func (m *memClientRepo) Create(_ context.Context, c *model.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.clients[c.ID] = c
	return nil
}

func (m *memClientRepo) Get(_ context.Context, id uuid.UUID) (*model.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, errors.NotFound("client", nil)
	}
	return c, nil
}

func (m *memClientRepo) Update(_ context.Context, c *model.Client) error {
	m.clients[c.ID] = c
	return nil
}

func (m *memClientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.clients, id)
	return nil
}

func (m *memClientRepo) List(context.Context) ([]*model.Client, error) {
	out := make([]*model.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out, nil
}

type memSubscriptionRepo struct {
	subs map[uuid.UUID]*model.Subscription
}

func (m *memSubscriptionRepo) Create(_ context.Context, s *model.Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.subs[s.ID] = s
	return nil
}

func (m *memSubscriptionRepo) Get(_ context.Context, id uuid.UUID) (*model.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return nil, errors.NotFound("subscription", nil)
	}
	return s, nil
}

func (m *memSubscriptionRepo) Update(_ context.Context, s *model.Subscription) error {
	m.subs[s.ID] = s
	return nil
}

func (m *memSubscriptionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.subs, id)
	return nil
}

func (m *memSubscriptionRepo) List(context.Context) ([]*model.Subscription, error) {
	out := make([]*model.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out, nil
}

func (m *memSubscriptionRepo) ListByStatus(_ context.Context, status model.SubscriptionStatus) ([]*model.Subscription, error) {
	var out []*model.Subscription
	for _, s := range m.subs {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

type memInvoiceRepo struct {
	invoices map[uuid.UUID]*model.Invoice
}

func (m *memInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memInvoiceRepo) Get(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, errors.NotFound("invoice", nil)
	}
	return inv, nil
}

func (m *memInvoiceRepo) Update(_ context.Context, inv *model.Invoice) error {
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.invoices, id)
	return nil
}

func (m *memInvoiceRepo) List(context.Context) ([]*model.Invoice, error) {
	out := make([]*model.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (m *memInvoiceRepo) ListByStatuses(_ context.Context, statuses ...model.InvoiceStatus) ([]*model.Invoice, error) {
	var out []*model.Invoice
	for _, inv := range m.invoices {
		for _, st := range statuses {
			if inv.Status == st {
				out = append(out, inv)
				break
			}
		}
	}
	return out, nil
}

func (m *memInvoiceRepo) ExistsForSubscriptionDueDate(_ context.Context, subID uuid.UUID, dueDate time.Time) (bool, error) {
	for _, inv := range m.invoices {
		if inv.SubscriptionID != nil && *inv.SubscriptionID == subID &&
			inv.DueDate.Equal(dueDate) && inv.Status != model.InvoiceStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

type memDeliveryRepo struct {
	entries []*model.DeliveryLogEntry
}

func (m *memDeliveryRepo) Create(_ context.Context, e *model.DeliveryLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memDeliveryRepo) ExistsSuccessSince(context.Context, uuid.UUID, model.NotificationType, time.Time) (bool, error) {
	return false, nil
}

func (m *memDeliveryRepo) ListRecent(context.Context, int) ([]*model.DeliveryLogEntry, error) {
	return m.entries, nil
}

func (m *memDeliveryRepo) DeleteAll(context.Context) error {
	m.entries = nil
	return nil
}

type stubMessenger struct {
	sent []string
}

func (s *stubMessenger) Send(_ context.Context, destination, _ string) (*messenger.SendResult, error) {
	s.sent = append(s.sent, destination)
	return &messenger.SendResult{Success: true}, nil
}

func (s *stubMessenger) CheckConnection(context.Context) (*messenger.ConnectionStatus, error) {
	return &messenger.ConnectionStatus{Connected: true, State: "open"}, nil
}

type fixture struct {
	svc      Service
	clients  *memClientRepo
	subs     *memSubscriptionRepo
	invoices *memInvoiceRepo
	whatsapp *stubMessenger
	clock    time.Time
}

func newFixture() *fixture {
	clients := &memClientRepo{clients: map[uuid.UUID]*model.Client{}}
	subs := &memSubscriptionRepo{subs: map[uuid.UUID]*model.Subscription{}}
	invoices := &memInvoiceRepo{invoices: map[uuid.UUID]*model.Invoice{}}
	wa := &stubMessenger{}

	testLogger := logger.NewLogger(nil)
	testMetrics := metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "invoice")
	dispatcher := automation.NewDispatcher(
		wa, &stubMessenger{},
		automation.NewLedger(&memDeliveryRepo{}),
		nil, testLogger, testMetrics,
	)

	f := &fixture{
		clients:  clients,
		subs:     subs,
		invoices: invoices,
		whatsapp: wa,
		clock:    time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC),
	}
	svc := NewService(invoices, subs, clients, dispatcher, testLogger).(*service)
	svc.now = func() time.Time { return f.clock }
	f.svc = svc
	return f
}

func (f *fixture) addClient(t *testing.T) *model.Client {
	t.Helper()
	client := &model.Client{
		Name:   "João Souza",
		Phone:  "5511988887777",
		Status: model.ClientStatusActive,
	}
	require.NoError(t, f.clients.Create(context.Background(), client))
	return client
}

func TestCreateInvoiceNormalizesDates(t *testing.T) {
	f := newFixture()
	client := f.addClient(t)

	inv, err := f.svc.CreateInvoice(context.Background(), &model.CreateInvoiceRequest{
		ClientID: client.ID,
		Amount:   99.9,
		DueDate:  time.Date(2026, time.March, 20, 17, 45, 0, 0, time.FixedZone("BRT", -3*3600)),
	})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), inv.GenerationDate)
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateInvoice(context.Background(), &model.CreateInvoiceRequest{
		ClientID: uuid.New(),
		Amount:   10,
		DueDate:  f.clock,
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMarkPaidDispatchesConfirmation(t *testing.T) {
	f := newFixture()
	client := f.addClient(t)

	inv, err := f.svc.CreateInvoice(context.Background(), &model.CreateInvoiceRequest{
		ClientID: client.ID,
		Amount:   50,
		DueDate:  f.clock.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
	assert.Equal(t, []string{client.Phone}, f.whatsapp.sent)

	// Paying twice is rejected.
	_, err = f.svc.MarkPaid(context.Background(), inv.ID)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestGenerateFromSubscriptions(t *testing.T) {
	f := newFixture()
	client := f.addClient(t)
	ctx := context.Background()

	dayOfMonth := 15
	dayOfWeek := int(time.Friday)
	require.NoError(t, f.subs.Create(ctx, &model.Subscription{
		ClientID:       client.ID,
		Name:           "Plano Mensal",
		Amount:         100,
		RecurrenceType: model.RecurrenceMonthly,
		DayOfMonth:     &dayOfMonth,
		Status:         model.SubscriptionStatusActive,
	}))
	require.NoError(t, f.subs.Create(ctx, &model.Subscription{
		ClientID:       client.ID,
		Name:           "Plano Semanal",
		Amount:         25,
		RecurrenceType: model.RecurrenceWeekly,
		DayOfWeek:      &dayOfWeek,
		Status:         model.SubscriptionStatusActive,
	}))
	// Paused subscriptions never generate.
	require.NoError(t, f.subs.Create(ctx, &model.Subscription{
		ClientID:       client.ID,
		Name:           "Plano Pausado",
		Amount:         10,
		RecurrenceType: model.RecurrenceDaily,
		Status:         model.SubscriptionStatusPaused,
	}))

	created, err := f.svc.GenerateFromSubscriptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	dueDates := map[time.Time]bool{}
	for _, inv := range f.invoices.invoices {
		dueDates[inv.DueDate] = true
		assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	}
	// Clock is Tuesday 2026-03-10: monthly day 15 -> March 15, weekly
	// Friday -> March 13.
	assert.True(t, dueDates[time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)])
	assert.True(t, dueDates[time.Date(2026, time.March, 13, 0, 0, 0, 0, time.UTC)])

	// A second run is idempotent for the same due dates.
	created, err = f.svc.GenerateFromSubscriptions(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestGenerateSkipsOneOffSubscriptions(t *testing.T) {
	f := newFixture()
	client := f.addClient(t)
	ctx := context.Background()

	require.NoError(t, f.subs.Create(ctx, &model.Subscription{
		ClientID:       client.ID,
		Name:           "Avulsa",
		Amount:         300,
		RecurrenceType: model.RecurrenceOneOff,
		Status:         model.SubscriptionStatusActive,
	}))

	created, err := f.svc.GenerateFromSubscriptions(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}
