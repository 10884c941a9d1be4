package subscription

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/pkg/errors"
)

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

func newTestService(t *testing.T) (Service, uuid.UUID) {
	t.Helper()
	clients := &memClientRepo{clients: map[uuid.UUID]*model.Client{}}
	subs := &memSubscriptionRepo{subs: map[uuid.UUID]*model.Subscription{}}

	client := &model.Client{Name: "Ana Lima", Phone: "5511977776666"}
	require.NoError(t, clients.Create(context.Background(), client))
	return NewService(subs, clients), client.ID
}

func TestCreateSubscriptionValidatesRecurrence(t *testing.T) {
	svc, clientID := newTestService(t)
	ctx := context.Background()

	// Weekly without day_of_week is rejected.
	_, err := svc.CreateSubscription(ctx, &model.CreateSubscriptionRequest{
		ClientID:       clientID,
		Name:           "Semanal",
		Amount:         30,
		RecurrenceType: "weekly",
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	// Monthly without day_of_month is rejected.
	_, err = svc.CreateSubscription(ctx, &model.CreateSubscriptionRequest{
		ClientID:       clientID,
		Name:           "Mensal",
		Amount:         100,
		RecurrenceType: "monthly",
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	// Custom needs positive intervals.
	_, err = svc.CreateSubscription(ctx, &model.CreateSubscriptionRequest{
		ClientID:       clientID,
		Name:           "Personalizada",
		Amount:         45,
		RecurrenceType: "custom",
		RecurrenceDays: []int64{0},
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	dayOfMonth := 15
	sub, err := svc.CreateSubscription(ctx, &model.CreateSubscriptionRequest{
		ClientID:       clientID,
		Name:           "Mensal",
		Amount:         100,
		RecurrenceType: "monthly",
		DayOfMonth:     &dayOfMonth,
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, model.RecurrenceMonthly, sub.RecurrenceType)
}

func TestCreateSubscriptionUnknownClient(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateSubscription(context.Background(), &model.CreateSubscriptionRequest{
		ClientID:       uuid.New(),
		Name:           "Diária",
		Amount:         10,
		RecurrenceType: "daily",
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdateSubscriptionStatus(t *testing.T) {
	svc, clientID := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, &model.CreateSubscriptionRequest{
		ClientID:       clientID,
		Name:           "Diária",
		Amount:         10,
		RecurrenceType: "daily",
	})
	require.NoError(t, err)

	paused := "paused"
	updated, err := svc.UpdateSubscription(ctx, sub.ID, &model.UpdateSubscriptionRequest{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusPaused, updated.Status)
}
