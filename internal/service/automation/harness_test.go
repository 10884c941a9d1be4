package automation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger"
	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/pkg/logger"
	"github.com/llevisouza/gestao-cobrancas/pkg/metrics"
)

// fakeMessenger records sends and can be programmed to fail.
type fakeMessenger struct {
	mu        sync.Mutex
	sent      []string
	bodies    []string
	sendErr   error
	reject    string
	connected bool
	connErr   error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{connected: true}
}

func (f *fakeMessenger) Send(_ context.Context, destination, body string) (*messenger.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.reject != "" {
		return &messenger.SendResult{Success: false, Error: f.reject}, nil
	}
	f.sent = append(f.sent, destination)
	f.bodies = append(f.bodies, body)
	return &messenger.SendResult{Success: true, MessageID: uuid.NewString()}, nil
}

func (f *fakeMessenger) CheckConnection(context.Context) (*messenger.ConnectionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connErr != nil {
		return nil, f.connErr
	}
	state := "open"
	if !f.connected {
		state = "closed"
	}
	return &messenger.ConnectionStatus{Connected: f.connected, State: state}, nil
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// memDeliveryLog is an in-memory DeliveryLogRepository.
type memDeliveryLog struct {
	mu        sync.Mutex
	entries   []*model.DeliveryLogEntry
	failQuery bool
}

func (m *memDeliveryLog) Create(_ context.Context, entry *model.DeliveryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memDeliveryLog) ExistsSuccessSince(_ context.Context, clientID uuid.UUID, typ model.NotificationType, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failQuery {
		return false, errors.New("ledger unavailable")
	}
	for _, e := range m.entries {
		if e.ClientID == clientID && e.Type == typ && e.Success && !e.SentAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDeliveryLog) ListRecent(_ context.Context, limit int) ([]*model.DeliveryLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]*model.DeliveryLogEntry, limit)
	copy(out, m.entries[len(m.entries)-limit:])
	return out, nil
}

func (m *memDeliveryLog) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func (m *memDeliveryLog) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// memRunLog is an in-memory RunLogRepository.
type memRunLog struct {
	mu      sync.Mutex
	entries []*model.AutomationRunLog
}

func (m *memRunLog) Create(_ context.Context, entry *model.AutomationRunLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memRunLog) ListRecent(_ context.Context, limit int) ([]*model.AutomationRunLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]*model.AutomationRunLog, limit)
	copy(out, m.entries[len(m.entries)-limit:])
	return out, nil
}

func (m *memRunLog) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

func (m *memRunLog) last() *model.AutomationRunLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

// memStateRepo persists the automation state singleton in memory.
type memStateRepo struct {
	mu    sync.Mutex
	state *model.AutomationState
	saves int
}

func (m *memStateRepo) Get(context.Context) (*model.AutomationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil
	}
	snapshot := *m.state
	return &snapshot, nil
}

func (m *memStateRepo) Save(_ context.Context, state *model.AutomationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *state
	m.state = &snapshot
	m.saves++
	return nil
}

func (m *memStateRepo) persisted() *model.AutomationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil
	}
	snapshot := *m.state
	return &snapshot
}

// staticSource serves fixed data snapshots.
type staticSource struct {
	clients  []*model.Client
	invoices []*model.Invoice
	subs     []*model.Subscription
	err      error
}

func (s *staticSource) Clients(context.Context) ([]*model.Client, error) {
	return s.clients, s.err
}

func (s *staticSource) OpenInvoices(context.Context) ([]*model.Invoice, error) {
	return s.invoices, s.err
}

func (s *staticSource) Subscriptions(context.Context) ([]*model.Subscription, error) {
	return s.subs, s.err
}

// harness wires a Runner with fakes and a clock pinned inside business
// hours (Tuesday 2026-03-10 10:00 UTC).
type harness struct {
	runner    *Runner
	whatsapp  *fakeMessenger
	email     *fakeMessenger
	delivery  *memDeliveryLog
	runLog    *memRunLog
	stateRepo *memStateRepo
	source    *staticSource
	clock     time.Time
}

func newHarness(source *staticSource) *harness {
	wa := newFakeMessenger()
	em := newFakeMessenger()
	delivery := &memDeliveryLog{}
	runLog := &memRunLog{}
	stateRepo := &memStateRepo{}
	testLogger := logger.NewLogger(nil)
	testMetrics := metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "automation")

	ledger := NewLedger(delivery)
	dispatcher := NewDispatcher(wa, em, ledger, nil, testLogger, testMetrics)

	runner := NewRunner(
		source, ledger, dispatcher, wa,
		stateRepo, runLog, delivery,
		nil, testLogger, testMetrics,
		model.DefaultAutomationConfig(),
	)

	h := &harness{
		runner:    runner,
		whatsapp:  wa,
		email:     em,
		delivery:  delivery,
		runLog:    runLog,
		stateRepo: stateRepo,
		source:    source,
		clock:     time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC),
	}
	runner.now = func() time.Time { return h.clock }
	runner.sleep = func(context.Context, time.Duration) error { return nil }
	dispatcher.now = runner.now
	return h
}
