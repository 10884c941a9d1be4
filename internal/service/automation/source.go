package automation

import (
	"context"
	"fmt"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
)

// DataSource supplies the fresh billing snapshot a cycle works on. The run
// loop never caches these between cycles.
type DataSource interface {
	Clients(ctx context.Context) ([]*model.Client, error)
	OpenInvoices(ctx context.Context) ([]*model.Invoice, error)
	Subscriptions(ctx context.Context) ([]*model.Subscription, error)
}

type repositorySource struct {
	clients       repository.ClientRepository
	invoices      repository.InvoiceRepository
	subscriptions repository.SubscriptionRepository
}

func NewRepositorySource(
	clients repository.ClientRepository,
	invoices repository.InvoiceRepository,
	subscriptions repository.SubscriptionRepository,
) DataSource {
	return &repositorySource{
		clients:       clients,
		invoices:      invoices,
		subscriptions: subscriptions,
	}
}

func (s *repositorySource) Clients(ctx context.Context) ([]*model.Client, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	return clients, nil
}

func (s *repositorySource) OpenInvoices(ctx context.Context) ([]*model.Invoice, error) {
	invoices, err := s.invoices.ListByStatuses(ctx, model.InvoiceStatusPending, model.InvoiceStatusOverdue)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	return invoices, nil
}

func (s *repositorySource) Subscriptions(ctx context.Context) ([]*model.Subscription, error) {
	subs, err := s.subscriptions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return subs, nil
}
