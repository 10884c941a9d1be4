package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
)

// All repository interfaces in one file
type (
	ClientRepository interface {
		Create(ctx context.Context, client *model.Client) error
		Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
		Update(ctx context.Context, client *model.Client) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Client, error)
	}

	SubscriptionRepository interface {
		Create(ctx context.Context, sub *model.Subscription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
		Update(ctx context.Context, sub *model.Subscription) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Subscription, error)
		ListByStatus(ctx context.Context, status model.SubscriptionStatus) ([]*model.Subscription, error)
	}

	InvoiceRepository interface {
		Create(ctx context.Context, invoice *model.Invoice) error
		Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
		Update(ctx context.Context, invoice *model.Invoice) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Invoice, error)
		ListByStatuses(ctx context.Context, statuses ...model.InvoiceStatus) ([]*model.Invoice, error)
		ExistsForSubscriptionDueDate(ctx context.Context, subscriptionID uuid.UUID, dueDate time.Time) (bool, error)
	}

	// DeliveryLogRepository is the append-only record of send attempts the
	// dedup ledger queries.
	DeliveryLogRepository interface {
		Create(ctx context.Context, entry *model.DeliveryLogEntry) error
		ExistsSuccessSince(ctx context.Context, clientID uuid.UUID, typ model.NotificationType, since time.Time) (bool, error)
		ListRecent(ctx context.Context, limit int) ([]*model.DeliveryLogEntry, error)
		DeleteAll(ctx context.Context) error
	}

	RunLogRepository interface {
		Create(ctx context.Context, entry *model.AutomationRunLog) error
		ListRecent(ctx context.Context, limit int) ([]*model.AutomationRunLog, error)
		DeleteAll(ctx context.Context) error
	}

	// AutomationStateRepository persists the singleton run-loop state.
	AutomationStateRepository interface {
		Get(ctx context.Context) (*model.AutomationState, error)
		Save(ctx context.Context, state *model.AutomationState) error
	}
)
