package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
	"github.com/llevisouza/gestao-cobrancas/internal/service/automation"
	"github.com/llevisouza/gestao-cobrancas/pkg/calendar"
	"github.com/llevisouza/gestao-cobrancas/pkg/errors"
	"github.com/llevisouza/gestao-cobrancas/pkg/logger"
)

type Service interface {
	CreateInvoice(ctx context.Context, req *model.CreateInvoiceRequest) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	UpdateInvoice(ctx context.Context, id uuid.UUID, req *model.UpdateInvoiceRequest) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	ListInvoices(ctx context.Context) ([]*model.Invoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	GenerateFromSubscriptions(ctx context.Context) (int, error)
}

type service struct {
	repo       repository.InvoiceRepository
	subs       repository.SubscriptionRepository
	clients    repository.ClientRepository
	dispatcher *automation.Dispatcher
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(
	repo repository.InvoiceRepository,
	subs repository.SubscriptionRepository,
	clients repository.ClientRepository,
	dispatcher *automation.Dispatcher,
	logger *logger.Logger,
) Service {
	return &service{
		repo:       repo,
		subs:       subs,
		clients:    clients,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *service) CreateInvoice(ctx context.Context, req *model.CreateInvoiceRequest) (*model.Invoice, error) {
	if _, err := s.clients.Get(ctx, req.ClientID); err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		ClientID:       req.ClientID,
		SubscriptionID: req.SubscriptionID,
		Amount:         req.Amount,
		DueDate:        calendar.Midnight(req.DueDate),
		GenerationDate: calendar.Midnight(s.now()),
		Status:         model.InvoiceStatusPending,
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return invoice, nil
}

func (s *service) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) UpdateInvoice(ctx context.Context, id uuid.UUID, req *model.UpdateInvoiceRequest) (*model.Invoice, error) {
	invoice, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Amount != nil {
		invoice.Amount = *req.Amount
	}
	if req.DueDate != nil {
		invoice.DueDate = calendar.Midnight(*req.DueDate)
	}
	if req.Status != nil {
		invoice.Status = model.InvoiceStatus(*req.Status)
	}
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	return invoice, nil
}

func (s *service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) ListInvoices(ctx context.Context) ([]*model.Invoice, error) {
	return s.repo.List(ctx)
}

// MarkPaid transitions an invoice to paid and dispatches a payment
// confirmation to the client. The confirmation is best-effort: a send
// failure does not roll the payment back.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return nil, errors.BadRequest("invoice already paid", nil)
	}

	paidAt := s.now()
	invoice.Status = model.InvoiceStatusPaid
	invoice.PaidDate = &paidAt
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	client, err := s.clients.Get(ctx, invoice.ClientID)
	if err != nil {
		s.logger.Error(err, "payment confirmation skipped, client lookup failed",
			"invoice_id", invoice.ID.String())
		return invoice, nil
	}

	s.dispatcher.Dispatch(ctx, &model.NotificationCandidate{
		Type:    model.NotificationPaymentConfirmation,
		Invoice: invoice,
		Client:  client,
	})
	return invoice, nil
}

// GenerateFromSubscriptions creates pending invoices for active
// subscriptions whose next due date resolves from their recurrence, skipping
// subscriptions that already have a non-cancelled invoice for that due date.
// Returns the number of invoices created.
func (s *service) GenerateFromSubscriptions(ctx context.Context) (int, error) {
	subs, err := s.subs.ListByStatus(ctx, model.SubscriptionStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to load active subscriptions: %w", err)
	}

	today := calendar.Midnight(s.now())
	created := 0
	for _, sub := range subs {
		dueDate, ok := nextDueDate(sub, today)
		if !ok {
			continue
		}

		exists, err := s.repo.ExistsForSubscriptionDueDate(ctx, sub.ID, dueDate)
		if err != nil {
			return created, fmt.Errorf("failed to check existing invoice: %w", err)
		}
		if exists {
			continue
		}

		subID := sub.ID
		invoice := &model.Invoice{
			ClientID:       sub.ClientID,
			SubscriptionID: &subID,
			Amount:         sub.Amount,
			DueDate:        dueDate,
			GenerationDate: today,
			Status:         model.InvoiceStatusPending,
		}
		if err := s.repo.Create(ctx, invoice); err != nil {
			return created, fmt.Errorf("failed to create invoice for subscription %s: %w", sub.ID, err)
		}
		created++
		s.logger.Info("invoice generated from subscription",
			"subscription_id", sub.ID.String(),
			"due_date", dueDate.Format("2006-01-02"),
		)
	}
	return created, nil
}

// nextDueDate resolves the next charge date for a subscription. One-off
// subscriptions never generate; custom recurrence uses its first interval as
// days from today.
func nextDueDate(sub *model.Subscription, today time.Time) (time.Time, bool) {
	switch sub.RecurrenceType {
	case model.RecurrenceDaily:
		return today, true
	case model.RecurrenceWeekly:
		if sub.DayOfWeek == nil {
			return time.Time{}, false
		}
		return calendar.NextWeekday(time.Weekday(*sub.DayOfWeek), today), true
	case model.RecurrenceMonthly:
		if sub.DayOfMonth == nil {
			return time.Time{}, false
		}
		due, err := calendar.ResolveDueDateForDayOfMonth(*sub.DayOfMonth, today)
		if err != nil {
			return time.Time{}, false
		}
		return due, true
	case model.RecurrenceCustom:
		if len(sub.RecurrenceDays) == 0 {
			return time.Time{}, false
		}
		return today.AddDate(0, 0, int(sub.RecurrenceDays[0])), true
	}
	return time.Time{}, false
}
