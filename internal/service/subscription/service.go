package subscription

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
	"github.com/llevisouza/gestao-cobrancas/pkg/errors"
)

type Service interface {
	CreateSubscription(ctx context.Context, req *model.CreateSubscriptionRequest) (*model.Subscription, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, req *model.UpdateSubscriptionRequest) (*model.Subscription, error)
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
	ListSubscriptions(ctx context.Context) ([]*model.Subscription, error)
}

type service struct {
	repo    repository.SubscriptionRepository
	clients repository.ClientRepository
}

func NewService(repo repository.SubscriptionRepository, clients repository.ClientRepository) Service {
	return &service{repo: repo, clients: clients}
}

func (s *service) CreateSubscription(ctx context.Context, req *model.CreateSubscriptionRequest) (*model.Subscription, error) {
	if _, err := s.clients.Get(ctx, req.ClientID); err != nil {
		return nil, err
	}

	sub := &model.Subscription{
		ClientID:       req.ClientID,
		Name:           req.Name,
		Amount:         req.Amount,
		RecurrenceType: model.RecurrenceType(req.RecurrenceType),
		DayOfWeek:      req.DayOfWeek,
		DayOfMonth:     req.DayOfMonth,
		RecurrenceDays: req.RecurrenceDays,
		Status:         model.SubscriptionStatusActive,
	}
	if err := validateRecurrence(sub); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

func validateRecurrence(sub *model.Subscription) error {
	switch sub.RecurrenceType {
	case model.RecurrenceWeekly:
		if sub.DayOfWeek == nil {
			return errors.Validation("day_of_week is required for weekly recurrence", nil)
		}
	case model.RecurrenceMonthly:
		if sub.DayOfMonth == nil {
			return errors.Validation("day_of_month is required for monthly recurrence", nil)
		}
	case model.RecurrenceCustom:
		if len(sub.RecurrenceDays) == 0 {
			return errors.Validation("recurrence_days is required for custom recurrence", nil)
		}
		for _, d := range sub.RecurrenceDays {
			if d < 1 {
				return errors.Validation("recurrence_days must be positive day intervals", nil)
			}
		}
	}
	return nil
}

func (s *service) GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) UpdateSubscription(ctx context.Context, id uuid.UUID, req *model.UpdateSubscriptionRequest) (*model.Subscription, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		sub.Name = *req.Name
	}
	if req.Amount != nil {
		sub.Amount = *req.Amount
	}
	if req.DayOfWeek != nil {
		sub.DayOfWeek = req.DayOfWeek
	}
	if req.DayOfMonth != nil {
		sub.DayOfMonth = req.DayOfMonth
	}
	if req.Status != nil {
		sub.Status = model.SubscriptionStatus(*req.Status)
	}
	if err := validateRecurrence(sub); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	return sub, nil
}

func (s *service) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) ListSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	return s.repo.List(ctx)
}
