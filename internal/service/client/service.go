package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
)

type Service interface {
	CreateClient(ctx context.Context, req *model.CreateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*model.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, req *model.UpdateClientRequest) (*model.Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error
	ListClients(ctx context.Context) ([]*model.Client, error)
}

type service struct {
	repo repository.ClientRepository
}

func NewService(repo repository.ClientRepository) Service {
	return &service{repo: repo}
}

func (s *service) CreateClient(ctx context.Context, req *model.CreateClientRequest) (*model.Client, error) {
	client := &model.Client{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Status: model.ClientStatus(req.Status),
	}
	if client.Status == "" {
		client.Status = model.ClientStatusActive
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (s *service) GetClient(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) UpdateClient(ctx context.Context, id uuid.UUID, req *model.UpdateClientRequest) (*model.Client, error) {
	client, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Status != nil {
		client.Status = model.ClientStatus(*req.Status)
	}
	if err := s.repo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

func (s *service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) ListClients(ctx context.Context) ([]*model.Client, error) {
	return s.repo.List(ctx)
}
