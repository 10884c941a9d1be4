package model

import (
	"time"

	"github.com/google/uuid"
)

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusBlocked  ClientStatus = "blocked"
)

// Client is a billing customer. Phone is required for WhatsApp delivery,
// Email for the email fallback; either may be empty.
type Client struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Phone     string       `json:"phone" db:"phone"`
	Email     string       `json:"email" db:"email"`
	Status    ClientStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

type CreateClientRequest struct {
	Name   string `json:"name" binding:"required"`
	Phone  string `json:"phone"`
	Email  string `json:"email" binding:"omitempty,email"`
	Status string `json:"status" binding:"omitempty,oneof=active inactive blocked"`
}

type UpdateClientRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Status *string `json:"status" binding:"omitempty,oneof=active inactive blocked"`
}
