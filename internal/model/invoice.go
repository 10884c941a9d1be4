package model

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is a charge against a client, optionally generated from a
// subscription. DueDate and GenerationDate are calendar dates; the time
// component is never compared. Status transitions are driven by payments
// and manual edits, never by the automation core.
type Invoice struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	ClientID       uuid.UUID     `json:"client_id" db:"client_id"`
	SubscriptionID *uuid.UUID    `json:"subscription_id,omitempty" db:"subscription_id"`
	Amount         float64       `json:"amount" db:"amount"`
	DueDate        time.Time     `json:"due_date" db:"due_date"`
	GenerationDate time.Time     `json:"generation_date" db:"generation_date"`
	Status         InvoiceStatus `json:"status" db:"status"`
	PaidDate       *time.Time    `json:"paid_date,omitempty" db:"paid_date"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

type CreateInvoiceRequest struct {
	ClientID       uuid.UUID  `json:"client_id" binding:"required"`
	SubscriptionID *uuid.UUID `json:"subscription_id"`
	Amount         float64    `json:"amount" binding:"required,gt=0"`
	DueDate        time.Time  `json:"due_date" binding:"required"`
}

type UpdateInvoiceRequest struct {
	Amount  *float64   `json:"amount" binding:"omitempty,gt=0"`
	DueDate *time.Time `json:"due_date"`
	Status  *string    `json:"status" binding:"omitempty,oneof=pending paid overdue cancelled"`
}
