package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationReminder            NotificationType = "reminder"
	NotificationOverdue             NotificationType = "overdue"
	NotificationNewInvoice          NotificationType = "new_invoice"
	NotificationPaymentConfirmation NotificationType = "payment_confirmation"
)

// Priority ordering for dispatch: lower fires first. The max-messages-per-day
// cap consumes candidates head-first, so overdue escalations survive the cap
// before reminders and reminders before new-invoice notices.
const (
	PriorityOverdue    = 1
	PriorityReminder   = 2
	PriorityNewInvoice = 3
)

// NotificationCandidate is a not-yet-sent notification decision. Candidates
// are computed fresh every cycle, consumed by dedup filtering and dispatch,
// and never persisted.
type NotificationCandidate struct {
	Type         NotificationType
	Priority     int
	Invoice      *Invoice
	Client       *Client
	Subscription *Subscription
	// DaysOffset is days until due for reminders, days overdue for
	// escalations, zero for new-invoice notices.
	DaysOffset int
}

// DeliveryLogEntry records one send attempt, successful or not. The dedup
// ledger queries these rows keyed on (client, type, day); only successful
// entries block a resend.
type DeliveryLogEntry struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	Type           NotificationType `json:"type" db:"type"`
	ClientID       uuid.UUID        `json:"client_id" db:"client_id"`
	InvoiceID      uuid.UUID        `json:"invoice_id" db:"invoice_id"`
	SubscriptionID *uuid.UUID       `json:"subscription_id,omitempty" db:"subscription_id"`
	Channel        string           `json:"channel" db:"channel"`
	Success        bool             `json:"success" db:"success"`
	Error          *string          `json:"error,omitempty" db:"error_message"`
	SentAt         time.Time        `json:"sent_at" db:"sent_at"`
}
