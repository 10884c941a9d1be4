package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceCustom  RecurrenceType = "custom"
	RecurrenceOneOff  RecurrenceType = "one_off"
)

// Subscription is a recurring billing plan owned by a client. Exactly one of
// the recurrence parameters is meaningful depending on RecurrenceType:
// DayOfWeek for weekly, DayOfMonth for monthly, RecurrenceDays (interval in
// days) for custom.
type Subscription struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	ClientID       uuid.UUID          `json:"client_id" db:"client_id"`
	Name           string             `json:"name" db:"name"`
	Amount         float64            `json:"amount" db:"amount"`
	RecurrenceType RecurrenceType     `json:"recurrence_type" db:"recurrence_type"`
	DayOfWeek      *int               `json:"day_of_week,omitempty" db:"day_of_week"`
	DayOfMonth     *int               `json:"day_of_month,omitempty" db:"day_of_month"`
	RecurrenceDays pq.Int64Array      `json:"recurrence_days,omitempty" db:"recurrence_days"`
	Status         SubscriptionStatus `json:"status" db:"status"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
}

type CreateSubscriptionRequest struct {
	ClientID       uuid.UUID `json:"client_id" binding:"required"`
	Name           string    `json:"name" binding:"required"`
	Amount         float64   `json:"amount" binding:"required,gt=0"`
	RecurrenceType string    `json:"recurrence_type" binding:"required,oneof=daily weekly monthly custom one_off"`
	DayOfWeek      *int      `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	DayOfMonth     *int      `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	RecurrenceDays []int64   `json:"recurrence_days"`
}

type UpdateSubscriptionRequest struct {
	Name       *string  `json:"name"`
	Amount     *float64 `json:"amount" binding:"omitempty,gt=0"`
	DayOfWeek  *int     `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	DayOfMonth *int     `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	Status     *string  `json:"status" binding:"omitempty,oneof=active paused cancelled"`
}
