package model

import (
	"fmt"
	"time"

	"github.com/llevisouza/gestao-cobrancas/pkg/calendar"
)

// AutomationConfig controls the scheduling engine. Durations serialize as
// Go duration strings in YAML and nanoseconds in JSON.
type AutomationConfig struct {
	Enabled              bool                   `json:"enabled" yaml:"enabled"`
	CheckInterval        time.Duration          `json:"check_interval" yaml:"check_interval" validate:"min=60000000000"`
	ReminderDaysBefore   int                    `json:"reminder_days_before" yaml:"reminder_days_before" validate:"min=1"`
	OverdueSequence      []int                  `json:"overdue_sequence" yaml:"overdue_sequence" validate:"required,min=1,dive,min=1"`
	MaxMessagesPerDay    int                    `json:"max_messages_per_day" yaml:"max_messages_per_day" validate:"min=1"`
	DelayBetweenMessages time.Duration          `json:"delay_between_messages" yaml:"delay_between_messages" validate:"min=1000000000"`
	BusinessHours        calendar.BusinessHours `json:"business_hours" yaml:"business_hours"`
}

// DefaultAutomationConfig is the configuration restored by reset: hourly
// checks, 3-day reminder window, escalations at 1/3/7/15/30 days overdue,
// weekday business hours 8-18.
func DefaultAutomationConfig() AutomationConfig {
	return AutomationConfig{
		Enabled:              true,
		CheckInterval:        time.Hour,
		ReminderDaysBefore:   3,
		OverdueSequence:      []int{1, 3, 7, 15, 30},
		MaxMessagesPerDay:    50,
		DelayBetweenMessages: 5 * time.Second,
		BusinessHours: calendar.BusinessHours{
			Start: 8,
			End:   18,
			WorkDays: []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday,
				time.Thursday, time.Friday,
			},
		},
	}
}

// Validate enforces the config bounds. Out-of-range updates are rejected
// before being merged; the previous config stays in effect.
func (c AutomationConfig) Validate() error {
	if c.CheckInterval < time.Minute {
		return fmt.Errorf("check_interval must be at least 1m, got %s", c.CheckInterval)
	}
	if c.ReminderDaysBefore < 1 {
		return fmt.Errorf("reminder_days_before must be at least 1, got %d", c.ReminderDaysBefore)
	}
	if len(c.OverdueSequence) == 0 {
		return fmt.Errorf("overdue_sequence must not be empty")
	}
	prev := 0
	for _, d := range c.OverdueSequence {
		if d <= prev {
			return fmt.Errorf("overdue_sequence must be ascending positive day offsets, got %v", c.OverdueSequence)
		}
		prev = d
	}
	if c.MaxMessagesPerDay < 1 {
		return fmt.Errorf("max_messages_per_day must be at least 1, got %d", c.MaxMessagesPerDay)
	}
	if c.DelayBetweenMessages < time.Second {
		return fmt.Errorf("delay_between_messages must be at least 1s, got %s", c.DelayBetweenMessages)
	}
	if c.BusinessHours.Start < 0 || c.BusinessHours.Start > 23 {
		return fmt.Errorf("business_hours.start out of range: %d", c.BusinessHours.Start)
	}
	if c.BusinessHours.End < 0 || c.BusinessHours.End > 23 {
		return fmt.Errorf("business_hours.end out of range: %d", c.BusinessHours.End)
	}
	if len(c.BusinessHours.WorkDays) == 0 {
		return fmt.Errorf("business_hours.work_days must not be empty")
	}
	for _, wd := range c.BusinessHours.WorkDays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("business_hours.work_days contains invalid weekday %d", wd)
		}
	}
	return nil
}

// AutomationConfigPatch carries a partial config update; nil fields keep
// their current value.
type AutomationConfigPatch struct {
	Enabled              *bool                   `json:"enabled"`
	CheckInterval        *time.Duration          `json:"check_interval"`
	ReminderDaysBefore   *int                    `json:"reminder_days_before"`
	OverdueSequence      []int                   `json:"overdue_sequence"`
	MaxMessagesPerDay    *int                    `json:"max_messages_per_day"`
	DelayBetweenMessages *time.Duration          `json:"delay_between_messages"`
	BusinessHours        *calendar.BusinessHours `json:"business_hours"`
}

// Apply merges the patch onto base and returns the result; base is not
// modified.
func (p AutomationConfigPatch) Apply(base AutomationConfig) AutomationConfig {
	merged := base
	if p.Enabled != nil {
		merged.Enabled = *p.Enabled
	}
	if p.CheckInterval != nil {
		merged.CheckInterval = *p.CheckInterval
	}
	if p.ReminderDaysBefore != nil {
		merged.ReminderDaysBefore = *p.ReminderDaysBefore
	}
	if p.OverdueSequence != nil {
		merged.OverdueSequence = append([]int(nil), p.OverdueSequence...)
	}
	if p.MaxMessagesPerDay != nil {
		merged.MaxMessagesPerDay = *p.MaxMessagesPerDay
	}
	if p.DelayBetweenMessages != nil {
		merged.DelayBetweenMessages = *p.DelayBetweenMessages
	}
	if p.BusinessHours != nil {
		merged.BusinessHours = *p.BusinessHours
	}
	return merged
}

// AutomationStats accumulates across cycles until reset.
type AutomationStats struct {
	MessagesSent int        `json:"messages_sent"`
	Errors       int        `json:"errors"`
	LastCycle    *time.Time `json:"last_cycle,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
}

// AutomationState is the persisted singleton the run loop resumes from
// after a process restart.
type AutomationState struct {
	IsRunning   bool             `json:"is_running"`
	Config      AutomationConfig `json:"config"`
	Stats       AutomationStats  `json:"stats"`
	LastUpdated time.Time        `json:"last_updated"`
}

// CycleResult summarizes one execution of the compute-dedup-dispatch
// pipeline.
type CycleResult struct {
	Processed  int    `json:"processed"`
	Sent       int    `json:"sent"`
	Errors     int    `json:"errors"`
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// AutomationRunLog is one append-only row per cycle, including skipped ones.
type AutomationRunLog struct {
	ID         int64      `json:"id" db:"id"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt time.Time  `json:"finished_at" db:"finished_at"`
	Processed  int        `json:"processed" db:"processed"`
	Sent       int        `json:"sent" db:"sent"`
	Errors     int        `json:"errors" db:"errors"`
	Skipped    bool       `json:"skipped" db:"skipped"`
	SkipReason *string    `json:"skip_reason,omitempty" db:"skip_reason"`
	Error      *string    `json:"error,omitempty" db:"error_message"`
}
