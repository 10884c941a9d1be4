package automation

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/pkg/calendar"
)

// Catalog decides which notification, if any, each invoice qualifies for at
// a point in time. It is a pure computation over a data snapshot; nothing
// here touches storage or the network.
type Catalog struct{}

func NewCatalog() *Catalog {
	return &Catalog{}
}

// ComputeCandidates walks the invoice population and emits at most one
// date-driven candidate per rule per invoice, sorted by priority so the
// max-messages-per-day cap consumes the most urgent ones first.
//
// Per invoice with status pending or overdue:
//   - 0 <= days-until-due <= ReminderDaysBefore emits a reminder;
//   - days-overdue exactly matching a member of OverdueSequence emits an
//     overdue escalation (finite schedule, not a daily nag);
//   - generation date equal to today on a pending invoice emits a
//     new-invoice notice, independently of the other two.
//
// Reminder and overdue are mutually exclusive by sign of the day diff.
// Invoices whose client is missing or has neither phone nor email are
// skipped: there is no deliverable channel.
func (c *Catalog) ComputeCandidates(
	invoices []*model.Invoice,
	clients []*model.Client,
	subscriptions []*model.Subscription,
	today time.Time,
	cfg model.AutomationConfig,
) []*model.NotificationCandidate {
	clientsByID := make(map[uuid.UUID]*model.Client, len(clients))
	for _, cl := range clients {
		clientsByID[cl.ID] = cl
	}
	subsByID := make(map[uuid.UUID]*model.Subscription, len(subscriptions))
	for _, sub := range subscriptions {
		subsByID[sub.ID] = sub
	}

	var candidates []*model.NotificationCandidate
	for _, inv := range invoices {
		if inv.Status != model.InvoiceStatusPending && inv.Status != model.InvoiceStatusOverdue {
			continue
		}
		client, ok := clientsByID[inv.ClientID]
		if !ok || (client.Phone == "" && client.Email == "") {
			continue
		}

		var sub *model.Subscription
		if inv.SubscriptionID != nil {
			sub = subsByID[*inv.SubscriptionID]
		}

		daysDiff := calendar.DaysDifference(inv.DueDate, today)
		switch {
		case daysDiff >= 0 && daysDiff <= cfg.ReminderDaysBefore:
			candidates = append(candidates, &model.NotificationCandidate{
				Type:         model.NotificationReminder,
				Priority:     model.PriorityReminder,
				Invoice:      inv,
				Client:       client,
				Subscription: sub,
				DaysOffset:   daysDiff,
			})
		case daysDiff < 0:
			daysOverdue := -daysDiff
			if containsDay(cfg.OverdueSequence, daysOverdue) {
				candidates = append(candidates, &model.NotificationCandidate{
					Type:         model.NotificationOverdue,
					Priority:     model.PriorityOverdue,
					Invoice:      inv,
					Client:       client,
					Subscription: sub,
					DaysOffset:   daysOverdue,
				})
			}
		}

		if inv.Status == model.InvoiceStatusPending &&
			calendar.DaysDifference(inv.GenerationDate, today) == 0 {
			candidates = append(candidates, &model.NotificationCandidate{
				Type:         model.NotificationNewInvoice,
				Priority:     model.PriorityNewInvoice,
				Invoice:      inv,
				Client:       client,
				Subscription: sub,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})
	return candidates
}

func containsDay(sequence []int, day int) bool {
	for _, d := range sequence {
		if d == day {
			return true
		}
	}
	return false
}
