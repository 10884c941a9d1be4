package automation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
)

func TestRenderMessagePerType(t *testing.T) {
	client := testClient("5511999990000", "")
	inv := testInvoice(client.ID, model.InvoiceStatusPending, day(2026, time.March, 12), day(2026, time.March, 10))
	inv.Amount = 1234.5

	msg := RenderMessage(&model.NotificationCandidate{
		Type: model.NotificationReminder, Invoice: inv, Client: client, DaysOffset: 2,
	})
	assert.Contains(t, msg, "vence em 2 dia(s)")
	assert.Contains(t, msg, "R$ 1234,50")
	assert.Contains(t, msg, "12/03/2026")

	msg = RenderMessage(&model.NotificationCandidate{
		Type: model.NotificationReminder, Invoice: inv, Client: client, DaysOffset: 0,
	})
	assert.Contains(t, msg, "vence hoje")

	msg = RenderMessage(&model.NotificationCandidate{
		Type: model.NotificationOverdue, Invoice: inv, Client: client, DaysOffset: 7,
	})
	assert.Contains(t, msg, "7 dia(s) em atraso")

	msg = RenderMessage(&model.NotificationCandidate{
		Type: model.NotificationNewInvoice, Invoice: inv, Client: client,
	})
	assert.Contains(t, msg, "nova fatura")

	msg = RenderMessage(&model.NotificationCandidate{
		Type: model.NotificationPaymentConfirmation, Invoice: inv, Client: client,
	})
	assert.Contains(t, msg, "recebimento do pagamento")
}

func TestRenderMessageDescribesRecurrence(t *testing.T) {
	client := testClient("5511999990000", "")
	inv := testInvoice(client.ID, model.InvoiceStatusPending, day(2026, time.March, 12), day(2026, time.March, 10))

	dayOfMonth := 15
	sub := &model.Subscription{
		Name:           "Plano Mensal",
		RecurrenceType: model.RecurrenceMonthly,
		DayOfMonth:     &dayOfMonth,
	}
	msg := RenderMessage(&model.NotificationCandidate{
		Type: model.NotificationReminder, Invoice: inv, Client: client, Subscription: sub, DaysOffset: 2,
	})
	assert.Contains(t, msg, "Plano Mensal")
	assert.Contains(t, msg, "todo dia 15")

	dow := int(time.Wednesday)
	sub = &model.Subscription{
		Name:           "Plano Semanal",
		RecurrenceType: model.RecurrenceWeekly,
		DayOfWeek:      &dow,
	}
	msg = RenderMessage(&model.NotificationCandidate{
		Type: model.NotificationReminder, Invoice: inv, Client: client, Subscription: sub, DaysOffset: 2,
	})
	assert.Contains(t, msg, "toda quarta-feira")
}
