package automation

import (
	"fmt"
	"strings"

	"github.com/llevisouza/gestao-cobrancas/internal/model"
)

// TemplateRenderer turns a candidate into a message body. It is injected
// into the dispatcher so tests can substitute a trivial renderer.
type TemplateRenderer func(c *model.NotificationCandidate) string

var weekdayNames = []string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

// RenderMessage is the default renderer: plain-text Portuguese notices with
// the invoice amount, due date, and subscription description interpolated.
func RenderMessage(c *model.NotificationCandidate) string {
	amount := formatAmount(c.Invoice.Amount)
	due := c.Invoice.DueDate.Format("02/01/2006")

	var b strings.Builder
	switch c.Type {
	case model.NotificationReminder:
		fmt.Fprintf(&b, "Olá, %s! ", c.Client.Name)
		if c.DaysOffset == 0 {
			fmt.Fprintf(&b, "Sua fatura de %s vence hoje (%s).", amount, due)
		} else {
			fmt.Fprintf(&b, "Sua fatura de %s vence em %d dia(s), no dia %s.", amount, c.DaysOffset, due)
		}
	case model.NotificationOverdue:
		fmt.Fprintf(&b, "Olá, %s. Sua fatura de %s venceu em %s e está %d dia(s) em atraso. Por favor, regularize o pagamento.",
			c.Client.Name, amount, due, c.DaysOffset)
	case model.NotificationNewInvoice:
		fmt.Fprintf(&b, "Olá, %s! Uma nova fatura de %s foi gerada, com vencimento em %s.",
			c.Client.Name, amount, due)
	case model.NotificationPaymentConfirmation:
		fmt.Fprintf(&b, "Olá, %s! Confirmamos o recebimento do pagamento de %s. Obrigado!",
			c.Client.Name, amount)
	}

	if desc := describeRecurrence(c.Subscription); desc != "" {
		fmt.Fprintf(&b, " Referente à assinatura %q (%s).", c.Subscription.Name, desc)
	}
	return b.String()
}

func formatAmount(amount float64) string {
	return strings.Replace(fmt.Sprintf("R$ %.2f", amount), ".", ",", 1)
}

func describeRecurrence(sub *model.Subscription) string {
	if sub == nil {
		return ""
	}
	switch sub.RecurrenceType {
	case model.RecurrenceDaily:
		return "cobrança diária"
	case model.RecurrenceWeekly:
		if sub.DayOfWeek != nil && *sub.DayOfWeek >= 0 && *sub.DayOfWeek <= 6 {
			return fmt.Sprintf("cobrança semanal, toda %s", weekdayNames[*sub.DayOfWeek])
		}
		return "cobrança semanal"
	case model.RecurrenceMonthly:
		if sub.DayOfMonth != nil {
			return fmt.Sprintf("cobrança mensal, todo dia %d", *sub.DayOfMonth)
		}
		return "cobrança mensal"
	case model.RecurrenceCustom:
		if len(sub.RecurrenceDays) == 1 {
			return fmt.Sprintf("cobrança a cada %d dias", sub.RecurrenceDays[0])
		}
		return "cobrança personalizada"
	case model.RecurrenceOneOff:
		return "cobrança avulsa"
	}
	return ""
}
