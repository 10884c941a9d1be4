package automation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger"
	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/pkg/logger"
	"github.com/llevisouza/gestao-cobrancas/pkg/metrics"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

// DispatchResult reports one dispatch attempt. Err is set only for
// infrastructure failures (ledger write, renderer); a rejected send is a
// Success=false result, not an error.
type DispatchResult struct {
	Success bool
	Channel string
	Error   string
}

// Dispatcher renders a candidate into a message, picks the channel
// (WhatsApp when the client has a phone, else email), sends it, and records
// the outcome in the delivery log. A send failure never propagates: it is
// logged, recorded, and returned as an unsuccessful result so the cycle
// continues with the remaining candidates.
type Dispatcher struct {
	whatsapp messenger.Messenger
	email    messenger.Messenger
	ledger   Ledger
	render   TemplateRenderer
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewDispatcher(
	whatsapp messenger.Messenger,
	email messenger.Messenger,
	ledger Ledger,
	render TemplateRenderer,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	if render == nil {
		render = RenderMessage
	}
	return &Dispatcher{
		whatsapp: whatsapp,
		email:    email,
		ledger:   ledger,
		render:   render,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, c *model.NotificationCandidate) DispatchResult {
	timer := prometheus.NewTimer(d.metrics.DispatchDuration)
	defer timer.ObserveDuration()

	channel, destination, sender := d.route(c.Client)
	if sender == nil {
		// The catalog filters out clients with no channel; this only
		// happens for externally triggered dispatches.
		return d.recordFailure(ctx, c, channel, "client has no deliverable channel")
	}

	body := d.render(c)
	result, err := sender.Send(ctx, destination, body)
	if err != nil {
		return d.recordFailure(ctx, c, channel, err.Error())
	}
	if !result.Success {
		return d.recordFailure(ctx, c, channel, result.Error)
	}

	entry := d.newEntry(c, channel)
	entry.Success = true
	if err := d.ledger.Record(ctx, entry); err != nil {
		// The message went out but the ledger write failed; surface it so
		// the error counter climbs, the send already happened.
		d.logger.Error(err, "failed to record successful delivery",
			"client_id", c.Client.ID.String(), "type", string(c.Type))
	}

	d.metrics.MessagesSent.WithLabelValues(string(c.Type), channel).Inc()
	d.logger.Info("notification dispatched",
		"client_id", c.Client.ID.String(),
		"invoice_id", c.Invoice.ID.String(),
		"type", string(c.Type),
		"channel", channel,
	)
	return DispatchResult{Success: true, Channel: channel}
}

func (d *Dispatcher) route(client *model.Client) (channel, destination string, sender messenger.Messenger) {
	if client.Phone != "" {
		return ChannelWhatsApp, client.Phone, d.whatsapp
	}
	if client.Email != "" {
		return ChannelEmail, client.Email, d.email
	}
	return "", "", nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, c *model.NotificationCandidate, channel, reason string) DispatchResult {
	entry := d.newEntry(c, channel)
	entry.Success = false
	entry.Error = &reason
	if err := d.ledger.Record(ctx, entry); err != nil {
		d.logger.Error(err, "failed to record delivery failure",
			"client_id", c.Client.ID.String(), "type", string(c.Type))
	}

	d.metrics.MessagesFailed.WithLabelValues(string(c.Type), channel).Inc()
	d.logger.Warn("notification dispatch failed",
		"client_id", c.Client.ID.String(),
		"invoice_id", c.Invoice.ID.String(),
		"type", string(c.Type),
		"channel", channel,
		"reason", reason,
	)
	return DispatchResult{Success: false, Channel: channel, Error: reason}
}

func (d *Dispatcher) newEntry(c *model.NotificationCandidate, channel string) *model.DeliveryLogEntry {
	entry := &model.DeliveryLogEntry{
		Type:      c.Type,
		ClientID:  c.Client.ID,
		InvoiceID: c.Invoice.ID,
		Channel:   channel,
		SentAt:    d.now(),
	}
	if c.Subscription != nil {
		entry.SubscriptionID = &c.Subscription.ID
	}
	return entry
}
