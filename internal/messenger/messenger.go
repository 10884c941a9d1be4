package messenger

import (
	"context"
)

// SendResult is the outcome reported by a send channel.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ConnectionStatus describes channel reachability, e.g. a WhatsApp instance
// session state.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"`
}

// Messenger is a notification send channel. Implementations must treat Send
// as best-effort: a failed send returns a SendResult with Success=false (or
// an error), never panics, and the caller decides whether to continue.
type Messenger interface {
	Send(ctx context.Context, destination, body string) (*SendResult, error)
	CheckConnection(ctx context.Context) (*ConnectionStatus, error)
}
