package messaging

import (
	"context"
)

// Broker is a pub/sub transport for automation events. Subscribe returns
// a channel that is closed when the subscription ends.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
