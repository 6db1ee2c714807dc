package events

import "context"

// Event types published on the order lifecycle.
const (
	OrderCreated = "order.created"
	OrderPaid    = "order.paid"
)

// Publisher emits domain events to an external broker. Publishing is
// best-effort: callers log failures and continue, they never roll back the
// triggering write.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

type noop struct{}

func (noop) Publish(context.Context, string, interface{}) error { return nil }
func (noop) Close() error                                       { return nil }

// Noop returns a publisher that discards all events, used when no broker is
// configured.
func Noop() Publisher {
	return noop{}
}
