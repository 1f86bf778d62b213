package notifier

import "context"

// Notifier delivers a formatted message to the operator's chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Noop discards every message. Used when Telegram is not configured.
type Noop struct{}

func (Noop) Notify(context.Context, string) error { return nil }
