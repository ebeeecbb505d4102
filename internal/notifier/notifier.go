// Package notifier delivers trade alerts and system notifications.
package notifier

import (
	"context"

	"github.com/rxtech-lab/argo-signals/internal/types"
)

// Notifier is the outbound alert channel. Delivery is at-least-once; a
// returned error means the message may not have arrived.
type Notifier interface {
	// SendTradeAlert formats and delivers a trade signal.
	SendTradeAlert(ctx context.Context, signal types.Signal) error
	// SendSystem delivers a titled system notification (startup, shutdown,
	// degraded data, status report).
	SendSystem(ctx context.Context, title string, message string) error
	// SendOutcome delivers a closed-position report.
	SendOutcome(ctx context.Context, outcome types.TradeOutcome) error
}

// New returns a Discord notifier when the webhook is configured, and a Noop
// notifier otherwise.
func New(config Config) (Notifier, error) {
	if config.WebhookURL == "" {
		return &Noop{}, nil
	}

	return NewDiscord(config)
}

// Noop swallows every notification. It stands in when no webhook is
// configured.
type Noop struct{}

var _ Notifier = (*Noop)(nil)

// SendTradeAlert implements Notifier.
func (n *Noop) SendTradeAlert(_ context.Context, _ types.Signal) error {
	return nil
}

// SendSystem implements Notifier.
func (n *Noop) SendSystem(_ context.Context, _ string, _ string) error {
	return nil
}

// SendOutcome implements Notifier.
func (n *Noop) SendOutcome(_ context.Context, _ types.TradeOutcome) error {
	return nil
}
