// Package notify delivers outbound email. The SMTP sender is used when a
// relay is configured; otherwise messages are only logged.
package notify

import (
	"context"

	"github.com/dmitrijs2005/contractsign/internal/logging"
)

// Notifier sends one message with HTML and plain-text bodies.
type Notifier interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, _, text string) error {
	n.log.Info(ctx, "mail not sent, no relay configured", "to", to, "subject", subject, "body", text)
	return nil
}
