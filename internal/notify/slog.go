package notify

import (
	"context"
	"log/slog"
)

// LogNotifier records notifications to the structured log. Useful for
// development and as the default when no delivery backend is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(_ context.Context, msg Notification) {
	n.logger.Info("notification",
		"event", msg.Event,
		"recipient", msg.RecipientID,
		"actor", msg.ActorID,
		"detail", msg.Detail,
	)
}
