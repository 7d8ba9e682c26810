package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/applynow/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes each alert to the given logger instead of delivering it.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each message via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message. It never fails.
func (n *LogNotifier) Send(_ context.Context, subscriberID int64, text string) error {
	n.logger.Info("job alert", "user_id", subscriberID, "text", text)
	return nil
}
