// Package notifications provides Notifier implementations the core publishes
// transfer outcomes through.
package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
)

// LogNotifier writes notifications to the process log. It stands in when no
// broker is configured, e.g. local runs against the in-memory store.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier wraps a logger as a Notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, accountOwnerID, title, message string) error {
	n.logger.Info("notification",
		zap.String("owner_id", accountOwnerID),
		zap.String("title", title),
		zap.String("message", message),
	)
	return nil
}

var _ interfaces.Notifier = (*LogNotifier)(nil)
