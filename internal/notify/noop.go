package notify

import (
	"context"
	"log/slog"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded deals. It is used
// when no notification backend is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards deals with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// Dispatch logs and discards the deals.
func (n *NoOpNotifier) Dispatch(_ context.Context, subscriberID string, deals []domain.Deal) error {
	n.log.Debug("notification discarded (no backend configured)",
		"subscriber", subscriberID,
		"deals", len(deals),
	)
	return nil
}
