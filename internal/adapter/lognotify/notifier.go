// Package lognotify writes alert digests to the service log when no broker
// is configured.
package lognotify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier logs each digest at warn level.
type Notifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Publish logs the message and returns a generated id.
func (n *Notifier) Publish(ctx context.Context, topic, subject, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	n.logger.WarnContext(ctx, subject, "topic", topic, "message_id", id, "body", body)
	return id, nil
}
