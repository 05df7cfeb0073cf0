// Package nats publishes alert digests on a NATS subject.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectHeader carries the human-readable notification subject.
const SubjectHeader = "Subject"

// Notifier publishes digests as core NATS messages. Each message carries a
// unique Nats-Msg-Id so JetStream-backed subjects can deduplicate.
type Notifier struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect dials url and returns a Notifier over the new connection.
func Connect(url string, logger *slog.Logger) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("aurora-watch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Notifier{conn: conn, logger: logger}, nil
}

// Publish sends body to topic and waits for the server to acknowledge the
// flush. It returns the generated message id.
func (n *Notifier) Publish(ctx context.Context, topic, subject, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	msg := &nats.Msg{
		Subject: topic,
		Header:  nats.Header{},
		Data:    []byte(body),
	}
	msg.Header.Set(nats.MsgIdHdr, id)
	msg.Header.Set(SubjectHeader, subject)

	if err := n.conn.PublishMsg(msg); err != nil {
		return "", fmt.Errorf("publish %s: %w", topic, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return "", fmt.Errorf("flush %s: %w", topic, err)
	}
	return id, nil
}

// Ping reports whether the connection is usable.
func (n *Notifier) Ping(_ context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", n.conn.Status())
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *Notifier) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
