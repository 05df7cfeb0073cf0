// Package alert checks the recent window for the green status and publishes
// a digest when it is present.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/observability"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
)

const (
	// AlertWindow is how far back each evaluation looks.
	AlertWindow = 6 * time.Hour

	// AlertStatus is the status id that triggers a notification.
	AlertStatus = "green"

	// Subject is the notification subject line.
	Subject = "Green Status Notification"

	digestHeader = "The following records have a green status in the last six hours:\n\n"
)

// ErrEvaluationInProgress is returned when Evaluate is called while another
// evaluation is still running.
var ErrEvaluationInProgress = errors.New("alert evaluation already in progress")

// State is the evaluator lifecycle state.
type State int32

const (
	Idle State = iota
	Evaluating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluating:
		return "evaluating"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Window is the read path the evaluator queries.
type Window interface {
	SinceEpoch(d time.Duration) int64
	Since(ctx context.Context, since int64, statusID string) ([]domain.StatusRecord, error)
}

// Notifier publishes a message to a topic and returns the broker message id.
type Notifier interface {
	Publish(ctx context.Context, topic, subject, body string) (string, error)
}

// Outcome describes one evaluation.
type Outcome struct {
	Since     int64                 `json:"since"`
	Matches   []domain.StatusRecord `json:"matches"`
	Published bool                  `json:"published"`
	MessageID string                `json:"messageId,omitempty"`

	// NotifyErr is the publish failure, if any. It never fails the evaluation.
	NotifyErr error `json:"-"`
}

// Evaluator runs the green-status check. It is safe for concurrent use; at
// most one evaluation runs at a time.
type Evaluator struct {
	window   Window
	notifier Notifier
	topic    string
	policy   retry.Policy
	logger   *slog.Logger
	metrics  *observability.Metrics
	state    atomic.Int32
}

// New creates an Evaluator publishing to topic.
func New(w Window, n Notifier, topic string, policy retry.Policy, logger *slog.Logger, metrics *observability.Metrics) *Evaluator {
	return &Evaluator{
		window:   w,
		notifier: n,
		topic:    topic,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
	}
}

// State returns the current lifecycle state.
func (e *Evaluator) State() State {
	return State(e.state.Load())
}

// Evaluate queries the trailing AlertWindow for AlertStatus records and
// publishes one digest when any are found. Only a failed store read is
// returned as an error.
func (e *Evaluator) Evaluate(ctx context.Context) (Outcome, error) {
	if !e.state.CompareAndSwap(int32(Idle), int32(Evaluating)) {
		e.logger.Warn("alert evaluation skipped", "reason", "already evaluating")
		return Outcome{}, ErrEvaluationInProgress
	}
	defer e.state.Store(int32(Idle))

	since := e.window.SinceEpoch(AlertWindow)
	out := Outcome{Since: since}

	matches, err := e.window.Since(ctx, since, AlertStatus)
	if err != nil {
		return out, fmt.Errorf("evaluate alert window: %w", err)
	}
	domain.SortByTime(matches)
	out.Matches = matches
	e.metrics.AlertMatches.Set(float64(len(matches)))

	if len(matches) == 0 {
		e.logger.Info("no green status in alert window", "since", since)
		return out, nil
	}

	id, err := e.publish(ctx, BuildDigest(matches))
	if err != nil {
		e.metrics.Notifications.WithLabelValues("error").Inc()
		e.logger.Error("alert notification failed", "error", err, "topic", e.topic, "matches", len(matches))
		out.NotifyErr = err
		return out, nil
	}
	e.metrics.Notifications.WithLabelValues("sent").Inc()
	e.logger.Info("alert notification sent", "topic", e.topic, "message_id", id, "matches", len(matches))
	out.Published = true
	out.MessageID = id
	return out, nil
}

func (e *Evaluator) publish(ctx context.Context, body string) (string, error) {
	var id string
	err := retry.Do(ctx, e.policy, func(ctx context.Context) error {
		var err error
		id, err = e.notifier.Publish(ctx, e.topic, Subject, body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: publish to %s: %w", domain.ErrNotify, e.topic, err)
	}
	return id, nil
}

// BuildDigest renders the notification body, one line per record in the
// given order.
func BuildDigest(records []domain.StatusRecord) string {
	var b strings.Builder
	b.WriteString(digestHeader)
	for _, r := range records {
		fmt.Fprintf(&b, "Timestamp: %s, Status ID: %s, Value: %s\n", r.ISOString, r.StatusID, r.Value.String())
	}
	return b.String()
}
