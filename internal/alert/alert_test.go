package alert_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/alert"
	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/observability"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type fakeWindow struct {
	records []domain.StatusRecord
	err     error
	since   int64
	status  string
	block   chan struct{}
	entered chan struct{}
}

func (w *fakeWindow) SinceEpoch(d time.Duration) int64 {
	return 1_000_000 - int64(d/time.Second)
}

func (w *fakeWindow) Since(_ context.Context, since int64, statusID string) ([]domain.StatusRecord, error) {
	w.since = since
	w.status = statusID
	if w.entered != nil {
		close(w.entered)
	}
	if w.block != nil {
		<-w.block
	}
	return w.records, w.err
}

type published struct {
	topic, subject, body string
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []published
	fails int
}

func (n *fakeNotifier) Publish(_ context.Context, topic, subject, body string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails != 0 {
		if n.fails > 0 {
			n.fails--
		}
		return "", errors.New("broker unavailable")
	}
	n.sent = append(n.sent, published{topic: topic, subject: subject, body: body})
	return "msg-1", nil
}

func newEvaluator(w alert.Window, n alert.Notifier) *alert.Evaluator {
	return alert.New(w, n, "aurora.alerts.green", retry.Policy{Backoff: time.Millisecond},
		slog.Default(), observability.NewMetricsForTesting())
}

func green(epoch int64, iso, value string) domain.StatusRecord {
	return domain.StatusRecord{
		EpochTime: epoch,
		ISOString: iso,
		StatusID:  "green",
		Value:     decimal.RequireFromString(value),
	}
}

// --- tests ---

func TestEvaluate_PublishesOnceSortedDigest(t *testing.T) {
	w := &fakeWindow{records: []domain.StatusRecord{
		green(999_000, "2023-10-01T17:43:20+00:00", "12.5"),
		green(990_000, "2023-10-01T15:13:20+00:00", "8"),
	}}
	n := &fakeNotifier{}

	out, err := newEvaluator(w, n).Evaluate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1_000_000-6*3600), w.since)
	assert.Equal(t, "green", w.status)
	assert.True(t, out.Published)
	assert.Equal(t, "msg-1", out.MessageID)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "aurora.alerts.green", n.sent[0].topic)
	assert.Equal(t, alert.Subject, n.sent[0].subject)
	assert.Equal(t,
		"The following records have a green status in the last six hours:\n\n"+
			"Timestamp: 2023-10-01T15:13:20+00:00, Status ID: green, Value: 8\n"+
			"Timestamp: 2023-10-01T17:43:20+00:00, Status ID: green, Value: 12.5\n",
		n.sent[0].body)
}

func TestEvaluate_NoMatchesNoPublish(t *testing.T) {
	n := &fakeNotifier{}

	out, err := newEvaluator(&fakeWindow{}, n).Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Published)
	assert.Empty(t, out.Matches)
	assert.Empty(t, n.sent)
}

func TestEvaluate_ReadFailureReturned(t *testing.T) {
	w := &fakeWindow{err: domain.ErrStoreRead}
	n := &fakeNotifier{}

	_, err := newEvaluator(w, n).Evaluate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreRead)
	assert.Empty(t, n.sent)
}

func TestEvaluate_NotifyFailureIsNotFatal(t *testing.T) {
	w := &fakeWindow{records: []domain.StatusRecord{green(1, "x", "1")}}
	n := &fakeNotifier{fails: -1}

	out, err := newEvaluator(w, n).Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Published)
	require.Error(t, out.NotifyErr)
	assert.ErrorIs(t, out.NotifyErr, domain.ErrNotify)
}

func TestEvaluate_NotifyRetriedOnce(t *testing.T) {
	w := &fakeWindow{records: []domain.StatusRecord{green(1, "x", "1")}}
	n := &fakeNotifier{fails: 1}

	out, err := newEvaluator(w, n).Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Published)
	assert.Len(t, n.sent, 1)
}

func TestEvaluate_ConcurrentTriggerSkipped(t *testing.T) {
	w := &fakeWindow{block: make(chan struct{}), entered: make(chan struct{})}
	e := newEvaluator(w, &fakeNotifier{})
	assert.Equal(t, alert.Idle, e.State())

	done := make(chan error, 1)
	go func() {
		_, err := e.Evaluate(context.Background())
		done <- err
	}()

	<-w.entered
	assert.Equal(t, alert.Evaluating, e.State())

	_, err := e.Evaluate(context.Background())
	assert.ErrorIs(t, err, alert.ErrEvaluationInProgress)

	close(w.block)
	require.NoError(t, <-done)
	assert.Equal(t, alert.Idle, e.State())
}

func TestBuildDigest_HeaderOnly(t *testing.T) {
	assert.Equal(t, "The following records have a green status in the last six hours:\n\n", alert.BuildDigest(nil))
}
