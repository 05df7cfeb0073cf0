// Package window answers "everything since T" questions over the record store.
//
// The store offers no time index, so every query is a full predicate scan and
// costs O(total records). Results carry no ordering guarantee; callers that
// need one sort with domain.SortByTime.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/observability"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
	"github.com/jonboulle/clockwork"
)

const secondsPerDay = 86400

// Scanner returns the stored records matching a filter.
type Scanner interface {
	Scan(ctx context.Context, f domain.Filter) ([]domain.StatusRecord, error)
}

// Engine runs window queries against a Scanner.
type Engine struct {
	store   Scanner
	clock   clockwork.Clock
	policy  retry.Policy
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Engine. The clock anchors Trailing windows.
func New(store Scanner, clock clockwork.Clock, policy retry.Policy, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:   store,
		clock:   clock,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// Since returns every record with EpochTime >= since, restricted to statusID
// when it is non-empty.
func (e *Engine) Since(ctx context.Context, since int64, statusID string) ([]domain.StatusRecord, error) {
	f := domain.Filter{Since: since, StatusID: statusID}
	start := e.clock.Now()

	var scanned []domain.StatusRecord
	err := retry.Do(ctx, e.policy, func(ctx context.Context) error {
		var err error
		scanned, err = e.store.Scan(ctx, f)
		return err
	})
	e.metrics.WindowScanDuration.Observe(e.clock.Since(start).Seconds())
	if err != nil {
		e.metrics.WindowScans.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: scan since %d: %w", domain.ErrStoreRead, since, err)
	}
	e.metrics.WindowScans.WithLabelValues("success").Inc()

	// Stores may over-approximate the predicate.
	out := make([]domain.StatusRecord, 0, len(scanned))
	for _, rec := range scanned {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	e.logger.Debug("window scan", "since", since, "status_id", statusID, "scanned", len(scanned), "matched", len(out))
	return out, nil
}

// Trailing returns the records of the last d, measured from the engine clock.
func (e *Engine) Trailing(ctx context.Context, d time.Duration, statusID string) ([]domain.StatusRecord, error) {
	return e.Since(ctx, e.SinceEpoch(d), statusID)
}

// SinceEpoch converts a trailing duration into the inclusive epoch bound.
func (e *Engine) SinceEpoch(d time.Duration) int64 {
	return e.clock.Now().Add(-d).Unix()
}

// SinceDays returns the inclusive epoch bound of the last days days. It works
// in whole seconds, so spans beyond the range of time.Duration stay exact.
func (e *Engine) SinceDays(days int64) int64 {
	return e.clock.Now().Unix() - days*secondsPerDay
}
