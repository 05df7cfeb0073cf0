// Package pipeline runs the fetch, parse, ingest, and alert cycle on a
// schedule.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/alert"
	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/ingest"
	"github.com/couchcryptid/aurora-watch-service/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// Initial wait before re-running a failed cycle. Doubles per consecutive
// failure, capped at the poll interval.
const failureBackoff = 30 * time.Second

// Fetcher retrieves the raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Ingester upserts a batch of records.
type Ingester interface {
	UpsertAll(ctx context.Context, records []domain.StatusRecord) ingest.Result
}

// RecordSink receives the records written in a cycle.
type RecordSink interface {
	LoadBatch(ctx context.Context, records []domain.StatusRecord) error
}

// AlertEvaluator checks the alert window after ingestion.
type AlertEvaluator interface {
	Evaluate(ctx context.Context) (alert.Outcome, error)
}

// CycleReport describes one completed or failed cycle.
type CycleReport struct {
	UpdatedEpoch int64                        `json:"updatedEpoch"`
	UpdatedISO   string                       `json:"updatedIsoString"`
	Thresholds   []domain.ThresholdDefinition `json:"thresholds"`
	Records      []domain.StatusRecord        `json:"records"`
	Write        ingest.Result                `json:"write"`
	Alert        alert.Outcome                `json:"alert"`

	SinkErr  error `json:"-"`
	AlertErr error `json:"-"`
}

// Poller orchestrates the poll cycle.
type Poller struct {
	fetcher   Fetcher
	ingester  Ingester
	sink      RecordSink
	evaluator AlertEvaluator
	clock     clockwork.Clock
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Poller. sink may be nil to disable the record changelog.
func New(f Fetcher, ing Ingester, sink RecordSink, eval AlertEvaluator, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		fetcher:   f,
		ingester:  ing,
		sink:      sink,
		evaluator: eval,
		clock:     clock,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a cycle has completed without a fatal
// error.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("poller has not completed a cycle yet")
	}
	return nil
}

// RunCycle executes one fetch-parse-ingest-alert cycle. Only fetch and parse
// failures are returned; they happen before any store write. Write, sink and
// alert failures are recorded in the report.
func (p *Poller) RunCycle(ctx context.Context) (CycleReport, error) {
	start := p.clock.Now()
	var report CycleReport

	body, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.failCycle(ctx, "fetch_error", err)
		return report, err
	}

	snap, err := domain.ParseFeed(body)
	if err != nil {
		p.failCycle(ctx, "parse_error", err)
		return report, err
	}
	report.UpdatedEpoch = snap.UpdatedAt.Unix()
	report.UpdatedISO = snap.UpdatedAt.Format(domain.ISOLayout)
	report.Thresholds = snap.Thresholds

	records := domain.Normalize(snap)
	report.Records = records
	p.metrics.RecordsParsed.Add(float64(len(records)))

	report.Write = p.ingester.UpsertAll(ctx, records)
	if report.Write.Failed > 0 {
		p.logger.Warn("partial ingestion",
			"written", report.Write.Written,
			"failed", report.Write.Failed,
			"error", report.Write.Err,
		)
	}

	report.SinkErr = p.publishWritten(ctx, report.Write.Stored)

	report.Alert, report.AlertErr = p.evaluator.Evaluate(ctx)
	switch {
	case errors.Is(report.AlertErr, alert.ErrEvaluationInProgress):
		p.logger.Debug("alert evaluation skipped", "reason", report.AlertErr)
	case report.AlertErr != nil:
		p.logger.Error("alert evaluation failed", "error", report.AlertErr)
	}

	p.metrics.PollCycles.WithLabelValues("success").Inc()
	p.metrics.PollDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.LastSuccessfulPoll.Set(float64(p.clock.Now().Unix()))
	p.ready.Store(true)

	p.logger.Info("poll cycle complete",
		"updated", report.UpdatedISO,
		"thresholds", len(report.Thresholds),
		"records", len(records),
		"written", report.Write.Written,
		"failed", report.Write.Failed,
		"alert_matches", len(report.Alert.Matches),
		"alert_published", report.Alert.Published,
	)
	return report, nil
}

func (p *Poller) failCycle(ctx context.Context, outcome string, err error) {
	if ctx.Err() != nil {
		outcome = "cancelled"
	}
	p.metrics.PollCycles.WithLabelValues(outcome).Inc()
	p.logger.Error("poll cycle failed", "outcome", outcome, "error", err)
}

func (p *Poller) publishWritten(ctx context.Context, written []domain.StatusRecord) error {
	if p.sink == nil || len(written) == 0 {
		return nil
	}
	if err := p.sink.LoadBatch(ctx, written); err != nil {
		p.metrics.RecordSinkErrors.Inc()
		p.logger.Error("record sink publish failed", "error", err, "records", len(written))
		return err
	}
	return nil
}

// Run executes a cycle immediately and then on every tick of the poll
// interval until ctx is cancelled. A failed cycle is retried early with
// exponential backoff.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	backoff := min(failureBackoff, p.interval)
	for {
		var retryC <-chan time.Time
		var retryTimer clockwork.Timer
		if _, err := p.RunCycle(ctx); err != nil && ctx.Err() == nil {
			retryTimer = p.clock.NewTimer(backoff)
			retryC = retryTimer.Chan()
			p.logger.Info("retrying poll cycle early", "after", backoff)
			backoff = sharedretry.NextBackoff(backoff, p.interval)
		} else {
			backoff = min(failureBackoff, p.interval)
		}

		select {
		case <-ctx.Done():
			if retryTimer != nil {
				retryTimer.Stop()
			}
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		case <-retryC:
		}
		if retryTimer != nil {
			retryTimer.Stop()
		}
	}
}
