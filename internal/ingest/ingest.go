// Package ingest writes normalized status records into the durable store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/observability"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
	"github.com/sourcegraph/conc/pool"
)

// Writer puts a single record under its key, overwriting any previous value.
type Writer interface {
	Put(ctx context.Context, key string, rec domain.StatusRecord) error
}

// Result summarizes a batch upsert.
type Result struct {
	Total      int      `json:"total"`
	Written    int      `json:"written"`
	Failed     int      `json:"failed"`
	FailedKeys []string `json:"failedKeys,omitempty"`

	// Stored lists the records that were written, in input order.
	Stored []domain.StatusRecord `json:"-"`

	// Err joins every per-record failure. Nil when Failed is zero.
	Err error `json:"-"`
}

// Ingester upserts records with a bounded fan-out. It holds no state between
// calls other than its collaborators.
type Ingester struct {
	store       Writer
	mode        domain.KeyMode
	policy      retry.Policy
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// New creates an Ingester. concurrency below 1 is treated as 1.
func New(store Writer, mode domain.KeyMode, policy retry.Policy, concurrency int, logger *slog.Logger, metrics *observability.Metrics) *Ingester {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ingester{
		store:       store,
		mode:        mode,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Upsert writes one record, retrying a transient failure once.
func (i *Ingester) Upsert(ctx context.Context, rec domain.StatusRecord) error {
	key := rec.Key(i.mode)
	err := retry.Do(ctx, i.policy, func(ctx context.Context) error {
		return i.store.Put(ctx, key, rec)
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %w", domain.ErrStoreWrite, key, err)
	}
	return nil
}

// UpsertAll writes every record. A failed record is logged and counted but
// never stops the rest of the batch.
func (i *Ingester) UpsertAll(ctx context.Context, records []domain.StatusRecord) Result {
	var (
		mu     sync.Mutex
		failed []string
		ok     = make([]bool, len(records))
	)

	p := pool.New().WithErrors().WithMaxGoroutines(i.concurrency)
	for idx, rec := range records {
		p.Go(func() error {
			if err := i.Upsert(ctx, rec); err != nil {
				mu.Lock()
				failed = append(failed, rec.Key(i.mode))
				mu.Unlock()
				i.metrics.RecordWriteErrors.Inc()
				i.logger.Error("record upsert failed",
					"key", rec.Key(i.mode),
					"epochtime", rec.EpochTime,
					"error", err,
				)
				return err
			}
			ok[idx] = true
			i.metrics.RecordsWritten.Inc()
			return nil
		})
	}
	err := p.Wait()
	sort.Strings(failed)

	stored := make([]domain.StatusRecord, 0, len(records)-len(failed))
	for idx, rec := range records {
		if ok[idx] {
			stored = append(stored, rec)
		}
	}

	return Result{
		Total:      len(records),
		Written:    len(stored),
		Failed:     len(failed),
		FailedKeys: failed,
		Stored:     stored,
		Err:        err,
	}
}
