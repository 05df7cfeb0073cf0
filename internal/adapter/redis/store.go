// Package redis persists status records as Redis hashes, one hash per record
// key under a table prefix.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const scanBatch = 256

// Store implements the record store on a go-redis client.
type Store struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

// NewStore wraps client, namespacing keys under table.
func NewStore(client *goredis.Client, table string, logger *slog.Logger) *Store {
	return &Store{client: client, prefix: table + ":", logger: logger}
}

// Put writes rec as a hash, replacing every field.
func (s *Store) Put(ctx context.Context, key string, rec domain.StatusRecord) error {
	err := s.client.HSet(ctx, s.prefix+key, map[string]any{
		"epochtime": rec.EpochTime,
		"isoString": rec.ISOString,
		"statusId":  rec.StatusID,
		"value":     rec.Value.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Scan walks every key of the table with SCAN and applies f client-side.
func (s *Store) Scan(ctx context.Context, f domain.Filter) ([]domain.StatusRecord, error) {
	var (
		out  []domain.StatusRecord
		keys = make([]string, 0, scanBatch)
	)

	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		recs, err := s.load(ctx, keys)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if f.Match(rec) {
				out = append(out, rec)
			}
		}
		keys = keys[:0]
		return nil
	}

	iter := s.client.Scan(ctx, 0, escapeGlob(s.prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) load(ctx context.Context, keys []string) ([]domain.StatusRecord, error) {
	cmds := make([]*goredis.MapStringStringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.HGetAll(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	out := make([]domain.StatusRecord, 0, len(cmds))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Deleted between SCAN and HGETALL.
			continue
		}
		rec, err := decodeRecord(fields)
		if err != nil {
			s.logger.Warn("skipping undecodable record", "key", keys[i], "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// decodeRecord maps a hash onto a record. Absent fields keep their zero
// value; a present field that does not parse is an error.
func decodeRecord(fields map[string]string) (domain.StatusRecord, error) {
	rec := domain.StatusRecord{
		ISOString: fields["isoString"],
		StatusID:  fields["statusId"],
		Value:     decimal.Zero,
	}
	if v := fields["epochtime"]; v != "" {
		epoch, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.StatusRecord{}, fmt.Errorf("epochtime: %w", err)
		}
		rec.EpochTime = epoch
	}
	if v := fields["value"]; v != "" {
		value, err := decimal.NewFromString(v)
		if err != nil {
			return domain.StatusRecord{}, fmt.Errorf("value: %w", err)
		}
		rec.Value = value
	}
	return rec, nil
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
