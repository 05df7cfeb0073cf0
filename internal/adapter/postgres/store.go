// Package postgres persists status records in a single PostgreSQL table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store implements the record store over a pgx connection pool. The table
// name is configurable and quoted on every statement.
type Store struct {
	pool  *pgxpool.Pool
	table string
	index string
}

// NewStore connects to connString and verifies the connection.
func NewStore(ctx context.Context, connString, table string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	cfg.MaxConns = 16
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
		index: pgx.Identifier{table + "_epochtime_idx"}.Sanitize(),
	}, nil
}

// Migrate creates the record table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				record_key TEXT PRIMARY KEY,
				epochtime  BIGINT NOT NULL,
				iso_string TEXT NOT NULL,
				status_id  TEXT NOT NULL,
				value      NUMERIC NOT NULL,
				written_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (epochtime)`, s.index, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate record table: %w", err)
		}
	}
	return nil
}

// Put upserts rec under key. The value travels as decimal text.
func (s *Store) Put(ctx context.Context, key string, rec domain.StatusRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (record_key, epochtime, iso_string, status_id, value, written_at)
		VALUES ($1, $2, $3, $4, $5::numeric, now())
		ON CONFLICT (record_key) DO UPDATE SET
			epochtime  = EXCLUDED.epochtime,
			iso_string = EXCLUDED.iso_string,
			status_id  = EXCLUDED.status_id,
			value      = EXCLUDED.value,
			written_at = EXCLUDED.written_at
	`, s.table)

	_, err := s.pool.Exec(ctx, query, key, rec.EpochTime, rec.ISOString, rec.StatusID, rec.Value.String())
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", key, err)
	}
	return nil
}

// Scan returns every record matching f.
func (s *Store) Scan(ctx context.Context, f domain.Filter) ([]domain.StatusRecord, error) {
	query := fmt.Sprintf(`
		SELECT epochtime, iso_string, status_id, value::text
		FROM %s
		WHERE epochtime >= $1 AND ($2 = '' OR status_id = $2)
	`, s.table)

	rows, err := s.pool.Query(ctx, query, f.Since, f.StatusID)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	var out []domain.StatusRecord
	for rows.Next() {
		var (
			rec   domain.StatusRecord
			value string
		)
		if err := rows.Scan(&rec.EpochTime, &rec.ISOString, &rec.StatusID, &value); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		if rec.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("decode record value %q: %w", value, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return out, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
