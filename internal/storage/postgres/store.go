// Package postgres provides the Postgres-backed restaurant repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

const uniqueViolation = "23505"

// migrations are applied in order; each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		address     TEXT NOT NULL,
		source_url  TEXT NOT NULL DEFAULT '',
		date_added  TIMESTAMPTZ NOT NULL,
		CONSTRAINT restaurants_name_address_key UNIQUE (name, address)
	)`,
	`CREATE INDEX IF NOT EXISTS restaurants_date_added_idx ON restaurants (date_added)`,
	`CREATE TABLE IF NOT EXISTS run_logs (
		id             BIGSERIAL PRIMARY KEY,
		run_id         TEXT NOT NULL DEFAULT '',
		logged_at      TIMESTAMPTZ NOT NULL,
		records_added  INTEGER NOT NULL DEFAULT 0,
		pruned         INTEGER NOT NULL DEFAULT 0,
		source         TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		message        TEXT NOT NULL DEFAULT ''
	)`,
}

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements store.Repository using Postgres.
type Store struct {
	pool pool
}

var _ store.Repository = (*Store)(nil)

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// Migrate creates the tables and indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}

// ListRestaurants returns the live rows ordered by name.
func (s *Store) ListRestaurants(ctx context.Context) ([]store.Restaurant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, address, source_url, date_added
		FROM restaurants
		ORDER BY name COLLATE "C", id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer rows.Close()

	var out []store.Restaurant
	for rows.Next() {
		var r store.Restaurant
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.SourceURL, &r.DateAdded); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		r.DateAdded = r.DateAdded.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate restaurants: %w", err)
	}
	return out, nil
}

// CountRestaurants returns the number of live rows.
func (s *Store) CountRestaurants(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM restaurants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count restaurants: %w", err)
	}
	return int(n), nil
}

const runLogColumns = `id, run_id, logged_at, records_added, pruned, source, status, message`

// LatestRunLog returns the newest run log or store.ErrNotFound.
func (s *Store) LatestRunLog(ctx context.Context) (store.RunLog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runLogColumns+` FROM run_logs ORDER BY id DESC LIMIT 1`)
	log, err := scanRunLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.RunLog{}, store.ErrNotFound
		}
		return store.RunLog{}, fmt.Errorf("failed to get latest run log: %w", err)
	}
	return log, nil
}

// ListRunLogs returns up to limit run logs, newest first. A non-positive limit returns all.
func (s *Store) ListRunLogs(ctx context.Context, limit int) ([]store.RunLog, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+runLogColumns+` FROM run_logs ORDER BY id DESC LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}
	defer rows.Close()

	var out []store.RunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}
		out = append(out, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run logs: %w", err)
	}
	return out, nil
}

// AppendRunLog inserts a run log row.
func (s *Store) AppendRunLog(ctx context.Context, log store.RunLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_logs (run_id, logged_at, records_added, pruned, source, status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.RunID, log.Timestamp.UTC(), log.RecordsAdded, log.Pruned, log.Source, string(log.Status), log.Message)
	if err != nil {
		return fmt.Errorf("failed to append run log: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) DeleteAddedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM restaurants WHERE date_added < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune restaurants: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (t *pgTx) Exists(ctx context.Context, name, address string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM restaurants WHERE name = $1 AND address = $2)`, name, address).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check restaurant: %w", err)
	}
	return exists, nil
}

func (t *pgTx) InsertRestaurant(ctx context.Context, r store.Restaurant) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO restaurants (name, address, source_url, date_added)
		VALUES ($1, $2, $3, $4)`,
		r.Name, r.Address, r.SourceURL, r.DateAdded.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to insert restaurant: %w", err)
	}
	return nil
}

func scanRunLog(row pgx.Row) (store.RunLog, error) {
	var (
		log    store.RunLog
		status string
	)
	if err := row.Scan(&log.ID, &log.RunID, &log.Timestamp, &log.RecordsAdded, &log.Pruned,
		&log.Source, &status, &log.Message); err != nil {
		return store.RunLog{}, err
	}
	log.Timestamp = log.Timestamp.UTC()
	log.Status = store.RunStatus(status)
	return log, nil
}
