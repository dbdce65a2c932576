// Package sqlite implements store.Repository on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - restaurants and run_logs
const currentSchemaVersion = 1

// timeLayout is fixed width so TEXT comparison orders like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the SQLite-backed repository.
type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

// Open creates or opens the database at path and applies the connection pragmas. Call
// Migrate before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate applies the schema and records its version. Safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// ListRestaurants returns the live rows ordered by name.
func (s *Store) ListRestaurants(ctx context.Context) ([]store.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, address, source_url, date_added
		FROM restaurants
		ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.Restaurant
	for rows.Next() {
		var (
			r     store.Restaurant
			added string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.SourceURL, &added); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		if r.DateAdded, err = parseTime(added); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w", err)
	}
	return out, nil
}

// CountRestaurants returns the number of live rows.
func (s *Store) CountRestaurants(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM restaurants").Scan(&n); err != nil {
		return 0, fmt.Errorf("count restaurants: %w", err)
	}
	return n, nil
}

const runLogColumns = "id, run_id, timestamp, records_added, pruned, source, status, message"

// LatestRunLog returns the newest run log or store.ErrNotFound.
func (s *Store) LatestRunLog(ctx context.Context) (store.RunLog, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runLogColumns+" FROM run_logs ORDER BY id DESC LIMIT 1")
	log, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.RunLog{}, store.ErrNotFound
	}
	if err != nil {
		return store.RunLog{}, fmt.Errorf("latest run log: %w", err)
	}
	return log, nil
}

// ListRunLogs returns up to limit run logs, newest first. A non-positive limit returns all.
func (s *Store) ListRunLogs(ctx context.Context, limit int) ([]store.RunLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runLogColumns+" FROM run_logs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.RunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		out = append(out, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run logs: %w", err)
	}
	return out, nil
}

// AppendRunLog inserts a run log row.
func (s *Store) AppendRunLog(ctx context.Context, log store.RunLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_logs (run_id, timestamp, records_added, pruned, source, status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.RunID, formatTime(log.Timestamp), log.RecordsAdded, log.Pruned, log.Source, string(log.Status), log.Message)
	if err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// WithTx runs fn inside one SQLite transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqlTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) DeleteAddedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM restaurants WHERE date_added < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune restaurants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune restaurants: %w", err)
	}
	return int(n), nil
}

func (t *sqlTx) Exists(ctx context.Context, name, address string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		"SELECT 1 FROM restaurants WHERE name = ? AND address = ? LIMIT 1", name, address).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check restaurant: %w", err)
	}
	return true, nil
}

func (t *sqlTx) InsertRestaurant(ctx context.Context, r store.Restaurant) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO restaurants (name, address, source_url, date_added) VALUES (?, ?, ?, ?)",
		r.Name, r.Address, r.SourceURL, formatTime(r.DateAdded))
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunLog(row scanner) (store.RunLog, error) {
	var (
		log    store.RunLog
		ts     string
		status string
	)
	if err := row.Scan(&log.ID, &log.RunID, &ts, &log.RecordsAdded, &log.Pruned, &log.Source, &status, &log.Message); err != nil {
		return store.RunLog{}, err
	}
	t, err := parseTime(ts)
	if err != nil {
		return store.RunLog{}, err
	}
	log.Timestamp = t
	log.Status = store.RunStatus(status)
	return log, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
