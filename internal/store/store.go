package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert would create a second live (name, address) row.
var ErrDuplicate = errors.New("restaurant already exists")

// RunStatus mirrors the run_logs status column.
type RunStatus string

// Run statuses persisted in run_logs.status.
const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Restaurant is one live row. Rows are inserted and pruned, never updated.
type Restaurant struct {
	// ID is assigned by the store on insert.
	ID        int64
	Name      string
	Address   string
	SourceURL string
	// DateAdded is when reconciliation first saw the (Name, Address) pair.
	DateAdded time.Time
}

// RunLog is the audit row written once per reconciliation.
type RunLog struct {
	ID           int64
	RunID        string
	Timestamp    time.Time
	RecordsAdded int
	Pruned       int
	// Source names the discovery family that supplied the candidates.
	Source  string
	Status  RunStatus
	Message string
}

// Reader serves the read side used by the catalog and the API.
type Reader interface {
	// ListRestaurants returns every live row ordered by name.
	ListRestaurants(ctx context.Context) ([]Restaurant, error)
	CountRestaurants(ctx context.Context) (int, error)
	// LatestRunLog returns the newest run log or ErrNotFound.
	LatestRunLog(ctx context.Context) (RunLog, error)
	// ListRunLogs returns up to limit run logs, newest first.
	ListRunLogs(ctx context.Context, limit int) ([]RunLog, error)
}

// Tx is the write side available inside WithTx.
type Tx interface {
	// DeleteAddedBefore removes rows with DateAdded strictly before cutoff.
	DeleteAddedBefore(ctx context.Context, cutoff time.Time) (int, error)
	// Exists reports whether a row with exactly this name and address is live.
	Exists(ctx context.Context, name, address string) (bool, error)
	InsertRestaurant(ctx context.Context, r Restaurant) error
}

// Repository is the full store handed to the reconciler and the catalog.
type Repository interface {
	Reader
	// WithTx runs fn in one transaction, committing when fn returns nil and rolling
	// back otherwise.
	WithTx(ctx context.Context, fn func(Tx) error) error
	// AppendRunLog writes a run log outside any reconciliation transaction.
	AppendRunLog(ctx context.Context, log RunLog) error
	// Migrate creates the schema when it is missing.
	Migrate(ctx context.Context) error
	Close() error
}
