package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

// auditTimeout bounds a run log append made after the run's context has ended.
const auditTimeout = 10 * time.Second

// RunStats summarizes one reconciliation.
type RunStats struct {
	RunID   string
	Source  string
	Added   int
	Pruned  int
	Skipped int
	Window  Window
}

// Message is the text recorded on a successful run log.
func (s RunStats) Message() string {
	return fmt.Sprintf("Successfully updated database with %d new restaurants", s.Added)
}

// Reconciler applies candidates to the store. Calls are serialized.
type Reconciler struct {
	mu       sync.Mutex
	repo     store.Repository
	clock    crawler.Clock
	location *time.Location
	logger   *zap.Logger
}

// New builds a Reconciler that computes windows in loc.
func New(repo store.Repository, clock crawler.Clock, loc *time.Location, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{repo: repo, clock: clock, location: loc, logger: logger.Named("reconcile")}
}

// Window returns the retention window for the current clock reading.
func (r *Reconciler) Window() Window {
	return WindowAt(r.clock.Now(), r.location)
}

// Reconcile prunes rows older than the window, inserts unseen (name, address) pairs and
// appends exactly one run log, success or error. On error nothing from the transaction
// is kept.
func (r *Reconciler) Reconcile(ctx context.Context, runID, source string, candidates []discovery.Candidate) (RunStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	stats := RunStats{RunID: runID, Source: source, Window: WindowAt(now, r.location)}
	logger := r.logger.With(zap.String("run_id", runID), zap.String("source", source))

	var added, pruned, skipped int
	err := r.repo.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.DeleteAddedBefore(ctx, stats.Window.Start)
		if err != nil {
			return err
		}
		pruned = n

		for _, c := range candidates {
			if strings.TrimSpace(c.Name) == "" {
				skipped++
				continue
			}
			exists, err := tx.Exists(ctx, c.Name, c.Address)
			if err != nil {
				return err
			}
			if exists {
				skipped++
				continue
			}
			if err := tx.InsertRestaurant(ctx, store.Restaurant{
				Name:      c.Name,
				Address:   c.Address,
				SourceURL: c.SourceURL,
				DateAdded: now,
			}); err != nil {
				return err
			}
			added++
		}
		return nil
	})

	if err != nil {
		logger.Error("reconciliation failed; transaction rolled back", zap.Error(err))
		logErr := r.appendRunLog(ctx, store.RunLog{
			RunID:     runID,
			Timestamp: now,
			Source:    source,
			Status:    store.RunError,
			Message:   err.Error(),
		})
		if logErr != nil {
			logger.Error("append error run log failed", zap.Error(logErr))
			return stats, errors.Join(err, fmt.Errorf("append error run log: %w", logErr))
		}
		return stats, err
	}

	stats.Added, stats.Pruned, stats.Skipped = added, pruned, skipped
	if err := r.appendRunLog(ctx, store.RunLog{
		RunID:        runID,
		Timestamp:    now,
		RecordsAdded: added,
		Pruned:       pruned,
		Source:       source,
		Status:       store.RunSuccess,
		Message:      stats.Message(),
	}); err != nil {
		logger.Error("append run log failed", zap.Error(err))
		return stats, fmt.Errorf("append success run log: %w", err)
	}

	logger.Info("reconciliation complete",
		zap.Int("records_added", added),
		zap.Int("pruned", pruned),
		zap.Int("skipped", skipped))
	return stats, nil
}

// appendRunLog writes log even when ctx is already canceled or past its deadline, so a run
// interrupted by shutdown or a run timeout still leaves its row.
func (r *Reconciler) appendRunLog(ctx context.Context, log store.RunLog) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	return r.repo.AppendRunLog(ctx, log)
}
