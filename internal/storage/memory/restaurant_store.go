package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

// RestaurantStore implements store.Repository in memory. Transactions work on a copy of
// the rows that replaces the live set only on commit.
type RestaurantStore struct {
	mu          sync.RWMutex
	restaurants []store.Restaurant
	runLogs     []store.RunLog
	nextID      int64
	nextLogID   int64
}

var _ store.Repository = (*RestaurantStore)(nil)

// NewRestaurantStore constructs an empty RestaurantStore.
func NewRestaurantStore() *RestaurantStore {
	return &RestaurantStore{nextID: 1, nextLogID: 1}
}

// Migrate is a no-op; the schema is the struct.
func (s *RestaurantStore) Migrate(context.Context) error { return nil }

// Close is a no-op.
func (s *RestaurantStore) Close() error { return nil }

// ListRestaurants returns the live rows ordered by name, then ID.
func (s *RestaurantStore) ListRestaurants(context.Context) ([]store.Restaurant, error) {
	s.mu.RLock()
	out := append([]store.Restaurant(nil), s.restaurants...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountRestaurants returns the number of live rows.
func (s *RestaurantStore) CountRestaurants(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.restaurants), nil
}

// LatestRunLog returns the most recently appended run log.
func (s *RestaurantStore) LatestRunLog(context.Context) (store.RunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runLogs) == 0 {
		return store.RunLog{}, store.ErrNotFound
	}
	return s.runLogs[len(s.runLogs)-1], nil
}

// ListRunLogs returns up to limit run logs, newest first. A non-positive limit returns all.
func (s *RestaurantStore) ListRunLogs(_ context.Context, limit int) ([]store.RunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.runLogs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]store.RunLog, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.runLogs[i])
	}
	return out, nil
}

// AppendRunLog stores a run log and assigns its ID.
func (s *RestaurantStore) AppendRunLog(_ context.Context, log store.RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = s.nextLogID
	s.nextLogID++
	s.runLogs = append(s.runLogs, log)
	return nil
}

// WithTx runs fn against a private copy of the rows. Concurrent transactions serialize.
func (s *RestaurantStore) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		rows:   append([]store.Restaurant(nil), s.restaurants...),
		nextID: s.nextID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.restaurants = tx.rows
	s.nextID = tx.nextID
	return nil
}

type memTx struct {
	rows   []store.Restaurant
	nextID int64
}

func (t *memTx) DeleteAddedBefore(_ context.Context, cutoff time.Time) (int, error) {
	kept := t.rows[:0:0]
	for _, r := range t.rows {
		if !r.DateAdded.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(t.rows) - len(kept)
	t.rows = kept
	return removed, nil
}

func (t *memTx) Exists(_ context.Context, name, address string) (bool, error) {
	for _, r := range t.rows {
		if r.Name == name && r.Address == address {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertRestaurant(_ context.Context, r store.Restaurant) error {
	for _, existing := range t.rows {
		if existing.Name == r.Name && existing.Address == r.Address {
			return store.ErrDuplicate
		}
	}
	r.ID = t.nextID
	t.nextID++
	t.rows = append(t.rows, r)
	return nil
}
