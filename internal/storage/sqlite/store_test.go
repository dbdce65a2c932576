package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restaurants.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s, path
}

func TestMigrateIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	require.Equal(t, currentSchemaVersion, version)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	require.Equal(t, "wal", mode)
}

func TestRestaurantRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := openTestStore(t)
	hk := time.FixedZone("HKT", 8*3600)
	added := time.Date(2025, 1, 6, 10, 30, 0, 123, hk)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertRestaurant(ctx, store.Restaurant{
			Name: "NOJO", Address: "1-13 Elgin St, Central", SourceURL: "https://example.com/nojo", DateAdded: added,
		}); err != nil {
			return err
		}
		return tx.InsertRestaurant(ctx, store.Restaurant{Name: "Hotaru", Address: "K11 Art Mall", DateAdded: added})
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	rows, err := reopened.ListRestaurants(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Hotaru", rows[0].Name)
	require.Equal(t, "NOJO", rows[1].Name)
	require.Equal(t, "https://example.com/nojo", rows[1].SourceURL)
	require.True(t, rows[1].DateAdded.Equal(added))
	require.Equal(t, time.UTC, rows[1].DateAdded.Location())

	n, err := reopened.CountRestaurants(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestUniqueNameAddress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openTestStore(t)
	now := time.Now()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertRestaurant(ctx, store.Restaurant{Name: "A", Address: "1", DateAdded: now}))
		require.NoError(t, tx.InsertRestaurant(ctx, store.Restaurant{Name: "A", Address: "2", DateAdded: now}))
		return tx.InsertRestaurant(ctx, store.Restaurant{Name: "A", Address: "1", DateAdded: now})
	})
	require.ErrorIs(t, err, store.ErrDuplicate)

	n, err := s.CountRestaurants(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "failed transaction must roll back every insert")
}

func TestDeleteAddedBeforeBoundary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openTestStore(t)
	start := time.Date(2024, 12, 30, 16, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		for name, at := range map[string]time.Time{
			"day-before": start.Add(-24 * time.Hour),
			"just-before": start.Add(-time.Microsecond),
			"at-start":    start,
			"later":       start.Add(48 * time.Hour),
		} {
			if err := tx.InsertRestaurant(ctx, store.Restaurant{Name: name, Address: "x", DateAdded: at}); err != nil {
				return err
			}
		}
		return nil
	}))

	var pruned int
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pruned, err = tx.DeleteAddedBefore(ctx, start)
		return err
	}))
	require.Equal(t, 2, pruned)

	rows, err := s.ListRestaurants(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"at-start", "later"}, []string{rows[0].Name, rows[1].Name})

	var exists bool
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		var err error
		exists, err = tx.Exists(ctx, "at-start", "x")
		return err
	}))
	require.True(t, exists)
}

func TestRollbackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openTestStore(t)
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.InsertRestaurant(ctx, store.Restaurant{Name: "A", Address: "1", DateAdded: time.Now()}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	n, err := s.CountRestaurants(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRunLogs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openTestStore(t)

	_, err := s.LatestRunLog(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	base := time.Date(2025, 1, 6, 2, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendRunLog(ctx, store.RunLog{
		RunID: "run-1", Timestamp: base, RecordsAdded: 3, Pruned: 1, Source: "places",
		Status: store.RunSuccess, Message: "Successfully updated database with 3 new restaurants",
	}))
	require.NoError(t, s.AppendRunLog(ctx, store.RunLog{
		RunID: "run-2", Timestamp: base.Add(time.Hour), Source: "listings",
		Status: store.RunError, Message: "insert restaurant: disk full",
	}))

	latest, err := s.LatestRunLog(ctx)
	require.NoError(t, err)
	require.Equal(t, "run-2", latest.RunID)
	require.Equal(t, store.RunError, latest.Status)
	require.True(t, latest.Timestamp.Equal(base.Add(time.Hour)))

	logs, err := s.ListRunLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "run-1", logs[1].RunID)
	require.Equal(t, 3, logs[1].RecordsAdded)
	require.Equal(t, 1, logs[1].Pruned)
	require.Equal(t, "places", logs[1].Source)

	limited, err := s.ListRunLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
