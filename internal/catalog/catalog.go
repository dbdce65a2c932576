// Package catalog serves the current restaurant list with its window and freshness.
package catalog

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/reconcile"
	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

// Listing statuses.
const (
	StatusOK          = "ok"
	StatusEmpty       = "empty"
	StatusUnavailable = "unavailable"
)

// UnavailableRange replaces the window label when the store cannot be read.
const UnavailableRange = "Database Error"

// Entry is one restaurant as shown to clients.
type Entry struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	URL       string    `json:"url"`
	DateAdded time.Time `json:"date_added"`
}

// Listing is the response for the current restaurant list.
type Listing struct {
	Restaurants []Entry    `json:"restaurants"`
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"last_updated"`
	DateRange   string     `json:"date_range"`
	Status      string     `json:"status"`
}

// Catalog reads the store on every call; nothing is cached between requests.
type Catalog struct {
	reader   store.Reader
	clock    crawler.Clock
	location *time.Location
	logger   *zap.Logger
}

// New builds a Catalog whose window labels are computed in loc.
func New(reader store.Reader, clock crawler.Clock, loc *time.Location, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Catalog{reader: reader, clock: clock, location: loc, logger: logger.Named("catalog")}
}

// ListCurrent returns the live restaurants ordered by name. It never fails: when the store
// cannot be read it returns an empty listing marked unavailable.
func (c *Catalog) ListCurrent(ctx context.Context) Listing {
	rows, err := c.reader.ListRestaurants(ctx)
	if err != nil {
		c.logger.Error("list restaurants failed", zap.Error(err))
		return Listing{Restaurants: []Entry{}, DateRange: UnavailableRange, Status: StatusUnavailable}
	}

	listing := Listing{
		Restaurants: make([]Entry, 0, len(rows)),
		Count:       len(rows),
		DateRange:   reconcile.WindowAt(c.clock.Now(), c.location).Label(),
		Status:      StatusOK,
	}
	for _, r := range rows {
		listing.Restaurants = append(listing.Restaurants, Entry{
			Name:      r.Name,
			Address:   r.Address,
			URL:       r.SourceURL,
			DateAdded: r.DateAdded.In(c.location),
		})
	}
	if len(rows) == 0 {
		listing.Status = StatusEmpty
	}

	latest, err := c.reader.LatestRunLog(ctx)
	switch {
	case err == nil:
		ts := latest.Timestamp.In(c.location)
		listing.LastUpdated = &ts
	case errors.Is(err, store.ErrNotFound):
	default:
		c.logger.Warn("latest run log unavailable", zap.Error(err))
	}
	return listing
}

// RecentRuns returns up to limit run logs, newest first.
func (c *Catalog) RecentRuns(ctx context.Context, limit int) ([]store.RunLog, error) {
	return c.reader.ListRunLogs(ctx, limit)
}

// LatestRun returns the newest run log or store.ErrNotFound.
func (c *Catalog) LatestRun(ctx context.Context) (store.RunLog, error) {
	return c.reader.LatestRunLog(ctx)
}

// Ping checks that the store answers a cheap query.
func (c *Catalog) Ping(ctx context.Context) error {
	_, err := c.reader.CountRestaurants(ctx)
	return err
}
