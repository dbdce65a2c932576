package headless

import (
	"context"
	"errors"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

// ErrDisabled is returned by Noop when no browser is configured.
var ErrDisabled = errors.New("headless fetcher not configured")

// Noop stands in for the browser when headless.enabled is false.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always returns ErrDisabled.
func (Noop) Fetch(_ context.Context, _ crawler.FetchRequest) (crawler.FetchResponse, error) {
	return crawler.FetchResponse{}, ErrDisabled
}

// Close is a no-op.
func (Noop) Close() {}
