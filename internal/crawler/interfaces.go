package crawler

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrQueueClosed is returned by Queue implementations once no more requests will arrive.
var ErrQueueClosed = errors.New("queue closed")

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Pacer delays a request until its host may be contacted again.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes run completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for run requests. Dequeue returns an error
// wrapping ErrQueueClosed once the queue is closed and drained.
type Queue interface {
	Enqueue(ctx context.Context, req RunRequest) error
	Dequeue(ctx context.Context) (RunRequest, error)
}

// Hasher computes digests for archive keys.
type Hasher interface {
	HashURL(rawURL string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
