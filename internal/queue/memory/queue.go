// Package memory provides the in-process run request queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

var (
	// ErrFull is returned when the queue has no free slot.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned once Close has been called.
	ErrClosed = crawler.ErrQueueClosed
)

// Queue is a bounded in-memory queue of run requests.
type Queue struct {
	ch     chan crawler.RunRequest
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a queue with the provided capacity (minimum 1).
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan crawler.RunRequest, capacity)}
}

// Enqueue adds a request without blocking. A full queue returns ErrFull: a run already
// waiting will pick up the same sources.
func (q *Queue) Enqueue(ctx context.Context, req crawler.RunRequest) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue canceled: %w", err)
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- req:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue pops the next request, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (crawler.RunRequest, error) {
	select {
	case <-ctx.Done():
		return crawler.RunRequest{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case req, ok := <-q.ch:
		if !ok {
			return crawler.RunRequest{}, ErrClosed
		}
		return req, nil
	}
}

// Close stops accepting requests. Requests already queued can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
