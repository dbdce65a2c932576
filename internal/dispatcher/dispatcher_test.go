package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/queue/memory"
	"github.com/JakeFAU/newopenings-crawler/internal/worker"
)

// TestDispatcherRunStartsWorkers ensures workers begin processing and stop on cancel.
func TestDispatcherRunStartsWorkers(t *testing.T) {
	t.Parallel()

	queue := &blockingQueue{started: make(chan struct{}, 1)}
	w := worker.New(queue, func(context.Context, crawler.RunRequest) error { return nil }, worker.Config{}, zap.NewNop())
	dispatch := New(queue, []*worker.Worker{w}, fixedIDs{id: "run"}, fixedClock{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()

	select {
	case <-queue.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not begin dequeuing")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

// TestDispatcherEnqueueForwardsErrors verifies queue errors are wrapped for callers.
func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	queue := &errorQueue{err: errors.New("boom")}
	dispatch := New(queue, nil, fixedIDs{id: "run"}, fixedClock{})

	err := dispatch.Enqueue(context.Background(), crawler.RunRequest{ID: "run"})
	require.EqualError(t, err, "queue enqueue: boom")
}

func TestSubmitAssignsIDAndTime(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	dispatch := New(q, nil, fixedIDs{id: "run-1"}, fixedClock{})

	req, err := dispatch.Submit(context.Background(), crawler.TriggerManual)
	require.NoError(t, err)
	require.Equal(t, crawler.RunRequest{ID: "run-1", Trigger: crawler.TriggerManual, Submitted: fixedClock{}.Now()}, req)
	require.Equal(t, 1, q.Len())

	_, err = dispatch.Submit(context.Background(), crawler.TriggerSchedule)
	require.ErrorIs(t, err, memory.ErrFull)
}

func TestSubmitIDFailure(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	dispatch := New(q, nil, fixedIDs{err: errors.New("entropy")}, fixedClock{})
	_, err := dispatch.Submit(context.Background(), crawler.TriggerManual)
	require.EqualError(t, err, "generate run id: entropy")
	require.Zero(t, q.Len())
}

type fixedIDs struct {
	id  string
	err error
}

func (f fixedIDs) NewID() (string, error) { return f.id, f.err }

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, 1, 6, 2, 0, 0, 0, time.UTC) }

type blockingQueue struct {
	started chan struct{}
}

func (q *blockingQueue) Enqueue(_ context.Context, _ crawler.RunRequest) error {
	return nil
}

func (q *blockingQueue) Dequeue(ctx context.Context) (crawler.RunRequest, error) {
	select {
	case q.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return crawler.RunRequest{}, fmt.Errorf("blocking dequeue canceled: %w", ctx.Err())
}

type errorQueue struct {
	err error
}

func (q *errorQueue) Enqueue(context.Context, crawler.RunRequest) error {
	return q.err
}

func (q *errorQueue) Dequeue(context.Context) (crawler.RunRequest, error) {
	return crawler.RunRequest{}, nil
}
