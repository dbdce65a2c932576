// Package dispatcher turns triggers into queued run requests and runs the worker that drains them.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/worker"
)

// Dispatcher owns the run queue and its workers.
type Dispatcher struct {
	queue   crawler.Queue
	workers []*worker.Worker
	ids     crawler.IDGenerator
	clock   crawler.Clock
}

// New creates a Dispatcher. Production wiring passes exactly one worker so runs never overlap.
func New(queue crawler.Queue, workers []*worker.Worker, ids crawler.IDGenerator, clock crawler.Clock) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		ids:     ids,
		clock:   clock,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit assigns an ID to a new run request for trigger and queues it.
func (d *Dispatcher) Submit(ctx context.Context, trigger crawler.Trigger) (crawler.RunRequest, error) {
	id, err := d.ids.NewID()
	if err != nil {
		return crawler.RunRequest{}, fmt.Errorf("generate run id: %w", err)
	}
	req := crawler.RunRequest{ID: id, Trigger: trigger, Submitted: d.clock.Now().UTC()}
	if err := d.Enqueue(ctx, req); err != nil {
		return crawler.RunRequest{}, err
	}
	return req, nil
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, req crawler.RunRequest) error {
	if err := d.queue.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
