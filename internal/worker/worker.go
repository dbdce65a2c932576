// Package worker drains run requests from the queue one at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

// Handler executes one run request.
type Handler func(ctx context.Context, req crawler.RunRequest) error

// Config controls Worker behavior.
type Config struct {
	// RunTimeout bounds a single run. Zero means no limit beyond the worker's context.
	RunTimeout time.Duration
}

// Worker consumes run requests and hands them to a Handler.
type Worker struct {
	queue   crawler.Queue
	handler Handler
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker.
func New(queue crawler.Queue, handler Handler, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: queue, handler: handler, cfg: cfg, logger: logger.Named("worker")}
}

// Run blocks, consuming requests until the context finishes or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isClosed(err) {
				w.logger.Info("queue closed; worker exiting")
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued run", zap.String("run_id", req.ID), zap.String("trigger", string(req.Trigger)))
		w.process(ctx, req)
	}
}

func (w *Worker) process(ctx context.Context, req crawler.RunRequest) {
	if w.handler == nil {
		w.logger.Error("no run handler configured", zap.String("run_id", req.ID))
		return
	}
	runCtx := ctx
	if w.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.RunTimeout)
		defer cancel()
	}

	err := w.safeHandle(runCtx, req)
	if err != nil {
		w.logger.Error("run failed", zap.String("run_id", req.ID), zap.Error(err))
		return
	}
	w.logger.Debug("run finished", zap.String("run_id", req.ID))
}

func (w *Worker) safeHandle(ctx context.Context, req crawler.RunRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run %s panicked: %v", req.ID, r)
		}
	}()
	return w.handler(ctx, req)
}

func isClosed(err error) bool {
	return errors.Is(err, crawler.ErrQueueClosed)
}
