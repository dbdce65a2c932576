// Package pipeline runs one discovery-and-reconciliation pass and announces the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
	"github.com/JakeFAU/newopenings-crawler/internal/metrics"
	"github.com/JakeFAU/newopenings-crawler/internal/reconcile"
	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

// Discoverer produces the candidates for a run.
type Discoverer interface {
	Discover(ctx context.Context) discovery.Discovery
}

// Reconciler applies candidates to the store.
type Reconciler interface {
	Reconcile(ctx context.Context, runID, source string, candidates []discovery.Candidate) (reconcile.RunStats, error)
}

// RunEvent is published once per run.
type RunEvent struct {
	RunID        string    `json:"run_id"`
	Trigger      string    `json:"trigger"`
	Source       string    `json:"source"`
	UsedSeed     bool      `json:"used_seed"`
	Candidates   int       `json:"candidates"`
	RecordsAdded int       `json:"records_added"`
	Pruned       int       `json:"pruned"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Config holds pipeline options.
type Config struct {
	// Topic receives RunEvents. Empty uses the publisher's default topic.
	Topic string
}

// Pipeline wires discovery, reconciliation and notification. Runs never overlap.
type Pipeline struct {
	mu         sync.Mutex
	discoverer Discoverer
	reconciler Reconciler
	publisher  crawler.Publisher
	clock      crawler.Clock
	cfg        Config
	logger     *zap.Logger
}

// New builds a Pipeline. publisher may be nil.
func New(
	discoverer Discoverer,
	reconciler Reconciler,
	publisher crawler.Publisher,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		discoverer: discoverer,
		reconciler: reconciler,
		publisher:  publisher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger.Named("pipeline"),
	}
}

// Handle runs req and reports only the error. It satisfies worker.Handler.
func (p *Pipeline) Handle(ctx context.Context, req crawler.RunRequest) error {
	_, err := p.Run(ctx, req)
	return err
}

// Run executes one full pass: discover, reconcile, publish.
func (p *Pipeline) Run(ctx context.Context, req crawler.RunRequest) (RunEvent, error) {
	if req.ID == "" {
		return RunEvent{}, errors.New("run id is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()

	logger := p.logger.With(zap.String("run_id", req.ID), zap.String("trigger", string(req.Trigger)))
	event := RunEvent{RunID: req.ID, Trigger: string(req.Trigger), StartedAt: p.clock.Now().UTC()}
	logger.Info("run started")

	found := p.discoverer.Discover(ctx)
	event.Source = found.Source
	event.UsedSeed = found.UsedSeed
	event.Candidates = len(found.Candidates)

	stats, err := p.reconciler.Reconcile(ctx, req.ID, found.Source, found.Candidates)
	event.FinishedAt = p.clock.Now().UTC()
	event.WindowStart, event.WindowEnd = stats.Window.Start, stats.Window.End
	if err != nil {
		event.Status = string(store.RunError)
		event.Message = err.Error()
		err = fmt.Errorf("reconcile run %s: %w", req.ID, err)
	} else {
		event.Status = string(store.RunSuccess)
		event.Message = stats.Message()
		event.RecordsAdded = stats.Added
		event.Pruned = stats.Pruned
	}
	metrics.ObserveRun(event.Trigger, event.Status, int64(event.RecordsAdded), int64(event.Pruned), event.FinishedAt)

	p.publish(ctx, event, logger)
	logger.Info("run finished",
		zap.String("status", event.Status),
		zap.String("source", event.Source),
		zap.Int("records_added", event.RecordsAdded),
		zap.Duration("duration", event.FinishedAt.Sub(event.StartedAt)))
	return event, err
}

func (p *Pipeline) publish(ctx context.Context, event RunEvent, logger *zap.Logger) {
	if p.publisher == nil {
		return
	}
	msgID, err := p.publisher.Publish(ctx, p.cfg.Topic, event)
	if err != nil {
		logger.Warn("publish run event failed", zap.Error(err))
		return
	}
	logger.Debug("run event published", zap.String("message_id", msgID))
}
