package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/metrics"
)

// Discovery is the coordinator's answer for one run. Candidates is never empty.
type Discovery struct {
	Source     string
	Candidates []Candidate
	Attempts   []Outcome
	UsedSeed   bool
}

// Coordinator consults sources in priority order and stops at the first one with results.
type Coordinator struct {
	sources []Source
	logger  *zap.Logger
}

// NewCoordinator builds a Coordinator over sources, highest priority first.
func NewCoordinator(logger *zap.Logger, sources ...Source) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{sources: sources, logger: logger.Named("discovery")}
}

// Discover runs the fallback chain. Lower-priority sources are never invoked once a
// higher one returns candidates.
func (c *Coordinator) Discover(ctx context.Context) Discovery {
	attempts := make([]Outcome, 0, len(c.sources))
	for _, src := range c.sources {
		if ctx.Err() != nil {
			break
		}
		outcome := c.attempt(ctx, src)
		attempts = append(attempts, outcome)
		if outcome.OK() {
			return Discovery{Source: outcome.Source, Candidates: outcome.Candidates, Attempts: attempts}
		}
	}

	c.logger.Warn("all sources empty; serving seed list", zap.Int("attempts", len(attempts)))
	metrics.ObserveSeedFallback()
	return Discovery{Source: SeedSource, Candidates: Seed(), Attempts: attempts, UsedSeed: true}
}

func (c *Coordinator) attempt(ctx context.Context, src Source) (outcome Outcome) {
	name := src.Name()
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Source: name, Err: fmt.Errorf("source %s panicked: %v", name, r)}
			c.record(outcome)
		}
	}()

	outcome = src.Discover(ctx)
	if outcome.Source == "" {
		outcome.Source = name
	}
	c.record(outcome)
	return outcome
}

func (c *Coordinator) record(o Outcome) {
	fields := []zap.Field{zap.String("source", o.Source), zap.Int("candidates", len(o.Candidates))}
	switch {
	case o.OK():
		if o.Err != nil {
			fields = append(fields, zap.NamedError("partial_error", o.Err))
		}
		c.logger.Info("source returned candidates", fields...)
		metrics.ObserveSourceAttempt(o.Source, metrics.OutcomeHit)
	case o.Err != nil:
		c.logger.Warn("source failed", append(fields, zap.Error(o.Err))...)
		metrics.ObserveSourceAttempt(o.Source, metrics.OutcomeError)
	default:
		c.logger.Info("source returned nothing", fields...)
		metrics.ObserveSourceAttempt(o.Source, metrics.OutcomeEmpty)
	}
}
