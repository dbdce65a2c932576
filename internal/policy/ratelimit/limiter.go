// Package ratelimit paces outbound requests per host with a jittered minimum gap.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"golang.org/x/time/rate"
)

// Limiter manages per-host pacing.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	minGap   time.Duration
	jitter   time.Duration
	observe  func(host string, waited time.Duration)
	randFn   func(n int64) int64
}

// Config holds limiter configuration.
type Config struct {
	// MinPause is the smallest gap between two requests to the same host.
	MinPause time.Duration
	// MaxPause caps the jittered gap. Values below MinPause disable jitter.
	MaxPause time.Duration
	// Observe, when set, receives every non-trivial wait.
	Observe func(host string, waited time.Duration)
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	jitter := cfg.MaxPause - cfg.MinPause
	if jitter < 0 {
		jitter = 0
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		minGap:   cfg.MinPause,
		jitter:   jitter,
		observe:  cfg.Observe,
		randFn:   rand.Int64N,
	}
}

// Wait blocks until a request to rawURL's host may proceed, respecting the context.
// The first request to a host passes immediately.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := crawler.Host(rawURL)
	if host == "" {
		host = "unknown"
	}

	l.mu.Lock()
	limiter, exists := l.limiters[host]
	if !exists {
		limit := rate.Inf
		if l.minGap > 0 {
			limit = rate.Every(l.minGap)
		}
		limiter = rate.NewLimiter(limit, 1)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if exists && l.jitter > 0 {
		if err := pause(ctx, time.Duration(l.randFn(int64(l.jitter)+1))); err != nil {
			return fmt.Errorf("rate limit jitter: %w", err)
		}
	}
	if waited := time.Since(start); waited > time.Millisecond && l.observe != nil {
		l.observe(host, waited)
	}
	return nil
}

func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
