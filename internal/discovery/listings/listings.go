// Package listings scrapes "new restaurant" listing pages with the card extraction engine and
// falls back to keyword search pages when the listings come up short.
package listings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/archive"
	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
	"github.com/JakeFAU/newopenings-crawler/internal/extract"
)

// Name identifies this source in outcomes, logs and run records.
const Name = "listings"

const defaultMinResults = 5

// Config lists the pages to read, in order.
type Config struct {
	URLs       []string
	SearchURLs []string
	// MinResults is the candidate count below which SearchURLs are also fetched.
	MinResults int
}

// Source reads listing pages in order. A failing page never stops the others.
type Source struct {
	cfg     Config
	fetcher crawler.Fetcher
	engine  *extract.Engine
	archive *archive.Archiver
	logger  *zap.Logger
}

// New builds a listings Source. archiver may be nil.
func New(cfg Config, fetcher crawler.Fetcher, engine *extract.Engine, archiver *archive.Archiver, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinResults <= 0 {
		cfg.MinResults = defaultMinResults
	}
	if engine == nil {
		engine = extract.New(extract.Options{})
	}
	return &Source{
		cfg:     cfg,
		fetcher: fetcher,
		engine:  engine,
		archive: archiver,
		logger:  logger.Named(Name),
	}
}

// Name implements discovery.Source.
func (s *Source) Name() string { return Name }

// Discover implements discovery.Source.
func (s *Source) Discover(ctx context.Context) discovery.Outcome {
	var errs []error
	found := s.collect(ctx, s.cfg.URLs, nil, &errs)
	if len(found) < s.cfg.MinResults && len(s.cfg.SearchURLs) > 0 && ctx.Err() == nil {
		s.logger.Info("listings below threshold; trying keyword search",
			zap.Int("candidates", len(found)), zap.Int("min_results", s.cfg.MinResults))
		found = s.collect(ctx, s.cfg.SearchURLs, found, &errs)
	}
	return discovery.Outcome{Source: Name, Candidates: found, Err: errors.Join(errs...)}
}

func (s *Source) collect(ctx context.Context, urls []string, found []discovery.Candidate, errs *[]error) []discovery.Candidate {
	for _, pageURL := range urls {
		if err := ctx.Err(); err != nil {
			*errs = append(*errs, fmt.Errorf("page %s: %w", pageURL, err))
			break
		}
		candidates, err := s.page(ctx, pageURL)
		if err != nil {
			s.logger.Warn("listing page failed", zap.String("url", pageURL), zap.Error(err))
			*errs = append(*errs, fmt.Errorf("page %s: %w", pageURL, err))
			continue
		}
		s.logger.Debug("listing page parsed", zap.String("url", pageURL), zap.Int("candidates", len(candidates)))
		found = discovery.DedupByName(append(found, candidates...))
	}
	return found
}

func (s *Source) page(ctx context.Context, pageURL string) ([]discovery.Candidate, error) {
	resp, err := discovery.FetchPage(ctx, s.fetcher, pageURL)
	if err != nil {
		return nil, err
	}
	s.archive.Save(ctx, pageURL, resp.Body)

	candidates, err := s.engine.Extract(resp.Body, discovery.PageURL(resp, pageURL))
	if errors.Is(err, extract.ErrEmptyDocument) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
