// Package structured reads schema.org Restaurant entities from guide pages' JSON-LD.
package structured

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
const Name = "structured"

// Config lists the guide pages to read.
type Config struct {
	URLs        []string
	Placeholder string
}

// Source collects JSON-LD restaurant entities page by page.
type Source struct {
	cfg     Config
	fetcher crawler.Fetcher
	archive *archive.Archiver
	logger  *zap.Logger
}

// New builds a structured-data Source. archiver may be nil.
func New(cfg Config, fetcher crawler.Fetcher, archiver *archive.Archiver, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, fetcher: fetcher, archive: archiver, logger: logger.Named(Name)}
}

// Name implements discovery.Source.
func (s *Source) Name() string { return Name }

// Discover implements discovery.Source.
func (s *Source) Discover(ctx context.Context) discovery.Outcome {
	var (
		found []discovery.Candidate
		errs  []error
	)
	for _, pageURL := range s.cfg.URLs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w", pageURL, err))
			break
		}
		resp, err := discovery.FetchPage(ctx, s.fetcher, pageURL)
		if err != nil {
			s.logger.Warn("guide page failed", zap.String("url", pageURL), zap.Error(err))
			errs = append(errs, fmt.Errorf("page %s: %w", pageURL, err))
			continue
		}
		s.archive.Save(ctx, pageURL, resp.Body)

		candidates, err := extract.StructuredData(resp.Body, discovery.PageURL(resp, pageURL), s.cfg.Placeholder)
		if err != nil && !errors.Is(err, extract.ErrEmptyDocument) {
			errs = append(errs, fmt.Errorf("page %s: %w", pageURL, err))
			continue
		}
		s.logger.Debug("guide page parsed", zap.String("url", pageURL), zap.Int("candidates", len(candidates)))
		found = append(found, candidates...)
	}
	return discovery.Outcome{Source: Name, Candidates: discovery.DedupByName(found), Err: errors.Join(errs...)}
}
