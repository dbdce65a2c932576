package headless

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

// Promoting tries a static fetch first and re-renders the page in a browser when the
// detector says the static body is a script shell.
type Promoting struct {
	Static   crawler.Fetcher
	Browser  crawler.Fetcher
	Detector crawler.HeadlessDetector
	// Pacer spaces the browser render from the static fetch of the same host.
	Pacer crawler.Pacer
	// OnPromote is called with the URL whenever a browser render replaces a static body.
	OnPromote func(url string)
	Logger    *zap.Logger
}

// Fetch implements crawler.Fetcher. A failed render falls back to the static response.
func (p *Promoting) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	resp, err := p.Static.Fetch(ctx, request)
	if err != nil {
		return crawler.FetchResponse{}, err
	}
	if p.Browser == nil || p.Detector == nil || !p.Detector.ShouldPromote(resp) {
		return resp, nil
	}

	if p.Pacer != nil {
		if err := p.Pacer.Wait(ctx, request.URL); err != nil {
			return crawler.FetchResponse{}, fmt.Errorf("headless promotion paced out: %w", err)
		}
	}
	rendered, err := p.Browser.Fetch(ctx, request)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			p.logger().Warn("headless render failed; keeping static body",
				zap.String("url", request.URL), zap.Error(err))
		}
		return resp, nil
	}
	if p.OnPromote != nil {
		p.OnPromote(request.URL)
	}
	return rendered, nil
}

func (p *Promoting) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
