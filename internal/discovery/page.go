package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

// pageHeaders are sent with every page request; some listing sites serve a bot wall to
// clients without them.
var pageHeaders = http.Header{
	"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	"Accept-Language":           {"en-US,en;q=0.9,zh-TW;q=0.8,zh;q=0.7"},
	"Cache-Control":             {"max-age=0"},
	"Upgrade-Insecure-Requests": {"1"},
}

// FetchPage GETs an HTML page. Any non-2xx status is an error.
func FetchPage(ctx context.Context, fetcher crawler.Fetcher, pageURL string) (crawler.FetchResponse, error) {
	if fetcher == nil {
		return crawler.FetchResponse{}, fmt.Errorf("no fetcher configured")
	}
	resp, err := fetcher.Fetch(ctx, crawler.FetchRequest{
		URL:     pageURL,
		Method:  http.MethodGet,
		Headers: pageHeaders.Clone(),
	})
	if err != nil {
		return crawler.FetchResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// PageURL is the address relative links on the page resolve against: the final URL after
// redirects when the fetcher reports one.
func PageURL(resp crawler.FetchResponse, requested string) string {
	if u := strings.TrimSpace(resp.URL); u != "" {
		return u
	}
	return requested
}
