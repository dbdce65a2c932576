// Package detector decides when a static listing page must be re-rendered in a browser.
package detector

import (
	"bytes"
	"net/http"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

const defaultThreshold = 2048

// Heuristic promotes empty pages, small script-dominated pages and known client-side app shells.
type Heuristic struct {
	BodyLengthThreshold int
	// ContentMarkers, when any is present, prove the static body already carries listings.
	ContentMarkers [][]byte
}

// NewHeuristic creates a new detector. contentMarkers are substrings that show a page was
// server-rendered with the content we need.
func NewHeuristic(threshold int, contentMarkers ...string) *Heuristic {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	markers := make([][]byte, 0, len(contentMarkers))
	for _, m := range contentMarkers {
		if m != "" {
			markers = append(markers, []byte(m))
		}
	}
	return &Heuristic{BodyLengthThreshold: threshold, ContentMarkers: markers}
}

var spaMarkers = [][]byte{
	[]byte(`id="__next"`),
	[]byte(`id="__nuxt"`),
	[]byte("window.__NUXT__"),
	[]byte(`id="root"></div>`),
	[]byte(`id="app"></div>`),
	[]byte("data-reactroot"),
}

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	for _, marker := range h.ContentMarkers {
		if bytes.Contains(body, marker) {
			return false
		}
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether <script> elements cover a quarter or more of body.
func scriptDensityHigh(body []byte) bool {
	lower := bytes.ToLower(body)
	total := len(lower)
	openTag := []byte("<script")
	closeTag := []byte("</script>")

	covered := 0
	for pos := 0; pos < total; {
		rel := bytes.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		end := total
		if tagClose := bytes.IndexByte(lower[start:], '>'); tagClose != -1 {
			contentStart := start + tagClose + 1
			if relEnd := bytes.Index(lower[contentStart:], closeTag); relEnd != -1 {
				end = contentStart + relEnd + len(closeTag)
			}
		}
		covered += end - start
		pos = end
	}
	return covered > 0 && covered*100/total >= 25
}
