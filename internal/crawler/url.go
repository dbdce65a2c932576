package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL resolves href against the page it was found on. Absolute hrefs are returned
// unchanged apart from fragment removal; path-relative ones inherit the page's scheme and host.
func ResolveURL(pageURL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	if ref.IsAbs() {
		ref.Fragment = ""
		return ref.String(), nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	if base.Host == "" {
		return "", fmt.Errorf("page url %q has no host", pageURL)
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String(), nil
}

// Host returns the lowercase hostname of rawURL or "unknown".
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
