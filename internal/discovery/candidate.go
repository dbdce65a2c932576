// Package discovery gathers candidate restaurants from an ordered chain of sources and falls
// back to a fixed seed list when every source comes back empty.
package discovery

import (
	"context"
	"strings"
)

// PlaceholderAddress stands in for an address a source could not supply.
const PlaceholderAddress = "Address not available"

// Candidate is a restaurant as reported by a source, before reconciliation.
type Candidate struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	SourceURL string `json:"url"`
}

// WithDefaults fills an empty address with placeholder and an empty URL with pageURL.
func (c Candidate) WithDefaults(placeholder, pageURL string) Candidate {
	if strings.TrimSpace(c.Address) == "" {
		if placeholder == "" {
			placeholder = PlaceholderAddress
		}
		c.Address = placeholder
	}
	if strings.TrimSpace(c.SourceURL) == "" {
		c.SourceURL = pageURL
	}
	return c
}

// Outcome is what one source produced: possibly partial candidates plus the reason it fell short.
type Outcome struct {
	Source     string
	Candidates []Candidate
	Err        error
}

// OK reports whether the outcome carries at least one candidate.
func (o Outcome) OK() bool {
	return len(o.Candidates) > 0
}

// Source is one discovery family. Discover must not panic and reports failures via Outcome.Err.
type Source interface {
	Name() string
	Discover(ctx context.Context) Outcome
}

// DedupByName keeps the first candidate for each exact (case-sensitive) name.
func DedupByName(in []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

// DedupByNameAddress keeps the first candidate for each exact (name, address) pair.
func DedupByNameAddress(in []Candidate) []Candidate {
	type key struct{ name, address string }
	seen := make(map[key]struct{}, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		k := key{c.Name, c.Address}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
