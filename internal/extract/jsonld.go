package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
)

const jsonLDSelector = `script[type="application/ld+json"]`

// Entity is a restaurant-like node found in JSON-LD.
type Entity struct {
	Name    string
	Address string
	URL     string
}

var restaurantTypes = map[string]struct{}{
	"Restaurant":         {},
	"FoodEstablishment":  {},
	"CafeOrCoffeeShop":   {},
	"BarOrPub":           {},
	"FastFoodRestaurant": {},
	"Bakery":             {},
	"IceCreamShop":       {},
	"Brewery":            {},
	"Winery":             {},
}

// containers are the keys under which schema.org nests further entities.
var containers = []string{"@graph", "itemListElement", "item", "mainEntity"}

// ParseJSONLD decodes one JSON-LD block and returns every restaurant entity with a name,
// in document order.
func ParseJSONLD(raw []byte) ([]Entity, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}
	var out []Entity
	walkJSONLD(doc, &out)
	return out, nil
}

func walkJSONLD(node any, out *[]Entity) {
	switch v := node.(type) {
	case []any:
		for _, child := range v {
			walkJSONLD(child, out)
		}
	case map[string]any:
		if isRestaurant(v["@type"]) {
			if name := Normalize(stringValue(v["name"])); name != "" {
				*out = append(*out, Entity{
					Name:    name,
					Address: Normalize(addressValue(v["address"])),
					URL:     strings.TrimSpace(stringValue(v["url"])),
				})
			}
		}
		for _, key := range containers {
			if child, ok := v[key]; ok {
				walkJSONLD(child, out)
			}
		}
	}
}

func isRestaurant(t any) bool {
	switch v := t.(type) {
	case string:
		_, ok := restaurantTypes[strings.TrimPrefix(v, "schema:")]
		return ok
	case []any:
		for _, entry := range v {
			if isRestaurant(entry) {
				return true
			}
		}
	}
	return false
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []any:
		if len(s) > 0 {
			return stringValue(s[0])
		}
	case map[string]any:
		if inner, ok := s["@value"]; ok {
			return stringValue(inner)
		}
	}
	return ""
}

func addressValue(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case []any:
		if len(a) > 0 {
			return addressValue(a[0])
		}
	case map[string]any:
		parts := make([]string, 0, 3)
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion"} {
			if s := strings.TrimSpace(stringValue(a[key])); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// entitiesIn collects JSON-LD restaurant entities from every ld+json script under sel.
// Malformed blocks are skipped.
func entitiesIn(sel *goquery.Selection) []Entity {
	var out []Entity
	sel.Find(jsonLDSelector).Each(func(_ int, s *goquery.Selection) {
		entities, err := ParseJSONLD([]byte(s.Text()))
		if err != nil {
			return
		}
		out = append(out, entities...)
	})
	return out
}

// toCandidate converts an entity, resolving its URL against pageURL.
func (e Entity) toCandidate(pageURL, fallbackURL, placeholder string) discovery.Candidate {
	link := ""
	if e.URL != "" {
		if resolved, err := crawler.ResolveURL(pageURL, e.URL); err == nil {
			link = resolved
		}
	}
	if link == "" {
		link = fallbackURL
	}
	return discovery.Candidate{Name: e.Name, Address: e.Address, SourceURL: link}.WithDefaults(placeholder, pageURL)
}

// StructuredData returns candidates for every restaurant entity declared in the page's
// JSON-LD, deduplicated by name.
func StructuredData(markup []byte, pageURL, placeholder string) ([]discovery.Candidate, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}
	var out []discovery.Candidate
	for _, e := range entitiesIn(doc.Selection) {
		out = append(out, e.toCandidate(pageURL, "", placeholder))
	}
	return discovery.DedupByName(out), nil
}
