// Package extract pulls restaurant candidates out of listing-page markup.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
)

// ErrEmptyDocument is returned when there is no markup to parse.
var ErrEmptyDocument = errors.New("empty document")

const defaultMaxCards = 20

// cardStrategies are tried in priority order; cards from every matching strategy accumulate.
var cardStrategies = []string{
	"div.poi-list-item",
	"div.restaurant-info",
	"a.poi-name",
	"h2.title-name, h3.title-name",
}

const (
	nameSelector = "h2.name, h2.title, h2.restaurant-name, " +
		"h3.name, h3.title, h3.restaurant-name, " +
		"h4.name, h4.title, h4.restaurant-name, " +
		"span.name, span.title, span.restaurant-name"
	headingSelector = "h2, h3, h4"
	addressSelector = "span.address, span.location, span.district, " +
		"div.address, div.location, div.district, " +
		"p.address, p.location, p.district"
)

// detailLink matches restaurant detail paths: /restaurant/... or OpenRice's /r-<slug>-r<id>.
var detailLink = regexp.MustCompile(`/restaurant/|/r-[^/?#]+-r\d+`)

// Options tunes an Engine.
type Options struct {
	// MaxCards bounds the cards examined per page.
	MaxCards int
	// Placeholder replaces a missing address.
	Placeholder string
	// Districts are scanned for in free text when no address element exists.
	Districts []string
}

// Engine applies the card strategies and per-card heuristics.
type Engine struct {
	opts Options
}

// New builds an Engine, filling zero options with defaults.
func New(opts Options) *Engine {
	if opts.MaxCards <= 0 {
		opts.MaxCards = defaultMaxCards
	}
	if opts.Placeholder == "" {
		opts.Placeholder = discovery.PlaceholderAddress
	}
	return &Engine{opts: opts}
}

// Extract returns the candidates found in markup, deduplicated by name. pageURL anchors
// relative links and stands in for a missing detail URL.
func (e *Engine) Extract(markup []byte, pageURL string) ([]discovery.Candidate, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	cards := e.cards(doc)
	out := make([]discovery.Candidate, 0, len(cards))
	for _, card := range cards {
		if c, ok := e.card(card, pageURL); ok {
			out = append(out, c)
		}
	}
	return discovery.DedupByName(out), nil
}

func parse(markup []byte) (*goquery.Document, error) {
	if len(bytes.TrimSpace(markup)) == 0 {
		return nil, ErrEmptyDocument
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return doc, nil
}

func (e *Engine) cards(doc *goquery.Document) []*goquery.Selection {
	seen := make(map[*html.Node]struct{})
	var cards []*goquery.Selection
	for _, strategy := range cardStrategies {
		doc.Find(strategy).Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if _, dup := seen[node]; dup {
				return
			}
			seen[node] = struct{}{}
			cards = append(cards, s)
		})
	}

	if len(cards) == 0 {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if detailLink.MatchString(href) && !strings.Contains(href, "review") {
				cards = append(cards, s)
			}
		})
	}

	if len(cards) > e.opts.MaxCards {
		cards = cards[:e.opts.MaxCards]
	}
	return cards
}

func (e *Engine) card(card *goquery.Selection, pageURL string) (discovery.Candidate, bool) {
	cardURL := cardLink(card, pageURL)

	if entities := entitiesIn(card); len(entities) > 0 {
		return entities[0].toCandidate(pageURL, cardURL, e.opts.Placeholder), true
	}

	name := cardName(card)
	if name == "" {
		return discovery.Candidate{}, false
	}
	address := e.cardAddress(card, name)
	if address == "" && cardURL == "" {
		return discovery.Candidate{}, false
	}
	c := discovery.Candidate{Name: name, Address: address, SourceURL: cardURL}
	return c.WithDefaults(e.opts.Placeholder, pageURL), true
}

func cardName(card *goquery.Selection) string {
	if el := card.Find(nameSelector).First(); el.Length() > 0 {
		if name := Normalize(el.Text()); name != "" {
			return name
		}
	}
	if el := card.Find(headingSelector).First(); el.Length() > 0 {
		if name := Normalize(el.Text()); name != "" {
			return name
		}
	}
	// A heading or anchor card is its own name.
	if card.Is("h2, h3, h4, a") {
		return Normalize(card.Text())
	}
	return ""
}

func (e *Engine) cardAddress(card *goquery.Selection, name string) string {
	if el := card.Find(addressSelector).First(); el.Length() > 0 {
		if address := Normalize(el.Text()); address != "" {
			return address
		}
	}
	if len(e.opts.Districts) == 0 {
		return ""
	}

	var found string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return false
		}
		if n.Type == html.TextNode {
			text := Normalize(n.Data)
			if text != "" && text != name && containsAny(text, e.opts.Districts) {
				found = text
				return true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if walk(child) {
				return true
			}
		}
		return false
	}
	for _, n := range card.Nodes {
		if walk(n) {
			break
		}
	}
	return found
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// cardLink returns the card's own href when it is an anchor, else the first descendant
// detail link, resolved against pageURL. Empty when neither resolves.
func cardLink(card *goquery.Selection, pageURL string) string {
	var href string
	if card.Is("a") {
		href, _ = card.Attr("href")
	}
	if strings.TrimSpace(href) == "" {
		card.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			candidate, _ := s.Attr("href")
			if detailLink.MatchString(candidate) {
				href = candidate
				return false
			}
			return true
		})
	}
	if strings.TrimSpace(href) == "" {
		return ""
	}
	resolved, err := crawler.ResolveURL(pageURL, href)
	if err != nil {
		return ""
	}
	return resolved
}
