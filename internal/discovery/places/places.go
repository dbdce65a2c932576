// Package places discovers restaurants through the Google Places Text Search API, one query
// per sub-area.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
	"github.com/JakeFAU/newopenings-crawler/internal/extract"
)

// Name identifies this source in outcomes, logs and run records.
const Name = "places"

// FieldMask limits the response to the fields we read.
const FieldMask = "places.displayName,places.formattedAddress,places.googleMapsUri"

// ErrMissingCredential means no API key was configured, so no request was made.
var ErrMissingCredential = errors.New("places api key not configured")

// Config controls the lookup.
type Config struct {
	APIKey        string
	Endpoint      string
	QueryTemplate string
	Areas         []string
	MaxPerArea    int
	Placeholder   string
}

// Source queries each area in turn. A failing area never stops the others.
type Source struct {
	cfg     Config
	fetcher crawler.Fetcher
	logger  *zap.Logger
}

// New builds a places Source.
func New(cfg Config, fetcher crawler.Fetcher, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPerArea <= 0 {
		cfg.MaxPerArea = 5
	}
	return &Source{cfg: cfg, fetcher: fetcher, logger: logger.Named(Name)}
}

// Name implements discovery.Source.
func (s *Source) Name() string { return Name }

// Discover implements discovery.Source.
func (s *Source) Discover(ctx context.Context) discovery.Outcome {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return discovery.Outcome{Source: Name, Err: ErrMissingCredential}
	}

	var (
		candidates []discovery.Candidate
		errs       []error
	)
	for _, area := range s.cfg.Areas {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("area %s: %w", area, err))
			break
		}
		found, err := s.searchArea(ctx, area)
		if err != nil {
			s.logger.Warn("area search failed", zap.String("area", area), zap.Error(err))
			errs = append(errs, fmt.Errorf("area %s: %w", area, err))
			continue
		}
		s.logger.Debug("area searched", zap.String("area", area), zap.Int("candidates", len(found)))
		candidates = append(candidates, found...)
	}

	return discovery.Outcome{
		Source:     Name,
		Candidates: discovery.DedupByNameAddress(candidates),
		Err:        errors.Join(errs...),
	}
}

type searchRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount"`
	LanguageCode   string `json:"languageCode"`
}

type searchResponse struct {
	Places []struct {
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string `json:"formattedAddress"`
		GoogleMapsURI    string `json:"googleMapsUri"`
	} `json:"places"`
}

func (s *Source) searchArea(ctx context.Context, area string) ([]discovery.Candidate, error) {
	body, err := json.Marshal(searchRequest{
		TextQuery:      s.query(area),
		MaxResultCount: s.cfg.MaxPerArea,
		LanguageCode:   "en",
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := s.fetcher.Fetch(ctx, crawler.FetchRequest{
		URL:    s.cfg.Endpoint,
		Method: http.MethodPost,
		Body:   body,
		Headers: http.Header{
			"Content-Type":     {"application/json"},
			"X-Goog-Api-Key":   {s.cfg.APIKey},
			"X-Goog-Fieldmask": {FieldMask},
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet(resp.Body))
	}

	var decoded searchResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]discovery.Candidate, 0, len(decoded.Places))
	for _, p := range decoded.Places {
		if len(out) == s.cfg.MaxPerArea {
			break
		}
		name := extract.Normalize(p.DisplayName.Text)
		if name == "" {
			continue
		}
		c := discovery.Candidate{
			Name:      name,
			Address:   extract.Normalize(p.FormattedAddress),
			SourceURL: strings.TrimSpace(p.GoogleMapsURI),
		}
		out = append(out, c.WithDefaults(s.cfg.Placeholder, mapsSearchURL(name)))
	}
	return out, nil
}

func (s *Source) query(area string) string {
	if strings.Contains(s.cfg.QueryTemplate, "%s") {
		return fmt.Sprintf(s.cfg.QueryTemplate, area)
	}
	return strings.TrimSpace(s.cfg.QueryTemplate + " " + area)
}

func mapsSearchURL(name string) string {
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(name+" Hong Kong")
}

func snippet(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
