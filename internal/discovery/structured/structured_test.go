package structured

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
	collyfetcher "github.com/JakeFAU/newopenings-crawler/internal/fetcher/colly"
)

const guideA = `<html><head>
<script type="application/ld+json">
{"@context": "https://schema.org", "@type": "ItemList", "itemListElement": [
  {"@type": "ListItem", "position": 1, "item": {"@type": "Restaurant", "name": "Ho Lee Fook",
   "address": {"@type": "PostalAddress", "streetAddress": "3-5 Elgin Street", "addressLocality": "Central"},
   "url": "/guide/ho-lee-fook"}},
  {"@type": "ListItem", "position": 2, "item": {"@type": "FoodEstablishment", "name": "Kiln"}}
]}
</script></head><body></body></html>`

const guideB = `<html><head>
<script type="application/ld+json">
{"@graph": [
  {"@type": "WebPage", "name": "Best new openings"},
  {"@type": "Restaurant", "name": "Kiln", "address": "Somewhere else"},
  {"@type": ["Restaurant", "LocalBusiness"], "name": "Mosu", "address": "M+, West Kowloon"}
]}
</script></head><body></body></html>`

func TestDiscoverCollectsEntities(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) { _, _ = fmt.Fprint(w, guideA) })
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) { _, _ = fmt.Fprint(w, guideB) })
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusGone) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	src := New(Config{URLs: []string{srv.URL + "/a", srv.URL + "/gone", srv.URL + "/b"}},
		collyfetcher.New(collyfetcher.Config{}), nil, nil)
	out := src.Discover(context.Background())

	require.Equal(t, Name, out.Source)
	require.Equal(t, []discovery.Candidate{
		{Name: "Ho Lee Fook", Address: "3-5 Elgin Street, Central", SourceURL: srv.URL + "/guide/ho-lee-fook"},
		{Name: "Kiln", Address: discovery.PlaceholderAddress, SourceURL: srv.URL + "/a"},
		{Name: "Mosu", Address: "M+, West Kowloon", SourceURL: srv.URL + "/b"},
	}, out.Candidates)
	require.ErrorContains(t, out.Err, "/gone: unexpected status 410")
}

func TestDiscoverNoURLs(t *testing.T) {
	t.Parallel()

	out := New(Config{}, nil, nil, nil).Discover(context.Background())
	require.False(t, out.OK())
	require.NoError(t, out.Err)
}
