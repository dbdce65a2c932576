package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newopenings-crawler/internal/discovery"
)

func TestParseJSONLDNesting(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "WebPage", "name": "Best new openings"},
			{"@type": "ItemList", "itemListElement": [
				{"@type": "ListItem", "position": 1, "item": {
					"@type": "Restaurant", "name": "  TONO\nDAIKIYA ",
					"address": "Shop 2201, 2/F, Gateway Arcade, Harbour City, Tsim Sha Tsui"}},
				{"@type": "ListItem", "position": 2, "item": {
					"@type": "schema:CafeOrCoffeeShop", "name": ["Cupping Room"],
					"address": [{"streetAddress": "G/F, 299 Queen's Road Central", "addressLocality": "Sheung Wan"}],
					"url": "https://example.com/cupping"}},
				{"@type": "ListItem", "position": 3, "item": {"@type": "Hotel", "name": "Not food"}},
				{"@type": "ListItem", "position": 4, "item": {"@type": "Restaurant"}}
			]}
		]
	}`)

	got, err := ParseJSONLD(raw)
	require.NoError(t, err)
	require.Equal(t, []Entity{
		{Name: "TONO DAIKIYA", Address: "Shop 2201, 2/F, Gateway Arcade, Harbour City, Tsim Sha Tsui"},
		{Name: "Cupping Room", Address: "G/F, 299 Queen's Road Central, Sheung Wan", URL: "https://example.com/cupping"},
	}, got)
}

func TestParseJSONLDErrors(t *testing.T) {
	t.Parallel()

	got, err := ParseJSONLD([]byte("   "))
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = ParseJSONLD([]byte("{nope"))
	require.Error(t, err)
}

func TestStructuredData(t *testing.T) {
	t.Parallel()

	markup := []byte(`<html><head>
		<script type="application/ld+json">[
			{"@type": "FoodEstablishment", "name": "HEXA", "url": "/r-hexa-r692876"},
			{"@type": "Restaurant", "name": "HEXA", "address": "elsewhere"}
		]</script>
		<script type="application/ld+json">{"@type": "Restaurant", "mainEntity": {"@type": "Restaurant", "name": "NOJO", "address": {"addressLocality": "Central"}}}</script>
		<script type="application/ld+json">{broken</script>
	</head><body></body></html>`)

	got, err := StructuredData(markup, "https://guide.example.com/new", "")
	require.NoError(t, err)
	require.Equal(t, []discovery.Candidate{
		{Name: "HEXA", Address: discovery.PlaceholderAddress, SourceURL: "https://guide.example.com/r-hexa-r692876"},
		{Name: "NOJO", Address: "Central", SourceURL: "https://guide.example.com/new"},
	}, got)

	_, err = StructuredData(nil, "https://guide.example.com/new", "")
	require.ErrorIs(t, err, ErrEmptyDocument)
}
