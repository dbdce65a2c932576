package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

func TestHeuristic_ShouldPromote(t *testing.T) {
	t.Parallel()

	longText := "<p>" + strings.Repeat("restaurant ", 400) + "</p>"

	tests := []struct {
		name    string
		markers []string
		resp    crawler.FetchResponse
		want    bool
	}{
		{
			name: "empty body",
			resp: crawler.FetchResponse{StatusCode: 200, Body: []byte("  \n ")},
			want: true,
		},
		{
			name: "nuxt shell",
			resp: crawler.FetchResponse{StatusCode: 200, Body: []byte(`<div id="__nuxt"></div>` + longText)},
			want: true,
		},
		{
			name: "script heavy small page",
			resp: crawler.FetchResponse{StatusCode: 200, Body: []byte(`<html><script>var a=1;</script><p>t</p></html>`)},
			want: true,
		},
		{
			name: "script heavy large page",
			resp: crawler.FetchResponse{StatusCode: 200, Body: []byte(`<script>x()</script>` + longText)},
			want: false,
		},
		{
			name:    "content marker wins over shell marker",
			markers: []string{"poi-list-cell"},
			resp:    crawler.FetchResponse{StatusCode: 200, Body: []byte(`<div id="__nuxt"><div class="poi-list-cell">A</div></div>`)},
			want:    false,
		},
		{
			name: "non 200",
			resp: crawler.FetchResponse{StatusCode: 404, Body: []byte("not found")},
			want: false,
		},
		{
			name: "plain server rendered html",
			resp: crawler.FetchResponse{StatusCode: 200, Body: []byte(longText)},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHeuristic(1000, tt.markers...)
			require.Equal(t, tt.want, h.ShouldPromote(tt.resp))
		})
	}
}

func TestNewHeuristicDefaults(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0, "", "card")
	require.Equal(t, defaultThreshold, h.BodyLengthThreshold)
	require.Len(t, h.ContentMarkers, 1)
}

func TestScriptDensityUnclosedTag(t *testing.T) {
	t.Parallel()

	require.True(t, scriptDensityHigh([]byte(`<p>a</p><script src="x.js"`)))
	require.False(t, scriptDensityHigh([]byte(`<p>no scripts here</p>`)))
}
