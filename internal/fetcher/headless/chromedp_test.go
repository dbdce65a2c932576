package headless

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
)

func TestNewChromedpDefaults(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)

	fetcher, err := NewChromedp(Config{MaxParallel: 2})
	require.NoError(t, err)
	t.Cleanup(fetcher.Close)
	require.Equal(t, 2, cap(fetcher.limiter))
	require.Equal(t, defaultNavTimeout, fetcher.cfg.NavigationTimeout)
	require.Equal(t, defaultSettle, fetcher.cfg.Settle)
	require.Equal(t, "body", fetcher.waitSelector())

	fetcher.cfg.WaitSelector = ".poi-list"
	require.Equal(t, ".poi-list", fetcher.waitSelector())
}

func TestFetchRejectsNonGet(t *testing.T) {
	t.Parallel()

	fetcher, err := NewChromedp(Config{})
	require.NoError(t, err)
	t.Cleanup(fetcher.Close)

	_, err = fetcher.Fetch(context.Background(), crawler.FetchRequest{URL: "https://x.test", Method: http.MethodPost})
	require.ErrorContains(t, err, "GET only")
}

func TestAcquireHonoursContext(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{limiter: make(chan struct{}, 1)}
	require.NoError(t, fetcher.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, fetcher.acquire(ctx), context.DeadlineExceeded)

	fetcher.release()
	require.NoError(t, fetcher.acquire(context.Background()))
}

func TestToNetworkHeaders(t *testing.T) {
	t.Parallel()

	netHeaders := toNetworkHeaders(http.Header{
		"X-Multi":  {"a", "b"},
		"X-Single": {"c"},
		"X-Empty":  {},
	})
	require.Equal(t, []string{"a", "b"}, netHeaders["X-Multi"])
	require.Equal(t, "c", netHeaders["X-Single"])
	_, ok := netHeaders["X-Empty"]
	require.False(t, ok)
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  203,
			URL:     "https://example.com/rendered",
			Headers: network.Headers{"X-Request-ID": "abc"},
		},
	})
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 500, URL: "https://example.com/iframe"},
	})
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 404},
	})

	status, headers, url := meta.snapshotWithFallbacks("https://req", "")
	require.Equal(t, 203, status)
	require.Equal(t, "abc", headers.Get("X-Request-ID"))
	require.Equal(t, "https://example.com/rendered", url)

	meta = newResponseMeta()
	status, _, url = meta.snapshotWithFallbacks("https://req", "https://final")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "https://final", url)

	_, _, url = meta.snapshotWithFallbacks("https://req", "")
	require.Equal(t, "https://req", url)
}

func TestNoopFetcherError(t *testing.T) {
	t.Parallel()

	_, err := NewNoop().Fetch(context.Background(), crawler.FetchRequest{})
	require.ErrorIs(t, err, ErrDisabled)
}
