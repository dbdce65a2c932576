package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "pages-bucket"})
	require.NoError(t, err)
	return store
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		name   string
		upload string
		body   string
	)
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		name = r.URL.Query().Get("name")
		upload = r.URL.Query().Get("uploadType")
		body = string(raw)
		mu.Unlock()
		if !strings.Contains(r.URL.Path, "/b/pages-bucket/o") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprintf(w, `{"name": %q, "bucket": "pages-bucket"}`, r.URL.Query().Get("name"))
	}))

	uri, err := store.PutObject(context.Background(), "pages/2025-01-06/abc.html", "text/html",
		bytes.NewReader([]byte("<html>listing</html>")))
	require.NoError(t, err)
	require.Equal(t, "gs://pages-bucket/pages/2025-01-06/abc.html", uri)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "pages/2025-01-06/abc.html", name)
	require.Equal(t, "multipart", upload)
	require.Contains(t, body, "<html>listing</html>")
	require.Contains(t, body, "text/html")
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	_, err := store.PutObject(context.Background(), "pages/a.html", "text/html", bytes.NewReader([]byte("x")))
	require.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	_, err = New(client, Config{})
	require.Error(t, err)
	store, err := New(client, Config{Bucket: "b"})
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "", "", nil)
	require.Error(t, err)
}
