package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "pages/2025-01-06/abc.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://pages/2025-01-06/abc.html", uri)

	payload[0] = 'C'
	stored, ok := store.Object("pages/2025-01-06/abc.html")
	require.True(t, ok)
	require.Equal(t, "content", string(stored))

	stored[0] = 'X'
	again, _ := store.Object("pages/2025-01-06/abc.html")
	require.Equal(t, "content", string(again))
}

func TestBlobStoreOverwriteAndKeys(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	_, err := store.PutObject(ctx, "b.html", "", bytes.NewReader([]byte("1")))
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "a.html", "", bytes.NewReader([]byte("2")))
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "b.html", "", bytes.NewReader([]byte("3")))
	require.NoError(t, err)

	require.Equal(t, 2, store.Len())
	require.Equal(t, []string{"a.html", "b.html"}, store.Keys())
	got, _ := store.Object("b.html")
	require.Equal(t, "3", string(got))

	_, ok := store.Object("missing.html")
	require.False(t, ok)
}

func TestBlobStoreRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), " ", "", bytes.NewReader(nil))
	require.Error(t, err)
}
