package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishSendsJSON(t *testing.T) {
	t.Parallel()

	client, srv := newTestClient(t)
	ctx := context.Background()
	_, err := client.CreateTopic(ctx, "runs")
	require.NoError(t, err)

	pub := New(client, "runs")
	t.Cleanup(pub.Close)

	id, err := pub.Publish(ctx, "", map[string]any{"run_id": "r1", "records_added": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])
	var got map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, "r1", got["run_id"])
	require.EqualValues(t, 3, got["records_added"])
}

func TestPublishMissingTopic(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	pub := New(client, "")
	_, err := pub.Publish(context.Background(), "", "x")
	require.ErrorContains(t, err, "topic is not configured")

	_, err = pub.Publish(context.Background(), "does-not-exist", "x")
	require.Error(t, err)
	pub.Close()
}

func TestPublishUnmarshalable(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	_, err := New(client, "runs").Publish(context.Background(), "", make(chan int))
	require.ErrorContains(t, err, "marshal payload")
}

func TestPublishWithoutClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "runs").Publish(context.Background(), "", "x")
	require.Error(t, err)
}
