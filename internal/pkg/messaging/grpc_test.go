package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startBufconn(t *testing.T) (*GRPCServer, *GRPCClient) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	listener := bufconn.Listen(1024 * 1024)
	server := NewGRPCServer(discardLogger())
	server.Serve(ctx, listener)

	client := NewGRPCClient()
	err := client.Connect(ctx, "passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}))
	require.NoError(t, err)

	return server, client
}

func TestGRPCPublishReachesSubscriber(t *testing.T) {
	server, client := startBufconn(t)

	received := make(chan string, 1)
	server.Subscribe("cluster_registered", func(message []byte) error {
		received <- string(message)
		return nil
	})

	require.NoError(t, client.Publish("cluster_registered", []byte(`{"clusterID":"aws_us-east-1_dev"}`)))
	assert.Equal(t, `{"clusterID":"aws_us-east-1_dev"}`, <-received)
}

func TestGRPCPublishUnknownTopic(t *testing.T) {
	_, client := startBufconn(t)

	err := client.Publish("nobody_listens", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not handled")
}

func TestGRPCPublishHandlerError(t *testing.T) {
	server, client := startBufconn(t)

	server.Subscribe("cluster_registered", func([]byte) error {
		return errors.New("boom")
	})

	err := client.Publish("cluster_registered", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestGRPCClientNotConnected(t *testing.T) {
	client := NewGRPCClient()

	err := client.Publish("topic", nil)
	require.EqualError(t, err, "client not connected")
	assert.NoError(t, client.Close())
}

func TestLocalPublish(t *testing.T) {
	local := NewLocal()

	require.Error(t, local.Publish("topic", []byte("x")))

	var got []string
	local.Subscribe("topic", func(message []byte) error {
		got = append(got, string(message))
		return nil
	})
	local.Subscribe("topic", func(message []byte) error {
		got = append(got, "second:"+string(message))
		return nil
	})

	require.NoError(t, local.Publish("topic", []byte("x")))
	assert.Equal(t, []string{"x", "second:x"}, got)
}
