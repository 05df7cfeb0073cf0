package nats

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNotifier_Publish(t *testing.T) {
	srv := runServer(t)

	sub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("aurora.alerts.green", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	n, err := Connect(srv.ClientURL(), slog.Default())
	require.NoError(t, err)
	defer n.Close()
	require.NoError(t, n.Ping(context.Background()))

	id, err := n.Publish(context.Background(), "aurora.alerts.green", "Green Status Notification", "digest body")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case msg := <-msgs:
		assert.Equal(t, "digest body", string(msg.Data))
		assert.Equal(t, id, msg.Header.Get(nats.MsgIdHdr))
		assert.Equal(t, "Green Status Notification", msg.Header.Get(SubjectHeader))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestNotifier_UniqueIDs(t *testing.T) {
	srv := runServer(t)

	n, err := Connect(srv.ClientURL(), slog.Default())
	require.NoError(t, err)
	defer n.Close()

	a, err := n.Publish(context.Background(), "t", "s", "b")
	require.NoError(t, err)
	b, err := n.Publish(context.Background(), "t", "s", "b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNotifier_PublishCancelled(t *testing.T) {
	srv := runServer(t)

	n, err := Connect(srv.ClientURL(), slog.Default())
	require.NoError(t, err)
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Publish(ctx, "t", "s", "b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", slog.Default())
	require.Error(t, err)
}
