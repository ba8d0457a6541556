package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	server := New(1)
	require.NoError(t, server.Listen("127.0.0.1", 0))
	addr := server.listener.Addr().(*net.TCPAddr)

	client := New(2)
	require.NoError(t, client.Connect(1, "127.0.0.1", addr.Port))

	// Give the server a moment to register the inbound handshake.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, server.Send(2, []byte("hello")))

	select {
	case msg := <-client.Recv():
		require.Equal(t, uint32(1), msg.PeerID)
		require.Equal(t, "hello", string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	require.NoError(t, client.Close())
	require.NoError(t, server.Close())
}

func TestSendWithoutConnectionFails(t *testing.T) {
	tr := New(1)
	err := tr.Send(99, []byte("x"))
	require.Error(t, err)
}
