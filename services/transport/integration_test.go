package transport

import (
	"context"
	"testing"
	"time"

	"novelchat/internal/chattest"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelAgainstWebsocketServer(t *testing.T) {
	srv := chattest.NewServer(t, nil)

	cfg := testConfig()
	cfg.URL = srv.WSURL()
	clock := newFakeClock()

	ch := New(cfg, NewDialer(time.Second), WithClock(clock.After))
	ch.Start(context.Background())
	defer ch.Close()

	require.Eventually(t, func() bool {
		return ch.State() == StateOpen && srv.Clients() == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ch.Send([]byte{0x08, 0x07}))

	select {
	case b := <-srv.Received():
		assert.Equal(t, []byte{0x08, 0x07}, b)
	case <-time.After(waitFor):
		t.Fatal("server never received the frame")
	}

	// relayed back to the sender
	select {
	case b := <-ch.Frames():
		assert.Equal(t, []byte{0x08, 0x07}, b)
	case <-time.After(waitFor):
		t.Fatal("relayed frame never arrived")
	}

	srv.Broadcast(websocket.TextMessage, []byte("text is ignored"))
	srv.Broadcast(websocket.BinaryMessage, []byte{0x01})
	select {
	case b := <-ch.Frames():
		assert.Equal(t, []byte{0x01}, b)
	case <-time.After(waitFor):
		t.Fatal("binary frame never arrived")
	}

	// server drops the socket: the channel closes and schedules one redial
	srv.DropAll()
	timer := nextTimer(t, clock)
	assert.Equal(t, StateClosed, ch.State())

	timer <- time.Now()
	require.Eventually(t, func() bool {
		return ch.State() == StateOpen && srv.Clients() == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ch.Close())
	require.Eventually(t, func() bool { return srv.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestDialFailureAgainstClosedPort(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "ws://127.0.0.1:1/ws"
	clock := newFakeClock()

	ch := New(cfg, NewDialer(time.Second), WithClock(clock.After))
	ch.Start(context.Background())
	defer ch.Close()

	nextTimer(t, clock)
	assert.Equal(t, StateClosed, ch.State())
}
