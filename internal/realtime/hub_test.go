package realtime_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"collector/internal/realtime"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	hub := realtime.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := dial(t, srv)
	second := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	n := hub.Broadcast(realtime.Event{Type: "new_submission", Data: map[string]string{"email": "a@test.com"}})
	require.Equal(t, 2, n)

	for _, conn := range []*websocket.Conn{first, second} {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		var ev struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		cancel()
		require.Equal(t, "new_submission", ev.Type)
		require.Equal(t, "a@test.com", ev.Data["email"])
	}
}

func TestHub_SubscriberLeavesOnClose(t *testing.T) {
	hub := realtime.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastWithoutSubscribers(t *testing.T) {
	hub := realtime.NewHub()
	require.Equal(t, 0, hub.Broadcast(realtime.Event{Type: "noop"}))
}

func TestHub_CloseDisconnects(t *testing.T) {
	hub := realtime.NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	dial(t, srv)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
