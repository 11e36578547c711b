package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invsync/internal/config"
	"invsync/internal/services"
	"invsync/internal/shared/testutil"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      time.Second,
		PongWait:        2 * time.Second,
	}
}

func startServer(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	srv := httptest.NewServer(NewHandler(hub, testConfig(), origins, logger))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, origin string) *gorilla.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubConnectionMessage(t *testing.T) {
	hub, srv := startServer(t, nil)
	conn := dial(t, srv, "")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeConnection, msg.Type)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHubBroadcastSync(t *testing.T) {
	hub, srv := startServer(t, nil)
	a := dial(t, srv, "")
	b := dial(t, srv, "")
	readMessage(t, a)
	readMessage(t, b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.BroadcastSync(services.SyncEvent{
		Type:   services.EventSyncCompleted,
		SyncID: "sync-1",
		Status: &services.SyncStatus{RecordCount: 12},
	})

	for _, conn := range []*gorilla.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, services.EventSyncCompleted, msg.Type)
		assert.Equal(t, "sync-1", msg.TraceID)
		data, ok := msg.Data.(map[string]interface{})
		require.True(t, ok)
		status := data["status"].(map[string]interface{})
		assert.Equal(t, float64(12), status["recordCount"])
	}
	assert.Equal(t, int64(2), hub.Stats()["messages_sent"])
}

func TestHubUnregisterOnClose(t *testing.T) {
	hub, srv := startServer(t, nil)
	conn := dial(t, srv, "")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsOrigin(t *testing.T) {
	_, srv := startServer(t, []string{"https://dash.example.com"})

	_, resp, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"),
		http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, "https://dash.example.com")
	assert.Equal(t, TypeConnection, readMessage(t, conn).Type)
}

func TestHubStop(t *testing.T) {
	hub := NewHub(testutil.Discard())
	hub.Broadcast("ignored", nil, "")
	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()
	hub.Broadcast("after-stop", nil, "")
	assert.Zero(t, hub.ClientCount())
}
