package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"purpaws/internal/notifications"
	"purpaws/internal/testutil"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the test app on a loopback port and returns its ws:// base URL.
func (ts *testServer) listen() string {
	ts.t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(ts.t, err)
	go func() { _ = ts.app.Listener(ln) }()
	ts.t.Cleanup(func() { _ = ts.app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func (ts *testServer) ticket(token string) string {
	ts.t.Helper()
	resp := ts.do(http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](ts.t, resp)
	ticket, _ := body["ticket"].(string)
	require.NotEmpty(ts.t, ticket)
	return ticket
}

func TestNotificationStream_Upgrade(t *testing.T) {
	ts := newTestServer(t)
	admin := testutil.CreateUser(t, ts.db, "admin", testutil.Staff)
	alice := testutil.CreateUser(t, ts.db, "alice")
	report := testutil.CreateReport(t, ts.db, alice)
	_, err := ts.notifications.Notify(context.Background(), admin.ID, &report.ID, "Report is eligible")
	require.NoError(t, err)

	base := ts.listen()
	url := base + "/api/ws/notifications?ticket=" + ts.ticket(ts.token(admin))

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frame, &ev))
	assert.Equal(t, notifications.EventUnreadCount, ev.Type)
	assert.EqualValues(t, 1, ev.Payload["unread"])

	assert.Eventually(t, func() bool { return ts.hub.ConnectionCount(admin.ID) == 1 },
		2*time.Second, 10*time.Millisecond)

	// The ticket was spent by the first handshake.
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return ts.hub.ConnectionCount(admin.ID) == 0 },
		2*time.Second, 10*time.Millisecond)
}
