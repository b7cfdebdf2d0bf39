package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "adcpview/internal/middleware"
	ws "adcpview/internal/websocket"
)

func newWSServer(t *testing.T, origins ...string) (*ws.Hub, string) {
	t.Helper()
	hub := ws.NewHub(discardLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	h := NewWebSocketHandler(hub, mw.CORSConfig{AllowedOrigins: origins}, 1024, 1024, discardLogger())
	srv := httptest.NewServer(mw.RequestID(h))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketHandler_SessionMessages(t *testing.T) {
	hub, url := newWSServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.NotEmpty(t, resp.Header.Get(mw.RequestIDHeader))

	hello := readMessage(t, conn)
	assert.Equal(t, ws.TypeConnection, hello.Type)
	assert.Equal(t, resp.Header.Get(mw.RequestIDHeader), hello.TraceID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "session_id": "s-1"}))
	subscribed := readMessage(t, conn)
	assert.Equal(t, ws.TypeSubscribed, subscribed.Type)
	assert.Equal(t, "s-1", subscribed.SessionID)

	hub.Publish(context.Background(), "other", ws.TypeView, map[string]any{"casts": 1})
	hub.Publish(context.Background(), "s-1", ws.TypeView, map[string]any{"casts": 4})

	view := readMessage(t, conn)
	assert.Equal(t, ws.TypeView, view.Type)
	assert.Equal(t, "s-1", view.SessionID)
	assert.Equal(t, map[string]any{"casts": float64(4)}, view.Data)
}

func TestWebSocketHandler_EchoesRequestID(t *testing.T) {
	_, url := newWSServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{mw.RequestIDHeader: []string{"trace-123"}})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "trace-123", resp.Header.Get(mw.RequestIDHeader))
	assert.Equal(t, "trace-123", readMessage(t, conn).TraceID)
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	hub, url := newWSServer(t, "http://localhost:8080")

	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{name: "no origin", origin: ""},
		{name: "allowed origin", origin: "http://localhost:8080"},
		{name: "foreign origin", origin: "http://evil.example", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			conn.Close()
		})
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}
