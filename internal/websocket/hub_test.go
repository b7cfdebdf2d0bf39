package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adcpview/internal/infrastructure"
)

// fakeConn is an in-memory Connection. Frames pushed with push are returned
// by ReadMessage; text frames written by the client are recorded.
type fakeConn struct {
	mu        sync.Mutex
	incoming  chan []byte
	written   [][]byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 8),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) push(s string) { f.incoming <- []byte(s) }

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	default:
	}
	if messageType == websocket.TextMessage {
		f.mu.Lock()
		f.written = append(f.written, data)
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-f.incoming:
		return websocket.TextMessage, m, nil
	case <-f.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string               { return "127.0.0.1:9000" }

func (f *fakeConn) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, 0, len(f.written))
	for _, w := range f.written {
		var m Message
		if json.Unmarshal(w, &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startedHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

// recv reads the next queued frame of c.
func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "queue closed")
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubStartStop(t *testing.T) {
	hub := NewHub(testLogger())

	hub.Start()
	hub.Start()
	assert.True(t, hub.running)

	hub.Stop()
	hub.Stop()
	assert.False(t, hub.running)
}

func TestHubRegisterSendsConnectionMessage(t *testing.T) {
	hub := startedHub(t)
	client := NewClient(hub, newFakeConn(), "trace-1", testLogger())

	hub.Register(client)

	msg := recv(t, client)
	assert.Equal(t, TypeConnection, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, client.ID(), data["client_id"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubPublishRouting(t *testing.T) {
	hub := startedHub(t)

	subscribe := func(session string) *Client {
		c := NewClient(hub, newFakeConn(), "", testLogger())
		hub.Register(c)
		recv(t, c)
		if session != "" {
			hub.Subscribe(c, session)
			ack := recv(t, c)
			require.Equal(t, TypeSubscribed, ack.Type)
			require.Equal(t, session, ack.SessionID)
		}
		return c
	}
	a := subscribe("s1")
	b := subscribe("s2")
	idle := subscribe("")

	assert.Equal(t, 1, hub.SubscriberCount("s1"))

	ctx := infrastructure.WithTraceID(context.Background(), "trace-42")
	hub.Publish(ctx, "s1", TypeView, map[string]any{"casts": 3})

	msg := recv(t, a)
	assert.Equal(t, TypeView, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, "trace-42", msg.TraceID)
	assert.Equal(t, map[string]any{"casts": float64(3)}, msg.Data)
	assertSilent(t, b)
	assertSilent(t, idle)

	hub.Publish(context.Background(), "", TypeError, "reload")
	for _, c := range []*Client{a, b, idle} {
		assert.Equal(t, TypeError, recv(t, c).Type)
	}
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	hub := startedHub(t)
	client := NewClient(hub, newFakeConn(), "", testLogger())
	hub.Register(client)
	recv(t, client)

	hub.Unregister(client)
	hub.Unregister(client)

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startedHub(t)
	slow := &Client{
		hub:         hub,
		conn:        newFakeConn(),
		send:        make(chan []byte),
		id:          "slow",
		connectedAt: time.Now(),
		logger:      testLogger(),
	}
	hub.Register(slow)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), "", TypeView, nil)

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()
	client := NewClient(hub, newFakeConn(), "", testLogger())
	hub.Register(client)
	recv(t, client)

	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)
	// Calls after Stop return instead of blocking.
	hub.Register(client)
	hub.Publish(context.Background(), "s1", TypeView, nil)
}

func TestServeWSSubscribeAndPublish(t *testing.T) {
	hub := startedHub(t)
	conn := newFakeConn()

	ServeWS(hub, conn, "trace-7", testLogger())
	conn.push(`{"type":"heartbeat"}`)
	conn.push("not json")
	conn.push(`{"type":"subscribe","session_id":"s1"}`)

	require.Eventually(t, func() bool { return hub.SubscriberCount("s1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), "s1", TypeView, map[string]any{"file": "a.nc"})

	require.Eventually(t, func() bool {
		for _, m := range conn.messages() {
			if m.Type == TypeView {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	types := []string{}
	for _, m := range conn.messages() {
		types = append(types, m.Type)
	}
	assert.Equal(t, []string{TypeConnection, TypeSubscribed, TypeView}, types)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
