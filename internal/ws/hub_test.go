package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	hub     *Hub
	server  *httptest.Server
	clients chan *Client
	cancel  context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{hub: NewHub(), clients: make(chan *Client, 4), cancel: cancel}
	go h.hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, h.hub, r.URL.Query().Get("sid"))
		h.hub.Register(client)
		h.clients <- client
		client.Run(r.Context())
	}))
	t.Cleanup(func() {
		h.server.Close()
		cancel()
	})
	return h
}

func (h *harness) dial(t *testing.T, sid string) (*websocket.Conn, *Client) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?sid=" + sid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case c := <-h.clients:
		return conn, c
	case <-time.After(2 * time.Second):
		t.Fatal("клиент не зарегистрирован")
		return nil, nil
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestHub_SendToSession(t *testing.T) {
	h := newHarness(t)
	connA, _ := h.dial(t, "sess-a")
	connB, _ := h.dial(t, "sess-b")

	require.Eventually(t, func() bool { return h.hub.Count("sess-a") == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.hub.SendToSession("sess-a", "session_expired", map[string]string{"redirect": "/login"}))

	env := readEnvelope(t, connA)
	assert.Equal(t, "session_expired", env.Type)
	assert.Equal(t, map[string]any{"redirect": "/login"}, env.Data)

	_ = connB.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err, "другая сессия не должна получать событие")
}

func TestClient_EmitThenCloseFlushes(t *testing.T) {
	h := newHarness(t)
	conn, client := h.dial(t, "sess-a")

	require.NoError(t, client.Emit("chat_messages", []int{1, 2}))
	require.NoError(t, client.Emit("chat_closed", map[string]string{"reason": "forbidden"}))
	client.Close()

	assert.Equal(t, "chat_messages", readEnvelope(t, conn).Type)
	assert.Equal(t, "chat_closed", readEnvelope(t, conn).Type)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
	assert.ErrorIs(t, client.Emit("late", nil), ErrClosed)
}

func TestHub_CloseSession(t *testing.T) {
	h := newHarness(t)
	conn1, _ := h.dial(t, "sess-a")
	conn2, _ := h.dial(t, "sess-a")

	require.Eventually(t, func() bool { return h.hub.Count("sess-a") == 2 }, time.Second, 5*time.Millisecond)
	h.hub.CloseSession("sess-a")

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	}
	assert.Eventually(t, func() bool { return h.hub.Count("sess-a") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_SendThenCloseDeliversEvent(t *testing.T) {
	h := newHarness(t)
	conn, _ := h.dial(t, "sess-x")
	require.Eventually(t, func() bool { return h.hub.Count("sess-x") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.hub.SendToSession("sess-x", "session_expired", map[string]string{"redirect": "/login"}))
	h.hub.CloseSession("sess-x")

	env := readEnvelope(t, conn)
	assert.Equal(t, "session_expired", env.Type)
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestHub_StoppedDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		_ = hub.SendToSession("x", "ping", nil)
		hub.Unregister(&Client{sessionID: "x"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("вызовы остановленного хаба блокируются")
	}
}
