package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// testServer upgrades one connection and hands it to the given handler.
func testServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitEvent(t *testing.T, c *Client) domain.Event {
	t.Helper()
	select {
	case evt, ok := <-c.Events():
		require.True(t, ok, "event stream closed unexpectedly")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestClient_ReceivesEventsInOrder(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		for _, body := range []string{
			`{"event":"thinking","payload":{"step":"Generating plan"}}`,
			`{"event":"thought","payload":{"content":"a plan"}}`,
			`{"event":"chat_response","payload":{"response":"done"}}`,
		} {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(body)))
		}
		// hold the connection open until the client closes it
		conn.ReadMessage()
	})

	c := NewClient(url, logging.New(nil, "silent"))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.IsType(t, domain.ThinkingEvent{}, waitEvent(t, c))
	assert.IsType(t, domain.ThoughtEvent{}, waitEvent(t, c))
	assert.IsType(t, domain.ChatResponseEvent{}, waitEvent(t, c))
}

func TestClient_EmitWritesFrame(t *testing.T) {
	got := make(chan Frame, 1)
	url := testServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if json.Unmarshal(msg, &f) == nil {
			got <- f
		}
	})

	c := NewClient(url, logging.New(nil, "silent"))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	req := domain.ChatRequest{ChatID: "100", Message: "hi", ConversationHistory: []domain.HistoryEntry{}}
	require.NoError(t, c.Emit(domain.EventChatRequest, req))

	select {
	case f := <-got:
		assert.Equal(t, domain.EventChatRequest, f.Event)
		assert.Contains(t, string(f.Payload), `"chat_id":"100"`)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestClient_UnknownEventsSkipped(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event":"mystery","payload":{}}`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event":"chat_response","payload":{"response":"after"}}`)))
		conn.ReadMessage()
	})

	c := NewClient(url, logging.New(nil, "silent"))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	evt := waitEvent(t, c)
	resp, ok := evt.(domain.ChatResponseEvent)
	require.True(t, ok, "unknown event should be skipped, not delivered")
	assert.Equal(t, "after", resp.Response)
}

func TestClient_CloseIdempotent(t *testing.T) {
	url := testServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})

	c := NewClient(url, logging.New(nil, "silent"))
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Emit("chat_request", domain.ChatRequest{}), ErrClientClosed)
}

func TestClient_EmitBeforeConnect(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", logging.New(nil, "silent"))
	assert.Error(t, c.Emit("chat_request", domain.ChatRequest{}))
}

func TestClient_ConnectFailure(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", logging.New(nil, "silent"))
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Connect(ctx))
}
