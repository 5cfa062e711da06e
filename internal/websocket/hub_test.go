package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T, users map[string]uuid.UUID) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, zap.NewNop())
	go hub.Run()

	resolve := func(_ context.Context, token string) (uuid.UUID, error) {
		if id, ok := users[token]; ok {
			return id, nil
		}
		return uuid.Nil, errors.New("unknown token")
	}
	r := gin.New()
	r.GET("/ws", ServeWs(hub, resolve))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestServeWs_RejectsBadToken(t *testing.T) {
	_, url := startHub(t, map[string]uuid.UUID{})

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublish_TargetsRecipient(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	hub, url := startHub(t, map[string]uuid.UUID{"a": alice, "b": bob})

	connA := dial(t, url, "a")
	connB := dial(t, url, "b")
	require.Eventually(t, func() bool { return hub.Connected() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(&bob, "notification", map[string]string{"title": "for bob"})
	hub.Publish(nil, "claim.updated", map[string]string{"uuid": "c1"})

	first := readEnvelope(t, connB)
	assert.Equal(t, "notification", first.Type)
	assert.Equal(t, "claim.updated", readEnvelope(t, connB).Type)

	// alice only sees the broadcast
	assert.Equal(t, "claim.updated", readEnvelope(t, connA).Type)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, url := startHub(t, map[string]uuid.UUID{"a": uuid.New()})
	conn := dial(t, url, "a")
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
}
