package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubBroadcastsToSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	client := &Client{Hub: hub, Send: make(chan []byte, 1)}
	hub.register <- client

	hub.Broadcast <- []byte(`{"event":"fba_order_fulfilled"}`)

	select {
	case event := <-client.Send:
		assert.Equal(t, `{"event":"fba_order_fulfilled"}`, string(event))
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	slow := &Client{Hub: hub, Send: make(chan []byte)} // unbuffered, never read
	hub.register <- slow

	hub.Broadcast <- []byte("first")

	// the dropped client's channel is closed
	select {
	case _, open := <-slow.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not dropped")
	}
}

func TestServeWsRejectsMissingOrInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, []byte("test-secret"))
	})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ws?token=not-a-jwt", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
