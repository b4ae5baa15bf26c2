package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"guest-snapper/internal/redis"
	"guest-snapper/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_BroadcastReachesSubscribersOnly(t *testing.T) {
	hub := startHub(t)
	channel := redis.UploadChannel("e1")

	a := NewClient(nil, "e1")
	b := NewClient(nil, "e2")
	hub.Register(a, channel)
	hub.Register(b, redis.UploadChannel("e2"))

	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(channel, []byte(`{"kind":"overall_progress"}`))
	select {
	case msg := <-a.Send:
		assert.JSONEq(t, `{"kind":"overall_progress"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive broadcast")
	}
	assert.Empty(t, b.Send)
	assert.True(t, a.IsSubscribed(channel))
}

func TestHub_UnregisterClosesSendAndDropsChannels(t *testing.T) {
	hub := startHub(t)
	channel := redis.UploadChannel("e1")

	c := NewClient(nil, "e1")
	hub.Register(c, channel)
	hub.Subscribe(c, redis.UploadChannel("e9"))
	hub.Unsubscribe(c, redis.UploadChannel("e9"))
	hub.Unregister(c)

	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 0 && hub.GetChannelSubscriberCount(channel) == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)

	// Unregistering twice must not close Send again.
	hub.Unregister(c)
	hub.Broadcast(channel, []byte("late"))
}

type fakeSubscriber struct {
	messages [][2]string
}

func (f *fakeSubscriber) SubscribeUploads(ctx context.Context, handler func(channel string, payload []byte)) error {
	for _, m := range f.messages {
		handler(m[0], []byte(m[1]))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRedisBridge_ForwardsUploadChannels(t *testing.T) {
	hub := startHub(t)
	viewer := NewClient(nil, "e1")
	hub.Register(viewer, redis.UploadChannel("e1"))
	require.Eventually(t, func() bool { return hub.GetChannelSubscriberCount(redis.UploadChannel("e1")) == 1 }, time.Second, 5*time.Millisecond)

	sub := &fakeSubscriber{messages: [][2]string{
		{"channel:user:7", "ignored"},
		{redis.UploadChannel("e1"), "first"},
		{redis.UploadChannel("e2"), "elsewhere"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRedisBridge(sub, hub, logger.Nop()).Run(ctx) }()

	select {
	case msg := <-viewer.Send:
		assert.Equal(t, "first", string(msg))
	case <-time.After(time.Second):
		t.Fatal("bridge did not forward")
	}

	cancel()
	assert.NoError(t, <-done)
	assert.Empty(t, viewer.Send)
}

func TestHandler_StreamsEventProgress(t *testing.T) {
	hub := startHub(t)
	r := gin.New()
	r.GET("/v1/ws/uploads", NewHandler(hub, logger.Nop()).Connect)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/v1/ws/uploads")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws/uploads?event_id=e1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	channel := redis.UploadChannel("e1")
	require.Eventually(t, func() bool { return hub.GetChannelSubscriberCount(channel) == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(channel, []byte(`{"kind":"file_complete","event_id":"e1"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"file_complete","event_id":"e1"}`, string(msg))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
