package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/schema"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "dialing the hub")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err, "reading from the hub")
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHub_SnapshotReachesSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	conn := dialTestHub(t, hub)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "subscribe",
		"entities": []string{"ai_result"},
	}))

	ack := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscribe, ack.Type)

	// The subscription ack above guarantees the client's topic set is in
	// place before the snapshot goes out.
	hub.BroadcastSnapshot("ai_result", []schema.Record{
		{"id": "r1", "status": "queued"},
	})

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSnapshot, msg.Type)
	assert.Equal(t, "ai_result", msg.Entity)

	payload, ok := msg.Payload.([]any)
	require.True(t, ok, "payload is the record list")
	require.Len(t, payload, 1)
}

func TestHub_UnsubscribedEntityIsFiltered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	conn := dialTestHub(t, hub)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "subscribe",
		"entities": []string{"dashboard"},
	}))
	readMessage(t, conn) // ack

	hub.BroadcastSnapshot("ai_result", []schema.Record{{"id": "r1"}})
	hub.BroadcastSnapshot("dashboard", []schema.Record{{"id": "d1"}})

	msg := readMessage(t, conn)
	assert.Equal(t, "dashboard", msg.Entity, "only the subscribed entity arrives")
}

func TestHub_WatchPumpsCollectionSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	conn := dialTestHub(t, hub)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "subscribe",
		"entities": []string{"content_source"},
	}))
	readMessage(t, conn) // ack

	coll := bostore.NewCollection()
	snapshots, cancelSub := coll.Subscribe(4)
	hub.Watch(ctx, "content_source", snapshots, cancelSub)

	coll.Append(schema.Record{"id": "s1", "name": "feed"})

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSnapshot, msg.Type)
	assert.Equal(t, "content_source", msg.Entity)
}

func TestHub_ShutdownReleasesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	conn := dialTestHub(t, hub)
	require.Eventually(t, func() bool {
		return hub.ConnectedClients() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after context cancellation")
	}
	assert.Zero(t, hub.ConnectedClients())

	// The connection is closed from the hub side, so the client's read
	// fails with a close error rather than sitting open until a timeout.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection must be closed, not left dangling")
	}
}

func TestHub_ConnectionAfterShutdownIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)
	cancel()
	<-hub.done

	conn := dialTestHub(t, hub)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "upgrade after shutdown must close the connection")
	}
	assert.Zero(t, hub.ConnectedClients())
}

func TestHub_ConnectedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)
	assert.Zero(t, hub.ConnectedClients())

	dialTestHub(t, hub)
	assert.Eventually(t, func() bool {
		return hub.ConnectedClients() == 1
	}, time.Second, 10*time.Millisecond)
}
