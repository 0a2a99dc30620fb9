package httpapi

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wisefido-vision/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialTestSocket(t *testing.T, registry *fakeRegistry, history *fakeHistory) (*websocket.Conn, *Hub, func()) {
	logger := zap.NewNop()
	hub := NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	h := NewHandler(ctx, registry, history, &fakeNotifier{}, hub, logger)
	ws := NewWSHandler(hub, h, logger)

	router := NewRouter(logger)
	router.RegisterRoutes(h, ws)
	server := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		server.Close()
		cancel()
	}
	return conn, hub, cleanup
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	return Message{Type: msg.Type, Data: msg.Data}
}

func TestWebSocket_ConnectedGreeting(t *testing.T) {
	conn, _, cleanup := dialTestSocket(t, &fakeRegistry{}, &fakeHistory{})
	defer cleanup()

	msg := readMessage(t, conn)
	assert.Equal(t, "connected", msg.Type)
}

func TestWebSocket_GetEvents(t *testing.T) {
	history := &fakeHistory{
		events: map[string][]models.EventSummary{
			"fall_incident": {
				{EventID: "evt-1", SourceID: "fall_incident", RiskLevel: models.SeverityCritical},
			},
		},
	}
	conn, _, cleanup := dialTestSocket(t, &fakeRegistry{}, history)
	defer cleanup()

	readMessage(t, conn) // connected

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "get_events",
		"data": map[string]string{"source_id": "fall_incident"},
	}))

	msg := readMessage(t, conn)
	require.Equal(t, "events_history", msg.Type)

	var resp eventsResponse
	require.NoError(t, json.Unmarshal(msg.Data.(json.RawMessage), &resp))
	assert.Equal(t, "fall_incident", resp.SourceID)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "evt-1", resp.Events[0].EventID)
}

func TestWebSocket_BroadcastReachesClient(t *testing.T) {
	conn, hub, cleanup := dialTestSocket(t, &fakeRegistry{}, &fakeHistory{})
	defer cleanup()

	readMessage(t, conn) // connected

	// 等注册完成后再广播
	time.Sleep(50 * time.Millisecond)
	hub.Broadcast("medical_event", map[string]string{"event_id": "evt-9"})

	msg := readMessage(t, conn)
	assert.Equal(t, "medical_event", msg.Type)
}

func TestWebSocket_AddVideoError(t *testing.T) {
	registry := &fakeRegistry{sources: map[string]bool{"fall_incident": true}}
	conn, _, cleanup := dialTestSocket(t, registry, &fakeHistory{})
	defer cleanup()

	readMessage(t, conn) // connected

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "add_video",
		"data": map[string]string{"source_id": "fall_incident", "video_path": "clip"},
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
}

func TestWebSocket_OversizedFrameDisconnects(t *testing.T) {
	conn, _, cleanup := dialTestSocket(t, &fakeRegistry{}, &fakeHistory{})
	defer cleanup()

	readMessage(t, conn) // connected

	big := make([]byte, maxSocketFrame+1)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, big))

	// 超过单帧上限，服务端以 1009 断开
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var err error
	for i := 0; i < 5; i++ {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig))
}

func TestWebSocket_UnknownMessageType(t *testing.T) {
	conn, _, cleanup := dialTestSocket(t, &fakeRegistry{}, &fakeHistory{})
	defer cleanup()

	readMessage(t, conn) // connected

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))

	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
}
