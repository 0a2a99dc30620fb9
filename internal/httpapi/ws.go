package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 前端与后端不同源部署，握手不做 Origin 限制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler WebSocket 接入点
// 入站命令 add_video / get_events 与同名 REST 接口语义一致
type WSHandler struct {
	hub     *Hub
	handler *Handler
	logger  *zap.Logger
}

// NewWSHandler 创建 WebSocket 接入点
func NewWSHandler(hub *Hub, handler *Handler, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:     hub,
		handler: handler,
		logger:  logger,
	}
}

// Serve GET /socket
func (ws *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  ws.hub,
		conn: conn,
		send: make(chan []byte, clientSendSize),
	}
	ws.hub.register <- client

	go client.writePump()

	client.Send("connected", map[string]string{"message": "Connected to medical detection server"})

	go ws.readPump(client)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readPump 读取并分发入站命令，连接断开时注销客户端
// 限制单帧大小并依赖 ping/pong 维持读超时，防止挂死连接和超大帧
func (ws *WSHandler) readPump(client *Client) {
	defer func() {
		ws.hub.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxSocketFrame)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			client.Send("error", map[string]string{"message": "invalid message"})
			continue
		}

		switch msg.Type {
		case "add_video":
			ws.handleAddVideo(client, msg.Data)
		case "get_events":
			ws.handleGetEvents(client, msg.Data)
		default:
			client.Send("error", map[string]string{"message": "unknown message type: " + msg.Type})
		}
	}
}

func (ws *WSHandler) handleAddVideo(client *Client, data json.RawMessage) {
	var req addVideoRequest
	if err := json.Unmarshal(data, &req); err != nil {
		client.Send("error", map[string]string{"message": "invalid add_video payload"})
		return
	}

	if err := ws.handler.registry.AddSource(ws.handler.workerCtx, req.SourceID, req.VideoPath, req.Profile); err != nil {
		ws.logger.Warn("Failed to add video source",
			zap.String("source_id", req.SourceID),
			zap.Error(err),
		)
		client.Send("error", map[string]string{"message": err.Error()})
		return
	}

	ws.hub.Broadcast("video_added", map[string]string{
		"source_id":  req.SourceID,
		"video_path": req.VideoPath,
	})
}

func (ws *WSHandler) handleGetEvents(client *Client, data json.RawMessage) {
	var req struct {
		SourceID string `json:"source_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.SourceID == "" {
		client.Send("error", map[string]string{"message": "source_id is required"})
		return
	}

	client.Send("events_history", eventsResponse{
		SourceID: req.SourceID,
		Events:   ws.handler.history.Snapshot(req.SourceID),
	})
}
